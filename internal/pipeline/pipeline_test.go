package pipeline

import (
	"context"
	"testing"

	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestMatchesEventFiltersOnWorkspaceAndFilters(t *testing.T) {
	reg := New()
	p := &model.Pipeline{
		WorkspaceID: "ws1",
		Definition: model.PipelineDefinition{
			Enabled: true,
			Triggers: []model.PipelineTrigger{
				{Event: "fixture.updated", Filters: map[string]string{"schema_type": "http"}},
			},
		},
	}
	reg.Upsert(p)

	match := reg.MatchingPipelines(model.PipelineEvent{
		EventType: "fixture.updated", WorkspaceID: "ws1",
		Payload: map[string]interface{}{"schema_type": "http"},
	})
	if len(match) != 1 {
		t.Fatalf("expected 1 match, got %d", len(match))
	}

	noMatch := reg.MatchingPipelines(model.PipelineEvent{
		EventType: "fixture.updated", WorkspaceID: "ws2",
		Payload: map[string]interface{}{"schema_type": "http"},
	})
	if len(noMatch) != 0 {
		t.Fatalf("expected 0 matches for mismatched workspace, got %d", len(noMatch))
	}

	wrongFilter := reg.MatchingPipelines(model.PipelineEvent{
		EventType: "fixture.updated", WorkspaceID: "ws1",
		Payload: map[string]interface{}{"schema_type": "grpc"},
	})
	if len(wrongFilter) != 0 {
		t.Fatalf("expected 0 matches for mismatched filter, got %d", len(wrongFilter))
	}
}

func TestMatchesEventDisabledPipelineExcluded(t *testing.T) {
	reg := New()
	reg.Upsert(&model.Pipeline{
		Definition: model.PipelineDefinition{
			Enabled:  false,
			Triggers: []model.PipelineTrigger{{Event: "x"}},
		},
	})
	if got := reg.MatchingPipelines(model.PipelineEvent{EventType: "x"}); len(got) != 0 {
		t.Fatalf("expected disabled pipeline excluded, got %d", len(got))
	}
}

func TestRenderConfigTemplating(t *testing.T) {
	env := buildTemplateEnv("ws1", "org1", "fixture.updated", map[string]interface{}{"name": "hive"})
	config := map[string]interface{}{
		"message": "updated {{name}} in {{workspace_id}}",
		"count":   5,
		"nested":  map[string]interface{}{"org": "{{org_id}}"},
		"unknown": "{{missing}}",
	}
	rendered := renderConfig(config, env)
	if rendered["message"] != "updated hive in ws1" {
		t.Errorf("unexpected message render: %v", rendered["message"])
	}
	if rendered["count"] != 5 {
		t.Errorf("expected non-string leaf to pass through, got %v", rendered["count"])
	}
	nested := rendered["nested"].(map[string]interface{})
	if nested["org"] != "org1" {
		t.Errorf("expected nested render, got %v", nested["org"])
	}
	if rendered["unknown"] != "" {
		t.Errorf("expected unresolved placeholder to render empty, got %v", rendered["unknown"])
	}
}

func TestMatchesEventAcceptsSecondTriggerWhenFirstFilterFails(t *testing.T) {
	reg := New()
	reg.Upsert(&model.Pipeline{
		Definition: model.PipelineDefinition{
			Enabled: true,
			Triggers: []model.PipelineTrigger{
				{Event: "fixture.updated", Filters: map[string]string{"schema_type": "grpc"}},
				{Event: "fixture.updated", Filters: map[string]string{"schema_type": "http"}},
			},
		},
	})

	match := reg.MatchingPipelines(model.PipelineEvent{
		EventType: "fixture.updated",
		Payload:   map[string]interface{}{"schema_type": "http"},
	})
	if len(match) != 1 {
		t.Fatalf("expected the second trigger's matching filters to accept the pipeline, got %d matches", len(match))
	}
}

type blockingExecutor struct {
	called bool
}

func (b *blockingExecutor) StepType() string { return "blocking" }
func (b *blockingExecutor) Execute(ctx context.Context, sc contracts.StepContext) contracts.StepResult {
	b.called = true
	return contracts.StepResult{}
}

func TestRunWithTimeoutZeroFailsWithoutExecuting(t *testing.T) {
	zero := 0
	exec := &blockingExecutor{}
	result := runWithTimeout(context.Background(), exec, contracts.StepContext{StepName: "s"}, &zero)
	if result.Error == nil {
		t.Fatal("expected a timeout error for timeout_s: 0")
	}
	if exec.called {
		t.Error("expected executor.Execute to never run for timeout_s: 0")
	}
}

func TestRunWithTimeoutNilRunsUnbounded(t *testing.T) {
	exec := &blockingExecutor{}
	result := runWithTimeout(context.Background(), exec, contracts.StepContext{StepName: "s"}, nil)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !exec.called {
		t.Error("expected executor.Execute to run when timeout is nil")
	}
}

func TestExecuteStepOrderAndMergedDefaults(t *testing.T) {
	executors := NewExecutorRegistry()
	runner := NewRunner(executors)

	p := &model.Pipeline{
		ID: "p1",
		Definition: model.PipelineDefinition{
			Enabled: true,
			StepDefaults: map[string]map[string]interface{}{
				"regenerate_sdk": {"language": "go"},
			},
			Steps: []model.PipelineStep{
				{Name: "gen", StepType: "regenerate_sdk"},
				{Name: "gen-py", StepType: "regenerate_sdk", Config: map[string]interface{}{"language": "python"}},
			},
		},
	}

	exec := runner.Execute(context.Background(), p, model.PipelineEvent{EventType: "x"})
	if exec.Status != model.ExecCompleted {
		t.Fatalf("expected completed, got %s: %s", exec.Status, exec.ErrorMessage)
	}
	if len(exec.ExecutionLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(exec.ExecutionLog))
	}
	if exec.ExecutionLog[0].Output["language"] != "go" {
		t.Errorf("expected default language go, got %v", exec.ExecutionLog[0].Output["language"])
	}
	if exec.ExecutionLog[1].Output["language"] != "python" {
		t.Errorf("expected step config to win over default, got %v", exec.ExecutionLog[1].Output["language"])
	}
}

func TestExecuteStopsOnFailureWithoutContinueOnError(t *testing.T) {
	executors := NewExecutorRegistry()
	runner := NewRunner(executors)

	p := &model.Pipeline{
		ID: "p1",
		Definition: model.PipelineDefinition{
			Enabled: true,
			Steps: []model.PipelineStep{
				{Name: "unknown-step", StepType: "does_not_exist"},
				{Name: "gen", StepType: "regenerate_sdk"},
			},
		},
	}
	exec := runner.Execute(context.Background(), p, model.PipelineEvent{EventType: "x"})
	if exec.Status != model.ExecFailed {
		t.Fatalf("expected failed, got %s", exec.Status)
	}
	if len(exec.ExecutionLog) != 1 {
		t.Fatalf("expected execution to stop after first failing step, got %d entries", len(exec.ExecutionLog))
	}
}

func TestExecuteContinuesOnErrorWhenConfigured(t *testing.T) {
	executors := NewExecutorRegistry()
	runner := NewRunner(executors)

	p := &model.Pipeline{
		ID: "p1",
		Definition: model.PipelineDefinition{
			Enabled: true,
			Steps: []model.PipelineStep{
				{Name: "unknown-step", StepType: "does_not_exist", ContinueOnError: true},
				{Name: "gen", StepType: "regenerate_sdk"},
			},
		},
	}
	exec := runner.Execute(context.Background(), p, model.PipelineEvent{EventType: "x"})
	if exec.Status != model.ExecCompleted {
		t.Fatalf("expected completed despite first step failing, got %s", exec.Status)
	}
	if len(exec.ExecutionLog) != 2 {
		t.Fatalf("expected both steps logged, got %d", len(exec.ExecutionLog))
	}
}

type fakeChannelDriver struct {
	sent bool
}

func (f *fakeChannelDriver) Kind() string { return "webhook" }
func (f *fakeChannelDriver) Send(ctx context.Context, target string, payload map[string]interface{}) error {
	f.sent = true
	return nil
}

func TestNotifyExecutorDispatchesToDriver(t *testing.T) {
	driver := &fakeChannelDriver{}
	ne := &NotifyExecutor{Drivers: map[string]contracts.ChannelDriver{"webhook": driver}}
	result := ne.Execute(context.Background(), contracts.StepContext{
		Config: map[string]interface{}{"channel": "webhook", "target": "https://example.test/hook"},
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !driver.sent {
		t.Error("expected driver.Send to be called")
	}
}
