package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/telemetry"
	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

var tracer = telemetry.Tracer("mockforge/pipeline")

// ExecutorRegistry resolves step_type to a contracts.StepExecutor (§4.4
// "Executor"). Grounded on the teacher's notify.Service driver registry.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[string]contracts.StepExecutor
}

// NewExecutorRegistry creates a registry with the four required built-ins
// registered (§4.4: regenerate_sdk, auto_promote, notify, create_pr).
func NewExecutorRegistry() *ExecutorRegistry {
	r := &ExecutorRegistry{executors: make(map[string]contracts.StepExecutor)}
	r.Register(&RegenerateSDKExecutor{})
	r.Register(&AutoPromoteExecutor{})
	r.Register(&NotifyExecutor{})
	r.Register(&CreatePRExecutor{})
	return r
}

// Register adds or replaces the executor for its StepType.
func (r *ExecutorRegistry) Register(e contracts.StepExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.StepType()]; exists {
		log.Warn().Str("step_type", e.StepType()).Msg("replacing already-registered pipeline step executor")
	}
	r.executors[e.StepType()] = e
}

func (r *ExecutorRegistry) get(stepType string) (contracts.StepExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[stepType]
	return e, ok
}

// Runner drives pipeline executions against a registry of StepExecutors.
type Runner struct {
	executors *ExecutorRegistry
}

// NewRunner builds a Runner over the given executor registry.
func NewRunner(executors *ExecutorRegistry) *Runner {
	return &Runner{executors: executors}
}

// Execute runs pipeline against event per the §4.4 "Execution" algorithm.
func (run *Runner) Execute(ctx context.Context, p *model.Pipeline, event model.PipelineEvent) *model.PipelineExecution {
	ctx, span := tracer.Start(ctx, "pipeline.execute")
	defer span.End()

	exec := &model.PipelineExecution{
		ID:           uuid.New().String(),
		PipelineID:   p.ID,
		TriggerEvent: event,
		Status:       model.ExecRunning,
		StartedAt:    time.Now().UTC(),
	}

	env := buildTemplateEnv(event.WorkspaceID, event.OrgID, event.EventType, event.Payload)

	for _, step := range p.Definition.Steps {
		result := run.executeStep(ctx, p, exec, step, event, env)
		exec.ExecutionLog = append(exec.ExecutionLog, result)

		if result.Status != "success" {
			if step.ContinueOnError {
				log.Warn().Str("pipeline_id", p.ID).Str("step", step.Name).Str("error", result.Error).
					Msg("pipeline step failed; continue_on_error set, proceeding")
				continue
			}
			exec.Status = model.ExecFailed
			now := time.Now().UTC()
			exec.CompletedAt = &now
			exec.ErrorMessage = fmt.Sprintf("step %q failed: %s", step.Name, result.Error)
			return exec
		}
	}

	exec.Status = model.ExecCompleted
	now := time.Now().UTC()
	exec.CompletedAt = &now
	return exec
}

func (run *Runner) executeStep(ctx context.Context, p *model.Pipeline, exec *model.PipelineExecution, step model.PipelineStep, event model.PipelineEvent, env map[string]interface{}) model.StepExecutionResult {
	result := model.StepExecutionResult{StepName: step.Name, StartedAt: time.Now().UTC()}

	merged := mergeConfig(p.Definition.StepDefaults[step.StepType], step.Config)
	rendered := renderConfig(merged, env)

	executor, ok := run.executors.get(step.StepType)
	if !ok {
		result.Status = "failed"
		result.Error = fmt.Sprintf("no executor registered for step_type %q", step.StepType)
		result.EndedAt = time.Now().UTC()
		return result
	}

	sc := contracts.StepContext{
		ExecutionID:  exec.ID,
		Event:        event,
		Config:       rendered,
		StepName:     step.Name,
		WorkspaceID:  p.WorkspaceID,
		PipelineID:   p.ID,
		StepDefaults: p.Definition.StepDefaults[step.StepType],
	}

	stepResult := runWithTimeout(ctx, executor, sc, step.TimeoutSeconds)

	result.EndedAt = time.Now().UTC()
	if stepResult.Error != nil {
		result.Status = "failed"
		result.Error = stepResult.Error.Error()
		return result
	}
	result.Status = "success"
	result.Output = stepResult.Output
	return result
}

// runWithTimeout enforces the per-step hard cap named in §4.4 "Guarantees".
// A timeout of exactly 0 fails the step before its executor ever runs; only
// a nil pointer means no timeout at all.
func runWithTimeout(ctx context.Context, executor contracts.StepExecutor, sc contracts.StepContext, timeoutSeconds *int) contracts.StepResult {
	if timeoutSeconds == nil {
		return executor.Execute(ctx, sc)
	}
	if *timeoutSeconds == 0 {
		return contracts.StepResult{Error: fmt.Errorf("step %q timed out after %ds", sc.StepName, *timeoutSeconds)}
	}

	stepCtx, cancel := context.WithTimeout(ctx, time.Duration(*timeoutSeconds)*time.Second)
	defer cancel()

	done := make(chan contracts.StepResult, 1)
	go func() {
		done <- executor.Execute(stepCtx, sc)
	}()

	select {
	case r := <-done:
		return r
	case <-stepCtx.Done():
		return contracts.StepResult{Error: fmt.Errorf("step %q timed out after %ds", sc.StepName, *timeoutSeconds)}
	}
}

// mergeConfig merges step_defaults with step.config, step winning on key
// collision (§4.4 "Execution" step 2).
func mergeConfig(defaults, stepConfig map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(stepConfig))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range stepConfig {
		merged[k] = v
	}
	return merged
}
