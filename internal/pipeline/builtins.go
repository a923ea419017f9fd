package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/contracts"
)

// RegenerateSDKExecutor models client-SDK regeneration as a logged no-op;
// the actual codegen toolchain is an external collaborator (§4.4 required
// built-in "regenerate_sdk").
type RegenerateSDKExecutor struct{}

// StepType returns "regenerate_sdk".
func (e *RegenerateSDKExecutor) StepType() string { return "regenerate_sdk" }

// Execute logs the regeneration request and reports success.
func (e *RegenerateSDKExecutor) Execute(ctx context.Context, sc contracts.StepContext) contracts.StepResult {
	language, _ := sc.Config["language"].(string)
	log.Info().Str("pipeline_id", sc.PipelineID).Str("language", language).
		Msg("regenerate_sdk step invoked")
	return contracts.StepResult{Output: map[string]interface{}{"language": language, "triggered": true}}
}

// AutoPromoteExecutor requests a PromotionRequest via a caller-supplied
// callback, decoupling the pipeline package from internal/promotion
// (avoids an import cycle — promotion subscribes to pipeline-adjacent events).
type AutoPromoteExecutor struct {
	Promote func(ctx context.Context, sc contracts.StepContext) (string, error)
}

// StepType returns "auto_promote".
func (e *AutoPromoteExecutor) StepType() string { return "auto_promote" }

// Execute invokes the configured Promote callback, if any.
func (e *AutoPromoteExecutor) Execute(ctx context.Context, sc contracts.StepContext) contracts.StepResult {
	if e.Promote == nil {
		return contracts.StepResult{Error: fmt.Errorf("auto_promote: no promotion hook configured")}
	}
	id, err := e.Promote(ctx, sc)
	if err != nil {
		return contracts.StepResult{Error: err}
	}
	return contracts.StepResult{Output: map[string]interface{}{"promotion_request_id": id}}
}

// NotifyExecutor dispatches through a ChannelDriver resolved by "channel"
// config key, mirroring the teacher's notify.Service driver dispatch.
type NotifyExecutor struct {
	Drivers map[string]contracts.ChannelDriver
}

// StepType returns "notify".
func (e *NotifyExecutor) StepType() string { return "notify" }

// Execute sends sc.Config to the named channel driver.
func (e *NotifyExecutor) Execute(ctx context.Context, sc contracts.StepContext) contracts.StepResult {
	channel, _ := sc.Config["channel"].(string)
	driver, ok := e.Drivers[channel]
	if !ok {
		return contracts.StepResult{Error: fmt.Errorf("notify: no channel driver registered for %q", channel)}
	}
	target, _ := sc.Config["target"].(string)
	if err := driver.Send(ctx, target, sc.Config); err != nil {
		return contracts.StepResult{Error: fmt.Errorf("notify: %w", err)}
	}
	return contracts.StepResult{Output: map[string]interface{}{"channel": channel, "sent": true}}
}

// CreatePRExecutor opens a GitOps pull request via a caller-supplied
// GitOpsProvider (§4.6's optional GitOps hook, reused here as a pipeline
// step so a pipeline can trigger promotion PRs directly from an event).
type CreatePRExecutor struct {
	Provider contracts.GitOpsProvider
}

// StepType returns "create_pr".
func (e *CreatePRExecutor) StepType() string { return "create_pr" }

// Execute builds a GitOpsPRRequest from step config and creates the PR.
func (e *CreatePRExecutor) Execute(ctx context.Context, sc contracts.StepContext) contracts.StepResult {
	if e.Provider == nil {
		return contracts.StepResult{Error: fmt.Errorf("create_pr: no GitOps provider configured")}
	}
	req := contracts.GitOpsPRRequest{
		WorkspaceID:   sc.WorkspaceID,
		EntityType:    stringConfig(sc.Config, "entity_type"),
		EntityID:      stringConfig(sc.Config, "entity_id"),
		EntityVersion: stringConfig(sc.Config, "entity_version"),
		ToEnvironment: stringConfig(sc.Config, "to_environment"),
	}
	url, err := e.Provider.CreatePullRequest(ctx, req)
	if err != nil {
		return contracts.StepResult{Error: err}
	}
	return contracts.StepResult{Output: map[string]interface{}{"pr_url": url}}
}

func stringConfig(config map[string]interface{}, key string) string {
	s, _ := config[key].(string)
	return s
}
