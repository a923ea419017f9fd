package model

import "time"

// PipelineEvent is a lifecycle event that pipelines subscribe to (§3).
type PipelineEvent struct {
	EventType   string                 `json:"event_type"`
	WorkspaceID string                 `json:"workspace_id,omitempty"`
	OrgID       string                 `json:"org_id,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// PipelineTrigger binds an event type to filters.
type PipelineTrigger struct {
	Event   string            `json:"event"`
	Filters map[string]string `json:"filters,omitempty"`
}

// PipelineStep is one ordered, executable unit of a PipelineDefinition.
type PipelineStep struct {
	Name            string                 `json:"name"`
	StepType        string                 `json:"step_type"`
	Config          map[string]interface{} `json:"config,omitempty"`
	ContinueOnError bool                   `json:"continue_on_error,omitempty"`
	TimeoutSeconds  *int                   `json:"timeout_seconds,omitempty"`
}

// PipelineDefinition is the declarative body of a Pipeline (§3).
type PipelineDefinition struct {
	Name         string                                    `json:"name"`
	Description  string                                    `json:"description,omitempty"`
	Triggers     []PipelineTrigger                          `json:"triggers"`
	Steps        []PipelineStep                             `json:"steps"`
	Enabled      bool                                       `json:"enabled"`
	StepDefaults map[string]map[string]interface{}          `json:"step_defaults,omitempty"` // step_type -> config defaults
}

// Pipeline is a registered, scoped PipelineDefinition (§3).
type Pipeline struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Definition  PipelineDefinition `json:"definition"`
	WorkspaceID string             `json:"workspace_id,omitempty"` // "" = any workspace
	OrgID       string             `json:"org_id,omitempty"`       // "" = global
	CreatedAt   time.Time          `json:"created_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// PipelineExecutionStatus is the lifecycle status of a PipelineExecution.
type PipelineExecutionStatus string

const (
	ExecStarted   PipelineExecutionStatus = "started"
	ExecRunning   PipelineExecutionStatus = "running"
	ExecCompleted PipelineExecutionStatus = "completed"
	ExecFailed    PipelineExecutionStatus = "failed"
	ExecCancelled PipelineExecutionStatus = "cancelled"
)

// StepExecutionResult records the outcome of one executed step.
type StepExecutionResult struct {
	StepName  string                 `json:"step_name"`
	Status    string                 `json:"status"` // "success" | "failed" | "timeout"
	Output    map[string]interface{} `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
}

// PipelineExecution is one run of a Pipeline against a triggering event (§3).
type PipelineExecution struct {
	ID           string                  `json:"id"`
	PipelineID   string                  `json:"pipeline_id"`
	TriggerEvent PipelineEvent           `json:"trigger_event"`
	Status       PipelineExecutionStatus `json:"status"`
	StartedAt    time.Time               `json:"started_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	ExecutionLog []StepExecutionResult   `json:"execution_log"`
}
