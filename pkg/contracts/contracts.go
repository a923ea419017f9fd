// Package contracts defines the small set of interfaces that let the core
// subsystems stay polymorphic over protocols, middlewares, and pipeline
// step types without an inheritance hierarchy (§9 "Dynamic dispatch").
package contracts

import (
	"context"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// ProtocolHandler translates wire bytes to/from the uniform
// ProtocolRequest/ProtocolResponse and serves a decoded request (§4.1).
type ProtocolHandler interface {
	Protocol() model.Protocol
	Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error)
	Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error)
	Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error)
}

// StreamingProtocolHandler is an OPTIONAL interface a ProtocolHandler can
// implement to support pull-based streaming responses (§9 "Generators /
// coroutines"). Checked at runtime via type assertion.
type StreamingProtocolHandler interface {
	ProtocolHandler
	ServeStream(ctx context.Context, req *model.ProtocolRequest) (ResponseStream, error)
}

// ResponseStream is a pull-based iterator of ProtocolResponse frames.
// Next returns (nil, false) once the stream is exhausted or the context
// is cancelled; cancellation is observed at the next frame boundary.
type ResponseStream interface {
	Next(ctx context.Context) (*model.ProtocolResponse, bool, error)
	Close() error
}

// Middleware implements one pre/post hook pair in the dispatch chain (§4.2).
type Middleware interface {
	Name() string
	SupportsProtocol(p model.Protocol) bool
	PreRequest(ctx context.Context, req *model.ProtocolRequest) error
	PostResponse(ctx context.Context, req *model.ProtocolRequest, resp *model.ProtocolResponse) error
}

// StepContext is the execution context handed to a StepExecutor (§4.4).
type StepContext struct {
	ExecutionID  string
	Event        model.PipelineEvent
	Config       map[string]interface{}
	StepName     string
	WorkspaceID  string
	PipelineID   string
	StepDefaults map[string]interface{}
}

// StepResult is what a StepExecutor returns.
type StepResult struct {
	Output map[string]interface{}
	Error  error
}

// StepExecutor runs one pipeline step type (§4.4).
type StepExecutor interface {
	StepType() string
	Execute(ctx context.Context, sc StepContext) StepResult
}

// ChannelDriver dispatches a notification to one external channel kind
// (webhook, Slack, …). Reused by the pipeline "notify" step.
type ChannelDriver interface {
	Kind() string
	Send(ctx context.Context, target string, payload map[string]interface{}) error
}

// GitOpsProvider creates a pull request for a promoted entity (§4.6).
type GitOpsProvider interface {
	Name() string
	CreatePullRequest(ctx context.Context, req GitOpsPRRequest) (string, error)
}

// GitOpsPRRequest is the payload a GitOpsProvider serializes into a PR.
type GitOpsPRRequest struct {
	WorkspaceID   string
	EntityType    string
	EntityID      string
	EntityVersion string
	ToEnvironment string
	Serialized    []byte
}
