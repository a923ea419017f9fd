package middleware

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Logging records request and response summaries. It emits only and never
// modifies the request or response, matching §4.2's built-in description.
type Logging struct{}

func NewLogging() *Logging { return &Logging{} }

func (l *Logging) Name() string { return "logging" }

func (l *Logging) SupportsProtocol(model.Protocol) bool { return true }

func (l *Logging) PreRequest(_ context.Context, req *model.ProtocolRequest) error {
	log.Info().
		Str("protocol", string(req.Protocol)).
		Str("operation", req.Operation).
		Str("path", req.Path).
		Msg("request received")
	return nil
}

func (l *Logging) PostResponse(_ context.Context, req *model.ProtocolRequest, resp *model.ProtocolResponse) error {
	code, _ := resp.Status.AsCode()
	log.Info().
		Str("protocol", string(req.Protocol)).
		Str("operation", req.Operation).
		Int32("status", code).
		Bool("success", resp.Status.IsSuccess()).
		Msg("response sent")
	return nil
}
