package handlers

import (
	"context"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// SMTPHandler implements contracts.ProtocolHandler for inbound mail
// capture (§4.1 one_way pattern). No SMTP server library is wired here
// (see DESIGN.md); it expects an edge that already parsed DATA into
// from/to/subject and hands the raw message body through.
type SMTPHandler struct {
	Base
}

func NewSMTPHandler(fixtures *fixture.Registry, seed int64) *SMTPHandler {
	return &SMTPHandler{Base: Base{Fixtures: fixtures, Seed: seed}}
}

func (h *SMTPHandler) Protocol() model.Protocol { return model.ProtocolSMTP }

// Decode expects transportCtx to carry "from", "to", and "subject".
func (h *SMTPHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolSMTP, model.PatternOneWay)
	req.Operation = transportCtx["to"]
	req.Body = raw
	req.Metadata.Set("from", transportCtx["from"])
	req.Metadata.Set("to", transportCtx["to"])
	req.Metadata.Set("subject", transportCtx["subject"])
	return req, nil
}

func (h *SMTPHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve matches a fixture keyed by recipient; one_way traffic has no
// meaningful "response" beyond an acceptance acknowledgement, which the
// matched fixture's declared body/status stands in for.
func (h *SMTPHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolSMTP, req.Operation)
}
