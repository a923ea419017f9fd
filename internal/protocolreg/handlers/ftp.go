package handlers

import (
	"context"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// FTPHandler implements contracts.ProtocolHandler for command/path
// traffic (§4.1 one_way pattern). No FTP server library is wired here
// (see DESIGN.md); it expects an edge that already parsed the command verb
// and target path out of the control-channel line.
type FTPHandler struct {
	Base
}

func NewFTPHandler(fixtures *fixture.Registry, seed int64) *FTPHandler {
	return &FTPHandler{Base: Base{Fixtures: fixtures, Seed: seed}}
}

func (h *FTPHandler) Protocol() model.Protocol { return model.ProtocolFTP }

// Decode expects transportCtx to carry "command" (e.g. "STOR", "RETR") and
// "path".
func (h *FTPHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolFTP, model.PatternOneWay)
	req.Path = transportCtx["path"]
	req.Operation = transportCtx["command"] + " " + transportCtx["path"]
	req.Body = raw
	return req, nil
}

func (h *FTPHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *FTPHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolFTP, req.Operation)
}
