package handlers

import (
	"context"
	"strings"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// HTTPHandler implements contracts.ProtocolHandler for REST-style
// request/response traffic (§4.1, §6). The transport edge (internal/api's
// chi router, for the management surface, or a dedicated mock-serving
// mux) is responsible for separating method/path/headers before calling
// Decode; this handler only maps that shape onto ProtocolRequest.
type HTTPHandler struct {
	Base
	Specs *spec.OpenAPIRegistry // optional; nil disables spec-driven generation
}

// NewHTTPHandler builds an HTTPHandler over a fixture registry and an
// optional OpenAPI-derived spec registry.
func NewHTTPHandler(fixtures *fixture.Registry, specs *spec.OpenAPIRegistry, seed int64) *HTTPHandler {
	return &HTTPHandler{Base: Base{Fixtures: fixtures, Seed: seed}, Specs: specs}
}

func (h *HTTPHandler) Protocol() model.Protocol { return model.ProtocolHTTP }

// Decode builds a ProtocolRequest from transportCtx. Header values are
// passed under a "header." prefix and folded back into Metadata; "method",
// "path", and "remote_addr" carry their own fields.
func (h *HTTPHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Operation = transportCtx["method"]
	req.Path = transportCtx["path"]
	req.ClientIP = transportCtx["remote_addr"]
	req.Body = raw
	const headerPrefix = "header."
	for k, v := range transportCtx {
		if name, ok := strings.CutPrefix(k, headerPrefix); ok {
			req.Metadata.Set(name, v)
		}
	}
	return req, nil
}

// Encode returns the response body verbatim; status line and headers are
// applied by the transport edge from resp.Status and resp.Metadata.
func (h *HTTPHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve matches a fixture by method+path template, falling back to
// OpenAPI-schema generation (§4.9) when nothing matches.
func (h *HTTPHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	if h.Specs != nil {
		if _, ok := h.Specs.LookupByRequest(req.Operation, req.Path); ok {
			return h.Specs.GenerateForRequest(req.Operation, req.Path, h.Seed)
		}
	}
	return nil, notFound(model.ProtocolHTTP, req.Operation+" "+req.Path)
}
