// Package protocolreg implements the protocol handler registry and request
// dispatch described in §4.1: register/dispatch/handler_for plus the
// middleware chain integration from §4.2.
package protocolreg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/middleware"
	"github.com/mockforge/mockforge-go/internal/telemetry"
	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

var tracer = telemetry.Tracer("mockforge/protocolreg")

// Registry keys protocol handlers by model.Protocol and dispatches decoded
// requests through the middleware chain to the appropriate handler.
//
// Mirrors the router.ModelRouter driver-registry idiom: a second
// registration for the same key replaces the prior handler and logs a
// warning rather than erroring.
type Registry struct {
	mu       sync.RWMutex
	handlers map[model.Protocol]contracts.ProtocolHandler
	chain    *middleware.Chain
}

// New creates a Registry bound to the given middleware chain.
func New(chain *middleware.Chain) *Registry {
	return &Registry{
		handlers: make(map[model.Protocol]contracts.ProtocolHandler),
		chain:    chain,
	}
}

// Register adds or replaces the handler for its Protocol().
func (r *Registry) Register(h contracts.ProtocolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Protocol()]; exists {
		log.Warn().Str("protocol", string(h.Protocol())).Msg("protocol handler replaced")
	}
	r.handlers[h.Protocol()] = h
}

// HandlerFor returns the handler registered for p, or an error reporting
// "protocol not configured".
func (r *Registry) HandlerFor(p model.Protocol) (contracts.ProtocolHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[p]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "protocol not configured: %s", p)
	}
	return h, nil
}

// Dispatch runs the pre-request chain, delegates to the protocol's handler,
// then runs the post-response chain (§4.1, §4.2).
//
// Decode failures (handled by callers before Dispatch, since decode needs
// raw bytes this uniform entrypoint doesn't carry) never reach user
// middleware; every other handler error flows through PostResponse so
// logging/metrics observe it, per §4.1's failure semantics.
func (r *Registry) Dispatch(ctx context.Context, req *model.ProtocolRequest) *model.ProtocolResponse {
	ctx, span := tracer.Start(ctx, "protocolreg.dispatch")
	defer span.End()

	if err := r.chain.RunPreRequest(ctx, req); err != nil {
		resp := errorResponse(req.Protocol, err)
		r.chain.RunPostResponse(ctx, req, resp)
		return resp
	}

	handler, err := r.HandlerFor(req.Protocol)
	if err != nil {
		resp := errorResponse(req.Protocol, err)
		r.chain.RunPostResponse(ctx, req, resp)
		return resp
	}

	resp, err := handler.Serve(ctx, req)
	if err != nil {
		resp = errorResponse(req.Protocol, err)
	}
	r.chain.RunPostResponse(ctx, req, resp)
	return resp
}

// errorResponse synthesizes a protocol-appropriate error response from err.
// Auth failures (codes "unauthenticated" and "permission_denied") map to
// 401/403 (gRPC Unauthenticated/PermissionDenied) rather than by kind.
func errorResponse(p model.Protocol, err error) *model.ProtocolResponse {
	kind := model.KindOf(err)
	httpCode, grpcCode := httpCodeFor(kind), grpcCodeFor(kind)
	var ce *model.CoreError
	if errors.As(err, &ce) {
		switch ce.Code {
		case "unauthenticated":
			httpCode, grpcCode = 401, 16 // Unauthenticated
		case "permission_denied":
			httpCode, grpcCode = 403, 7 // PermissionDenied
		}
	}
	var status model.ResponseStatus
	switch p {
	case model.ProtocolGRPC:
		status = model.ResponseStatus{Kind: model.StatusKindGRPC, GRPCStatus: grpcCode}
	case model.ProtocolGraphQL:
		status = model.ResponseStatus{Kind: model.StatusKindGraphQL, GraphQLOK: false}
	default:
		status = model.ResponseStatus{Kind: model.StatusKindHTTP, HTTPStatus: httpCode}
	}
	resp := model.NewProtocolResponse(status)
	resp.Body = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	return resp
}

func httpCodeFor(kind model.ErrorKind) uint16 {
	switch kind {
	case model.ErrValidation:
		return 400
	case model.ErrNotFound:
		return 404
	case model.ErrConflict:
		return 409
	case model.ErrDependency:
		return 502
	default:
		return 500
	}
}

// grpcCodeFor maps a CoreError kind to a google.golang.org/grpc/codes value
// without importing the codes package here (kept dependency-light; the
// gRPC handler translates this int back into codes.Code at the transport edge).
func grpcCodeFor(kind model.ErrorKind) int32 {
	switch kind {
	case model.ErrValidation:
		return 3 // InvalidArgument
	case model.ErrNotFound:
		return 5 // NotFound
	case model.ErrConflict:
		return 6 // AlreadyExists
	case model.ErrDependency:
		return 14 // Unavailable
	default:
		return 13 // Internal
	}
}
