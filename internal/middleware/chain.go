// Package middleware implements the ordered pre-request/post-response
// middleware chain shared by every protocol (§4.2), generalizing the
// chain-of-providers pattern the teacher used for HTTP-only auth.
package middleware

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Chain stores middlewares in registration order and runs pre-request hooks
// forward, post-response hooks in reverse, each filtered by SupportsProtocol.
type Chain struct {
	middlewares []contracts.Middleware
}

// NewChain builds a chain over the given middlewares, preserving order.
func NewChain(mws ...contracts.Middleware) *Chain {
	return &Chain{middlewares: append([]contracts.Middleware(nil), mws...)}
}

// Use appends a middleware to the end of the chain.
func (c *Chain) Use(mw contracts.Middleware) {
	c.middlewares = append(c.middlewares, mw)
}

// RunPreRequest runs pre-request hooks in registration order, skipping
// middlewares that don't support the request's protocol. The first error
// short-circuits the chain (§4.2).
func (c *Chain) RunPreRequest(ctx context.Context, req *model.ProtocolRequest) error {
	for _, mw := range c.middlewares {
		if !mw.SupportsProtocol(req.Protocol) {
			continue
		}
		if err := mw.PreRequest(ctx, req); err != nil {
			log.Debug().Str("middleware", mw.Name()).Err(err).Msg("pre-request hook rejected request")
			return err
		}
	}
	return nil
}

// RunPostResponse runs post-response hooks in reverse registration order,
// skipping middlewares that don't support the request's protocol. Errors
// are logged and dropped, never re-raised to the caller (§7).
func (c *Chain) RunPostResponse(ctx context.Context, req *model.ProtocolRequest, resp *model.ProtocolResponse) {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		mw := c.middlewares[i]
		if !mw.SupportsProtocol(req.Protocol) {
			continue
		}
		if err := mw.PostResponse(ctx, req, resp); err != nil {
			log.Warn().Str("middleware", mw.Name()).Err(err).Msg("post-response hook failed")
		}
	}
}
