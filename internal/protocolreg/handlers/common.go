// Package handlers implements the concrete contracts.ProtocolHandler for
// every wire protocol named in §1: HTTP, gRPC, WebSocket, GraphQL, AMQP,
// MQTT, Kafka, SMTP, FTP. Wire framing itself (HTTP/1.1 octets, MQTT packet
// bytes, protobuf encoding) is explicitly out of scope (§1 Non-goals); each
// handler assumes a transport edge has already split raw bytes from
// connection metadata and deals only in the uniform ProtocolRequest shape.
package handlers

import (
	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Base implements the fixture-first, spec-fallback serve path every
// protocol handler shares (§4.1 step 4; §4.9): try a fixture match, and
// when nothing matches let the caller fall through to its protocol-specific
// spec registry before finally reporting not_found.
type Base struct {
	Fixtures *fixture.Registry
	Seed     int64
}

// matchFixture reports whether a fixture matched req, converting it to a
// ProtocolResponse. matched is false (with a nil error) when nothing
// matched, letting the caller try a spec fallback.
func (b Base) matchFixture(req *model.ProtocolRequest) (resp *model.ProtocolResponse, matched bool, err error) {
	f := b.Fixtures.Match(req)
	if f == nil {
		return nil, false, nil
	}
	resp, err = fixture.ToResponse(f, req.Protocol)
	return resp, true, err
}

// notFound builds the terminal error when neither a fixture nor a spec
// operation covers a request.
func notFound(protocol model.Protocol, operation string) error {
	return model.NewError(model.ErrNotFound, "no fixture or spec operation matched %s %s", protocol, operation)
}
