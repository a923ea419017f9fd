package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// WebSocketHandler implements contracts.StreamingProtocolHandler over
// gorilla/websocket connections (§4.1 streaming pattern, §9 "generators /
// coroutines"): each inbound client frame is matched against fixtures
// independently and answered with one frame back.
type WebSocketHandler struct {
	Base
	Upgrader websocket.Upgrader
}

// NewWebSocketHandler builds a WebSocketHandler over a fixture registry.
// CORS-style origin checking is left permissive; the management API's CORS
// middleware governs browser access to the mock surface itself.
func NewWebSocketHandler(fixtures *fixture.Registry, seed int64) *WebSocketHandler {
	return &WebSocketHandler{
		Base: Base{Fixtures: fixtures, Seed: seed},
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandler) Protocol() model.Protocol { return model.ProtocolWebSocket }

func (h *WebSocketHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolWebSocket, model.PatternStreaming)
	req.Operation = transportCtx["path"]
	req.Path = transportCtx["path"]
	req.Body = raw
	return req, nil
}

func (h *WebSocketHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve handles a single already-decoded frame against fixtures; live
// connections instead flow through UpgradeAndServe/ServeStream.
func (h *WebSocketHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolWebSocket, req.Operation)
}

// ServeStream satisfies contracts.StreamingProtocolHandler for callers that
// type-assert for it; a connected stream can only be produced from an
// already-upgraded net/http connection, so real traffic goes through
// UpgradeAndServe instead.
func (h *WebSocketHandler) ServeStream(ctx context.Context, req *model.ProtocolRequest) (contracts.ResponseStream, error) {
	return nil, model.NewError(model.ErrInternal, "websocket streams require an upgraded connection; use UpgradeAndServe")
}

// UpgradeAndServe upgrades an inbound HTTP request to a websocket
// connection and answers fixture-matched frames until the client
// disconnects or ctx is cancelled.
func (h *WebSocketHandler) UpgradeAndServe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stream := &wsStream{conn: conn, handler: h, path: r.URL.Path}
	for {
		resp, ok, err := stream.Next(ctx)
		if err != nil {
			log.Warn().Err(err).Str("path", stream.path).Msg("websocket stream ended with error")
			return err
		}
		if !ok {
			return nil
		}
		if err := conn.WriteMessage(websocket.TextMessage, resp.Body); err != nil {
			return err
		}
	}
}

// wsStream pulls one ProtocolResponse per inbound client frame.
type wsStream struct {
	conn    *websocket.Conn
	handler *WebSocketHandler
	path    string
}

func (s *wsStream) Next(ctx context.Context) (*model.ProtocolResponse, bool, error) {
	type frame struct {
		data []byte
		err  error
	}
	done := make(chan frame, 1)
	go func() {
		_, data, err := s.conn.ReadMessage()
		done <- frame{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, false, nil
	case f := <-done:
		if f.err != nil {
			if websocket.IsCloseError(f.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, false, nil
			}
			return nil, false, f.err
		}
		req := model.NewProtocolRequest(model.ProtocolWebSocket, model.PatternStreaming)
		req.Operation = s.path
		req.Path = s.path
		req.Body = f.data
		resp, matched, err := s.handler.matchFixture(req)
		if err != nil {
			return nil, false, err
		}
		if !matched {
			return nil, false, notFound(model.ProtocolWebSocket, s.path)
		}
		return resp, true, nil
	}
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
