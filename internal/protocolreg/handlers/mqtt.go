package handlers

import (
	"context"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// MQTTHandler implements contracts.ProtocolHandler for publish/subscribe
// traffic keyed by topic (§4.1 pub_sub pattern). No MQTT client/broker
// library is wired here (see DESIGN.md: none of the example repos import
// one); the handler matches fixtures by topic and QoS, leaving packet
// framing to whatever broker library a deployment chooses to front it with.
type MQTTHandler struct {
	Base
}

func NewMQTTHandler(fixtures *fixture.Registry, seed int64) *MQTTHandler {
	return &MQTTHandler{Base: Base{Fixtures: fixtures, Seed: seed}}
}

func (h *MQTTHandler) Protocol() model.Protocol { return model.ProtocolMQTT }

// Decode expects transportCtx to carry "topic" and, when present, "qos".
func (h *MQTTHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolMQTT, model.PatternPubSub)
	req.Topic = transportCtx["topic"]
	req.Operation = req.Topic
	req.Body = raw
	if qos, ok := transportCtx["qos"]; ok {
		var q uint8
		switch qos {
		case "0":
			q = 0
		case "1":
			q = 1
		case "2":
			q = 2
		}
		req.QoS = &q
	}
	return req, nil
}

func (h *MQTTHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *MQTTHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolMQTT, req.Topic)
}
