package handlers

import (
	"context"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// KafkaHandler implements contracts.ProtocolHandler for topic/partition
// consumer traffic (§4.1 pub_sub pattern). No Kafka client library is
// wired here (see DESIGN.md); it matches fixtures by topic and, when a
// fixture pins one, by partition.
type KafkaHandler struct {
	Base
}

func NewKafkaHandler(fixtures *fixture.Registry, seed int64) *KafkaHandler {
	return &KafkaHandler{Base: Base{Fixtures: fixtures, Seed: seed}}
}

func (h *KafkaHandler) Protocol() model.Protocol { return model.ProtocolKafka }

// Decode expects transportCtx to carry "topic" and, when present, "partition".
func (h *KafkaHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolKafka, model.PatternPubSub)
	req.Topic = transportCtx["topic"]
	req.Operation = req.Topic
	req.Body = raw
	if p, ok := transportCtx["partition"]; ok {
		var part int32
		for _, c := range p {
			if c < '0' || c > '9' {
				part = 0
				break
			}
			part = part*10 + int32(c-'0')
		}
		req.Partition = &part
	}
	return req, nil
}

func (h *KafkaHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *KafkaHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolKafka, req.Topic)
}
