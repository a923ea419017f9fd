package handlers

import (
	"context"

	amqp "github.com/streadway/amqp"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// AMQPHandler implements contracts.ProtocolHandler for message-broker
// traffic over streadway/amqp (§4.1 pub_sub/one_way patterns). Deliveries
// are matched by routing key; when a delivery carries a ReplyTo, the
// matched response is published back, the standard AMQP RPC idiom.
type AMQPHandler struct {
	Base
	Channel *amqp.Channel
}

// NewAMQPHandler builds an AMQPHandler bound to an already-open channel.
func NewAMQPHandler(fixtures *fixture.Registry, channel *amqp.Channel, seed int64) *AMQPHandler {
	return &AMQPHandler{Base: Base{Fixtures: fixtures, Seed: seed}, Channel: channel}
}

func (h *AMQPHandler) Protocol() model.Protocol { return model.ProtocolAMQP }

// Decode maps a delivery's routing key and amqp.Table headers (flattened
// into transportCtx by the caller) onto ProtocolRequest.
func (h *AMQPHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolAMQP, model.PatternPubSub)
	req.RoutingKey = transportCtx["routing_key"]
	req.Operation = req.RoutingKey
	req.Body = raw
	for k, v := range transportCtx {
		if k != "routing_key" {
			req.Metadata.Set(k, v)
		}
	}
	return req, nil
}

func (h *AMQPHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve matches a fixture by routing key; AMQP traffic has no schema
// registry to fall back to (§4.9 lists OpenAPI/proto/GraphQL only).
func (h *AMQPHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolAMQP, req.RoutingKey)
}

// Consume drains queueName, serving each delivery through Serve and
// replying on d.ReplyTo when set, until ctx is cancelled or the channel
// closes.
func (h *AMQPHandler) Consume(ctx context.Context, queueName, consumerTag string) error {
	deliveries, err := h.Channel.Consume(queueName, consumerTag, true, false, false, false, nil)
	if err != nil {
		return model.Wrap(model.ErrDependency, err, "consume queue %q", queueName)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			h.handleDelivery(ctx, d)
		}
	}
}

// RabbitMQHandler registers the same AMQP 0-9-1 transport under the
// distinct model.ProtocolRabbitMQ key, for workspaces that distinguish a
// managed RabbitMQ broker from a generic AMQP peer at the fixture level
// even though both speak the same wire protocol.
type RabbitMQHandler struct {
	*AMQPHandler
}

// NewRabbitMQHandler builds a RabbitMQHandler bound to an already-open
// channel.
func NewRabbitMQHandler(fixtures *fixture.Registry, channel *amqp.Channel, seed int64) *RabbitMQHandler {
	return &RabbitMQHandler{AMQPHandler: NewAMQPHandler(fixtures, channel, seed)}
}

func (h *RabbitMQHandler) Protocol() model.Protocol { return model.ProtocolRabbitMQ }

func (h *RabbitMQHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req, err := h.AMQPHandler.Decode(ctx, raw, transportCtx)
	if req != nil {
		req.Protocol = model.ProtocolRabbitMQ
	}
	return req, err
}

func (h *RabbitMQHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	return nil, notFound(model.ProtocolRabbitMQ, req.RoutingKey)
}

func (h *AMQPHandler) handleDelivery(ctx context.Context, d amqp.Delivery) {
	headers := make(map[string]string, len(d.Headers)+1)
	headers["routing_key"] = d.RoutingKey
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}

	req, err := h.Decode(ctx, d.Body, headers)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("amqp decode failed")
		return
	}

	resp, err := h.Serve(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("amqp serve failed")
		return
	}
	if d.ReplyTo == "" {
		return
	}

	body, encErr := h.Encode(ctx, resp)
	if encErr != nil {
		log.Warn().Err(encErr).Msg("amqp encode failed")
		return
	}
	pubErr := h.Channel.Publish("", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   resp.ContentType,
		CorrelationId: d.CorrelationId,
		Body:          body,
	})
	if pubErr != nil {
		log.Warn().Err(pubErr).Str("reply_to", d.ReplyTo).Msg("amqp reply publish failed")
	}
}
