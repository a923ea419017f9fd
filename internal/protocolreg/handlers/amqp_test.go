package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestAMQPHandlerServesMatchedFixtureByRoutingKey(t *testing.T) {
	reg := fixture.New(nil)
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolAMQP,
		Enabled:  true,
		Match:    model.FixtureMatch{RoutingKey: strp("hives.created")},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusCustom, CustomCode: 0},
			Body:   map[string]interface{}{"accepted": true},
		},
	})

	h := NewAMQPHandler(reg, nil, 1)
	req, err := h.Decode(context.Background(), []byte(`{}`), map[string]string{"routing_key": "hives.created"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}

func TestRabbitMQHandlerTagsProtocol(t *testing.T) {
	reg := fixture.New(nil)
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolRabbitMQ,
		Enabled:  true,
		Match:    model.FixtureMatch{RoutingKey: strp("hives.created")},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusCustom, CustomCode: 0},
		},
	})

	h := NewRabbitMQHandler(reg, nil, 1)
	require.Equal(t, model.ProtocolRabbitMQ, h.Protocol())

	req, err := h.Decode(context.Background(), nil, map[string]string{"routing_key": "hives.created"})
	require.NoError(t, err)
	require.Equal(t, model.ProtocolRabbitMQ, req.Protocol)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}
