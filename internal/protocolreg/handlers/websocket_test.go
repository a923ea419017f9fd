package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestWebSocketHandlerServesMatchedFixture(t *testing.T) {
	reg := fixture.New(nil)
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolWebSocket,
		Enabled:  true,
		Match:    model.FixtureMatch{Path: strp("/ws/hives")},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusCustom, CustomCode: 0},
			Body:   map[string]interface{}{"event": "hive.created"},
		},
	})

	h := NewWebSocketHandler(reg, 1)
	req, err := h.Decode(context.Background(), []byte("ping"), map[string]string{"path": "/ws/hives"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}

func TestWebSocketHandlerNotFound(t *testing.T) {
	h := NewWebSocketHandler(fixture.New(nil), 1)
	req, err := h.Decode(context.Background(), nil, map[string]string{"path": "/ws/nope"})
	require.NoError(t, err)

	_, err = h.Serve(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, model.ErrNotFound, model.KindOf(err))
}
