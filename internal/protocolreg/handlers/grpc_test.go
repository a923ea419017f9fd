package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestGRPCHandlerServesMatchedFixture(t *testing.T) {
	reg := fixture.New(nil)
	method := "hive.v1.HiveService/GetHive"
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolGRPC,
		Enabled:  true,
		Match:    model.FixtureMatch{Operation: &method},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusGRPC, GRPCCode: 0},
			Body:   map[string]interface{}{"id": "hive_001"},
		},
	})

	h := NewGRPCHandler(reg, nil, 1)
	req := model.NewProtocolRequest(model.ProtocolGRPC, model.PatternRequestResponse)
	req.Operation = method

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}

func TestGRPCHandlerFallsBackToSpecGeneration(t *testing.T) {
	specs := spec.NewProtoRegistry()
	specs.RegisterOperation(&model.SpecOperation{
		Name: "hive.v1.HiveService/ListHives",
		OutputSchema: map[string]interface{}{
			"type": "object",
		},
	})

	h := NewGRPCHandler(fixture.New(nil), specs, 7)
	req := model.NewProtocolRequest(model.ProtocolGRPC, model.PatternRequestResponse)
	req.Operation = "hive.v1.HiveService/ListHives"

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
}

func TestGRPCHandlerNotFound(t *testing.T) {
	h := NewGRPCHandler(fixture.New(nil), nil, 1)
	req := model.NewProtocolRequest(model.ProtocolGRPC, model.PatternRequestResponse)
	req.Operation = "hive.v1.HiveService/Nope"

	_, err := h.Serve(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, model.ErrNotFound, model.KindOf(err))
}
