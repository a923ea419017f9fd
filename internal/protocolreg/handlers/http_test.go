package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func strp(s string) *string { return &s }

func TestHTTPHandlerServesMatchedFixture(t *testing.T) {
	reg := fixture.New(nil)
	op := "GET"
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolHTTP,
		Enabled:  true,
		Match:    model.FixtureMatch{Operation: &op, Path: strp("/api/v1/hives/{hiveId}")},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusHTTP, HTTPCode: 200},
			Body:   map[string]interface{}{"ok": true},
		},
	})

	h := NewHTTPHandler(reg, nil, 1)
	req, err := h.Decode(context.Background(), nil, map[string]string{"method": "GET", "path": "/api/v1/hives/hive_001"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}

func TestHTTPHandlerFallsBackToSpecGeneration(t *testing.T) {
	reg := fixture.New(nil)
	specs := spec.NewOpenAPIRegistry()
	specs.RegisterOperation(&model.SpecOperation{
		Name:          "listHives",
		OperationType: "GET",
		Path:          "/api/v1/hives",
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
			},
		},
	})

	h := NewHTTPHandler(reg, specs, 42)
	req, err := h.Decode(context.Background(), nil, map[string]string{"method": "GET", "path": "/api/v1/hives"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
}

func TestHTTPHandlerReportsNotFound(t *testing.T) {
	h := NewHTTPHandler(fixture.New(nil), nil, 1)
	req, err := h.Decode(context.Background(), nil, map[string]string{"method": "GET", "path": "/nope"})
	require.NoError(t, err)

	_, err = h.Serve(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, model.ErrNotFound, model.KindOf(err))
}
