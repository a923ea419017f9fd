package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

func TestGraphQLHandlerDecodeDerivesOperationKey(t *testing.T) {
	h := NewGraphQLHandler(fixture.New(nil), nil, 1)
	req, err := h.Decode(context.Background(), []byte(`{"query":"query { listHives { id } }"}`), map[string]string{"path": "/graphql"})
	require.NoError(t, err)
	require.Equal(t, "query.listHives", req.Operation)
}

func TestGraphQLHandlerServesMatchedFixture(t *testing.T) {
	reg := fixture.New(nil)
	op := "query.listHives"
	reg.Upsert(&model.UnifiedFixture{
		Protocol: model.ProtocolGraphQL,
		Enabled:  true,
		Match:    model.FixtureMatch{Operation: &op},
		Response: model.FixtureResponseTemplate{
			Status: model.FixtureStatus{Kind: model.FixtureStatusGeneric, GenericOK: true},
			Body:   map[string]interface{}{"data": map[string]interface{}{"listHives": []interface{}{}}},
		},
	})

	h := NewGraphQLHandler(reg, nil, 1)
	req, err := h.Decode(context.Background(), []byte(`{"query":"query { listHives { id } }"}`), map[string]string{"path": "/graphql"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Status.IsSuccess())
}

func TestGraphQLHandlerFallsBackToSpecGeneration(t *testing.T) {
	specs := spec.NewGraphQLRegistry()
	specs.RegisterOperation(&model.SpecOperation{
		Name:          "listHives",
		OperationType: "query",
		OutputSchema:  map[string]interface{}{"type": "object"},
	})

	h := NewGraphQLHandler(fixture.New(nil), specs, 3)
	req, err := h.Decode(context.Background(), []byte(`{"query":"query { listHives { id } }"}`), map[string]string{"path": "/graphql"})
	require.NoError(t, err)

	resp, err := h.Serve(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
}

func TestGraphQLHandlerRejectsInvalidBody(t *testing.T) {
	h := NewGraphQLHandler(fixture.New(nil), nil, 1)
	_, err := h.Decode(context.Background(), []byte(`not json`), map[string]string{"path": "/graphql"})
	require.Error(t, err)
}
