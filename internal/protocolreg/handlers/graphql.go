package handlers

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// graphQLRequestBody is the standard POST-body shape every GraphQL client
// sends (query, optional operationName/variables).
type graphQLRequestBody struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

// operationPattern pulls the leading operation keyword and its first
// selected field out of a GraphQL document. Full schema-aware parsing is
// out of scope (§1 Non-goals); fixtures and spec operations only need to
// key off operation type + top-level field name.
var operationPattern = regexp.MustCompile(`(?s)^\s*(?:(query|mutation|subscription)\b[^{]*)?\{\s*([A-Za-z_][A-Za-z0-9_]*)`)

// GraphQLHandler implements contracts.ProtocolHandler for single-endpoint
// POST /graphql traffic (§4.1). Operation routing keys off "operationType.
// fieldName", matching the GraphQLRegistry and fixture Match.Operation shape.
type GraphQLHandler struct {
	Base
	Specs *spec.GraphQLRegistry
}

// NewGraphQLHandler builds a GraphQLHandler over a fixture registry and an
// optional schema-derived spec registry.
func NewGraphQLHandler(fixtures *fixture.Registry, specs *spec.GraphQLRegistry, seed int64) *GraphQLHandler {
	return &GraphQLHandler{Base: Base{Fixtures: fixtures, Seed: seed}, Specs: specs}
}

func (h *GraphQLHandler) Protocol() model.Protocol { return model.ProtocolGraphQL }

// Decode parses the GraphQL POST body and derives "operationType.field" as
// Operation, falling back to "query" when the document omits the keyword
// (the spec's shorthand for anonymous queries). operationName is used as the
// field only when the document's top-level field cannot be found.
func (h *GraphQLHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	var body graphQLRequestBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, model.NewError(model.ErrValidation, "invalid graphql request body: %v", err).WithCode("invalid_graphql_body")
	}

	opType, field := "query", body.OperationName
	if m := operationPattern.FindStringSubmatch(body.Query); m != nil {
		if m[1] != "" {
			opType = m[1]
		}
		field = m[2]
	}

	req := model.NewProtocolRequest(model.ProtocolGraphQL, model.PatternRequestResponse)
	req.Operation = strings.ToLower(opType) + "." + field
	req.Path = transportCtx["path"]
	req.Body = raw
	return req, nil
}

func (h *GraphQLHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve matches a fixture by operation key, falling back to schema-driven
// generation (§4.9) when nothing matches.
func (h *GraphQLHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	if h.Specs != nil {
		opType, field, ok := strings.Cut(req.Operation, ".")
		if ok {
			if _, found := h.Specs.LookupByField(opType, field); found {
				return h.Specs.GenerateForField(opType, field, h.Seed)
			}
		}
	}
	return nil, notFound(model.ProtocolGraphQL, req.Operation)
}
