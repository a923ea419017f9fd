package spec

import (
	"fmt"
	"strings"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// OpenAPIRegistry keys operations by "METHOD path", matching HTTP routing.
type OpenAPIRegistry struct {
	*Registry
}

// NewOpenAPIRegistry creates an empty OpenAPIRegistry.
func NewOpenAPIRegistry() *OpenAPIRegistry {
	return &OpenAPIRegistry{Registry: NewRegistry()}
}

// RegisterOperation registers op under its HTTP method+path key.
func (o *OpenAPIRegistry) RegisterOperation(op *model.SpecOperation) {
	o.Register(openAPIKey(op.OperationType, op.Path), op)
}

// LookupByRequest resolves the operation matching an incoming HTTP request.
func (o *OpenAPIRegistry) LookupByRequest(method, path string) (*model.SpecOperation, bool) {
	return o.Lookup(openAPIKey(method, path))
}

// GenerateForRequest looks up the operation for method+path and generates a
// schema-conformant response for it (§4.9), for handlers that matched no
// fixture.
func (o *OpenAPIRegistry) GenerateForRequest(method, path string, seed int64) (*model.ProtocolResponse, error) {
	return o.Generate(openAPIKey(method, path), seed)
}

func openAPIKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// ProtoRegistry keys operations by fully-qualified "package.Service/Method".
type ProtoRegistry struct {
	*Registry
}

// NewProtoRegistry creates an empty ProtoRegistry.
func NewProtoRegistry() *ProtoRegistry {
	return &ProtoRegistry{Registry: NewRegistry()}
}

// RegisterOperation registers op under its fully-qualified method name.
func (p *ProtoRegistry) RegisterOperation(op *model.SpecOperation) {
	p.Register(op.Name, op)
}

// LookupByMethod resolves the operation for a fully-qualified gRPC method.
func (p *ProtoRegistry) LookupByMethod(fullyQualified string) (*model.SpecOperation, bool) {
	return p.Lookup(fullyQualified)
}

// GenerateForMethod generates a schema-conformant response for a
// fully-qualified gRPC method, for handlers that matched no fixture.
func (p *ProtoRegistry) GenerateForMethod(fullyQualified string, seed int64) (*model.ProtocolResponse, error) {
	return p.Generate(fullyQualified, seed)
}

// GraphQLRegistry keys operations by "operationType.fieldName", e.g.
// "query.listHives" or "mutation.createHive".
type GraphQLRegistry struct {
	*Registry
}

// NewGraphQLRegistry creates an empty GraphQLRegistry.
func NewGraphQLRegistry() *GraphQLRegistry {
	return &GraphQLRegistry{Registry: NewRegistry()}
}

// RegisterOperation registers op under its operation-type-qualified field name.
func (g *GraphQLRegistry) RegisterOperation(op *model.SpecOperation) {
	g.Register(graphQLKey(op.OperationType, op.Name), op)
}

// LookupByField resolves the operation for a query/mutation/subscription field.
func (g *GraphQLRegistry) LookupByField(operationType, fieldName string) (*model.SpecOperation, bool) {
	return g.Lookup(graphQLKey(operationType, fieldName))
}

// GenerateForField generates a schema-conformant response for a
// query/mutation/subscription field, for handlers that matched no fixture.
func (g *GraphQLRegistry) GenerateForField(operationType, fieldName string, seed int64) (*model.ProtocolResponse, error) {
	return g.Generate(graphQLKey(operationType, fieldName), seed)
}

func graphQLKey(operationType, fieldName string) string {
	return fmt.Sprintf("%s.%s", strings.ToLower(operationType), fieldName)
}
