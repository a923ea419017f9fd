// Package spec holds per-protocol SpecOperation registries (§4.9): a
// thread-safe lookup from operation identity to its input/output schema,
// used to validate incoming requests and generate schema-conformant
// responses when no fixture matches.
//
// Grounded on the teacher's internal/catalog (Catalog.models: dual-indexed
// sync.RWMutex-guarded map, Register/Lookup/ListAll shape) adapted from
// model-capability lookup to spec-operation lookup.
package spec

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mockforge/mockforge-go/internal/datagen"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Registry is a thread-safe store of SpecOperations for one protocol.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]*model.SpecOperation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]*model.SpecOperation)}
}

// Register adds or replaces the operation under key.
func (r *Registry) Register(key string, op *model.SpecOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[key] = op
}

// Lookup returns the operation registered under key, if any.
func (r *Registry) Lookup(key string) (*model.SpecOperation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[key]
	return op, ok
}

// ListAll returns every registered operation.
func (r *Registry) ListAll() []*model.SpecOperation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.SpecOperation, 0, len(r.operations))
	for _, op := range r.operations {
		out = append(out, op)
	}
	return out
}

// Count returns the number of registered operations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operations)
}

// Validate checks a decoded request body against the operation's
// InputSchema, delegating field-level rule evaluation to datagen's
// validation framework so the same error-code taxonomy applies whether a
// value was generated or received over the wire.
func (r *Registry) Validate(key string, input map[string]interface{}) *model.ValidationResult {
	op, ok := r.Lookup(key)
	if !ok {
		result := model.NewValidationResult()
		result.AddError(fmt.Sprintf("unknown operation %q", key), key, "UnknownOperation")
		return result
	}
	return validateAgainstSchema(op.InputSchema, input)
}

// Generate produces a schema-conformant response body for the operation
// using a freshly seeded datagen.Generator (§4.9: "delegating value
// generation to internal/datagen").
func (r *Registry) Generate(key string, seed int64) (*model.ProtocolResponse, error) {
	op, ok := r.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", key)
	}
	schema := schemaFromMap(op.OutputSchema)
	gen := datagen.New(model.GeneratorConfig{Seed: seed, EmitOptional: true})
	value := gen.Generate(schema, op.Name)

	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal generated value: %w", err)
	}

	resp := model.NewProtocolResponse(model.ResponseStatus{Kind: model.StatusKindGeneric, GenericOK: true})
	resp.Body = body
	return resp, nil
}

func validateAgainstSchema(schema map[string]interface{}, input map[string]interface{}) *model.ValidationResult {
	result := model.NewValidationResult()
	required, _ := schema["required"].([]interface{})
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := input[name]; !present {
			result.AddError(fmt.Sprintf("missing required field %q", name), name, "MissingField")
		}
	}
	return result
}

func schemaFromMap(raw map[string]interface{}) *model.Schema {
	if raw == nil {
		return &model.Schema{Type: "object"}
	}
	s := &model.Schema{}
	if t, ok := raw["type"].(string); ok {
		s.Type = t
	} else {
		s.Type = "object"
	}
	if props, ok := raw["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*model.Schema, len(props))
		for name, v := range props {
			if nested, ok := v.(map[string]interface{}); ok {
				s.Properties[name] = schemaFromMap(nested)
			}
		}
	}
	if req, ok := raw["required"].([]interface{}); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}
