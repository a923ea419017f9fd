// Package datagen implements the Smart Mock Data Generator and its
// cross-endpoint validation framework (§4.7): seeded schema-driven value
// generation plus a rule-evaluation pass over entities produced across
// endpoints.
//
// Grounded on the teacher's internal/guardrails (dispatch-by-kind rule
// evaluation, Passed/Kind/Stage/Message result shape, reused here for
// cross-endpoint validation) resolved against original_source's
// mock_data_tests.rs for the generation/determinism contract.
package datagen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/mockforge/mockforge-go/pkg/model"
)

const (
	defaultMaxDepth     = 5
	defaultMaxArraySize = 10
)

// Generator produces schema-driven values from an owned, seeded PRNG
// (§4.7 "Determinism": "The PRNG is not shared; each generator owns one.").
type Generator struct {
	seed   int64
	rng    *rand.Rand
	config model.GeneratorConfig
}

// New creates a Generator seeded per config. A zero Seed still produces a
// deterministic (but arbitrary) sequence, matching math/rand's contract.
func New(config model.GeneratorConfig) *Generator {
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaultMaxDepth
	}
	if config.MaxArraySize <= 0 {
		config.MaxArraySize = defaultMaxArraySize
	}
	return &Generator{
		seed:   config.Seed,
		rng:    rand.New(rand.NewSource(config.Seed)),
		config: config,
	}
}

// Reset re-seeds the PRNG so a subsequent Generate call reproduces the same
// sequence (§4.7 "Determinism").
func (g *Generator) Reset() {
	g.rng = rand.New(rand.NewSource(g.seed))
}

// Generate emits a value conforming to schema, honoring max_depth/
// max_array_size and field-name heuristics (§4.7 "Generation").
func (g *Generator) Generate(schema *model.Schema, fieldName string) interface{} {
	return g.generate(schema, fieldName, 0)
}

func (g *Generator) generate(schema *model.Schema, fieldName string, depth int) interface{} {
	if schema == nil {
		return nil
	}
	if depth > g.config.MaxDepth {
		return depthLimitSentinel(schema.Type)
	}

	switch schema.Type {
	case "object":
		return g.generateObject(schema, depth)
	case "array":
		return g.generateArray(schema, fieldName, depth)
	case "string":
		return g.generateString(schema, fieldName)
	case "integer":
		return int64(g.numberInRange(schema, true))
	case "number":
		return g.numberInRange(schema, false)
	case "boolean":
		return g.rng.Intn(2) == 1
	default:
		return nil
	}
}

func depthLimitSentinel(schemaType string) interface{} {
	switch schemaType {
	case "object":
		return map[string]interface{}{}
	case "array":
		return []interface{}{}
	case "string":
		return ""
	case "integer", "number":
		return 0
	case "boolean":
		return false
	default:
		return nil
	}
}

func (g *Generator) generateObject(schema *model.Schema, depth int) map[string]interface{} {
	out := make(map[string]interface{}, len(schema.Properties))
	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}
	for name, propSchema := range schema.Properties {
		if !required[name] && !g.config.EmitOptional {
			continue
		}
		out[name] = g.generate(propSchema, name, depth+1)
	}
	return out
}

func (g *Generator) generateArray(schema *model.Schema, fieldName string, depth int) []interface{} {
	minLen, maxLen := 0, g.config.MaxArraySize
	if schema.MinItems != nil {
		minLen = *schema.MinItems
	}
	if schema.MaxItems != nil {
		maxLen = *schema.MaxItems
	}
	if maxLen > g.config.MaxArraySize {
		maxLen = g.config.MaxArraySize
	}
	if minLen > maxLen {
		minLen = maxLen
	}
	length := minLen
	if maxLen > minLen {
		length = minLen + g.rng.Intn(maxLen-minLen+1)
	}

	out := make([]interface{}, length)
	for i := range out {
		out[i] = g.generate(schema.Items, fieldName, depth+1)
	}
	return out
}

func (g *Generator) numberInRange(schema *model.Schema, integer bool) float64 {
	if len(schema.Enum) > 0 {
		choice := schema.Enum[g.rng.Intn(len(schema.Enum))]
		if f, ok := toFloat(choice); ok {
			return f
		}
	}
	min, max := 0.0, 1000.0
	if schema.Minimum != nil {
		min = *schema.Minimum
	}
	if schema.Maximum != nil {
		max = *schema.Maximum
	}
	if max < min {
		max = min
	}
	val := min + g.rng.Float64()*(max-min)
	if integer {
		val = float64(int64(val))
	}
	return val
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (g *Generator) generateString(schema *model.Schema, fieldName string) string {
	if len(schema.Enum) > 0 {
		choice := schema.Enum[g.rng.Intn(len(schema.Enum))]
		if s, ok := choice.(string); ok {
			return s
		}
	}

	if override, ok := g.config.FieldOverrides[fieldName]; ok {
		return g.byFormat(override)
	}
	if schema.Format != "" {
		return g.byFormat(schema.Format)
	}
	if v := g.byFieldName(fieldName); v != "" {
		return v
	}
	return g.randomString(schema)
}

// byFormat dispatches on the declared JSON-Schema string format (§4.7).
func (g *Generator) byFormat(format string) string {
	switch format {
	case "email":
		return fmt.Sprintf("user%d@example.test", g.rng.Intn(1_000_000))
	case "uuid":
		return g.deterministicUUID()
	case "date-time":
		return fmt.Sprintf("2024-%02d-%02dT%02d:%02d:%02dZ", 1+g.rng.Intn(12), 1+g.rng.Intn(28), g.rng.Intn(24), g.rng.Intn(60), g.rng.Intn(60))
	case "date":
		return fmt.Sprintf("2024-%02d-%02d", 1+g.rng.Intn(12), 1+g.rng.Intn(28))
	case "uri":
		return fmt.Sprintf("https://example.test/resource/%d", g.rng.Intn(100_000))
	case "phone":
		return fmt.Sprintf("+1-555-%03d-%04d", g.rng.Intn(1000), g.rng.Intn(10000))
	default:
		return g.randomString(nil)
	}
}

// byFieldName applies the field-name heuristics named in §4.7: *_id,
// *email*, name, address, price.
func (g *Generator) byFieldName(fieldName string) string {
	lower := strings.ToLower(fieldName)
	switch {
	case strings.HasSuffix(lower, "_id") || lower == "id":
		return g.deterministicUUID()
	case strings.Contains(lower, "email"):
		return g.byFormat("email")
	case lower == "name" || strings.HasSuffix(lower, "_name"):
		return fmt.Sprintf("Generated Name %d", g.rng.Intn(10_000))
	case strings.Contains(lower, "address"):
		return fmt.Sprintf("%d Example Street", 1+g.rng.Intn(9999))
	case strings.Contains(lower, "price") || strings.Contains(lower, "amount"):
		return fmt.Sprintf("%.2f", g.rng.Float64()*1000)
	default:
		return ""
	}
}

func (g *Generator) deterministicUUID() string {
	var b [16]byte
	g.rng.Read(b[:])
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (g *Generator) randomString(schema *model.Schema) string {
	minLen, maxLen := 5, 12
	if schema != nil {
		if schema.MinLength != nil {
			minLen = *schema.MinLength
		}
		if schema.MaxLength != nil {
			maxLen = *schema.MaxLength
		}
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length = minLen + g.rng.Intn(maxLen-minLen+1)
	}
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(b)
}

