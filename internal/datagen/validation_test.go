package datagen

import (
	"testing"

	"github.com/mockforge/mockforge-go/pkg/model"
)

func entity(entityType, pk string, fields map[string]interface{}) model.RegisteredEntity {
	return model.RegisteredEntity{EntityType: entityType, PrimaryKey: pk, FieldValues: fields}
}

func TestForeignKeyValidationCatchesMissingReference(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("customer", "c1", nil))
	v.Register(entity("order", "o1", map[string]interface{}{"customer_id": "c1"}))
	v.Register(entity("order", "o2", map[string]interface{}{"customer_id": "missing"}))
	v.AddForeignKey(model.ForeignKeyMapping{EntityType: "order", Field: "customer_id", TargetEntity: "customer"})

	result := v.Validate()
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 foreign key error, got %d: %+v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Code != string(model.ErrForeignKeyNotFound) {
		t.Errorf("unexpected code: %s", result.Errors[0].Code)
	}
}

func TestFormatRuleCatchesBadPattern(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("user", "u1", map[string]interface{}{"email": "not-an-email"}))
	v.AddRule(model.CustomRule{Kind: model.RuleFormat, EntityType: "user", Field: "email", Pattern: `^[^@]+@[^@]+$`})

	result := v.Validate()
	if len(result.Errors) != 1 || result.Errors[0].Code != string(model.ErrInvalidFormat) {
		t.Fatalf("expected 1 InvalidFormat error, got %+v", result.Errors)
	}
}

func TestRangeRuleCatchesOutOfBounds(t *testing.T) {
	min, max := 0.0, 100.0
	v := NewValidator(false)
	v.Register(entity("product", "p1", map[string]interface{}{"price": 250.0}))
	v.AddRule(model.CustomRule{Kind: model.RuleRange, EntityType: "product", Field: "price", Min: &min, Max: &max})

	result := v.Validate()
	if len(result.Errors) != 1 || result.Errors[0].Code != string(model.ErrOutOfRange) {
		t.Fatalf("expected 1 OutOfRange error, got %+v", result.Errors)
	}
}

func TestUniquenessRuleCatchesDuplicates(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("user", "u1", map[string]interface{}{"email": "a@example.test"}))
	v.Register(entity("user", "u2", map[string]interface{}{"email": "a@example.test"}))
	v.AddRule(model.CustomRule{Kind: model.RuleUniqueness, EntityType: "user", Field: "email"})

	result := v.Validate()
	if len(result.Errors) != 1 || result.Errors[0].Code != string(model.ErrDuplicateValue) {
		t.Fatalf("expected 1 DuplicateValue error, got %+v", result.Errors)
	}
}

func TestBusinessExpressionRule(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("order", "o1", map[string]interface{}{"status": "draft"}))
	v.AddRule(model.CustomRule{
		Kind: model.RuleBusinessExp, EntityType: "order", Field: "status",
		Operator: model.OpEq, Value: "confirmed",
	})

	result := v.Validate()
	if len(result.Errors) != 1 || result.Errors[0].Code != string(model.ErrBusinessRuleViolation) {
		t.Fatalf("expected 1 BusinessRuleViolation error, got %+v", result.Errors)
	}
}

func TestReferentialIntegrityRequiresField(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("customer", "c1", nil))
	v.Register(entity("order", "o1", map[string]interface{}{}))
	v.AddRelationship(model.Relationship{FromEntityType: "order", FromField: "customer_id", ToEntityType: "customer", Required: true})

	result := v.Validate()
	if len(result.Errors) != 1 || result.Errors[0].Code != string(model.ErrForeignKeyNotFound) {
		t.Fatalf("expected 1 missing-reference error, got %+v", result.Errors)
	}
}

func TestConsistencyHeuristicsWarnsOnOrphan(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("customer", "c1", nil))
	v.Register(entity("customer", "c2", nil)) // no order references c2
	v.Register(entity("order", "o1", map[string]interface{}{"customer_id": "c1"}))
	v.Register(entity("order", "o2", map[string]interface{}{}))
	v.AddRelationship(model.Relationship{FromEntityType: "order", FromField: "customer_id", ToEntityType: "customer", Required: false})

	result := v.Validate()
	found := false
	for _, w := range result.Warnings {
		if w.Code == string(model.WarnDataInconsistency) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected orphan warning, got %+v", result.Warnings)
	}
}

func TestStrictModeFailsOnAnyError(t *testing.T) {
	v := NewValidator(true)
	v.Register(entity("user", "u1", map[string]interface{}{"email": "a@example.test"}))
	v.Register(entity("user", "u2", map[string]interface{}{"email": "a@example.test"}))
	v.AddRule(model.CustomRule{Kind: model.RuleUniqueness, EntityType: "user", Field: "email"})

	result := v.Validate()
	if result.Valid {
		t.Error("expected strict mode to mark result invalid on any error")
	}
}

func TestNonStrictModeStaysValidDespiteErrors(t *testing.T) {
	v := NewValidator(false)
	v.Register(entity("user", "u1", map[string]interface{}{"email": "a@example.test"}))
	v.Register(entity("user", "u2", map[string]interface{}{"email": "a@example.test"}))
	v.AddRule(model.CustomRule{Kind: model.RuleUniqueness, EntityType: "user", Field: "email"})

	result := v.Validate()
	if !result.Valid {
		t.Error("expected non-strict mode to remain valid despite errors")
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected the error still recorded, got %d", len(result.Errors))
	}
}
