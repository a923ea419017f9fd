package matcher

import (
	"testing"

	"github.com/mockforge/mockforge-go/pkg/model"
)

func strp(s string) *string { return &s }

func TestMatchExactPathTemplate(t *testing.T) {
	path := "GET"
	fx := &model.UnifiedFixture{
		ID:       "f1",
		Protocol: model.ProtocolHTTP,
		Enabled:  true,
		Priority: 0,
		Match: model.FixtureMatch{
			Operation: &path,
			Path:      strp("/api/v1/hives/hive_001"),
		},
	}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Operation = "GET"
	req.Path = "/api/v1/hives/hive_001"

	got := Match(req, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil)
	if got == nil || got.ID != "f1" {
		t.Fatalf("expected fixture f1 to match, got %+v", got)
	}
}

func TestMatchPriorityThenSpecificity(t *testing.T) {
	low := &model.UnifiedFixture{
		ID: "low", Protocol: model.ProtocolHTTP, Enabled: true, Priority: 0,
		Match: model.FixtureMatch{Path: strp("/x")},
	}
	high := &model.UnifiedFixture{
		ID: "high", Protocol: model.ProtocolHTTP, Enabled: true, Priority: 5,
		Match: model.FixtureMatch{Path: strp("/x")},
	}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Path = "/x"

	got := Match(req, []*model.UnifiedFixture{low, high}, map[string]int{"low": 0, "high": 1}, nil)
	if got.ID != "high" {
		t.Fatalf("expected higher-priority fixture to win, got %s", got.ID)
	}
}

func TestMatchTieBreakByRegistrationOrder(t *testing.T) {
	a := &model.UnifiedFixture{ID: "a", Protocol: model.ProtocolHTTP, Enabled: true, Match: model.FixtureMatch{Path: strp("/x")}}
	b := &model.UnifiedFixture{ID: "b", Protocol: model.ProtocolHTTP, Enabled: true, Match: model.FixtureMatch{Path: strp("/x")}}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Path = "/x"

	got := Match(req, []*model.UnifiedFixture{b, a}, map[string]int{"a": 0, "b": 1}, nil)
	if got.ID != "a" {
		t.Fatalf("expected earliest-registered fixture to win tie, got %s", got.ID)
	}
}

func TestMatchMissingRequestValueFails(t *testing.T) {
	fx := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolMQTT, Enabled: true,
		Match: model.FixtureMatch{Topic: strp("sensors/+")},
	}
	req := model.NewProtocolRequest(model.ProtocolMQTT, model.PatternPubSub)
	// Topic left empty: "Missing request values for a specified predicate = no match."
	got := Match(req, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil)
	if got != nil {
		t.Fatalf("expected no match when topic missing, got %+v", got)
	}
}

func TestMatchRegexFallsBackToExact(t *testing.T) {
	fx := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolHTTP, Enabled: true,
		Match: model.FixtureMatch{Path: strp("[unterminated")},
	}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Path = "[unterminated"
	got := Match(req, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil)
	if got == nil {
		t.Fatal("expected exact-string fallback match")
	}
}

func TestMatchPathTemplateSegment(t *testing.T) {
	fx := &model.UnifiedFixture{
		ID: "f1", Protocol: model.ProtocolHTTP, Enabled: true,
		Match: model.FixtureMatch{Path: strp("/api/v1/hives/{hiveId}")},
	}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Path = "/api/v1/hives/hive_001"
	got := Match(req, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil)
	if got == nil || got.ID != "f1" {
		t.Fatalf("expected path template to match concrete segment, got %+v", got)
	}

	other := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	other.Path = "/api/v1/hives/hive_001/extra"
	if got := Match(other, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil); got != nil {
		t.Fatal("expected segment-count mismatch to fail the template match")
	}
}

func TestMatchDisabledFixtureExcluded(t *testing.T) {
	fx := &model.UnifiedFixture{ID: "f1", Protocol: model.ProtocolHTTP, Enabled: false, Match: model.FixtureMatch{Path: strp("/x")}}
	req := model.NewProtocolRequest(model.ProtocolHTTP, model.PatternRequestResponse)
	req.Path = "/x"
	if got := Match(req, []*model.UnifiedFixture{fx}, map[string]int{"f1": 0}, nil); got != nil {
		t.Fatal("disabled fixture should never match")
	}
}
