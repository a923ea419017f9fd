package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// CustomMatcherFunc is a named, registry-resolved predicate hook.
type CustomMatcherFunc func(req *model.ProtocolRequest) bool

// Scored pairs a candidate fixture with its computed match score.
type Scored struct {
	Fixture      *model.UnifiedFixture
	Specificity  int
	RegIndex     int
}

// Match runs the §4.5 matching algorithm over candidates and returns the
// winner, or nil if nothing matches. regIndex maps fixture id to
// registration order for deterministic tie-breaks. customMatchers resolves
// FixtureMatch.CustomMatcher references.
func Match(req *model.ProtocolRequest, candidates []*model.UnifiedFixture, regIndex map[string]int, customMatchers map[string]CustomMatcherFunc) *model.UnifiedFixture {
	var scored []Scored
	for _, f := range candidates {
		if !f.Enabled || f.Protocol != req.Protocol {
			continue
		}
		if !predicatesMatch(req, &f.Match, customMatchers) {
			continue
		}
		scored = append(scored, Scored{
			Fixture:     f,
			Specificity: f.Match.SpecificityCount(),
			RegIndex:    regIndex[f.ID],
		})
	}
	if len(scored) == 0 {
		return nil
	}
	best := scored[0]
	for _, s := range scored[1:] {
		if better(s, best) {
			best = s
		}
	}
	return best.Fixture
}

// better reports whether a should win over b per (priority, specificity,
// registration-order-earliest) — priority lives on the fixture itself.
func better(a, b Scored) bool {
	if a.Fixture.Priority != b.Fixture.Priority {
		return a.Fixture.Priority > b.Fixture.Priority
	}
	if a.Specificity != b.Specificity {
		return a.Specificity > b.Specificity
	}
	return a.RegIndex < b.RegIndex
}

func predicatesMatch(req *model.ProtocolRequest, m *model.FixtureMatch, customMatchers map[string]CustomMatcherFunc) bool {
	if m.Operation != nil && !fieldMatches(*m.Operation, req.Operation) {
		return false
	}
	if m.Path != nil && !pathMatches(*m.Path, req.Path) {
		return false
	}
	if m.Topic != nil && !fieldMatches(*m.Topic, req.Topic) {
		return false
	}
	if m.RoutingKey != nil && !fieldMatches(*m.RoutingKey, req.RoutingKey) {
		return false
	}
	if m.Partition != nil {
		if req.Partition == nil || *req.Partition != *m.Partition {
			return false
		}
	}
	if m.QoS != nil {
		if req.QoS == nil || *req.QoS != *m.QoS {
			return false
		}
	}
	for hk, hv := range m.Headers {
		actual, ok := req.Metadata.Get(hk)
		if !ok || !fieldMatches(hv, actual) {
			return false
		}
	}
	if m.BodyPattern != nil && !fieldMatches(*m.BodyPattern, string(req.Body)) {
		return false
	}
	if m.CustomMatcher != nil {
		fn, ok := customMatchers[*m.CustomMatcher]
		if !ok || !fn(req) {
			return false
		}
	}
	return true
}

// pathMatches handles the fixture Path predicate: a "{name}" segment
// template takes the §4.5 HTTP legacy-path-normalization rule (equal
// segment counts, "{name}" matches any single non-empty segment); anything
// else falls back to the regex-or-exact rule every other predicate uses.
func pathMatches(pattern, value string) bool {
	if strings.Contains(pattern, "{") {
		return PathTemplateMatches(pattern, value)
	}
	return fieldMatches(pattern, value)
}

// fieldMatches tests value against pattern: regex first, falling back to
// exact string match if pattern fails to compile (§4.5 step 2).
func fieldMatches(pattern, value string) bool {
	if re, err := regexp.Compile(pattern); err == nil {
		return re.MatchString(value)
	}
	return pattern == value
}

// PathTemplateString renders a {name} template with the given bindings,
// for completeness of the legacy-fixture round trip.
func PathTemplateString(template string, params map[string]string) string {
	out := template
	for k, v := range params {
		out = strings.ReplaceAll(out, fmt.Sprintf("{%s}", k), v)
	}
	return out
}
