// Package fixture implements the UnifiedFixture registry: CRUD, lifecycle
// events, conversion to ProtocolResponse, and the legacy flat-HTTP
// CustomFixture form (§4.5, §3). The thread-safe-map shape is grounded on
// the teacher's sessions.MemorySessionStore.
package fixture

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mockforge/mockforge-go/internal/events"
	"github.com/mockforge/mockforge-go/internal/matcher"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Registry stores UnifiedFixtures and answers match queries.
type Registry struct {
	mu             sync.RWMutex
	fixtures       map[string]*model.UnifiedFixture
	regOrder       []string // registration order, for matcher tie-break
	regIndex       map[string]int
	customMatchers map[string]matcher.CustomMatcherFunc
	bus            *events.Bus
}

// New creates an empty Registry. bus may be nil (events are then dropped).
func New(bus *events.Bus) *Registry {
	return &Registry{
		fixtures:       make(map[string]*model.UnifiedFixture),
		regIndex:       make(map[string]int),
		customMatchers: make(map[string]matcher.CustomMatcherFunc),
		bus:            bus,
	}
}

// RegisterCustomMatcher adds a named custom-matcher hook resolvable from a
// FixtureMatch.CustomMatcher reference.
func (r *Registry) RegisterCustomMatcher(name string, fn matcher.CustomMatcherFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customMatchers[name] = fn
}

// Upsert adds or replaces a fixture by id (last-write-wins). Emits exactly
// one "updated" lifecycle event regardless of whether this was an insert
// or a replace, matching the idempotence property in §8.
func (r *Registry) Upsert(f *model.UnifiedFixture) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	f.UpdatedAt = now

	r.mu.Lock()
	_, existed := r.fixtures[f.ID]
	if !existed {
		f.CreatedAt = now
		r.regOrder = append(r.regOrder, f.ID)
		r.regIndex[f.ID] = len(r.regOrder) - 1
	} else {
		f.CreatedAt = r.fixtures[f.ID].CreatedAt
	}
	r.fixtures[f.ID] = f
	r.mu.Unlock()

	r.publish("fixture.updated", f)
}

// Delete removes a fixture by id.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	f, ok := r.fixtures[id]
	if ok {
		delete(r.fixtures, id)
	}
	r.mu.Unlock()
	if ok {
		r.publish("fixture.deleted", f)
	}
	return ok
}

// Get returns a fixture by id.
func (r *Registry) Get(id string) (*model.UnifiedFixture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fixtures[id]
	return f, ok
}

// List returns all fixtures, in registration order.
func (r *Registry) List() []*model.UnifiedFixture {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.UnifiedFixture, 0, len(r.regOrder))
	for _, id := range r.regOrder {
		if f, ok := r.fixtures[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Match runs the §4.5 algorithm against all enabled fixtures of req's protocol.
func (r *Registry) Match(req *model.ProtocolRequest) *model.UnifiedFixture {
	r.mu.RLock()
	candidates := make([]*model.UnifiedFixture, 0, len(r.fixtures))
	for _, f := range r.fixtures {
		candidates = append(candidates, f)
	}
	idx := make(map[string]int, len(r.regIndex))
	for k, v := range r.regIndex {
		idx[k] = v
	}
	cm := make(map[string]matcher.CustomMatcherFunc, len(r.customMatchers))
	for k, v := range r.customMatchers {
		cm[k] = v
	}
	r.mu.RUnlock()

	return matcher.Match(req, candidates, idx, cm)
}

func (r *Registry) publish(eventType string, f *model.UnifiedFixture) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(model.PipelineEvent{
		EventType: eventType,
		Payload: map[string]interface{}{
			"fixture_id": f.ID,
			"protocol":   string(f.Protocol),
		},
	})
}

// ToResponse converts a matched fixture's response template into a
// ProtocolResponse (§4.5 "Fixture-to-response conversion"). The delay is
// NOT applied here; callers drive it through the Latency middleware or the
// handler's send path.
func ToResponse(f *model.UnifiedFixture, protocol model.Protocol) (*model.ProtocolResponse, error) {
	status, err := statusFromFixture(f.Response.Status, protocol)
	if err != nil {
		return nil, err
	}
	resp := model.NewProtocolResponse(status)
	for k, v := range f.Response.Headers {
		resp.Metadata.Set(k, v)
	}
	contentType := f.Response.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	resp.ContentType = contentType

	body, err := bodyToBytes(f.Response.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

// bodyToBytes serializes the fixture's declared body. A string body passes
// through verbatim (§9 open-question decision: no re-parsing even under
// application/json); any other JSON value is canonicalized.
func bodyToBytes(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if s, ok := body.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(body)
}

// statusFromFixture maps a declarative FixtureStatus to a protocol-aware
// ResponseStatus, tightening §9's open question: Generic only maps to
// GraphQL's boolean status; every other protocol rejects Generic.
func statusFromFixture(fs model.FixtureStatus, protocol model.Protocol) (model.ResponseStatus, error) {
	switch fs.Kind {
	case model.FixtureStatusHTTP:
		return model.ResponseStatus{Kind: model.StatusKindHTTP, HTTPStatus: fs.HTTPCode}, nil
	case model.FixtureStatusGRPC:
		return model.ResponseStatus{Kind: model.StatusKindGRPC, GRPCStatus: fs.GRPCCode}, nil
	case model.FixtureStatusCustom:
		return model.ResponseStatus{Kind: model.StatusKindCustom, CustomCode: fs.CustomCode, CustomMessage: fs.CustomMessage}, nil
	case model.FixtureStatusGeneric:
		if protocol != model.ProtocolGraphQL {
			return model.ResponseStatus{}, model.NewError(model.ErrValidation,
				"generic fixture status is only valid for GraphQL fixtures, got protocol %s", protocol).WithCode("invalid_status_mapping")
		}
		return model.ResponseStatus{Kind: model.StatusKindGraphQL, GraphQLOK: fs.GenericOK}, nil
	default:
		return model.ResponseStatus{}, model.NewError(model.ErrValidation, "unknown fixture status kind %q", fs.Kind)
	}
}
