package model

import "time"

// FixtureStatusKind tags the variant carried by a FixtureResponseTemplate's status.
type FixtureStatusKind string

const (
	FixtureStatusHTTP    FixtureStatusKind = "http"
	FixtureStatusGRPC    FixtureStatusKind = "grpc"
	FixtureStatusGeneric FixtureStatusKind = "generic"
	FixtureStatusCustom  FixtureStatusKind = "custom"
)

// FixtureStatus is the declarative status a fixture author writes.
type FixtureStatus struct {
	Kind          FixtureStatusKind `json:"kind"`
	HTTPCode      uint16            `json:"http_code,omitempty"`
	GRPCCode      int32             `json:"grpc_code,omitempty"`
	GenericOK     bool              `json:"generic_ok,omitempty"`
	CustomCode    int32             `json:"custom_code,omitempty"`
	CustomMessage string            `json:"custom_message,omitempty"`
}

// FixtureMatch declares the predicate fields a fixture matches a request on.
// A nil/zero field means "don't care"; present fields are regex-or-exact.
type FixtureMatch struct {
	Operation     *string           `json:"operation,omitempty"`
	Path          *string           `json:"path,omitempty"`
	Topic         *string           `json:"topic,omitempty"`
	RoutingKey    *string           `json:"routing_key,omitempty"`
	Partition     *int32            `json:"partition,omitempty"`
	QoS           *uint8            `json:"qos,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	BodyPattern   *string           `json:"body_pattern,omitempty"`
	CustomMatcher *string           `json:"custom_matcher,omitempty"` // named reference resolved by the registry
}

// SpecificityCount returns the number of non-nil predicate fields, used to
// break priority ties in the matcher (§4.5 step 3).
func (m *FixtureMatch) SpecificityCount() int {
	if m == nil {
		return 0
	}
	n := 0
	if m.Operation != nil {
		n++
	}
	if m.Path != nil {
		n++
	}
	if m.Topic != nil {
		n++
	}
	if m.RoutingKey != nil {
		n++
	}
	if m.Partition != nil {
		n++
	}
	if m.QoS != nil {
		n++
	}
	n += len(m.Headers)
	if m.BodyPattern != nil {
		n++
	}
	if m.CustomMatcher != nil {
		n++
	}
	return n
}

// FixtureResponseTemplate is the declarative response a matched fixture renders.
type FixtureResponseTemplate struct {
	Status      FixtureStatus     `json:"status"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        interface{}       `json:"body,omitempty"` // string | map[string]interface{} | []interface{}
	ContentType string            `json:"content_type,omitempty"`
	DelayMS     int64             `json:"delay_ms,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// ScenarioRef names a resource type and state a fixture is associated with
// (EXPANSION: §4.3 "fixture selection...may consult instance state"). It is
// stored and round-tripped only; the matcher does not consult it.
type ScenarioRef struct {
	ResourceType string `json:"resource_type"`
	State        string `json:"state"`
}

// UnifiedFixture is the protocol-agnostic fixture entity (§3).
type UnifiedFixture struct {
	ID          string                  `json:"id,omitempty"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Protocol    Protocol                `json:"protocol"`
	Match       FixtureMatch            `json:"match"`
	Response    FixtureResponseTemplate `json:"response"`
	Metadata    map[string]string       `json:"metadata,omitempty"`
	Enabled     bool                    `json:"enabled"`
	Priority    int32                   `json:"priority,omitempty"`
	Tags        []string                `json:"tags,omitempty"`
	ScenarioRef *ScenarioRef            `json:"scenario_ref,omitempty"`
	CreatedAt   time.Time               `json:"created_at,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at,omitempty"`
}

// CustomFixture is the legacy flat HTTP fixture form (§3).
type CustomFixture struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Status   int               `json:"status"`
	Response interface{}       `json:"response,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	DelayMS  int64             `json:"delay_ms,omitempty"`
}

// Persona is a named preference set of fixture tags (EXPANSION). The
// matcher does not consult personas or fixture tags.
type Persona struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	PreferredTags []string `json:"preferred_tags,omitempty"`
}
