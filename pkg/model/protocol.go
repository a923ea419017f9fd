// Package model holds the wire-protocol-agnostic data model shared across
// the protocol registry, fixture matcher, scenario engine, pipeline engine,
// and promotion workflow.
package model

import "strings"

// Protocol identifies a wire-level request family.
type Protocol string

const (
	ProtocolHTTP     Protocol = "http"
	ProtocolGraphQL  Protocol = "graphql"
	ProtocolGRPC     Protocol = "grpc"
	ProtocolWebSocket Protocol = "websocket"
	ProtocolSMTP     Protocol = "smtp"
	ProtocolMQTT     Protocol = "mqtt"
	ProtocolFTP      Protocol = "ftp"
	ProtocolKafka    Protocol = "kafka"
	ProtocolRabbitMQ Protocol = "rabbitmq"
	ProtocolAMQP     Protocol = "amqp"
)

func (p Protocol) String() string { return string(p) }

// MessagePattern describes the communication shape of a request.
type MessagePattern string

const (
	PatternRequestResponse MessagePattern = "request_response"
	PatternOneWay          MessagePattern = "one_way"
	PatternPubSub          MessagePattern = "pub_sub"
	PatternStreaming       MessagePattern = "streaming"
)

// Metadata is an ordered, case-insensitive-compare string map. Insertion
// order is preserved in Keys() for deterministic iteration (used by the
// mock-serving HTTP edge when writing response headers).
type Metadata struct {
	keys   []string
	values map[string]string // lower(key) -> value
	orig   map[string]string // lower(key) -> original-case key
}

// NewMetadata builds a Metadata from a plain map (order not guaranteed).
func NewMetadata(m map[string]string) *Metadata {
	md := &Metadata{values: make(map[string]string), orig: make(map[string]string)}
	for k, v := range m {
		md.Set(k, v)
	}
	return md
}

// Set inserts or overwrites a header, preserving first-insertion order.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
		m.orig = make(map[string]string)
	}
	lk := strings.ToLower(key)
	if _, ok := m.values[lk]; !ok {
		m.keys = append(m.keys, lk)
	}
	m.values[lk] = value
	m.orig[lk] = key
}

// Get performs a case-insensitive lookup.
func (m *Metadata) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[strings.ToLower(key)]
	return v, ok
}

// Keys returns header names in insertion order, using the case of the most
// recent Set call for each key.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	for i, lk := range m.keys {
		out[i] = m.orig[lk]
	}
	return out
}

// Len reports the number of distinct keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// AsMap returns a copy keyed by original-case header name.
func (m *Metadata) AsMap() map[string]string {
	out := make(map[string]string, m.Len())
	for _, lk := range m.keys {
		out[m.orig[lk]] = m.values[lk]
	}
	return out
}

// ProtocolRequest is the uniform request representation every handler
// decodes into and every middleware, matcher, and generator operates on.
type ProtocolRequest struct {
	Protocol   Protocol
	Pattern    MessagePattern
	Operation  string
	Path       string
	Topic      string
	RoutingKey string
	Partition  *int32
	QoS        *uint8
	Metadata   *Metadata
	Body       []byte
	ClientIP   string
}

// NewProtocolRequest returns a ProtocolRequest with initialized Metadata.
func NewProtocolRequest(protocol Protocol, pattern MessagePattern) *ProtocolRequest {
	return &ProtocolRequest{
		Protocol: protocol,
		Pattern:  pattern,
		Metadata: NewMetadata(nil),
	}
}

// ResponseStatusKind tags which protocol-specific status a ResponseStatus carries.
type ResponseStatusKind string

const (
	StatusKindHTTP    ResponseStatusKind = "http"
	StatusKindGRPC    ResponseStatusKind = "grpc"
	StatusKindGraphQL ResponseStatusKind = "graphql"
	StatusKindGeneric ResponseStatusKind = "generic"
	StatusKindCustom  ResponseStatusKind = "custom"
)

// ResponseStatus abstracts a protocol-specific status/code into a single
// variant type, exposing IsSuccess and, where meaningful, AsCode.
type ResponseStatus struct {
	Kind          ResponseStatusKind
	HTTPStatus    uint16
	GRPCStatus    int32
	GraphQLOK     bool
	GenericOK     bool
	CustomCode    int32
	CustomMessage string
}

// IsSuccess reports whether this status represents a successful response.
func (s ResponseStatus) IsSuccess() bool {
	switch s.Kind {
	case StatusKindHTTP:
		return s.HTTPStatus >= 200 && s.HTTPStatus < 300
	case StatusKindGRPC:
		return s.GRPCStatus == 0 // grpc codes.OK == 0
	case StatusKindGraphQL:
		return s.GraphQLOK
	case StatusKindGeneric:
		return s.GenericOK
	case StatusKindCustom:
		return s.CustomCode == 0
	default:
		return false
	}
}

// AsCode returns a numeric code where the variant has one.
func (s ResponseStatus) AsCode() (int32, bool) {
	switch s.Kind {
	case StatusKindHTTP:
		return int32(s.HTTPStatus), true
	case StatusKindGRPC:
		return s.GRPCStatus, true
	case StatusKindCustom:
		return s.CustomCode, true
	default:
		return 0, false
	}
}

// ProtocolResponse is the uniform response representation produced by
// handlers or generators and mutated by post-response middleware.
type ProtocolResponse struct {
	Status      ResponseStatus
	Metadata    *Metadata
	Body        []byte
	ContentType string
}

// NewProtocolResponse returns a ProtocolResponse with initialized Metadata.
func NewProtocolResponse(status ResponseStatus) *ProtocolResponse {
	return &ProtocolResponse{
		Status:      status,
		Metadata:    NewMetadata(nil),
		ContentType: "application/json",
	}
}
