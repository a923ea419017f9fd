package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mockforge/mockforge-go/pkg/model"
)

type metricsKey struct{ protocol, operation, status string }

// Metrics counts requests per (protocol, operation, status) and records
// latency in memory; the counters are read through Count and Snapshot, and
// no management route exposes them.
type Metrics struct {
	mu        sync.Mutex
	counts    map[metricsKey]int64
	latencies map[metricsKey][]time.Duration
	starts    sync.Map // per-request start time, keyed by request pointer
}

func NewMetrics() *Metrics {
	return &Metrics{
		counts:    make(map[metricsKey]int64),
		latencies: make(map[metricsKey][]time.Duration),
	}
}

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) SupportsProtocol(model.Protocol) bool { return true }

func (m *Metrics) PreRequest(_ context.Context, req *model.ProtocolRequest) error {
	m.starts.Store(req, time.Now())
	return nil
}

func (m *Metrics) PostResponse(_ context.Context, req *model.ProtocolRequest, resp *model.ProtocolResponse) error {
	var elapsed time.Duration
	if v, ok := m.starts.LoadAndDelete(req); ok {
		elapsed = time.Since(v.(time.Time))
	}
	code, _ := resp.Status.AsCode()
	key := metricsKey{protocol: string(req.Protocol), operation: req.Operation, status: fmt.Sprint(code)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	m.latencies[key] = append(m.latencies[key], elapsed)
	return nil
}

// Count returns the number of requests observed for one (protocol,
// operation, status) triple.
func (m *Metrics) Count(protocol model.Protocol, operation string, status int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[metricsKey{protocol: string(protocol), operation: operation, status: fmt.Sprint(status)}]
}

// Snapshot returns a copy of all counters keyed "protocol|operation|status".
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[fmt.Sprintf("%s|%s|%s", k.protocol, k.operation, k.status)] = v
	}
	return out
}
