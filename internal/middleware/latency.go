package middleware

import (
	"context"
	"math/rand"
	"time"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Latency blocks for a configured delay (constant or jittered) before
// continuing the chain.
type Latency struct {
	BaseDelay   time.Duration
	JitterDelay time.Duration
	rng         *rand.Rand
}

// NewLatency builds a Latency middleware. jitter is added uniformly in
// [0, jitter) on top of base.
func NewLatency(base, jitter time.Duration) *Latency {
	return &Latency{BaseDelay: base, JitterDelay: jitter, rng: rand.New(rand.NewSource(1))}
}

func (l *Latency) Name() string { return "latency" }

func (l *Latency) SupportsProtocol(model.Protocol) bool { return true }

func (l *Latency) PreRequest(ctx context.Context, _ *model.ProtocolRequest) error {
	delay := l.BaseDelay
	if l.JitterDelay > 0 {
		delay += time.Duration(l.rng.Int63n(int64(l.JitterDelay)))
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Latency) PostResponse(context.Context, *model.ProtocolRequest, *model.ProtocolResponse) error {
	return nil
}
