package promotion

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// DefaultPromotionRetention is how long a terminal (Completed/Rejected/
// Failed) promotion record is kept before pruning.
const DefaultPromotionRetention = 90 * 24 * time.Hour

// Janitor periodically prunes terminal promotion requests older than its
// retention window, grounded on the teacher's retention.Janitor
// ticker-driven background sweep.
type Janitor struct {
	svc       *Service
	interval  time.Duration
	retention time.Duration
}

// NewJanitor builds a Janitor sweeping svc on interval, pruning records
// older than retention.
func NewJanitor(svc *Service, interval, retention time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultPromotionRetention
	}
	return &Janitor{svc: svc, interval: interval, retention: retention}
}

// Start runs the prune loop until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runCycle()
		}
	}
}

func (j *Janitor) runCycle() {
	cutoff := time.Now().UTC().Add(-j.retention)

	j.svc.mu.Lock()
	var pruned int
	for id, r := range j.svc.requests {
		if !isTerminal(r.Status) {
			continue
		}
		ended := r.UpdatedAt // Rejected records carry no CompletedAt
		if r.CompletedAt != nil {
			ended = *r.CompletedAt
		}
		if ended.Before(cutoff) {
			delete(j.svc.requests, id)
			pruned++
		}
	}
	j.svc.mu.Unlock()

	if pruned > 0 {
		log.Info().Int("pruned", pruned).Msg("promotion retention cycle pruned terminal requests")
	}
}

func isTerminal(status model.PromotionStatus) bool {
	switch status {
	case model.PromotionCompleted, model.PromotionRejected, model.PromotionFailed:
		return true
	}
	return false
}
