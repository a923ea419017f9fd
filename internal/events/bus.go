// Package events implements the MockEvent broadcast bus (§4.8, §6): the
// fan-out that both external subscribers and the pipeline registry consume
// to learn about fixture/scenario/promotion lifecycle changes.
//
// Grounded on the teacher's mcpgw per-kitchen SSE subscriber map, repurposed
// from JSON-RPC tool streaming to lifecycle-event fanout.
package events

import (
	"context"
	"sync"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Bus is a non-blocking multi-subscriber broadcaster of MockEvents.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan model.PipelineEvent
	next int
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan model.PipelineEvent)}
}

// Subscribe registers a buffered channel that receives every published
// event until ctx is cancelled, at which point the channel is removed and
// closed.
func (b *Bus) Subscribe(ctx context.Context) <-chan model.PipelineEvent {
	ch := make(chan model.PipelineEvent, 64)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish fans out event to every subscriber. Slow subscribers drop the
// frame rather than stall the publisher (§4.8).
func (b *Bus) Publish(event model.PipelineEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount reports the current number of live subscribers (tests).
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
