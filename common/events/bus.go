// Package events fans submission lifecycle events (FlowStart, job errors,
// FlowEnd) out to whatever is watching a given submission id — the HTTP
// status endpoint, a websocket client, a test harness.
package events

import (
	"context"
	"sync"

	"github.com/flowforge/flowcore/common/logger"
)

// Bus fans out events per submission id.
type Bus interface {
	Publish(ctx context.Context, submissionID string, event []byte) error
	Subscribe(ctx context.Context, submissionID string, handler Handler) error
	Close() error
}

// Handler processes one published event.
type Handler func(ctx context.Context, submissionID string, event []byte) error

// MemoryBus is an in-process, channel-backed event bus.
type MemoryBus struct {
	subs map[string]chan *envelope
	mu   sync.RWMutex
	log  *logger.Logger
}

type envelope struct {
	submissionID string
	event        []byte
}

// NewMemoryBus creates a new in-memory event bus.
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]chan *envelope),
		log:  log,
	}
}

// Publish publishes an event for a submission id.
func (b *MemoryBus) Publish(ctx context.Context, submissionID string, event []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.subs[submissionID]
	if !exists {
		ch = make(chan *envelope, 1000)
		b.subs[submissionID] = ch
	}

	msg := &envelope{submissionID: submissionID, event: event}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.log.Warn("event bus full", "submission_id", submissionID)
		return nil
	}
}

// Subscribe subscribes to a submission's events and processes them until ctx
// is cancelled.
func (b *MemoryBus) Subscribe(ctx context.Context, submissionID string, handler Handler) error {
	b.mu.Lock()
	ch, exists := b.subs[submissionID]
	if !exists {
		ch = make(chan *envelope, 1000)
		b.subs[submissionID] = ch
	}
	b.mu.Unlock()

	b.log.Info("subscribing to submission events", "submission_id", submissionID)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				if err := handler(ctx, msg.submissionID, msg.event); err != nil {
					b.log.Error("event handler error", "submission_id", submissionID, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close closes every subscription channel.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		close(ch)
		b.log.Info("closed submission event channel", "submission_id", id)
	}

	return nil
}
