package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/sustainifly/go/internal/events"
)

// Stats is a point-in-time view of publish activity.
type Stats struct {
	Published     uint64    `json:"events_published"`
	Failed        uint64    `json:"events_failed"`
	LastPublished time.Time `json:"last_event_time"`
	LastError     string    `json:"last_error,omitempty"`
}

// CountingPublisher wraps a Publisher and records the outcome of every publish.
type CountingPublisher struct {
	next  Publisher
	clock clockwork.Clock

	published atomic.Uint64
	failed    atomic.Uint64

	mu            sync.Mutex
	lastPublished time.Time
	lastErr       string
}

func NewCountingPublisher(next Publisher, clock clockwork.Clock) *CountingPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CountingPublisher{next: next, clock: clock}
}

func (p *CountingPublisher) Publish(ctx context.Context, env events.Envelope) error {
	err := p.next.Publish(ctx, env)
	if err != nil {
		p.failed.Add(1)
		p.mu.Lock()
		p.lastErr = err.Error()
		p.mu.Unlock()
		return err
	}

	p.published.Add(1)
	p.mu.Lock()
	p.lastPublished = p.clock.Now()
	p.mu.Unlock()
	return nil
}

func (p *CountingPublisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Published:     p.published.Load(),
		Failed:        p.failed.Load(),
		LastPublished: p.lastPublished,
		LastError:     p.lastErr,
	}
}
