package session

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sustainifly/go/internal/events"
)

// defaultEventBufferSize bounds how many events may wait for a slow publisher.
const defaultEventBufferSize = 256

// eventOutbox hands envelopes from the session loop to a publishing goroutine,
// so a slow or unreachable broker never delays ticks or player input.
type eventOutbox struct {
	queue     chan events.Envelope
	publisher Publisher
	dropped   atomic.Uint64
	done      chan struct{}
}

func newEventOutbox(p Publisher, size int) *eventOutbox {
	if size <= 0 {
		size = defaultEventBufferSize
	}
	return &eventOutbox{
		queue:     make(chan events.Envelope, size),
		publisher: p,
		done:      make(chan struct{}),
	}
}

// enqueue never blocks. When the queue is full the event is dropped and counted.
func (o *eventOutbox) enqueue(env events.Envelope) bool {
	select {
	case o.queue <- env:
		return true
	default:
		o.dropped.Add(1)
		log.Warn().
			Str("session_id", env.SessionID).
			Str("event_type", string(env.Type)).
			Uint64("dropped", o.dropped.Load()).
			Msg("event queue full, dropping event")
		return false
	}
}

// run publishes queued events until close is called and the queue is drained.
func (o *eventOutbox) run(ctx context.Context) {
	defer close(o.done)
	for env := range o.queue {
		if err := o.publisher.Publish(ctx, env); err != nil {
			log.Error().
				Err(err).
				Str("session_id", env.SessionID).
				Str("event_type", string(env.Type)).
				Msg("failed to publish event")
		}
	}
}

func (o *eventOutbox) close() {
	close(o.queue)
}
