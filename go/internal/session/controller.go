// Package session implements the page flow of a single play-through: a pure
// transition function, the collection countdown, and a controller that
// serializes player input and timer ticks through one event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sustainifly/go/internal/events"
	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/rs/zerolog/log"
)

// updatesBufferSize bounds how many snapshots a slow reader may fall behind.
const updatesBufferSize = 16

// Publisher defines what the controller needs from the event bus
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Envelope) error { return nil }

type request struct {
	ev    Event
	reply chan result
}

type result struct {
	snap models.Snapshot
	err  error
}

// Controller owns one session. All state changes happen inside Run.
type Controller struct {
	id        uuid.UUID
	catalog   *region.Catalog
	clock     Clock
	publisher Publisher

	outbox      *eventOutbox
	eventBuffer int

	inbox   chan request
	updates chan models.Snapshot
	done    chan struct{}
	running atomic.Bool

	// owned by the Run loop
	state     models.Session
	version   uint64
	countdown *Countdown
	startedAt time.Time

	latestMu sync.RWMutex
	latest   models.Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the real clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithPublisher sends domain events to p.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithEventBuffer sets how many events may queue for the publisher before
// new ones are dropped.
func WithEventBuffer(n int) Option {
	return func(c *Controller) { c.eventBuffer = n }
}

// WithID fixes the session ID instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(c *Controller) { c.state.ID = id }
}

// NewController creates a controller for a fresh session on the Home page.
func NewController(catalog *region.Catalog, opts ...Option) *Controller {
	c := &Controller{
		catalog:   catalog,
		clock:     clockwork.NewRealClock(),
		publisher: nopPublisher{},
		inbox:     make(chan request),
		updates:   make(chan models.Snapshot, updatesBufferSize),
		done:      make(chan struct{}),
		state:     models.NewSession(uuid.New()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.id = c.state.ID
	c.countdown = newCountdown(c.clock)
	c.outbox = newEventOutbox(c.publisher, c.eventBuffer)
	c.latest = c.buildSnapshot()
	return c
}

// ID returns the session ID.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// Snapshot returns the most recent snapshot. Safe for concurrent use.
func (c *Controller) Snapshot() models.Snapshot {
	c.latestMu.RLock()
	defer c.latestMu.RUnlock()
	return c.latest
}

// Updates streams every snapshot produced by the loop, including tick-driven
// ones. When the reader falls behind, older snapshots are dropped. The channel
// is closed when Run returns.
func (c *Controller) Updates() <-chan models.Snapshot {
	return c.updates
}

// DroppedEvents counts events discarded because the publisher fell behind.
func (c *Controller) DroppedEvents() uint64 {
	return c.outbox.dropped.Load()
}

// Done is closed when Run returns.
// Events still queued for the publisher are delivered after that.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run processes events until ctx is cancelled. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("session controller already running")
	}
	go c.outbox.run(context.WithoutCancel(ctx))
	defer c.outbox.close()
	defer close(c.done)
	defer close(c.updates)
	defer func() {
		if c.countdown.Stop() {
			log.Debug().Str("session_id", c.state.ID.String()).Msg("collection timer cancelled on shutdown")
		}
	}()

	c.startedAt = c.clock.Now()
	log.Info().Str("session_id", c.state.ID.String()).Msg("session started")
	c.publish(events.TypeSessionStarted, events.SessionStartedPayload{StartedAt: c.startedAt})
	c.emit(c.Snapshot())

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("session_id", c.state.ID.String()).
				Str("page", string(c.state.Page)).
				Msg("session loop shutting down")
			return nil

		case req := <-c.inbox:
			snap, err := c.apply(req.ev)
			req.reply <- result{snap: snap, err: err}

		case <-c.countdown.C():
			if _, err := c.apply(tick()); err != nil {
				log.Error().Err(err).Str("session_id", c.state.ID.String()).Msg("tick failed")
			}
		}
	}
}

// Dispatch submits a player event to the loop and waits for the resulting snapshot.
// On error the returned snapshot is the unchanged current state.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (models.Snapshot, error) {
	if ev.Type == EventTick {
		return c.Snapshot(), fmt.Errorf("%w: ticks come from the collection timer", ErrInvalidTransition)
	}

	req := request{ev: ev, reply: make(chan result, 1)}
	select {
	case c.inbox <- req:
	case <-c.done:
		return c.Snapshot(), ErrClosed
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.snap, res.err
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

func (c *Controller) apply(ev Event) (models.Snapshot, error) {
	prev := c.state
	next, effect, err := Transition(prev, ev)
	if err != nil {
		log.Debug().
			Err(err).
			Str("session_id", prev.ID.String()).
			Str("page", string(prev.Page)).
			Str("event", string(ev.Type)).
			Msg("event rejected")
		return c.Snapshot(), err
	}

	switch effect {
	case EffectStartTimer:
		c.countdown.Start()
		log.Debug().Str("session_id", prev.ID.String()).Msg("collection timer started")
	case EffectStopTimer:
		if c.countdown.Stop() {
			log.Debug().Str("session_id", prev.ID.String()).Msg("collection timer stopped")
		}
	}

	if next == prev {
		return c.Snapshot(), nil
	}

	c.state = next
	c.version++
	snap := c.buildSnapshot()

	c.latestMu.Lock()
	c.latest = snap
	c.latestMu.Unlock()

	c.emit(snap)
	c.publishTransition(prev, next, ev)
	return snap, nil
}

// emit hands snap to the updates channel, dropping the oldest queued snapshot
// when the buffer is full.
func (c *Controller) emit(snap models.Snapshot) {
	select {
	case c.updates <- snap:
		return
	default:
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}

func (c *Controller) buildSnapshot() models.Snapshot {
	s := c.state
	id := s.RegionOrEmpty()

	snap := models.Snapshot{
		SessionID:        s.ID,
		Version:          c.version,
		Page:             s.Page,
		Region:           s.Region,
		ItemLabel:        c.catalog.ItemLabel(id),
		ImageKey:         c.catalog.ImageKey(id),
		ItemsCollected:   s.ItemsCollected,
		SecondsRemaining: s.SecondsRemaining,
		CanSeeResults:    s.Page == models.PageCollecting && s.SecondsRemaining == 0,
	}
	if s.Region != nil {
		snap.RegionName = c.catalog.DisplayName(id)
	}
	if s.Page == models.PageResults || s.Page == models.PageComplete {
		snap.ResultMessage = c.catalog.Classify(id, s.ItemsCollected)
	}
	return snap
}

func (c *Controller) publishTransition(prev, next models.Session, ev Event) {
	now := c.clock.Now()
	id := next.RegionOrEmpty()

	if prev.Page != next.Page {
		c.publish(events.TypePageChanged, events.PageChangedPayload{
			From: string(prev.Page),
			To:   string(next.Page),
		})
	}

	switch ev.Type {
	case EventRegionSelected:
		c.publish(events.TypeCollectionStarted, events.CollectionStartedPayload{
			Region:    string(id),
			ItemLabel: c.catalog.ItemLabel(id),
			Seconds:   next.SecondsRemaining,
			StartedAt: now,
			TimeoutAt: now.Add(time.Duration(next.SecondsRemaining) * tickInterval),
		})

	case EventItemTapped:
		c.publish(events.TypeItemCollected, events.ItemCollectedPayload{
			ItemsCollected:   next.ItemsCollected,
			SecondsRemaining: next.SecondsRemaining,
		})

	case EventTick:
		c.publish(events.TypeTimerTick, events.TimerTickPayload{
			SecondsRemaining: next.SecondsRemaining,
			TickedAt:         now,
		})
		if next.SecondsRemaining == 0 {
			log.Info().
				Str("session_id", next.ID.String()).
				Int("items_collected", next.ItemsCollected).
				Msg("collection time expired")
			c.publish(events.TypeTimerExpired, events.TimerExpiredPayload{
				ItemsCollected: next.ItemsCollected,
				ExpiredAt:      now,
			})
		}

	case EventTimeExpiredAcknowledged:
		c.publish(events.TypeResultsReady, events.ResultsReadyPayload{
			Region:         string(id),
			ItemsCollected: next.ItemsCollected,
			Tier:           c.catalog.TierIndex(id, next.ItemsCollected),
			Message:        c.catalog.Classify(id, next.ItemsCollected),
		})

	case EventCompleteAcknowledged:
		log.Info().
			Str("session_id", next.ID.String()).
			Str("region", string(id)).
			Int("items_collected", next.ItemsCollected).
			Msg("session completed")
		c.publish(events.TypeSessionCompleted, events.SessionCompletedPayload{
			Region:         string(id),
			ItemsCollected: next.ItemsCollected,
			CompletedAt:    now,
			Duration:       now.Sub(c.startedAt).String(),
		})
	}
}

// publish queues a domain event for the outbox. It never blocks the loop.
func (c *Controller) publish(typ events.Type, payload any) {
	env, err := events.New(c.state.ID, typ, c.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", c.state.ID.String()).Msg("failed to build event")
		return
	}
	c.outbox.enqueue(env)
}
