package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sustainifly/go/internal/events"
	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) count(typ events.Type) int {
	n := 0
	for _, t := range p.types() {
		if t == typ {
			n++
		}
	}
	return n
}

type harness struct {
	c      *Controller
	clock  *clockwork.FakeClock
	pub    *recordingPublisher
	cancel context.CancelFunc
}

func startController(t *testing.T, opts ...Option) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	pub := &recordingPublisher{}
	c := NewController(region.Default(), append([]Option{WithClock(clock), WithPublisher(pub)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return &harness{c: c, clock: clock, pub: pub, cancel: cancel}
}

func (h *harness) dispatch(t *testing.T, ev Event) models.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := h.c.Dispatch(ctx, ev)
	require.NoError(t, err)
	return snap
}

// waitForEvent blocks until the publisher has seen n events of typ. Events are
// published in order, so everything queued before them has been published too.
func (h *harness) waitForEvent(t *testing.T, typ events.Type, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.pub.count(typ) == n
	}, time.Second, time.Millisecond)
}

// tickOnce advances the fake clock by one second and waits for the loop to apply it.
func (h *harness) tickOnce(t *testing.T, want int) {
	t.Helper()
	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return h.c.Snapshot().SecondsRemaining == want
	}, time.Second, time.Millisecond)
}

func TestControllerInitialSnapshot(t *testing.T) {
	id := uuid.New()
	h := startController(t, WithID(id))

	snap := h.c.Snapshot()
	assert.Equal(t, id, h.c.ID())
	assert.Equal(t, id, snap.SessionID)
	assert.Equal(t, models.PageHome, snap.Page)
	assert.Nil(t, snap.Region)
	assert.Equal(t, 0, snap.ItemsCollected)
	assert.Equal(t, models.CollectionSeconds, snap.SecondsRemaining)
	assert.Equal(t, "Items", snap.ItemLabel)
	assert.False(t, snap.CanSeeResults)
}

func TestControllerFullScenario(t *testing.T) {
	h := startController(t)

	snap := h.dispatch(t, Continue())
	assert.Equal(t, models.PageRegionSelect, snap.Page)

	snap = h.dispatch(t, SelectRegion(models.RegionJapan))
	assert.Equal(t, models.PageCollecting, snap.Page)
	assert.Equal(t, 30, snap.SecondsRemaining)
	assert.Equal(t, 0, snap.ItemsCollected)
	assert.Equal(t, "Plastic Packaging", snap.ItemLabel)
	assert.Equal(t, "Japan", snap.RegionName)

	for i := 0; i < 35; i++ {
		snap = h.dispatch(t, TapItem())
	}
	assert.Equal(t, 35, snap.ItemsCollected)

	_, err := h.c.Dispatch(context.Background(), AcknowledgeTimeExpired())
	require.ErrorIs(t, err, ErrResultsLocked)

	for want := 29; want >= 0; want-- {
		h.tickOnce(t, want)
	}
	assert.True(t, h.c.Snapshot().CanSeeResults)

	snap = h.dispatch(t, AcknowledgeTimeExpired())
	assert.Equal(t, models.PageResults, snap.Page)
	assert.Contains(t, snap.ResultMessage, "create a t-shirt!")

	snap = h.dispatch(t, AcknowledgeComplete())
	assert.Equal(t, models.PageComplete, snap.Page)
	assert.Contains(t, snap.ResultMessage, "create a t-shirt!")

	_, err = h.c.Dispatch(context.Background(), Continue())
	require.ErrorIs(t, err, ErrSessionComplete)

	h.waitForEvent(t, events.TypeSessionCompleted, 1)
	assert.Equal(t, 30, h.pub.count(events.TypeTimerTick))
	assert.Equal(t, 1, h.pub.count(events.TypeTimerExpired))
	assert.Equal(t, 35, h.pub.count(events.TypeItemCollected))
	assert.Equal(t, 4, h.pub.count(events.TypePageChanged))
	assert.Equal(t, 1, h.pub.count(events.TypeSessionCompleted))
	assert.Equal(t, events.TypeSessionStarted, h.pub.types()[0])
}

func TestControllerTimerStopsAtZero(t *testing.T) {
	h := startController(t)
	h.dispatch(t, Continue())
	h.dispatch(t, SelectRegion(models.RegionUS))

	for want := 29; want >= 0; want-- {
		h.tickOnce(t, want)
	}

	h.clock.Advance(10 * time.Second)
	require.Never(t, func() bool {
		return h.c.Snapshot().SecondsRemaining != 0
	}, 50*time.Millisecond, 5*time.Millisecond)
	h.waitForEvent(t, events.TypeTimerExpired, 1)
	assert.Equal(t, 30, h.pub.count(events.TypeTimerTick))

	_, err := h.c.Dispatch(context.Background(), TapItem())
	require.ErrorIs(t, err, ErrTimeExpired)
}

func TestControllerCancelsTimerOnShutdown(t *testing.T) {
	h := startController(t)
	h.dispatch(t, Continue())
	h.dispatch(t, SelectRegion(models.RegionBrazil))
	h.tickOnce(t, 29)

	h.cancel()
	<-h.c.Done()
	assert.False(t, h.c.countdown.Running())

	_, err := h.c.Dispatch(context.Background(), TapItem())
	require.ErrorIs(t, err, ErrClosed)

	// updates is closed once the loop exits
	for range h.c.Updates() {
	}
}

func TestControllerRejectsExternalTicks(t *testing.T) {
	h := startController(t)
	h.dispatch(t, Continue())
	h.dispatch(t, SelectRegion(models.RegionChina))

	snap, err := h.c.Dispatch(context.Background(), Event{Type: EventTick})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 30, snap.SecondsRemaining)
}

func TestControllerUpdatesStreamTicks(t *testing.T) {
	h := startController(t)

	first := <-h.c.Updates()
	assert.Equal(t, models.PageHome, first.Page)

	h.dispatch(t, Continue())
	h.dispatch(t, SelectRegion(models.RegionGermany))
	h.tickOnce(t, 29)

	var last models.Snapshot
	require.Eventually(t, func() bool {
		for {
			select {
			case snap := <-h.c.Updates():
				last = snap
			default:
				return last.SecondsRemaining == 29
			}
		}
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(3), last.Version)
}

func TestControllerRunTwice(t *testing.T) {
	h := startController(t)
	require.Eventually(t, func() bool { return h.c.running.Load() }, time.Second, time.Millisecond)
	require.Error(t, h.c.Run(context.Background()))
}

func TestDispatchHonoursContext(t *testing.T) {
	c := NewController(region.Default(), WithClock(clockwork.NewFakeClock()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Dispatch(ctx, Continue())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// blockingPublisher holds every Publish call until release is closed.
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, env events.Envelope) error {
	<-p.release
	return p.recordingPublisher.Publish(ctx, env)
}

func TestControllerKeepsTimeWhilePublisherStalls(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	clock := clockwork.NewFakeClock()
	c := NewController(region.Default(), WithClock(clock), WithPublisher(pub), WithEventBuffer(4))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	released := false
	release := func() {
		if !released {
			released = true
			close(pub.release)
		}
	}
	t.Cleanup(release)

	dispatch := func(ev Event) models.Snapshot {
		t.Helper()
		dctx, dcancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer dcancel()
		snap, err := c.Dispatch(dctx, ev)
		require.NoError(t, err)
		return snap
	}

	dispatch(Continue())
	dispatch(SelectRegion(models.RegionJapan))

	for want := 29; want >= 20; want-- {
		clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return c.Snapshot().SecondsRemaining == want
		}, time.Second, time.Millisecond)
	}

	snap := dispatch(TapItem())
	assert.Equal(t, 1, snap.ItemsCollected)
	assert.Positive(t, c.DroppedEvents())

	release()
	require.Eventually(t, func() bool {
		return len(pub.types()) > 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, events.TypeSessionStarted, pub.types()[0])
}
