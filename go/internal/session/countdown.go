package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// tickInterval is the collection timer resolution.
const tickInterval = time.Second

// Countdown is the single repeating collection timer of a session. It is owned
// by the controller loop and is not safe for concurrent use.
type Countdown struct {
	clock  Clock
	ticker clockwork.Ticker
}

func newCountdown(clock Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Start replaces any running ticker with a fresh one.
func (c *Countdown) Start() {
	c.Stop()
	c.ticker = c.clock.NewTicker(tickInterval)
}

// Stop cancels the ticker. It reports whether a ticker was running and is safe
// to call repeatedly.
func (c *Countdown) Stop() bool {
	if c.ticker == nil {
		return false
	}
	stopAndDrainTicker(c.ticker)
	c.ticker = nil
	return true
}

// Running reports whether the ticker is active.
func (c *Countdown) Running() bool {
	return c.ticker != nil
}

// C returns the tick channel, or nil when stopped so a select never fires on it.
func (c *Countdown) C() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

// stopAndDrainTicker stops a ticker and discards a tick that was already delivered.
func stopAndDrainTicker(t clockwork.Ticker) {
	t.Stop()
	select {
	case <-t.Chan():
	default:
	}
}
