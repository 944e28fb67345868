package session

import (
	"fmt"

	"github.com/mcdev12/sustainifly/go/internal/models"
)

// Effect is a side effect the controller must perform after a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectStartTimer
	EffectStopTimer
)

func (e Effect) String() string {
	switch e {
	case EffectStartTimer:
		return "start_timer"
	case EffectStopTimer:
		return "stop_timer"
	default:
		return "none"
	}
}

// Transition applies ev to s and returns the next session together with the timer
// effect it requires. It never mutates s. On error the returned session equals s.
func Transition(s models.Session, ev Event) (models.Session, Effect, error) {
	if ev.Type == EventTick {
		return applyTick(s)
	}
	if s.Page.Terminal() {
		return s, EffectNone, fmt.Errorf("%w: %s", ErrSessionComplete, ev.Type)
	}

	switch {
	case s.Page == models.PageHome && ev.Type == EventContinue:
		s.Page = models.PageRegionSelect
		return s, EffectNone, nil

	case s.Page == models.PageRegionSelect && ev.Type == EventRegionSelected:
		if !ev.Region.Valid() {
			return s, EffectNone, fmt.Errorf("%w: %q", ErrUnknownRegion, ev.Region)
		}
		region := ev.Region
		s.Page = models.PageCollecting
		s.Region = &region
		s.SecondsRemaining = models.CollectionSeconds
		s.ItemsCollected = 0
		return s, EffectStartTimer, nil

	case s.Page == models.PageCollecting && ev.Type == EventItemTapped:
		if s.SecondsRemaining == 0 {
			return s, EffectNone, ErrTimeExpired
		}
		s.ItemsCollected++
		return s, EffectNone, nil

	case s.Page == models.PageCollecting && ev.Type == EventTimeExpiredAcknowledged:
		if s.SecondsRemaining > 0 {
			return s, EffectNone, fmt.Errorf("%w: %ds remaining", ErrResultsLocked, s.SecondsRemaining)
		}
		s.Page = models.PageResults
		return s, EffectStopTimer, nil

	case s.Page == models.PageResults && ev.Type == EventCompleteAcknowledged:
		s.Page = models.PageComplete
		return s, EffectNone, nil
	}

	return s, EffectNone, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev.Type, s.Page)
}

// applyTick decrements the countdown. Ticks outside Collecting or at zero are no-ops.
func applyTick(s models.Session) (models.Session, Effect, error) {
	if s.Page != models.PageCollecting || s.SecondsRemaining == 0 {
		return s, EffectNone, nil
	}
	s.SecondsRemaining--
	if s.SecondsRemaining == 0 {
		return s, EffectStopTimer, nil
	}
	return s, EffectNone, nil
}
