package session

import "errors"

var (
	// ErrInvalidTransition is returned when an event is not accepted on the current page.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrResultsLocked is returned when results are requested before the countdown reaches zero.
	ErrResultsLocked = errors.New("results locked until time runs out")
	// ErrTimeExpired is returned for taps made after the countdown reached zero.
	ErrTimeExpired = errors.New("collection time expired")
	// ErrSessionComplete is returned for any event after the session completed.
	ErrSessionComplete = errors.New("session complete")
	// ErrUnknownRegion is returned when a region outside the fixed set is chosen.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrClosed is returned when dispatching to a controller whose loop has exited.
	ErrClosed = errors.New("session closed")
)
