package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a session domain event.
type Type string

const (
	TypeSessionStarted    Type = "SessionStarted"
	TypePageChanged       Type = "PageChanged"
	TypeCollectionStarted Type = "CollectionStarted"
	TypeItemCollected     Type = "ItemCollected"
	TypeTimerTick         Type = "TimerTick"
	TypeTimerExpired      Type = "TimerExpired"
	TypeResultsReady      Type = "ResultsReady"
	TypeSessionCompleted  Type = "SessionCompleted"
)

// Envelope wraps an event payload with its routing metadata.
type Envelope struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New marshals payload into a fresh envelope.
func New(sessionID uuid.UUID, typ Type, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		SessionID: sessionID.String(),
		Type:      typ,
		Timestamp: at,
		Data:      data,
	}, nil
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	StartedAt time.Time `json:"started_at"`
}

// PageChangedPayload is the payload for a PageChanged event
type PageChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CollectionStartedPayload is the payload for a CollectionStarted event
type CollectionStartedPayload struct {
	Region    string    `json:"region"`
	ItemLabel string    `json:"item_label"`
	Seconds   int       `json:"seconds"`
	StartedAt time.Time `json:"started_at"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// ItemCollectedPayload is the payload for an ItemCollected event
type ItemCollectedPayload struct {
	ItemsCollected   int `json:"items_collected"`
	SecondsRemaining int `json:"seconds_remaining"`
}

// TimerTickPayload is the payload for a TimerTick event
type TimerTickPayload struct {
	SecondsRemaining int       `json:"seconds_remaining"`
	TickedAt         time.Time `json:"ticked_at"`
}

// TimerExpiredPayload is the payload for a TimerExpired event
type TimerExpiredPayload struct {
	ItemsCollected int       `json:"items_collected"`
	ExpiredAt      time.Time `json:"expired_at"`
}

// ResultsReadyPayload is the payload for a ResultsReady event
type ResultsReadyPayload struct {
	Region         string `json:"region"`
	ItemsCollected int    `json:"items_collected"`
	Tier           int    `json:"tier"`
	Message        string `json:"message"`
}

// SessionCompletedPayload is the payload for a SessionCompleted event
type SessionCompletedPayload struct {
	Region         string    `json:"region"`
	ItemsCollected int       `json:"items_collected"`
	CompletedAt    time.Time `json:"completed_at"`
	Duration       string    `json:"duration"`
}

// Decode unmarshals the envelope data into the payload struct matching its type.
func Decode(env Envelope) (any, error) {
	var payload any
	switch env.Type {
	case TypeSessionStarted:
		payload = &SessionStartedPayload{}
	case TypePageChanged:
		payload = &PageChangedPayload{}
	case TypeCollectionStarted:
		payload = &CollectionStartedPayload{}
	case TypeItemCollected:
		payload = &ItemCollectedPayload{}
	case TypeTimerTick:
		payload = &TimerTickPayload{}
	case TypeTimerExpired:
		payload = &TimerExpiredPayload{}
	case TypeResultsReady:
		payload = &ResultsReadyPayload{}
	case TypeSessionCompleted:
		payload = &SessionCompletedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
	}
	return payload, nil
}
