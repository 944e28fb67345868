package models

import "github.com/google/uuid"

// CollectionSeconds is the length of the collection minigame and the reset value
// of SecondsRemaining.
const CollectionSeconds = 30

// Session is the mutable state of one play-through from Home to Complete.
type Session struct {
	ID               uuid.UUID `json:"id"`
	Page             Page      `json:"page"`
	Region           *RegionID `json:"region,omitempty"`
	ItemsCollected   int       `json:"items_collected"`
	SecondsRemaining int       `json:"seconds_remaining"`
}

// NewSession returns a session in its initial state.
func NewSession(id uuid.UUID) Session {
	return Session{
		ID:               id,
		Page:             PageHome,
		SecondsRemaining: CollectionSeconds,
	}
}

// RegionOrEmpty returns the selected region, or "" while none is set.
func (s Session) RegionOrEmpty() RegionID {
	if s.Region == nil {
		return ""
	}
	return *s.Region
}

// Snapshot is the read-only projection of a session handed to presentation layers.
type Snapshot struct {
	SessionID        uuid.UUID `json:"session_id"`
	Version          uint64    `json:"version"`
	Page             Page      `json:"page"`
	Region           *RegionID `json:"region,omitempty"`
	RegionName       string    `json:"region_name,omitempty"`
	ItemLabel        string    `json:"item_label"`
	ImageKey         string    `json:"image_key"`
	ItemsCollected   int       `json:"items_collected"`
	SecondsRemaining int       `json:"seconds_remaining"`
	CanSeeResults    bool      `json:"can_see_results"`
	ResultMessage    string    `json:"result_message,omitempty"`
}
