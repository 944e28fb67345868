package session

import "github.com/mcdev12/sustainifly/go/internal/models"

// EventType names an input the controller accepts.
type EventType string

const (
	EventContinue                EventType = "continue"
	EventRegionSelected          EventType = "region_selected"
	EventItemTapped              EventType = "item_tapped"
	EventTimeExpiredAcknowledged EventType = "time_expired_acknowledged"
	EventCompleteAcknowledged    EventType = "complete_acknowledged"

	// EventTick is produced only by the collection timer.
	EventTick EventType = "tick"
)

// Event is a single input to the session state machine.
type Event struct {
	Type   EventType
	Region models.RegionID
}

func Continue() Event { return Event{Type: EventContinue} }

func SelectRegion(id models.RegionID) Event {
	return Event{Type: EventRegionSelected, Region: id}
}

func TapItem() Event { return Event{Type: EventItemTapped} }

func AcknowledgeTimeExpired() Event { return Event{Type: EventTimeExpiredAcknowledged} }

func AcknowledgeComplete() Event { return Event{Type: EventCompleteAcknowledged} }

func tick() Event { return Event{Type: EventTick} }
