package gateway

import (
	"encoding/json"
	"errors"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/playfield"
	"github.com/mcdev12/sustainifly/go/internal/session"
)

// ClientMessageType names a message sent by the presentation layer.
type ClientMessageType string

const (
	ClientContinue     ClientMessageType = "continue"
	ClientSelectRegion ClientMessageType = "select_region"
	ClientTap          ClientMessageType = "tap"
	ClientSeeResults   ClientMessageType = "see_results"
	ClientComplete     ClientMessageType = "complete"
	ClientViewport     ClientMessageType = "viewport"
)

// ClientMessage is the JSON frame read from a websocket.
type ClientMessage struct {
	Type   ClientMessageType `json:"type"`
	Region string            `json:"region,omitempty"`
	X      *float64          `json:"x,omitempty"`
	Y      *float64          `json:"y,omitempty"`
	Frame  *uint64           `json:"frame,omitempty"`
	Width  float64           `json:"width,omitempty"`
	Height float64           `json:"height,omitempty"`
}

// ServerMessageType names a message sent to the presentation layer.
type ServerMessageType string

const (
	ServerSnapshot ServerMessageType = "snapshot"
	ServerError    ServerMessageType = "error"
)

// ServerMessage is the JSON frame written to a websocket.
type ServerMessage struct {
	Type  ServerMessageType `json:"type"`
	Data  *SessionView      `json:"data,omitempty"`
	Error string            `json:"error,omitempty"`
	Code  string            `json:"code,omitempty"`
}

// SessionView is a snapshot plus the markers drawn for this render pass.
// Frame identifies the marker set; clients echo it on taps.
type SessionView struct {
	models.Snapshot
	Frame   uint64             `json:"frame,omitempty"`
	Markers []playfield.Marker `json:"markers,omitempty"`
}

// toEvent maps a client message onto a session event. Viewport messages carry
// no event and return ok=false.
func (m ClientMessage) toEvent() (session.Event, bool, error) {
	switch m.Type {
	case ClientContinue:
		return session.Continue(), true, nil
	case ClientSelectRegion:
		return session.SelectRegion(models.RegionID(m.Region)), true, nil
	case ClientTap:
		return session.TapItem(), true, nil
	case ClientSeeResults:
		return session.AcknowledgeTimeExpired(), true, nil
	case ClientComplete:
		return session.AcknowledgeComplete(), true, nil
	case ClientViewport:
		return session.Event{}, false, nil
	default:
		return session.Event{}, false, errUnknownMessage
	}
}

var (
	errUnknownMessage = errors.New("unknown message type")
	errInvalidMessage = errors.New("invalid message")
	errTapMissed      = errors.New("tap missed every marker")
	errStaleFrame     = errors.New("tap refers to a marker frame no longer on screen")
	errBadViewport    = errors.New("viewport must be positive")
)

// errorCode gives clients a stable identifier for a rejected message.
func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrResultsLocked):
		return "results_locked"
	case errors.Is(err, session.ErrTimeExpired):
		return "time_expired"
	case errors.Is(err, session.ErrSessionComplete):
		return "session_complete"
	case errors.Is(err, session.ErrUnknownRegion):
		return "unknown_region"
	case errors.Is(err, session.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, session.ErrClosed):
		return "session_closed"
	case errors.Is(err, errTapMissed):
		return "tap_missed"
	case errors.Is(err, errStaleFrame):
		return "stale_frame"
	case errors.Is(err, errBadViewport):
		return "bad_viewport"
	case errors.Is(err, errUnknownMessage):
		return "unknown_message"
	default:
		return "invalid_message"
	}
}

func encodeError(err error) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: ServerError, Error: err.Error(), Code: errorCode(err)})
}

func encodeView(view SessionView) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: ServerSnapshot, Data: &view})
}
