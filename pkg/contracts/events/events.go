// Package events contains the event contract pushed to WebSocket clients
// tracking an analysis session.
package events

import "time"

// Event types.
const (
	TypeImportProgress = "import:progress"
	TypeImportComplete = "import:complete"
	TypeSessionReset   = "session:reset"
)

// Event is the envelope for every pushed message.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an envelope with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Payload: payload}
}
