package service

import (
	"time"

	"github.com/wfunc/remi-scorer/internal/models"
)

// Realtime event names pushed to connected clients.
const (
	// EventSeriesCreated fan-out to every connected client
	EventSeriesCreated = "series-created"
	// EventViewerJoined room fan-out when a new device logs in as viewer
	EventViewerJoined = "viewer-joined"
	// EventSessionCreated room fan-out when a session starts
	EventSessionCreated = "session-created"
	// EventSessionUpdated room fan-out on any score or state change
	EventSessionUpdated = "session-updated"
)

// Notifier pushes events to connected clients. The websocket hub
// implements it; services depend only on this interface.
type Notifier interface {
	// BroadcastAll sends the event to every connected client
	BroadcastAll(event string, payload interface{})
	// BroadcastSeries sends the event to clients in the series room
	BroadcastSeries(seriesID string, event string, payload interface{})
}

// NopNotifier discards all events, for tests and the migrate tool
type NopNotifier struct{}

func (NopNotifier) BroadcastAll(event string, payload interface{}) {}

func (NopNotifier) BroadcastSeries(seriesID string, event string, payload interface{}) {}

// SeriesCreatedPayload body of the series-created event
type SeriesCreatedPayload struct {
	SeriesID  string         `json:"seriesId"`
	Players   models.Players `json:"players"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ViewerJoinedPayload body of the viewer-joined event
type ViewerJoinedPayload struct {
	SeriesID    string `json:"seriesId"`
	DeviceID    string `json:"deviceId"`
	ViewerCount int    `json:"viewerCount"`
}

// SessionCreatedPayload body of the session-created event
type SessionCreatedPayload struct {
	SeriesID       string         `json:"seriesId"`
	SessionID      string         `json:"sessionId"`
	SequenceNumber int            `json:"sequenceNumber"`
	Players        models.Players `json:"players"`
}

// SessionUpdatedPayload body of the session-updated event
type SessionUpdatedPayload struct {
	SeriesID  string          `json:"seriesId"`
	SessionID string          `json:"sessionId"`
	Session   *models.Session `json:"session"`
}
