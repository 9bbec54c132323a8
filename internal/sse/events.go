// Package sse pushes chart updates to dashboard pages over Server-Sent Events.
package sse

import (
	"time"

	"github.com/directorstracker/tracker-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventChartUpdated carries a freshly rendered chart for the session.
	EventChartUpdated EventType = "chart.updated"
	// EventChartRenderFailed reports a rebuild that failed. The page keeps its chart.
	EventChartRenderFailed EventType = "chart.render_failed"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// SessionID limits delivery to streams of one session. Empty broadcasts.
	SessionID string `json:"-"`
}

// ChartUpdatedEventData is the payload of chart.updated.
type ChartUpdatedEventData struct {
	Genre     string   `json:"genre"`
	Directors []string `json:"directors"`
	Empty     bool     `json:"empty"`
	Notice    string   `json:"notice,omitempty"`
	Movies    int      `json:"movies"`
	HTML      string   `json:"html"`
}

// ChartRenderFailedEventData is the payload of chart.render_failed.
type ChartRenderFailedEventData struct {
	Genre     string   `json:"genre"`
	Directors []string `json:"directors"`
	Message   string   `json:"message"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// ConnectedEventData is the payload of connected.
type ConnectedEventData struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// NewChartUpdatedEvent creates a chart.updated event for one session.
func NewChartUpdatedEvent(sessionID string, doc *domain.ChartDocument) Event {
	return Event{
		Type: EventChartUpdated,
		Data: ChartUpdatedEventData{
			Genre:     doc.Genre,
			Directors: doc.Directors,
			Empty:     doc.Empty,
			Notice:    doc.Notice,
			Movies:    doc.TotalMovies(),
			HTML:      doc.HTML,
		},
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// NewChartRenderFailedEvent creates a chart.render_failed event for one session.
func NewChartRenderFailedEvent(sessionID string, sel domain.Selection, message string) Event {
	return Event{
		Type: EventChartRenderFailed,
		Data: ChartRenderFailedEventData{
			Genre:     sel.Genre,
			Directors: sel.Directors,
			Message:   message,
		},
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

func newConnectedEvent(clientID string) Event {
	return Event{
		Type: EventConnected,
		Data: ConnectedEventData{
			ClientID: clientID,
			Message:  "SSE connection established",
		},
		Timestamp: time.Now(),
	}
}
