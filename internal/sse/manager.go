package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/directorstracker/tracker-server/internal/domain"
)

const (
	defaultHeartbeat = 30 * time.Second
	queueSize        = 1000
	clientBuffer     = 100
)

// Client is one open event stream. A session may hold several, one per tab.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	SessionID   string
}

func (c *Client) close() {
	close(c.Done)
	close(c.EventChan)
}

// Manager routes events to the streams of the session they belong to.
// Events without a session go to every stream.
type Manager struct {
	logger    *slog.Logger
	heartbeat time.Duration
	queue     chan Event
	loops     sync.WaitGroup

	mu        sync.RWMutex
	byID      map[string]*Client
	bySession map[string]map[string]*Client

	// closedMu guards closed and the close of queue.
	closedMu sync.RWMutex
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeartbeat sets how often idle streams receive a heartbeat.
func WithHeartbeat(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.heartbeat = d
		}
	}
}

// NewManager creates a Manager. Call Start to begin delivering events.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		logger:    logger,
		heartbeat: defaultHeartbeat,
		queue:     make(chan Event, queueSize),
		byID:      make(map[string]*Client),
		bySession: make(map[string]map[string]*Client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start delivers queued events and heartbeats until ctx is done or the
// manager shuts down. Run it in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.loops.Add(1)
	defer m.loops.Done()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	m.logger.Info("SSE manager starting", "heartbeat", m.heartbeat)

	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.deliver(event)
		case <-ticker.C:
			m.deliver(NewHeartbeatEvent())
		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.dropAll()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is queued until ctx
// expires and closes every stream. Calling it again is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closedMu.Lock()
	if m.closed {
		m.closedMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closedMu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range m.queue {
			m.deliver(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("SSE drain timed out, pending events dropped")
	}

	m.loops.Wait()
	m.dropAll()
	m.logger.Info("SSE manager stopped")
	return nil
}

// recipients returns the streams event is addressed to. Callers hold mu.
func (m *Manager) recipients(event Event) map[string]*Client {
	if event.SessionID == "" {
		return m.byID
	}
	return m.bySession[event.SessionID]
}

// deliver hands event to its recipients without blocking; slow streams miss it.
func (m *Manager) deliver(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent, dropped := 0, 0
	for _, client := range m.recipients(event) {
		select {
		case client.EventChan <- event:
			sent++
		default:
			dropped++
			m.logger.Warn("SSE stream is behind, event dropped",
				"client_id", client.ID,
				"session_id", client.SessionID,
				"event_type", string(event.Type))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("SSE event delivered",
			"event_type", string(event.Type),
			"session_id", event.SessionID,
			"sent", sent,
			"dropped", dropped)
	}
}

// Connect opens a stream for sessionID.
func (m *Manager) Connect(sessionID string) *Client {
	client := &Client{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		EventChan:   make(chan Event, clientBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.byID[client.ID] = client
	streams := m.bySession[sessionID]
	if streams == nil {
		streams = make(map[string]*Client)
		m.bySession[sessionID] = streams
	}
	streams[client.ID] = client
	total := len(m.byID)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		"client_id", client.ID,
		"session_id", sessionID,
		"total_clients", total)
	return client
}

// Disconnect closes one stream. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client := m.unregisterLocked(clientID)
	total := len(m.byID)
	m.mu.Unlock()

	if client == nil {
		return
	}
	client.close()

	m.logger.Info("SSE client disconnected",
		"client_id", clientID,
		"duration", time.Since(client.ConnectedAt),
		"total_clients", total)
}

func (m *Manager) unregisterLocked(clientID string) *Client {
	client, ok := m.byID[clientID]
	if !ok {
		return nil
	}
	delete(m.byID, clientID)
	if streams := m.bySession[client.SessionID]; streams != nil {
		delete(streams, clientID)
		if len(streams) == 0 {
			delete(m.bySession, client.SessionID)
		}
	}
	return client
}

// DisconnectSession closes every stream of sessionID and reports how many there were.
func (m *Manager) DisconnectSession(sessionID string) int {
	m.mu.Lock()
	streams := m.bySession[sessionID]
	closing := make([]*Client, 0, len(streams))
	for id := range streams {
		if c := m.unregisterLocked(id); c != nil {
			closing = append(closing, c)
		}
	}
	m.mu.Unlock()

	for _, c := range closing {
		c.close()
	}
	if len(closing) > 0 {
		m.logger.Info("SSE session streams closed", "session_id", sessionID, "streams", len(closing))
	}
	return len(closing)
}

// Emit queues an event. Events emitted after Shutdown, or while the queue is
// full, are dropped.
func (m *Manager) Emit(event Event) {
	m.closedMu.RLock()
	defer m.closedMu.RUnlock()

	if m.closed {
		return
	}

	select {
	case m.queue <- event:
	default:
		m.logger.Error("SSE queue full, event dropped", "event_type", string(event.Type))
	}
}

// ChartUpdated publishes a rendered chart to the session's streams.
func (m *Manager) ChartUpdated(sessionID string, doc *domain.ChartDocument) {
	m.Emit(NewChartUpdatedEvent(sessionID, doc))
}

// ChartFailed publishes a render failure notice to the session's streams.
func (m *Manager) ChartFailed(sessionID string, sel domain.Selection, err error) {
	m.Emit(NewChartRenderFailedEvent(sessionID, sel, userMessage(err)))
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// SessionCount returns the number of sessions with at least one open stream.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySession)
}

func (m *Manager) dropAll() {
	m.mu.Lock()
	clients := m.byID
	m.byID = make(map[string]*Client)
	m.bySession = make(map[string]map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		m.logger.Info("SSE streams closed", "count", len(clients))
	}
}
