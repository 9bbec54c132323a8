package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/directorstracker/tracker-server/internal/errors"
)

const (
	writeTimeout = 60 * time.Second
	// reconnectDelay is the retry hint sent to browsers, in milliseconds.
	reconnectDelay = 3000
)

// SessionResolver returns the session a stream request belongs to, or false
// when the request carries no live session.
type SessionResolver func(r *http.Request) (sessionID string, ok bool)

// Handler serves GET /api/v1/events. Each stream only carries events for the
// session that opened it, plus heartbeats.
type Handler struct {
	manager *Manager
	resolve SessionResolver
	logger  *slog.Logger
}

func NewHandler(manager *Manager, resolve SessionResolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{manager: manager, resolve: resolve, logger: logger}
}

// stream writes frames to one client with increasing ids.
type stream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	seq uint64
	buf bytes.Buffer
}

func (s *stream) send(event Event, retry bool) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	s.seq++
	s.buf.Reset()
	if retry {
		s.buf.WriteString("retry: " + strconv.Itoa(reconnectDelay) + "\n")
	}
	s.buf.WriteString("id: " + strconv.FormatUint(s.seq, 10) + "\n")
	s.buf.WriteString("event: " + string(event.Type) + "\n")
	s.buf.WriteString("data: ")
	s.buf.Write(payload)
	s.buf.WriteString("\n\n")

	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	// Pushed forward after every frame so a stuck peer times out.
	_ = s.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	sessionID, ok := h.resolve(r)
	if !ok {
		http.Error(w, "No dashboard session", http.StatusUnauthorized)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	out := &stream{w: w, rc: http.NewResponseController(w)}
	if err := out.rc.Flush(); err != nil {
		h.logger.Error("event stream cannot flush", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client := h.manager.Connect(sessionID)
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID, "session_id", sessionID)

	if err := out.send(newConnectedEvent(client.ID), true); err != nil {
		log.Warn("event stream hello failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("event stream closed by client")
			return
		case <-client.Done:
			log.Info("event stream closed by server")
			return
		case event, open := <-client.EventChan:
			if !open {
				log.Info("event stream closed by server")
				return
			}
			if err := out.send(event, false); err != nil {
				log.Info("event stream write failed", "error", err, "sent", out.seq-1)
				return
			}
		}
	}
}

// userMessage returns the message of a domain error without its cause.
func userMessage(err error) string {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "The chart could not be drawn."
}
