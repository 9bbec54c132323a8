package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/id"
)

// Options configures a Registry.
type Options struct {
	Dataset      *domain.Dataset
	Builder      chart.Builder
	Publisher    Publisher
	DefaultGenre string
	IdleTTL      time.Duration
	Logger       *slog.Logger
	// OnEnd is called with the id of every session removed from the registry.
	OnEnd func(sessionID string)
}

// Registry owns the controllers of every live session.
type Registry struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultGenre == "" {
		opts.DefaultGenre = domain.DefaultGenre
	}
	return &Registry{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Controller),
	}
}

// Create starts a session on the default genre. A failed initial render does
// not fail creation; the snapshot carries the notice instead.
func (r *Registry) Create(ctx context.Context) (*Controller, error) {
	sessionID, err := id.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c := NewController(sessionID, r.opts.Dataset, r.opts.Builder, r.opts.Publisher, r.logger)

	r.mu.Lock()
	r.sessions[sessionID] = c
	total := len(r.sessions)
	r.mu.Unlock()

	if _, err := c.Init(ctx, r.opts.DefaultGenre); err != nil && !errors.Is(err, errors.ErrChartRender) {
		return nil, err
	}

	r.logger.Info("session created", "session_id", sessionID, "total_sessions", total)
	return c, nil
}

// Get returns the controller for sessionID and marks it used.
func (r *Registry) Get(sessionID string) (*Controller, bool) {
	r.mu.RLock()
	c, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		c.Touch()
	}
	return c, ok
}

// Resolve returns the session for sessionID, or a fresh one if it is unknown or expired.
func (r *Registry) Resolve(ctx context.Context, sessionID string) (c *Controller, created bool, err error) {
	if sessionID != "" {
		if c, ok := r.Get(sessionID); ok {
			return c, false, nil
		}
	}
	c, err = r.Create(ctx)
	return c, err == nil, err
}

// Remove ends a session.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	c, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		r.end(c)
	}
}

// DeleteIdle ends every session unused since now minus the idle TTL and
// reports how many were removed.
func (r *Registry) DeleteIdle(now time.Time) int {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.opts.IdleTTL)

	var idle []*Controller
	r.mu.Lock()
	for sid, c := range r.sessions {
		if c.LastSeen().Before(cutoff) {
			idle = append(idle, c)
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		r.end(c)
	}
	return len(idle)
}

func (r *Registry) end(c *Controller) {
	c.Close()
	if r.opts.OnEnd != nil {
		r.opts.OnEnd(c.ID())
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IdleTTL returns how long an unused session survives.
func (r *Registry) IdleTTL() time.Duration {
	return r.opts.IdleTTL
}
