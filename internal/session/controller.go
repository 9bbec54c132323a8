// Package session holds per-visitor dashboard state.
//
// Each session owns a Controller: the selected genre, the selected directors
// and the last chart document that rendered successfully. The dataset is
// shared by every session and never mutated.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// Publisher receives the outcome of every rebuild that was not superseded.
type Publisher interface {
	ChartUpdated(sessionID string, doc *domain.ChartDocument)
	ChartFailed(sessionID string, sel domain.Selection, err error)
}

// Snapshot is a consistent view of a controller.
type Snapshot struct {
	SessionID  string
	Selection  domain.Selection
	Document   *domain.ChartDocument // Last good document, nil until one renders
	Generation uint64
	Failure    string // Notice from the last failed rebuild, cleared on success
}

// Controller applies selection changes for one session.
//
// Every transition updates the selection immediately and then rebuilds the
// chart outside the lock. A newer transition cancels the rebuild in flight and
// the older result is dropped, so at most one rebuild per session can commit.
type Controller struct {
	id      string
	dataset *domain.Dataset
	builder chart.Builder
	pub     Publisher
	logger  *slog.Logger

	mu         sync.Mutex
	selection  domain.Selection
	current    *domain.ChartDocument
	generation uint64
	failure    string
	cancel     context.CancelFunc

	lastSeen atomic.Int64 // Unix nanoseconds
}

// NewController creates a controller with no selection. Call Init to render
// the initial chart.
func NewController(id string, ds *domain.Dataset, builder chart.Builder, pub Publisher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		id:        id,
		dataset:   ds,
		builder:   builder,
		pub:       pub,
		logger:    logger.With("session_id", id),
		selection: domain.NewSelection(""),
	}
	c.Touch()
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Init selects genre with no directors, through the same path as OnGenreChanged.
func (c *Controller) Init(ctx context.Context, genre string) (Snapshot, error) {
	return c.OnGenreChanged(ctx, genre)
}

// OnGenreChanged selects genre and clears the director selection.
func (c *Controller) OnGenreChanged(ctx context.Context, genre string) (Snapshot, error) {
	return c.apply(ctx, func(s domain.Selection) domain.Selection {
		return s.WithGenre(genre)
	})
}

// OnDirectorsClicked replaces the director selection and keeps the genre.
func (c *Controller) OnDirectorsClicked(ctx context.Context, directors []string) (Snapshot, error) {
	return c.apply(ctx, func(s domain.Selection) domain.Selection {
		return s.WithDirectors(directors)
	})
}

// Current returns the controller state.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Touch marks the session as used now.
func (c *Controller) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns when the session was last used.
func (c *Controller) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Close cancels any rebuild in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}

func (c *Controller) apply(ctx context.Context, next func(domain.Selection) domain.Selection) (Snapshot, error) {
	c.Touch()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	sel := next(c.selection)
	c.selection = sel
	// A dropped request must not leave the session half-applied; only a
	// newer transition cancels the build.
	buildCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.mu.Unlock()

	start := time.Now()
	doc, err := c.builder.Build(buildCtx, c.dataset, sel)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()

	if gen != c.generation {
		c.logger.Debug("stale chart rebuild discarded",
			"generation", gen,
			"current_generation", c.generation,
			"genre", sel.Genre,
		)
		return c.snapshotLocked(), errors.ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		renderErr := asRenderError(err, sel)
		c.failure = renderErr.Message
		c.logger.Warn("chart rebuild failed, keeping previous chart",
			"genre", sel.Genre,
			"directors", len(sel.Directors),
			"error", err,
		)
		if c.pub != nil {
			c.pub.ChartFailed(c.id, sel, renderErr)
		}
		return c.snapshotLocked(), renderErr
	}

	c.current = doc
	c.failure = ""
	c.logger.Debug("chart rebuilt",
		"generation", gen,
		"genre", sel.Genre,
		"directors", len(sel.Directors),
		"duration", time.Since(start),
	)
	if c.pub != nil {
		c.pub.ChartUpdated(c.id, doc)
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:  c.id,
		Selection:  c.selection,
		Document:   c.current,
		Generation: c.generation,
		Failure:    c.failure,
	}
}

// asRenderError reports any build failure as CHART_RENDER.
func asRenderError(err error, sel domain.Selection) *errors.Error {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) && domainErr.Code == errors.CodeChartRender {
		return domainErr
	}
	return errors.Wrapf(err, errors.CodeChartRender, "could not draw the chart for %q", sel.Genre)
}
