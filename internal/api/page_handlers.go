package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/layout"
)

const (
	minSnapshotSide = 200
	maxSnapshotSide = 2400
)

func (s *Server) registerPageRoutes() {
	s.router.Get("/", s.handlePage)
	s.router.Get("/chart.png", s.handleChartPNG)
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
}

// handlePage serves the dashboard for the visitor's session.
// GET /
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	c, err := GetSession(r.Context())
	if err != nil {
		writeError(w, err, s.logger)
		return
	}
	snap := c.Current()

	var buf bytes.Buffer
	err = s.Layout.Render(&buf, layout.State{
		Selection: snap.Selection,
		Document:  snap.Document,
		Failure:   snap.Failure,
	})
	if err != nil {
		s.logger.Error("Failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleChartPNG serves the primary view of the session's chart as a PNG.
// GET /chart.png?width=&height=
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	c, err := GetSession(r.Context())
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	width, height := 900, 480
	if s.Config != nil {
		width, height = s.Config.Chart.PNGWidth, s.Config.Chart.PNGHeight
	}
	width, err = sideParam(r, "width", width)
	if err != nil {
		writeError(w, err, s.logger)
		return
	}
	height, err = sideParam(r, "height", height)
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	doc := c.Current().Document
	if doc == nil {
		writeError(w, errors.NotFound("no chart has been drawn for this session yet"), s.logger)
		return
	}

	png, err := chart.Snapshot(doc, width, height)
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// sideParam reads an optional image dimension from the query string.
func sideParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minSnapshotSide || v > maxSnapshotSide {
		return 0, errors.Validationf("%s must be an integer between %d and %d", name, minSnapshotSide, maxSnapshotSide)
	}
	return v, nil
}
