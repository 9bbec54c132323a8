package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/session"
)

func (s *Server) registerSelectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSelection",
		Method:      http.MethodGet,
		Path:        "/api/v1/selection",
		Summary:     "Get selection",
		Description: "Returns the session's genre and director selection",
		Tags:        []string{"Selection"},
	}, s.handleGetSelection)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectGenre",
		Method:      http.MethodPut,
		Path:        "/api/v1/selection/genre",
		Summary:     "Select genre",
		Description: "Selects a genre, clears the director selection and redraws the chart",
		Tags:        []string{"Selection"},
	}, s.handleSelectGenre)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectDirectors",
		Method:      http.MethodPut,
		Path:        "/api/v1/selection/directors",
		Summary:     "Select directors",
		Description: "Replaces the director selection within the current genre and redraws the chart",
		Tags:        []string{"Selection"},
	}, s.handleSelectDirectors)
}

// SelectionResponse describes a session's selection and its chart.
type SelectionResponse struct {
	Genre      string   `json:"genre" doc:"Selected genre"`
	Directors  []string `json:"directors" doc:"Selected directors, empty means all"`
	Generation uint64   `json:"generation" doc:"Number of selection changes in this session"`
	Empty      bool     `json:"empty" doc:"Whether the chart has no movies to show"`
	Movies     int      `json:"movies" doc:"Movies in the charted genre"`
	Notice     string   `json:"notice,omitempty" doc:"Informational message from the chart"`
	Failure    string   `json:"failure,omitempty" doc:"Why the last redraw failed; the previous chart is still shown"`
	HTML       string   `json:"html,omitempty" doc:"Rendered chart markup"`
}

// SelectionOutput wraps a selection for Huma.
type SelectionOutput struct {
	Body SelectionResponse
}

// SelectGenreRequest is the body of PUT /api/v1/selection/genre.
type SelectGenreRequest struct {
	Genre string `json:"genre" maxLength:"200" doc:"Genre to select" validate:"max=200"`
}

// SelectGenreInput wraps the genre request for Huma.
type SelectGenreInput struct {
	Body SelectGenreRequest
}

// SelectDirectorsRequest is the body of PUT /api/v1/selection/directors.
type SelectDirectorsRequest struct {
	Directors []string `json:"directors" doc:"Directors to select, empty selects all" validate:"max=500,dive,max=200"`
}

// SelectDirectorsInput wraps the directors request for Huma.
type SelectDirectorsInput struct {
	Body SelectDirectorsRequest
}

func (s *Server) handleGetSelection(ctx context.Context, _ *struct{}) (*SelectionOutput, error) {
	c, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return &SelectionOutput{Body: selectionResponse(c.Current(), false)}, nil
}

func (s *Server) handleSelectGenre(ctx context.Context, input *SelectGenreInput) (*SelectionOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}
	c, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := c.OnGenreChanged(ctx, input.Body.Genre)
	return s.transitionResult(snap, err)
}

func (s *Server) handleSelectDirectors(ctx context.Context, input *SelectDirectorsInput) (*SelectionOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}
	c, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := c.OnDirectorsClicked(ctx, input.Body.Directors)
	return s.transitionResult(snap, err)
}

// transitionResult reports a render failure with the state the page should keep.
func (s *Server) transitionResult(snap session.Snapshot, err error) (*SelectionOutput, error) {
	if err == nil {
		return &SelectionOutput{Body: selectionResponse(snap, true)}, nil
	}

	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case errors.CodeChartRender:
			return nil, domainErr.WithDetails(selectionResponse(snap, false))
		case errors.CodeSuperseded:
			return nil, domainErr
		}
	}
	s.logger.Error("selection change failed", "session_id", snap.SessionID, "error", err)
	return nil, err
}

func selectionResponse(snap session.Snapshot, withHTML bool) SelectionResponse {
	resp := SelectionResponse{
		Genre:      snap.Selection.Genre,
		Directors:  snap.Selection.Directors,
		Generation: snap.Generation,
		Failure:    snap.Failure,
	}
	if resp.Directors == nil {
		resp.Directors = []string{}
	}
	if doc := snap.Document; doc != nil {
		resp.Empty = doc.Empty
		resp.Movies = doc.TotalMovies()
		resp.Notice = doc.Notice
		if withHTML {
			resp.HTML = doc.HTML
		}
	}
	return resp
}
