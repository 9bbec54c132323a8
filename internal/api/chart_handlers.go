package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/directorstracker/tracker-server/internal/errors"
)

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

func (s *Server) registerChartRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getChart",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart",
		Summary:     "Get chart",
		Description: "Returns the session's current chart as HTML or Markdown",
		Tags:        []string{"Chart"},
	}, s.handleGetChart)
}

// GetChartInput selects the chart representation.
type GetChartInput struct {
	Format string `query:"format" enum:"html,markdown" default:"html" doc:"Representation of the chart"`
}

// ChartResponse is the session's current chart.
type ChartResponse struct {
	Genre     string   `json:"genre" doc:"Genre the chart was drawn for"`
	Directors []string `json:"directors" doc:"Directors the secondary view is restricted to"`
	Format    string   `json:"format" doc:"html or markdown"`
	Empty     bool     `json:"empty" doc:"Whether the genre has no movies"`
	Notice    string   `json:"notice,omitempty" doc:"Informational message from the chart"`
	Content   string   `json:"content" doc:"The chart in the requested format"`
}

// ChartOutput wraps a chart for Huma.
type ChartOutput struct {
	Body ChartResponse
}

func (s *Server) handleGetChart(ctx context.Context, input *GetChartInput) (*ChartOutput, error) {
	c, err := GetSession(ctx)
	if err != nil {
		return nil, err
	}

	doc := c.Current().Document
	if doc == nil {
		return nil, errors.NotFound("no chart has been drawn for this session yet")
	}

	resp := ChartResponse{
		Genre:     doc.Genre,
		Directors: doc.Directors,
		Format:    input.Format,
		Empty:     doc.Empty,
		Notice:    doc.Notice,
	}
	if resp.Directors == nil {
		resp.Directors = []string{}
	}

	switch input.Format {
	case formatMarkdown:
		md, err := s.Renderer.Markdown(ctx, doc)
		if err != nil {
			return nil, err
		}
		resp.Content = md
	default:
		resp.Format = formatHTML
		resp.Content = doc.HTML
	}

	return &ChartOutput{Body: resp}, nil
}
