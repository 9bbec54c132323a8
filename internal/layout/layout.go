// Package layout assembles the dashboard page around a chart document.
package layout

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Copy is the fixed text of the page.
type Copy struct {
	Title        string
	Intro        string
	Instructions []string
	Footer       string
}

// DefaultCopy returns the page text of the Directors Production Tracker.
func DefaultCopy() Copy {
	return Copy{
		Title: "Welcome to the Directors Production Tracker App",
		Intro: "Explore different directors based on the number of movies they produce in a genre " +
			"to find your director for your next movie.",
		Instructions: []string{
			"Select a genre",
			`Hold "shift" and click on one or more bars on the bar chart to choose directors to view movie ratings and profits.`,
			"Hover over a point for more details.",
		},
		Footer: "This Dash app was made collaboratively by the DSCI 532 class in 2019/20!",
	}
}

// Options configures an Assembler.
type Options struct {
	Copy   Copy
	Genres domain.FacetList
	// APIBase is the prefix of the JSON API the page script talks to.
	APIBase string
}

// State is what varies between page renders.
type State struct {
	Selection domain.Selection
	Document  *domain.ChartDocument
	Failure   string
}

// Assembler renders the page shell. The static parts are fixed at construction.
type Assembler struct {
	tmpl *template.Template
	opts Options
}

type pageView struct {
	Copy      Copy
	Genres    []genreOption
	APIBase   string
	Genre     string
	Directors []string
	Chart     template.HTML
	Failure   string
}

type genreOption struct {
	Name     string
	Selected bool
}

// New parses the page template.
func New(opts Options) (*Assembler, error) {
	if opts.APIBase == "" {
		opts.APIBase = "/api/v1"
	}
	if opts.Copy.Title == "" {
		opts.Copy = DefaultCopy()
	}

	tmpl, err := template.New("page").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "parse page templates")
	}
	return &Assembler{tmpl: tmpl, opts: opts}, nil
}

// Render writes the page for state.
func (a *Assembler) Render(w io.Writer, state State) error {
	view := pageView{
		Copy:      a.opts.Copy,
		APIBase:   a.opts.APIBase,
		Genre:     state.Selection.Genre,
		Directors: state.Selection.Directors,
		Failure:   state.Failure,
		Genres:    make([]genreOption, 0, len(a.opts.Genres)+1),
	}
	if state.Document != nil {
		// Chart HTML comes out of html/template already escaped.
		view.Chart = template.HTML(state.Document.HTML) //nolint:gosec // rendered by chart templates
	}

	for _, g := range a.opts.Genres {
		view.Genres = append(view.Genres, genreOption{Name: g, Selected: g == view.Genre})
	}
	// Keep an unknown current genre selectable so the dropdown matches the chart.
	if view.Genre != "" && !a.opts.Genres.Contains(view.Genre) {
		view.Genres = append(view.Genres, genreOption{Name: view.Genre, Selected: true})
	}

	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, "page.html", view); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "render page")
	}
	_, err := buf.WriteTo(w)
	return err
}
