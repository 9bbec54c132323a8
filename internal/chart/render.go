package chart

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/directorstracker/tracker-server/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var funcs = template.FuncMap{
	"px":     func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"add":    func(a, b float64) float64 { return a + b },
	"sub":    func(a, b float64) float64 { return a - b },
	"mid":    func(a, b float64) float64 { return (a + b) / 2 },
	"radius": func() float64 { return pointRadius },
	"percent": func(n, max int) string {
		if max <= 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(n)*100/float64(max), 'f', 1, 64)
	},
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
	"rating": formatRating,
	"money":  formatMoney,
}

// Renderer turns chart documents into embeddable HTML.
// Templates are parsed once, so a Renderer is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded chart templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("chart").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustRenderer is NewRenderer for package initialization; the templates are embedded so failure is a build defect.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic("parse chart templates: " + err.Error())
	}
	return r
}

type barsView struct {
	Genre  string
	Empty  bool
	Notice string
	Bars   []domain.Bar
	Max    int
}

type documentView struct {
	Genre     string
	Empty     bool
	Notice    string
	Primary   template.HTML
	Ratings   template.HTML
	Profits   template.HTML
	Summaries []domain.DirectorSummary
}

// Render produces the HTML of doc. The bar list and both scatter panels render concurrently.
func (r *Renderer) Render(ctx context.Context, doc *domain.ChartDocument) (string, error) {
	return r.render(ctx, doc, true)
}

// renderText renders doc without the SVG panels, for text conversions.
func (r *Renderer) renderText(ctx context.Context, doc *domain.ChartDocument) (string, error) {
	return r.render(ctx, doc, false)
}

func (r *Renderer) render(ctx context.Context, doc *domain.ChartDocument, panels bool) (string, error) {
	var primary, ratings, profits bytes.Buffer

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		view := barsView{Genre: doc.Genre, Empty: doc.Empty, Notice: doc.Notice, Bars: doc.Bars}
		for _, b := range doc.Bars {
			view.Max = max(view.Max, b.Count)
		}
		return r.execute(gctx, &primary, "bars", view)
	})

	if panels && !doc.Empty {
		g.Go(func() error {
			panel := layoutScatter("ratings-panel", "IMDB rating", "Rating", doc.Points,
				func(p domain.Point) float64 { return p.Rating }, formatRating)
			return r.execute(gctx, &ratings, "scatter", panel)
		})
		g.Go(func() error {
			panel := layoutScatter("profits-panel", "Profit", "Profit (USD)", doc.Points,
				func(p domain.Point) float64 { return p.Profit }, formatMoney)
			return r.execute(gctx, &profits, "scatter", panel)
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	var out bytes.Buffer
	view := documentView{
		Genre:     doc.Genre,
		Empty:     doc.Empty,
		Notice:    doc.Notice,
		Primary:   template.HTML(primary.String()), //#nosec G203 -- produced by html/template above
		Ratings:   template.HTML(ratings.String()), //#nosec G203
		Profits:   template.HTML(profits.String()), //#nosec G203
		Summaries: doc.Summaries,
	}
	if err := r.execute(ctx, &out, "document", view); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (r *Renderer) execute(ctx context.Context, buf *bytes.Buffer, name string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.tmpl.ExecuteTemplate(buf, name, data)
}
