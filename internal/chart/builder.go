// Package chart builds the dashboard chart for a genre and director selection.
//
// Building is pure: the same dataset and selection always yield the same document,
// which is what lets callers cache documents and discard superseded builds freely.
package chart

import (
	"context"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// Builder produces chart documents.
type Builder interface {
	Build(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error)
}

// DocumentBuilder computes and renders documents.
type DocumentBuilder struct {
	renderer *Renderer
}

// NewBuilder creates a builder rendering with r.
func NewBuilder(r *Renderer) *DocumentBuilder {
	return &DocumentBuilder{renderer: r}
}

// Build computes the document for sel and renders its HTML.
// Template failures come back as CHART_RENDER errors. A canceled ctx returns ctx.Err().
func (b *DocumentBuilder) Build(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error) {
	doc := Compute(ds, sel)

	html, err := b.renderer.Render(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(err, errors.CodeChartRender, "render chart for genre %q", sel.Genre).
			WithDetails(map[string]any{"genre": sel.Genre, "directors": doc.Directors})
	}

	doc.HTML = html
	return doc, nil
}

var defaultBuilder = NewBuilder(MustRenderer())

// Build is the package-level builder: Build(ds, genre, directors).
func Build(ds *domain.Dataset, genre string, directors []string) (*domain.ChartDocument, error) {
	return defaultBuilder.Build(context.Background(), ds, domain.NewSelection(genre).WithDirectors(directors))
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error) {
	return f(ctx, ds, sel)
}
