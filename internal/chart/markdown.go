package chart

import (
	"context"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// Markdown renders doc for text clients: the notice, the bar list and the summary table.
// The scatter panels are left out since they carry no text worth keeping.
func (r *Renderer) Markdown(ctx context.Context, doc *domain.ChartDocument) (string, error) {
	html, err := r.renderText(ctx, doc)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeChartRender, "render chart for genre %q", doc.Genre)
	}

	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeChartRender, "convert chart for genre %q to markdown", doc.Genre)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// Markdown renders doc as Markdown with the package renderer.
func Markdown(ctx context.Context, doc *domain.ChartDocument) (string, error) {
	return defaultBuilder.renderer.Markdown(ctx, doc)
}
