package chart

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/directorstracker/tracker-server/internal/color"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// maxSnapshotBars keeps labels legible; the tail is folded into "Others".
const maxSnapshotBars = 25

// Snapshot renders the primary bar view of doc as a PNG image.
// Empty documents have nothing to draw and return NOT_FOUND.
func Snapshot(doc *domain.ChartDocument, width, height int) ([]byte, error) {
	if doc.Empty || len(doc.Bars) == 0 {
		return nil, errors.NotFoundf("no movies to plot for genre %q", doc.Genre)
	}

	values := make([]gochart.Value, 0, min(len(doc.Bars), maxSnapshotBars+1))
	others := 0
	maxCount := 0
	for i, b := range doc.Bars {
		if i >= maxSnapshotBars {
			others += b.Count
			continue
		}
		maxCount = max(maxCount, b.Count)
		values = append(values, gochart.Value{
			Label: b.Director,
			Value: float64(b.Count),
			Style: barStyle(b.Color),
		})
	}
	if others > 0 {
		maxCount = max(maxCount, others)
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("Others (%d)", len(doc.Bars)-maxSnapshotBars),
			Value: float64(others),
			Style: barStyle(color.Muted),
		})
	}

	barWidth := max(8, (width-120)/len(values)-6)
	top := float64(niceCeil(maxCount))

	bc := gochart.BarChart{
		Title:      fmt.Sprintf("Number of %s movies per director", doc.Genre),
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: 6,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 120}},
		XAxis:      gochart.Style{TextRotationDegrees: 45.0},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: top},
			Ticks: countTicks(top),
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := bc.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrapf(err, errors.CodeChartRender, "render %s snapshot", doc.Genre)
	}
	return buf.Bytes(), nil
}

func barStyle(hex string) gochart.Style {
	c := parseHex(hex)
	return gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// parseHex reads "#RRGGBB"; anything else is drawn black.
func parseHex(hex string) drawing.Color {
	if len(hex) != 7 || hex[0] != '#' {
		return drawing.ColorBlack
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return drawing.ColorBlack
	}
	return drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// niceCeil rounds a count up so the y axis ends on a round number.
func niceCeil(n int) int {
	if n <= 5 {
		return max(n, 1) + 1
	}
	step := int(niceStep(float64(n), 5))
	return int(math.Ceil(float64(n)/float64(step))) * step
}

func countTicks(top float64) []gochart.Tick {
	step := math.Max(1, niceStep(top, 5))
	var ticks []gochart.Tick
	for v := 0.0; v <= top; v += step {
		ticks = append(ticks, gochart.Tick{Value: v, Label: fmt.Sprintf("%.0f", v)})
	}
	return ticks
}
