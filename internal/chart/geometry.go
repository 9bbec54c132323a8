package chart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/directorstracker/tracker-server/internal/domain"
)

// Scatter panel size in SVG user units.
const (
	panelWidth   = 520.0
	panelHeight  = 320.0
	marginLeft   = 68.0
	marginRight  = 16.0
	marginTop    = 16.0
	marginBottom = 44.0
	pointRadius  = 5.0
)

type tick struct {
	Pos   float64
	Label string
}

type circle struct {
	CX, CY   float64
	Color    string
	Director string
	Tooltip  string
}

// scatterPanel is a fully laid out SVG scatter plot.
type scatterPanel struct {
	ID     string
	Title  string
	XLabel string
	YLabel string
	Width  float64
	Height float64
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
	// ZeroY is the pixel row of y=0 when zero lies inside the y range.
	ZeroY    float64
	HasZero  bool
	XTicks   []tick
	YTicks   []tick
	Circles  []circle
	Empty    bool
	EmptyMsg string
}

type linearScale struct {
	lo, hi     float64
	from, to   float64
	ticks      []float64
	formatTick func(float64) string
}

func (s linearScale) at(v float64) float64 {
	return s.from + (v-s.lo)/(s.hi-s.lo)*(s.to-s.from)
}

// niceStep picks a 1, 2 or 5 times power-of-ten step giving roughly target intervals.
func niceStep(span float64, target int) float64 {
	if span <= 0 || target <= 0 {
		return 1
	}
	raw := span / float64(target)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f < 1.5:
		return mag
	case f < 3:
		return 2 * mag
	case f < 7:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// niceDomain widens [lo, hi] to step multiples and lists the tick values.
func niceDomain(lo, hi float64, target int, minStep float64) (float64, float64, []float64) {
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	step := math.Max(niceStep(hi-lo, target), minStep)
	lo = math.Floor(lo/step) * step
	hi = math.Ceil(hi/step) * step

	var ticks []float64
	for v := lo; v <= hi+step/2 && len(ticks) <= 2*target+1; v += step {
		// Avoid -0 and float drift in labels.
		ticks = append(ticks, math.Round(v/step)*step+0)
	}
	return lo, hi, ticks
}

func newScale(values []float64, from, to, minStep float64, format func(float64) string) linearScale {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		lo, hi = 0, 1
	}
	lo, hi, ticks := niceDomain(lo, hi, 5, minStep)
	return linearScale{lo: lo, hi: hi, from: from, to: to, ticks: ticks, formatTick: format}
}

func (s linearScale) tickMarks() []tick {
	out := make([]tick, 0, len(s.ticks))
	for _, v := range s.ticks {
		out = append(out, tick{Pos: s.at(v), Label: s.formatTick(v)})
	}
	return out
}

// layoutScatter places points on a panel. value selects the y measure.
func layoutScatter(id, title, yLabel string, points []domain.Point, value func(domain.Point) float64, formatY func(float64) string) scatterPanel {
	p := scatterPanel{
		ID:     id,
		Title:  title,
		YLabel: yLabel,
		Width:  panelWidth,
		Height: panelHeight,
		Left:   marginLeft,
		Right:  panelWidth - marginRight,
		Top:    marginTop,
		Bottom: panelHeight - marginBottom,
	}
	if len(points) == 0 {
		p.Empty = true
		p.EmptyMsg = "No movies to plot."
		return p
	}

	byYear := true
	for _, pt := range points {
		if pt.Year <= 0 {
			byYear = false
			break
		}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, pt := range points {
		xs[i] = float64(i + 1)
		if byYear {
			xs[i] = float64(pt.Year)
		}
		ys[i] = value(pt)
	}

	p.XLabel = "Movie"
	formatX := func(v float64) string { return strconv.Itoa(int(v)) }
	if byYear {
		p.XLabel = "Release year"
	}

	x := newScale(xs, p.Left, p.Right, 1, formatX)
	y := newScale(ys, p.Bottom, p.Top, 0, formatY)
	p.XTicks = x.tickMarks()
	p.YTicks = y.tickMarks()
	if y.lo < 0 && y.hi > 0 {
		p.HasZero = true
		p.ZeroY = y.at(0)
	}

	for i, pt := range points {
		// Spread movies sharing a year so they stay hoverable.
		jitter := float64(i%5-2) * 1.5
		p.Circles = append(p.Circles, circle{
			CX:       x.at(xs[i]) + jitter,
			CY:       y.at(ys[i]),
			Color:    pt.Color,
			Director: pt.Director,
			Tooltip:  tooltip(pt),
		})
	}
	return p
}

func tooltip(p domain.Point) string {
	title := p.Title
	if title == "" {
		title = fmt.Sprintf("Movie #%d", p.Index)
	}
	if p.Year > 0 {
		title = fmt.Sprintf("%s (%d)", title, p.Year)
	}
	return fmt.Sprintf("%s\nDirector: %s\nIMDB rating: %s\nProfit: %s",
		title, p.Director, formatRating(p.Rating), formatMoney(p.Profit))
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatMoney abbreviates dollar amounts: 400000000 -> "$400.0M".
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%s$%.1fB", sign, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, v/1e3)
	default:
		return fmt.Sprintf("%s$%.0f", sign, v)
	}
}
