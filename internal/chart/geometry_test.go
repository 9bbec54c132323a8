package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/directorstracker/tracker-server/internal/domain"
)

func TestNiceStep(t *testing.T) {
	tests := []struct {
		span float64
		want float64
	}{
		{span: 5, want: 1},
		{span: 10, want: 2},
		{span: 30, want: 5},
		{span: 4.4e8, want: 1e8},
		{span: 0, want: 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, niceStep(tt.span, 5), 1e-9, "span %v", tt.span)
	}
}

func TestNiceDomain(t *testing.T) {
	lo, hi, ticks := niceDomain(6.1, 7.9, 5, 0)
	assert.InDelta(t, 6.0, lo, 1e-9)
	assert.InDelta(t, 8.0, hi, 1e-9)
	assert.Len(t, ticks, 5)

	lo, hi, _ = niceDomain(2005, 2005, 5, 1)
	assert.Less(t, lo, 2005.0)
	assert.Greater(t, hi, 2005.0)
}

func TestLayoutScatter(t *testing.T) {
	points := []domain.Point{
		{Index: 0, Director: "A", Year: 2008, Rating: 7.9},
		{Index: 1, Director: "B", Year: 2005, Rating: 6.1},
	}

	p := layoutScatter("r", "IMDB rating", "Rating", points, func(p domain.Point) float64 { return p.Rating }, formatRating)

	assert.Equal(t, "Release year", p.XLabel)
	assert.Len(t, p.Circles, 2)
	for _, c := range p.Circles {
		assert.GreaterOrEqual(t, c.CY, p.Top)
		assert.LessOrEqual(t, c.CY, p.Bottom)
	}
	assert.Less(t, p.Circles[0].CY, p.Circles[1].CY, "higher rating is drawn higher")
	assert.False(t, p.HasZero)

	noYear := layoutScatter("r", "t", "y", []domain.Point{{Rating: 5}}, func(p domain.Point) float64 { return p.Rating }, formatRating)
	assert.Equal(t, "Movie", noYear.XLabel)

	assert.True(t, layoutScatter("r", "t", "y", nil, nil, formatRating).Empty)
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{4e8, "$400.0M"},
		{-3.6e7, "-$36.0M"},
		{1.25e9, "$1.2B"},
		{12500, "$12.5K"},
		{512, "$512"},
		{0, "$0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.v))
	}
}

func TestTooltip(t *testing.T) {
	assert.Equal(t, "Movie #4\nDirector: A\nIMDB rating: 7.0\nProfit: $1.0K",
		tooltip(domain.Point{Index: 4, Director: "A", Rating: 7, Profit: 1000}))
}
