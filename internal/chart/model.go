package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/directorstracker/tracker-server/internal/color"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/normalize"
)

// Compute derives the data of a chart document from the dataset and a selection.
// It renders nothing and leaves HTML empty.
func Compute(ds *domain.Dataset, sel domain.Selection) *domain.ChartDocument {
	directors := domain.DirectorSet(sel.Directors)
	sel = domain.Selection{Genre: sel.Genre, Directors: directors}

	doc := &domain.ChartDocument{
		Genre:     sel.Genre,
		Directors: directors,
		Bars:      []domain.Bar{},
		Points:    []domain.Point{},
		Summaries: []domain.DirectorSummary{},
	}

	movies := ds.InGenre(sel.Genre)
	if len(movies) == 0 {
		doc.Empty = true
		doc.Notice = emptyNotice(sel.Genre)
		return doc
	}

	doc.Bars = bars(movies, sel)

	inGenre := make(map[string]bool, len(doc.Bars))
	for _, b := range doc.Bars {
		inGenre[b.Director] = true
	}

	var active, ignored []string
	for _, d := range directors {
		if inGenre[d] {
			active = append(active, d)
		} else {
			ignored = append(ignored, d)
		}
	}
	if len(ignored) > 0 {
		doc.Notice = fmt.Sprintf("Not directing any %s movie: %s.", sel.Genre, strings.Join(ignored, ", "))
	}

	keep := func(string) bool { return true }
	if len(active) > 0 {
		activeSet := make(map[string]bool, len(active))
		for _, d := range active {
			activeSet[d] = true
		}
		keep = func(d string) bool { return activeSet[d] }
	}

	for _, m := range movies {
		if !keep(m.Director) {
			continue
		}
		doc.Points = append(doc.Points, domain.Point{
			Index:    m.Index,
			Title:    m.Title,
			Director: m.Director,
			Year:     m.Year,
			Rating:   m.Rating,
			Profit:   m.Profit,
			Color:    color.HexForDirector(m.Director),
		})
	}

	doc.Summaries = summaries(doc.Bars, doc.Points)
	return doc
}

func emptyNotice(genre string) string {
	if strings.TrimSpace(genre) == "" {
		return "Select a genre to see its directors."
	}
	return fmt.Sprintf("No movies found for genre %q.", genre)
}

// bars counts movies per director, highest count first, ties in first-seen order.
func bars(movies []domain.MovieRecord, sel domain.Selection) []domain.Bar {
	index := make(map[string]int)
	var out []domain.Bar
	for _, m := range movies {
		i, ok := index[m.Director]
		if !ok {
			i = len(out)
			index[m.Director] = i
			out = append(out, domain.Bar{
				Director: m.Director,
				Slug:     normalize.Slugify(m.Director),
				Selected: sel.HasDirector(m.Director),
			})
		}
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	// Without a selected director in this genre the scatter shows everyone,
	// so no bar is muted either.
	active := 0
	for _, b := range out {
		if b.Selected {
			active++
		}
	}
	for i := range out {
		out[i].Color = color.HexForDirector(out[i].Director)
		if active > 0 && !out[i].Selected {
			out[i].Color = color.Muted
		}
	}
	return out
}

// summaries aggregates the plotted points per director in bar order.
func summaries(bars []domain.Bar, points []domain.Point) []domain.DirectorSummary {
	byDirector := make(map[string]*domain.DirectorSummary)
	for _, p := range points {
		s, ok := byDirector[p.Director]
		if !ok {
			s = &domain.DirectorSummary{Director: p.Director}
			byDirector[p.Director] = s
		}
		s.Movies++
		s.MeanRating += p.Rating
		s.TotalProfit += p.Profit
	}

	out := make([]domain.DirectorSummary, 0, len(byDirector))
	for _, b := range bars {
		s, ok := byDirector[b.Director]
		if !ok {
			continue
		}
		s.MeanRating /= float64(s.Movies)
		out = append(out, *s)
	}
	return out
}
