package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/directorstracker/tracker-server/internal/errors"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query describes a facet lookup.
type Query struct {
	Text  string // Free text; empty lists everything
	Kind  Kind   // Restrict to genres or directors; empty searches both
	Genre string // Directors who worked in this genre
	Limit int
}

// Hit is one matching facet.
type Hit struct {
	Kind   Kind    `json:"kind"`
	Name   string  `json:"name"`
	Slug   string  `json:"slug"`
	Movies int     `json:"movies"`
	Score  float64 `json:"score"`
}

// Search runs q. Free text is ranked by relevance then movie count; an empty
// query lists facets by movie count then name.
func (s *FacetIndex) Search(ctx context.Context, q Query) ([]Hit, error) {
	if !q.Kind.Valid() {
		return nil, errors.Validationf("unknown facet kind %q", q.Kind)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	text := strings.TrimSpace(q.Text)
	req := bleve.NewSearchRequestOptions(buildQuery(text, q), limit, 0, false)
	req.Fields = []string{"kind", "name", "slug", "movies"}
	if text == "" {
		req.SortBy([]string{"-movies", "sort_name"})
	} else {
		req.SortBy([]string{"-_score", "-movies", "sort_name"})
	}

	s.mu.RLock()
	result, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["kind"].(string); ok {
			hit.Kind = Kind(v)
		}
		if v, ok := h.Fields["name"].(string); ok {
			hit.Name = v
		}
		if v, ok := h.Fields["slug"].(string); ok {
			hit.Slug = v
		}
		if v, ok := h.Fields["movies"].(float64); ok {
			hit.Movies = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildQuery combines the text match with the kind and genre filters.
func buildQuery(text string, q Query) query.Query {
	var must []query.Query

	if text == "" {
		must = append(must, bleve.NewMatchAllQuery())
	} else {
		must = append(must, textQuery(text))
	}

	if q.Kind != "" {
		kq := bleve.NewTermQuery(string(q.Kind))
		kq.SetField("kind")
		must = append(must, kq)
	}

	if q.Genre != "" {
		gq := bleve.NewTermQuery(q.Genre)
		gq.SetField("genres")
		must = append(must, gq)
	}

	if len(must) == 1 {
		return must[0]
	}
	return bleve.NewConjunctionQuery(must...)
}

// textQuery matches whole words, near misses and prefixes of the last word.
func textQuery(text string) query.Query {
	var should []query.Query

	mq := bleve.NewMatchQuery(text)
	mq.SetField("name")
	mq.SetBoost(3.0)
	should = append(should, mq)

	words := strings.Fields(strings.ToLower(text))
	for _, w := range words {
		fq := bleve.NewFuzzyQuery(w)
		fq.SetField("name")
		fq.SetFuzziness(1)
		should = append(should, fq)
	}

	// Typeahead: the word being typed is usually incomplete.
	if last := words[len(words)-1]; len(last) >= 2 {
		pq := bleve.NewPrefixQuery(last)
		pq.SetField("name")
		pq.SetBoost(2.0)
		should = append(should, pq)
	}

	return bleve.NewDisjunctionQuery(should...)
}
