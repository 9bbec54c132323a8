package search

import (
	"github.com/directorstracker/tracker-server/internal/normalize"
)

// Kind separates the facets sharing the index.
type Kind string

const (
	KindGenre    Kind = "genre"
	KindDirector Kind = "director"
)

// Valid reports whether k is a known facet kind. The empty kind matches both.
func (k Kind) Valid() bool {
	return k == "" || k == KindGenre || k == KindDirector
}

// FacetDocument is one genre or director as stored in the index.
type FacetDocument struct {
	ID     string   `json:"id"`
	Kind   Kind     `json:"kind"`
	Name   string   `json:"name"`
	Slug   string   `json:"slug"`
	Movies int      `json:"movies"`
	Genres []string `json:"genres,omitempty"` // Director documents only
}

func newFacetDocument(kind Kind, name string, movies int, genres []string) *FacetDocument {
	return &FacetDocument{
		ID:     string(kind) + ":" + name,
		Kind:   kind,
		Name:   name,
		Slug:   normalize.Slugify(name),
		Movies: movies,
		Genres: genres,
	}
}

// fields is the map Bleve indexes. sort_name is kept untokenized for ordering.
func (d *FacetDocument) fields() map[string]any {
	m := map[string]any{
		"kind":      string(d.Kind),
		"name":      d.Name,
		"sort_name": normalize.Slugify(d.Name),
		"slug":      d.Slug,
		"movies":    float64(d.Movies),
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	return m
}
