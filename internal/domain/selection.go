package domain

import (
	"slices"
	"strings"
)

// DefaultGenre is the genre selected when a session starts.
const DefaultGenre = "Action"

// Selection is the per-session filter state: one genre plus an optional set of directors.
// An empty director set means every director in the genre.
type Selection struct {
	Genre     string   `json:"genre" doc:"Selected genre"`
	Directors []string `json:"directors" doc:"Selected directors, empty means all"`
}

// NewSelection returns the initial selection for genre with no directors chosen.
func NewSelection(genre string) Selection {
	return Selection{Genre: genre, Directors: []string{}}
}

// WithGenre returns the selection after a genre change. Directors always reset,
// even when the genre is unchanged.
func (s Selection) WithGenre(genre string) Selection {
	return NewSelection(genre)
}

// WithDirectors returns the selection with its director set replaced and the genre kept.
func (s Selection) WithDirectors(directors []string) Selection {
	return Selection{Genre: s.Genre, Directors: DirectorSet(directors)}
}

// HasDirector reports whether director is part of the selected set.
func (s Selection) HasDirector(director string) bool {
	_, found := slices.BinarySearch(s.Directors, director)
	return found
}

// AllDirectors reports whether the selection covers every director in the genre.
func (s Selection) AllDirectors() bool {
	return len(s.Directors) == 0
}

// Equal reports whether two selections describe the same state.
func (s Selection) Equal(o Selection) bool {
	return s.Genre == o.Genre && slices.Equal(s.Directors, o.Directors)
}

// DirectorSet canonicalizes a list of director names into a sorted set.
// Blank names are dropped. The result is never nil.
func DirectorSet(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
