// Package search provides typeahead over the genre and director facets.
package search

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
)

// batchSize bounds the documents written per Bleve batch.
const batchSize = 500

// FacetIndex is a memory-only Bleve index of genres and directors.
//
// Thread safety: all public methods are safe for concurrent use. Rebuild swaps
// in a fresh index under the write lock.
type FacetIndex struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewFacetIndex creates an empty index.
func NewFacetIndex(logger *slog.Logger) (*FacetIndex, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &FacetIndex{index: index, logger: logger}, nil
}

// Close releases the index.
func (s *FacetIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Rebuild replaces the index content with the facets of ds.
func (s *FacetIndex) Rebuild(ds *domain.Dataset) error {
	docs, err := documentsFor(ds)
	if err != nil {
		return err
	}

	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	for chunk := range slices.Chunk(docs, batchSize) {
		batch := fresh.NewBatch()
		for _, doc := range chunk {
			if err := batch.Index(doc.ID, doc.fields()); err != nil {
				_ = fresh.Close()
				return fmt.Errorf("index %s: %w", doc.ID, err)
			}
		}
		if err := fresh.Batch(batch); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("execute batch: %w", err)
		}
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous facet index", "error", err)
	}

	s.logger.Info("facet index rebuilt", "documents", len(docs))
	return nil
}

// DocumentCount returns the number of indexed facets.
func (s *FacetIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// documentsFor derives one document per genre and per director.
func documentsFor(ds *domain.Dataset) ([]*FacetDocument, error) {
	genres, err := dataset.Counts(ds, domain.ColumnGenre)
	if err != nil {
		return nil, err
	}
	directors, err := dataset.Counts(ds, domain.ColumnDirector)
	if err != nil {
		return nil, err
	}

	// Genres each director worked in, first-seen order.
	worked := make(map[string][]string, len(directors))
	if ds != nil {
		for _, r := range ds.Records {
			if !slices.Contains(worked[r.Director], r.Genre) {
				worked[r.Director] = append(worked[r.Director], r.Genre)
			}
		}
	}

	docs := make([]*FacetDocument, 0, len(genres)+len(directors))
	for _, g := range genres {
		docs = append(docs, newFacetDocument(KindGenre, g.Value, g.Movies, nil))
	}
	for _, d := range directors {
		docs = append(docs, newFacetDocument(KindDirector, d.Value, d.Movies, worked[d.Value]))
	}
	return docs, nil
}
