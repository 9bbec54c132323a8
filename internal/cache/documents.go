package cache

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/normalize"
)

const documentPrefix = "doc:"

// Key identifies the document for a dataset and selection.
// Format: doc:{fingerprint}:{genre slug}:{director slugs}:{exact selection hash}.
// The trailing hash keeps labels that slugify alike apart.
func Key(fingerprint uint64, sel domain.Selection) []byte {
	directors := domain.DirectorSet(sel.Directors)

	exact := xxhash.New()
	_, _ = exact.WriteString(sel.Genre)
	for _, d := range directors {
		_, _ = exact.WriteString("\x00" + d)
	}

	var b strings.Builder
	b.WriteString(documentPrefix)
	b.WriteString(strconv.FormatUint(fingerprint, 16))
	b.WriteByte(':')
	b.WriteString(normalize.Slugify(sel.Genre))
	b.WriteByte(':')
	b.WriteString(strings.Join(normalize.Slugs(directors), ","))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(exact.Sum64(), 16))
	return []byte(b.String())
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// CachingBuilder memoizes a chart.Builder. Because building is pure, a cached
// document is always identical to a fresh one. Failed builds are never cached.
type CachingBuilder struct {
	next   chart.Builder
	store  *Store
	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachingBuilder wraps next with store.
func NewCachingBuilder(next chart.Builder, store *Store) *CachingBuilder {
	return &CachingBuilder{next: next, store: store}
}

// Build returns the cached document for sel or builds and stores it.
// Concurrent builds of the same key share one underlying build.
func (c *CachingBuilder) Build(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error) {
	key := Key(ds.Fingerprint, sel)

	var doc domain.ChartDocument
	if ok, err := c.store.get(key, &doc); err == nil && ok && doc.Selection().Equal(canonical(sel)) {
		c.hits.Add(1)
		return &doc, nil
	} else if err != nil && c.store.logger != nil {
		c.store.logger.Warn("chart cache read failed", "key", string(key), "error", err)
	}
	c.misses.Add(1)

	// The shared build outlives any single caller: a follower from another
	// session must not fail because the leader was superseded.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(string(key), func() (any, error) {
		built, err := c.next.Build(flightCtx, ds, sel)
		if err != nil {
			return nil, err
		}
		if err := c.store.set(key, built); err != nil && c.store.logger != nil {
			c.store.logger.Warn("chart cache write failed", "key", string(key), "error", err)
		}
		return built, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Documents are read-only once built, so flight followers share the leader's.
		return res.Val.(*domain.ChartDocument), nil
	}
}

// Warm builds the unfiltered document of each genre, at most workers at a time.
func (c *CachingBuilder) Warm(ctx context.Context, ds *domain.Dataset, genres []string, workers int) error {
	// Genres build independently; one failure does not cancel the rest.
	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for _, genre := range genres {
		g.Go(func() error {
			_, err := c.Build(ctx, ds, domain.NewSelection(genre))
			return err
		})
	}
	return g.Wait()
}

// canonical is sel as a built document echoes it back.
func canonical(sel domain.Selection) domain.Selection {
	return domain.Selection{Genre: sel.Genre, Directors: domain.DirectorSet(sel.Directors)}
}

// Stats returns hit and miss counters and the number of live entries.
func (c *CachingBuilder) Stats() Stats {
	n, _ := c.store.Len([]byte(documentPrefix))
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}
