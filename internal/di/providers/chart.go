package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/directorstracker/tracker-server/internal/cache"
	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/logger"
)

// ProvideRenderer provides the chart template renderer.
func ProvideRenderer(i do.Injector) (*chart.Renderer, error) {
	return chart.NewRenderer()
}

// DocumentCacheHandle wraps the chart document cache with shutdown capability.
type DocumentCacheHandle struct {
	*cache.CachingBuilder
	store *cache.Store
}

// Shutdown implements do.Shutdownable.
func (h *DocumentCacheHandle) Shutdown() error {
	return h.store.Close()
}

// ProvideDocumentCache provides the memoizing chart builder every session uses.
func ProvideDocumentCache(i do.Injector) (*DocumentCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	renderer := do.MustInvoke[*chart.Renderer](i)

	store, err := cache.Open(cfg.Chart.CacheTTL, log.Logger)
	if err != nil {
		return nil, err
	}

	return &DocumentCacheHandle{
		CachingBuilder: cache.NewCachingBuilder(chart.NewBuilder(renderer), store),
		store:          store,
	}, nil
}

// WarmDocumentCache builds the unfiltered chart of every genre in the background.
func WarmDocumentCache(i do.Injector) {
	handle := do.MustInvoke[*DocumentCacheHandle](i)
	ds := do.MustInvoke[*domain.Dataset](i)
	log := do.MustInvoke[*logger.Logger](i)

	genres := dataset.Genres(ds)

	go func() {
		start := time.Now()
		if err := handle.Warm(context.Background(), ds, genres, warmWorkers); err != nil {
			log.Warn("Chart cache warm-up failed", "error", err)
			return
		}
		log.Info("Chart cache warmed", "genres", len(genres), "duration", time.Since(start))
	}()
}
