package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/logger"
	"github.com/directorstracker/tracker-server/internal/search"
)

// loadTimeout bounds reading the dataset at startup.
const loadTimeout = time.Minute

// ProvideDataset loads the movie table. Any failure is fatal to startup.
func ProvideDataset(i do.Injector) (*domain.Dataset, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	schema, err := dataset.LoadSchema(cfg.Dataset.SchemaPath)
	if err != nil {
		return nil, err
	}
	if cfg.Dataset.Table != "" {
		schema.Table = cfg.Dataset.Table
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	start := time.Now()
	ds, err := dataset.Load(ctx, cfg.Dataset.Path, schema)
	if err != nil {
		return nil, err
	}

	log.Info("Dataset loaded",
		"source", ds.Source,
		"movies", ds.Len(),
		"genres", len(dataset.Genres(ds)),
		"directors", len(dataset.Directors(ds)),
		"duration", time.Since(start),
	)

	return ds, nil
}

// FacetIndexHandle wraps the facet index with shutdown capability.
type FacetIndexHandle struct {
	*search.FacetIndex
}

// Shutdown implements do.Shutdownable.
func (h *FacetIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideFacetIndex provides the typeahead index over genres and directors.
func ProvideFacetIndex(i do.Injector) (*FacetIndexHandle, error) {
	ds := do.MustInvoke[*domain.Dataset](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewFacetIndex(log.Logger)
	if err != nil {
		return nil, err
	}
	if err := index.Rebuild(ds); err != nil {
		_ = index.Close()
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Facet index initialized", "documents", docCount)

	return &FacetIndexHandle{FacetIndex: index}, nil
}
