// Package di provides dependency injection configuration for the tracker server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/di/providers"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/layout"
	"github.com/directorstracker/tracker-server/internal/logger"
	"github.com/directorstracker/tracker-server/internal/session"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is read from the process arguments and environment.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	return withServices(injector)
}

// NewContainerWithConfig is NewContainer with an already loaded configuration.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	return withServices(injector)
}

func withServices(injector *do.RootScope) *do.RootScope {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)

	// Data layer
	do.Provide(injector, providers.ProvideDataset)
	do.Provide(injector, providers.ProvideFacetIndex)

	// Chart layer
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideDocumentCache)
	do.Provide(injector, providers.ProvideLayout)

	// Sessions
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSealer)
	do.Provide(injector, providers.ProvideSessionRegistry)
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and starts serving.
// A dataset that fails to load or match the schema aborts startup here.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*domain.Dataset](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.FacetIndexHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*chart.Renderer](injector)
	_ = do.MustInvoke[*providers.DocumentCacheHandle](injector)
	_ = do.MustInvoke[*layout.Assembler](injector)

	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*session.Sealer](injector)
	_ = do.MustInvoke[*session.Registry](injector)
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	providers.WarmDocumentCache(injector)

	return nil
}
