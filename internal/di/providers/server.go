package providers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/do/v2"

	"github.com/directorstracker/tracker-server/internal/api"
	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/layout"
	"github.com/directorstracker/tracker-server/internal/logger"
	"github.com/directorstracker/tracker-server/internal/mdns"
	"github.com/directorstracker/tracker-server/internal/ratelimit"
	"github.com/directorstracker/tracker-server/internal/session"
)

// RateLimiterHandle wraps the per-client limiter with shutdown capability.
// A nil limiter means rate limiting is disabled.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the per-client API rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Server.RateLimitRPS <= 0 {
		log.Info("API rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	limiter := ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 10*time.Minute)
	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// ProvideLayout provides the page assembler.
func ProvideLayout(i do.Injector) (*layout.Assembler, error) {
	ds := do.MustInvoke[*domain.Dataset](i)
	return layout.New(layout.Options{Genres: dataset.Genres(ds)})
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	ds := do.MustInvoke[*domain.Dataset](i)
	facets := do.MustInvoke[*FacetIndexHandle](i)
	documents := do.MustInvoke[*DocumentCacheHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)

	handler, err := api.NewServer(api.Deps{
		Config:   cfg,
		Dataset:  ds,
		Facets:   facets.FacetIndex,
		Sessions: do.MustInvoke[*session.Registry](i),
		Sealer:   do.MustInvoke[*session.Sealer](i),
		Layout:   do.MustInvoke[*layout.Assembler](i),
		Renderer: do.MustInvoke[*chart.Renderer](i),
		Cache:    documents.CachingBuilder,
		Events:   sseHandle.Manager,
		Limiter:  limiter.KeyedRateLimiter,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Dashboard available", "url", "http://"+srv.Addr+"/")

	return &HTTPServerHandle{Server: srv}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable.
type MDNSServiceHandle struct {
	*mdns.Service
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService advertises the dashboard when configured.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	ds := do.MustInvoke[*domain.Dataset](i)

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{}, nil
	}

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		return nil, err
	}

	svc := mdns.NewService(log.Logger)
	err = svc.Start(mdns.Announcement{
		Name:   cfg.Server.Name,
		Port:   port,
		Movies: ds.Len(),
		Genres: len(dataset.Genres(ds)),
	})
	if err != nil {
		// Non-fatal: the dashboard works without discovery (Docker, cloud).
		log.Warn("mDNS advertisement unavailable", "error", err)
	}

	return &MDNSServiceHandle{Service: svc}, nil
}
