package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/logger"
	"github.com/directorstracker/tracker-server/internal/session"
	"github.com/directorstracker/tracker-server/internal/sse"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvideSealer provides the session cookie sealer.
func ProvideSealer(i do.Injector) (*session.Sealer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Session.Key) == 0 {
		log.Warn("No session key configured, sessions will not survive a restart")
	}
	return session.NewSealer(cfg.Session.Key, cfg.Session.IdleTTL)
}

// ProvideSessionRegistry provides the per-visitor selection controllers.
func ProvideSessionRegistry(i do.Injector) (*session.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	ds := do.MustInvoke[*domain.Dataset](i)
	documents := do.MustInvoke[*DocumentCacheHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return session.NewRegistry(session.Options{
		Dataset:      ds,
		Builder:      documents.CachingBuilder,
		Publisher:    sseHandle.Manager,
		DefaultGenre: cfg.Chart.DefaultGenre,
		IdleTTL:      cfg.Session.IdleTTL,
		Logger:       log.Logger,
		OnEnd: func(sessionID string) {
			sseHandle.DisconnectSession(sessionID)
		},
	}), nil
}

// SessionCleanupJob drops idle sessions and their event streams.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob starts the idle session sweep.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	registry := do.MustInvoke[*session.Registry](i)
	log := do.MustInvoke[*logger.Logger](i)

	interval := max(registry.IdleTTL()/4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				if count := registry.DeleteIdle(now); count > 0 {
					log.Info("Session cleanup completed", "deleted", count, "remaining", registry.Len())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started", "interval", interval)

	return &SessionCleanupJob{cancel: cancel}, nil
}
