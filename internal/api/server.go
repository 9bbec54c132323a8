// Package api provides the HTTP server and handlers for the Directors Production Tracker.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/directorstracker/tracker-server/internal/cache"
	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/layout"
	"github.com/directorstracker/tracker-server/internal/ratelimit"
	"github.com/directorstracker/tracker-server/internal/search"
	"github.com/directorstracker/tracker-server/internal/session"
	"github.com/directorstracker/tracker-server/internal/sse"
	"github.com/directorstracker/tracker-server/internal/validation"
)

// Deps holds everything the handlers need.
type Deps struct {
	Config   *config.Config
	Dataset  *domain.Dataset
	Facets   *search.FacetIndex
	Sessions *session.Registry
	Sealer   *session.Sealer
	Layout   *layout.Assembler
	Renderer *chart.Renderer
	Cache    *cache.CachingBuilder // Optional, reported by /health
	Events   *sse.Manager
	Limiter  *ratelimit.KeyedRateLimiter // Optional
	Logger   *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	Deps

	genres    domain.FacetList
	directors domain.FacetList

	router     *chi.Mux
	api        huma.API
	sseHandler *sse.Handler
	validator  *validation.Validator
	startedAt  time.Time
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	genres, err := distinct(deps.Dataset, domain.ColumnGenre)
	if err != nil {
		return nil, err
	}
	directors, err := distinct(deps.Dataset, domain.ColumnDirector)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Deps:      deps,
		genres:    genres,
		directors: directors,
		router:    chi.NewRouter(),
		validator: validation.New(),
		startedAt: time.Now(),
		logger:    logger,
	}
	s.sseHandler = sse.NewHandler(deps.Events, s.sessionIDFromRequest, logger)

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Directors Production Tracker API", "1.0.0")
	humaConfig.Info.Description = "Genre and director selection for the Directors Production Tracker dashboard."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerFacetRoutes()
	s.registerSelectionRoutes()
	s.registerChartRoutes()
	s.registerPageRoutes()

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "text/html", "application/json", "text/markdown"))

	if s.Config != nil && len(s.Config.Server.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if s.Limiter != nil {
		s.router.Use(RateLimitMiddleware(s.Limiter, s.logger))
	}

	s.router.Use(s.sessionMiddleware)
}

// requestLogger logs each request through slog once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
