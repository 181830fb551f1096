package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/internal/config"
	"github.com/me/actorrun/internal/store"
	"github.com/me/actorrun/internal/ui"
	"github.com/me/actorrun/internal/workbench"
)

// Server is the ActorRun HTTP server: the JSON API under /api/v1 and the
// web interface.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	platforms apify.Factory
	cache     *apify.Cache
	runs      *workbench.Controller
	ui        *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithPlatformFactory sets how a token is turned into a platform client.
func WithPlatformFactory(f apify.Factory) Option {
	return func(s *Server) {
		s.platforms = f
	}
}

// WithTestPlatform makes every token use p, for testing without Apify connectivity.
func WithTestPlatform(p apify.Platform) Option {
	return func(s *Server) {
		s.platforms = func(string) apify.Platform { return p }
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		cache:     apify.NewCache(cfg.ActorCacheTTL, logger),
		runs:      workbench.NewController(st, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.platforms == nil {
		s.platforms = apify.NewFactory(ApifyConfig(cfg), logger)
	}

	s.ui = ui.New(st, s.platforms, s.cache, logger, ui.Config{
		Secure:               cfg.SecureCookies,
		SessionTTL:           cfg.SessionTTL,
		SanitizeDescriptions: cfg.SanitizeDescriptions,
	})

	s.routes()
	return s
}

// ApifyConfig derives the platform client settings from the server config.
func ApifyConfig(cfg config.ServerConfig) apify.Config {
	ac := apify.DefaultConfig().WithBaseURL(cfg.ApifyBaseURL)
	if cfg.ApifyTimeout > 0 {
		ac = ac.WithTimeout(cfg.ApifyTimeout)
	}
	if cfg.RunWait > 0 {
		ac = ac.WithPolling(ac.WaitForFinish, ac.PollInterval, cfg.RunWait)
	}
	return ac
}

// StartMaintenance periodically removes expired sessions, idle workbenches
// and stale cache entries until ctx is done.
func (s *Server) StartMaintenance(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ui.Sweep(ctx)
				if n := s.cache.Prune(); n > 0 {
					s.logger.Debug("cache pruned", "entries", n)
				}
			}
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)

	// API routes (JSON)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/openapi.json", s.handleOpenAPI)
		r.Post("/verify-key", s.handleVerifyKey)

		// Token-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiAuthMiddleware)

			r.Get("/actors", s.handleListActors)
			r.Route("/actors/{actorId}", func(r chi.Router) {
				r.Get("/schema", s.handleGetSchema)
				r.Post("/preview", s.handlePreview)
				r.Post("/run", s.handleRunActor)
			})
			r.Get("/runs", s.handleListRuns)
		})
	})
}
