// Package server provides the HTTP API for portfolio state, metrics, and
// live run control.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appconfig "github.com/aristath/foliosim/internal/config"
	"github.com/aristath/foliosim/internal/events"
	"github.com/aristath/foliosim/internal/modules/market_hours"
	"github.com/aristath/foliosim/internal/modules/runner"
	"github.com/aristath/foliosim/internal/modules/selection"
	"github.com/aristath/foliosim/internal/modules/state"
)

// Config holds server dependencies.
type Config struct {
	Log         zerolog.Logger
	Cfg         *appconfig.Config
	Store       *state.Store
	Runner      *runner.Service
	Selection   *selection.Service
	MarketHours *market_hours.Service
	Bus         *events.Bus
	Port        int
	DevMode     bool
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *appconfig.Config
	store          *state.Store
	runner         *runner.Service
	selection      *selection.Service
	marketHours    *market_hours.Service
	bus            *events.Bus
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Cfg,
		store:          cfg.Store,
		runner:         cfg.Runner,
		selection:      cfg.Selection,
		marketHours:    cfg.MarketHours,
		bus:            cfg.Bus,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Cfg.DataDir),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events/stream", s.handleEventsStream)

		r.Get("/portfolio", s.handlePortfolio)
		r.Get("/portfolio/equity", s.handleEquityCurve)
		r.Get("/portfolio/metrics", s.handleMetrics)
		r.Get("/portfolio/trades", s.handleTrades)
		r.Get("/portfolio/history", s.handleSnapshotHistory)

		r.Get("/profiles", s.handleProfiles)
		r.Get("/picks/latest", s.handleLatestPicks)
		r.Get("/markets/status", s.handleMarketStatus)

		r.Post("/rebalance/run", s.handleTriggerRun)

		r.Get("/system/stats", s.systemHandlers.HandleStats)
	})
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
