// Package server exposes tree data, person details, rendered layouts and live
// view sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"treepilot/config"
	"treepilot/detail"
	"treepilot/interaction"
	"treepilot/layout"
	"treepilot/metrics"
	"treepilot/source"
	"treepilot/view"
)

// Deps are the collaborators of a Server.
type Deps struct {
	Provider source.Provider
	// Details is shared by the /person route and every view session.
	Details *detail.Cache
	Clock   interaction.Clock
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Server is the treepilot HTTP API.
type Server struct {
	cfg      config.Server
	viewOpts view.Options
	provider source.Provider
	details  *detail.Cache
	clock    interaction.Clock
	engine   *layout.TreeLayout
	sessions *sessionStore
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// New creates a server. A nil Details builds a cache over the provider.
func New(cfg config.Server, viewOpts view.Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Details == nil {
		deps.Details = detail.New(deps.Provider, detail.DefaultOptions(), deps.Logger, deps.Metrics)
	}
	return &Server{
		cfg:      cfg,
		viewOpts: viewOpts,
		provider: deps.Provider,
		details:  deps.Details,
		clock:    deps.Clock,
		engine:   layout.NewTreeLayout(viewOpts.Layout),
		sessions: newSessionStore(cfg.SessionTTL, cfg.MaxSessions, deps.Logger, deps.Metrics),
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// Handler returns the router with every route and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(instrument(s.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/individuals", s.individuals)
	r.Get("/youngest", s.youngest)
	r.Get("/person/{id}", s.person)

	r.Route("/tree/{id}", func(r chi.Router) {
		r.Get("/", s.tree)
		r.Get("/layout", s.layout)
		r.Get("/svg", s.svg)
		r.Get("/export", s.export)
	})

	r.Route("/views", func(r chi.Router) {
		r.Post("/", s.createView)
		r.Route("/{vid}", func(r chi.Router) {
			r.Get("/", s.getView)
			r.Delete("/", s.deleteView)
			r.Post("/pointer", s.pointer)
			r.Post("/pin", s.pin)
			r.Post("/unpin", s.unpin)
			r.Post("/pan", s.pan)
			r.Post("/zoom", s.zoom)
			r.Post("/depth", s.depth)
			r.Post("/resize", s.resize)
			r.Get("/events", s.events)
		})
	})
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and closes every view session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()
	go s.sessions.reapEvery(ctx, reapInterval(s.cfg.SessionTTL))

	select {
	case err := <-errc:
		s.sessions.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.closeAll()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func reapInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if iv := ttl / 4; iv > time.Second {
		return iv
	}
	return time.Second
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.sessions.len(),
		"cached":   s.details.Len(),
	})
}
