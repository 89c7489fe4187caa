package httpserver

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aaane/member-portal/backend/internal/config"
	"github.com/aaane/member-portal/backend/internal/handlers"
	requesttracking "github.com/aaane/member-portal/backend/internal/middleware"
	"github.com/aaane/member-portal/backend/internal/worker"
)

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
	sweeper    *worker.Sweeper
}

// Deps carries the handler collaborators the router wires together.
type Deps struct {
	Wizard    *handlers.WizardHandler
	Catalog   *handlers.CatalogHandler
	Members   *handlers.MemberHandler
	Incidents *handlers.IncidentHandler
	Sweeper   *worker.Sweeper
}

// New constructs an HTTP server using the provided configuration and
// handler collaborators.
func New(cfg config.Config, db *sql.DB, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Add request tracking middleware
	requestTracker, err := requesttracking.NewRequestTracker(db)
	if err != nil {
		log.Printf("[server] request tracking disabled: %v", err)
	} else {
		router.Use(requestTracker.Middleware())
	}

	router.Get("/healthz", handlers.Health)

	if deps.Catalog != nil {
		deps.Catalog.RegisterRoutes(router)
	}
	if deps.Members != nil {
		deps.Members.RegisterRoutes(router)
	}
	if deps.Wizard != nil {
		deps.Wizard.RegisterRoutes(router)
	}
	if deps.Incidents != nil {
		deps.Incidents.RegisterRoutes(router)
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, sweeper: deps.Sweeper}
}

// Start begins serving HTTP traffic and starts the session sweeper.
func (s *Server) Start() error {
	if s.sweeper != nil {
		log.Println("[server] Starting session sweeper...")
		s.sweeper.Start(context.Background())
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sweeper != nil {
		log.Println("[server] Shutting down session sweeper...")
		if err := s.sweeper.Stop(ctx); err != nil {
			log.Printf("[server] Sweeper shutdown error: %v", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
