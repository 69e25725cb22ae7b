package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/rules"
	"github.com/opensource-health/heron/internal/tracker"
)

// Dependencies are the services the API is built on. Cache and Bus may be
// nil.
type Dependencies struct {
	Repository  domain.Repository
	Cache       domain.Cache
	Bus         domain.EventBus
	Engine      *rules.Engine
	Processor   *assessment.Processor
	Tracker     *tracker.Service
	CatalogFile string
	RateLimit   domain.RateLimitConfig
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies, version string) *Server {
	handler := NewHandler(deps, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no session required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (session required)
	router.Route("/", func(r chi.Router) {
		r.Use(SessionMiddleware)

		// Domain packs
		r.Get("/domains", handler.ListDomains)
		r.Get("/domains/{id}", handler.GetDomain)
		r.With(RequireAdmin).Put("/domains/{id}", handler.PutDomain)
		r.With(RequireAdmin).Post("/domains/reload", handler.ReloadDomains)

		// Explicit observation sets
		r.With(RateLimitMiddleware(deps.Cache, deps.RateLimit)).Post("/assess/{domain}", handler.Assess)

		// Trackers
		r.Get("/trackers/{domain}/assessment", handler.TrackerAssessment)
		r.Post("/trackers/mood", handler.RecordMood)
		r.Post("/trackers/sleep", handler.RecordSleep)
		r.Post("/trackers/doses", handler.ScheduleDose)
		r.Put("/trackers/doses/{id}/status", handler.SetDoseStatus)
		r.Post("/trackers/vaccines", handler.ScheduleVaccine)
		r.Put("/trackers/vaccines/{id}/administered", handler.MarkVaccineAdministered)

		r.Get("/cycle/status", handler.CycleStatus)

		// Assessment history
		r.Get("/assessments", handler.ListAssessments)
		r.Get("/assessments/export", handler.ExportAssessments)
		r.Get("/assessments/{id}", handler.GetAssessment)
		r.Get("/assessments/{id}/report", handler.AssessmentReport)

		// Counselling checkout
		r.Post("/checkout/decision", handler.CheckoutDecision)
		r.With(RequireAdmin).Post("/subscriptions", handler.CreateSubscription)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
