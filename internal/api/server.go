// Package api exposes the HTTP surface: the public popup delivery
// endpoints consumed by the site frontend, and the authenticated admin
// endpoints behind the popup builder.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadpop/leadpop/internal/config"
	"github.com/leadpop/leadpop/internal/delivery"
	"github.com/leadpop/leadpop/internal/metrics"
	"github.com/leadpop/leadpop/internal/repository"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	delivery   *delivery.Service
	popups     *repository.PopupRepository
	leads      *repository.LeadRepository
	settings   *repository.SettingsRepository
	users      *repository.UserRepository
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	svc *delivery.Service,
	popups *repository.PopupRepository,
	leads *repository.LeadRepository,
	settings *repository.SettingsRepository,
	users *repository.UserRepository,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		delivery:  svc,
		popups:    popups,
		leads:     leads,
		settings:  settings,
		users:     users,
		logger:    logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public delivery endpoints consumed by the frontend loader
		r.Get("/bootstrap", s.handleBootstrap)
		r.Get("/popup/{id}", s.handleGetPopup)
		r.Get("/popup/{id}/render", s.handleRenderPopup)

		r.Group(func(r chi.Router) {
			r.Use(s.nonceMiddleware)
			r.Post("/lead/submit", s.handleSubmitLead)
			r.Post("/event", s.handleEvent)
		})

		r.Post("/auth/login", s.handleLogin)

		// Admin endpoints (API key or session required)
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)

			r.Post("/auth/logout", s.handleLogout)

			r.Post("/popup/save", s.handleSavePopup)
			r.Get("/popups", s.handleListPopups)
			r.Delete("/popup/{id}", s.handleDeletePopup)
			r.Get("/popup-templates", s.handleTemplates)

			r.Get("/leads", s.handleListLeads)
			r.Post("/leads/{id}/sync", s.handleSyncLead)
			r.Get("/leads/export", s.handleExportLeads)

			r.Get("/settings/webhook", s.handleGetWebhookSettings)
			r.Put("/settings/webhook", s.handleSetWebhookSettings)
		})
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", s.cfg.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
