// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware,
// and routes. It is the composition root: all dependencies are assembled
// in one place (New/setupRoutes) rather than scattered across the
// codebase.
//
// DEPENDENCY INJECTION FLOW:
// main.go reads config and creates the logger, then:
//
//	Server.New() creates: sqlite.DB → per-collection stores →
//	  SubscriptionService / UsageService / AccountService / AuthService →
//	  handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services. The handlers never touch the
// database directly.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/eco-tracker/internal/auth"
	"github.com/sakif/eco-tracker/internal/handler"
	"github.com/sakif/eco-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/eco-tracker/internal/repository/sqlite"
	"github.com/sakif/eco-tracker/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port     int
	DBPath   string
	DevReset bool // expose POST /api/admin/reset (development only)

	// JWTSecret signs session tokens. When empty, registration/login and
	// the protected API routes are served WITHOUT authentication — fine
	// for local development, never for production.
	JWTSecret string

	// Google OAuth. The /auth/google routes are only registered when the
	// client ID and secret are both set.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown to flush the WAL and release the file
// lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain wired up.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/register                       → email/password registration
//	POST   /auth/login                          → email/password login
//	GET    /auth/google/login                   → start Google OAuth (if configured)
//	GET    /auth/google/callback                → finish Google OAuth
//	POST   /auth/logout                         → clear the session cookie
//	GET    /api/me                              → current user's profile
//	POST   /api/users                           → create account from identity payload
//	GET    /api/users/{id}                      → get user
//	PATCH  /api/users/{id}                      → partial user update
//	DELETE /api/users/{id}                      → delete account (cascades)
//	GET    /api/users/{id}/subscription         → current subscription
//	PUT    /api/users/{id}/subscription         → change plan
//	DELETE /api/users/{id}/subscription         → cancel subscription
//	GET    /api/users/{id}/usage                → usage counters
//	GET    /api/users/{id}/limits/{action}      → quota check
//	GET    /api/users/{id}/features/{feature}   → feature check
//	POST   /api/users/{id}/scans                → record a scan
//	POST   /api/users/{id}/analyses             → record an analysis
//	POST   /api/users/{id}/reports              → record a report
//	GET    /api/users/{id}/activity             → full activity log
//	GET    /api/users/{id}/export               → snapshot export
//	POST   /api/import                          → snapshot import
//	GET    /api/admin/analytics                 → aggregate analytics
//	GET    /api/admin/users                     → list all users
//	POST   /api/admin/reset                     → wipe all collections (dev only)
//
// MIDDLEWARE ORDER MATTERS: RequestID → RealIP → Recoverer → Logger run
// on every request, in that order. RequireAuth wraps only the /api group.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === SERVICES ===
	subscriptions := service.NewSubscriptionService(s.db.Subscriptions(), s.logger)
	usage := service.NewUsageService(s.db.Usage(), s.db.Subscriptions(), s.logger)
	accounts := service.NewAccountService(
		s.db.Users(), subscriptions, usage, s.db.Activity(), s.db, s.logger)

	// === AUTH ===
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	}

	// === HANDLERS ===
	userHandler := handler.NewUserHandler(accounts, s.logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptions, s.logger)
	usageHandler := handler.NewUsageHandler(usage, s.logger)
	activityHandler := handler.NewActivityHandler(accounts, s.logger)
	adminHandler := handler.NewAdminHandler(accounts, s.logger)

	// === AUTH ROUTES ===
	// Registration and login need the token service; without a JWT secret
	// they cannot issue sessions, so the routes are not registered.
	var authHandler *handler.AuthHandler
	if tokens != nil {
		auths := service.NewAuthService(
			s.db.Users(), accounts, tokens, auth.NewPasswordService(), s.logger)
		authHandler = handler.NewAuthHandler(google, auths, s.logger)

		s.router.Post("/auth/register", authHandler.HandleRegister)
		s.router.Post("/auth/login", authHandler.HandleLogin)
		s.router.Post("/auth/logout", authHandler.HandleLogout)

		if google != nil {
			s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
			s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
		} else {
			s.logger.Warn("Google OAuth not configured — /auth/google routes disabled")
		}
	}

	// === API ROUTES ===
	s.router.Route("/api", func(r chi.Router) {
		if tokens != nil {
			r.Use(auth.RequireAuth(tokens))
		}

		if authHandler != nil {
			r.Get("/me", authHandler.HandleMe)
		}

		r.Post("/users", userHandler.HandleCreate)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Patch("/users/{id}", userHandler.HandleUpdate)
		r.Delete("/users/{id}", userHandler.HandleDelete)

		r.Get("/users/{id}/subscription", subscriptionHandler.HandleGet)
		r.Put("/users/{id}/subscription", subscriptionHandler.HandleUpsert)
		r.Delete("/users/{id}/subscription", subscriptionHandler.HandleDelete)

		r.Get("/users/{id}/usage", usageHandler.HandleStats)
		r.Get("/users/{id}/limits/{action}", usageHandler.HandleCheckLimit)
		r.Get("/users/{id}/features/{feature}", usageHandler.HandleHasFeature)

		r.Post("/users/{id}/scans", activityHandler.HandleRecordScan)
		r.Post("/users/{id}/analyses", activityHandler.HandleRecordAnalysis)
		r.Post("/users/{id}/reports", activityHandler.HandleRecordReport)
		r.Get("/users/{id}/activity", activityHandler.HandleActivity)
		r.Get("/users/{id}/export", activityHandler.HandleExport)

		r.Post("/import", adminHandler.HandleImport)
		r.Get("/admin/analytics", adminHandler.HandleAnalytics)
		r.Get("/admin/users", adminHandler.HandleListUsers)
		if s.config.DevReset {
			r.Post("/admin/reset", adminHandler.HandleReset)
		}
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
