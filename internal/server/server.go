package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"online-classes-storefront/internal/config"
	"online-classes-storefront/internal/handlers"
	"online-classes-storefront/internal/middleware"
	"online-classes-storefront/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

// Server wires the storefront API, its session registry and the checkout limiter
type Server struct {
	cfg      *config.Config
	registry *services.SessionRegistry
	limiter  *middleware.CheckoutRateLimiter
	router   chi.Router
}

// NewClassesAPI selects the classes service: the remote API, or the static
// catalog file when running offline.
func NewClassesAPI(cfg config.ClassesConfig) (services.ClassesAPI, error) {
	if cfg.Offline {
		api, err := services.LoadStaticClassesAPI(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load offline catalog: %w", err)
		}
		return api, nil
	}

	log.WithFields(log.Fields{
		"url":     cfg.APIURL,
		"timeout": cfg.Timeout,
	}).Info("Classes service: using remote API")
	return services.NewClassesClient(services.ClassesClientConfig{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
	}), nil
}

// New builds the router for api
func New(cfg *config.Config, api services.ClassesAPI) *Server {
	s := &Server{
		cfg:      cfg,
		registry: services.NewSessionRegistry(api, cfg.Session.IdleTimeout),
		limiter:  middleware.NewCheckoutRateLimiter(cfg.Checkout.RateLimit, cfg.Checkout.RateWindow),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	store := middleware.NewSessionStore(s.cfg.Session.Secret, s.cfg.Session.IdleTimeout, s.cfg.IsProduction())
	sessionMiddleware := middleware.NewSessionMiddleware(store, s.registry)
	storefrontHandler := handlers.NewStorefrontHandler(middleware.CheckoutRateLimit(s.limiter))

	r := chi.NewRouter()
	if s.cfg.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.ErrorHandlingMiddleware)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.cfg.CORS.AllowedOrigins...)))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/healthz", handlers.Health)

	r.Route("/api/storefront", func(r chi.Router) {
		r.Use(sessionMiddleware.LoadStorefront)
		storefrontHandler.Routes(r)
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the session registry
func (s *Server) Registry() *services.SessionRegistry {
	return s.registry
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Checkout performs two catalog fetches and one order call
		WriteTimeout: 3*s.cfg.Classes.Timeout + 10*time.Second,
	}

	go s.registry.Run(ctx, sweepInterval)
	go s.runLimiterCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": srv.Addr, "env": s.cfg.Server.Env}).Info("Starting storefront server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down storefront server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) runLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup()
		}
	}
}
