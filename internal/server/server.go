// Package server assembles the HTTP router and runs the listener with
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/entfiles/internal/api/handlers"
	"github.com/koustreak/entfiles/internal/api/middleware"
	"github.com/koustreak/entfiles/internal/config"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
)

// Routes holds what the router dispatches to.
type Routes struct {
	API         *handlers.APIHandler
	Health      *handlers.HealthHandler
	Gate        middleware.Authenticator
	CORSOrigins []string
}

// NewRouter builds the chi router.
//
//	POST /api/auth/login            public
//	POST /api/upload                teacher, admin
//	GET  /api/files                 any authenticated user
//	GET  /api/files/download/{id}   any authenticated user
//	GET  /health/live, /health/ready, /metrics
func NewRouter(rt Routes, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics())
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(rt.CORSOrigins))

	r.Get("/health/live", rt.Health.Live)
	r.Get("/health/ready", rt.Health.Ready)
	r.Get("/metrics", rt.Health.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", rt.API.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.Gate, log))

			r.Get("/files", rt.API.ListFiles)
			r.Get("/files/download/{id}", rt.API.DownloadFile)
			r.With(middleware.RequireRoles(log, model.RoleTeacher, model.RoleAdmin)).
				Post("/upload", rt.API.Upload)
		})
	})

	return r
}

// Server is the entfiles HTTP server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// New creates a Server listening on the configured port.
func New(cfg *config.Config, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		log:             log.Component("server"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.With().Str("addr", s.httpServer.Addr).Logger().Info("http server started")
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown requested")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
