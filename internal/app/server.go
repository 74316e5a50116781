package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Lumen/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Lumen/internal/api/middlewares"
	"github.com/markdave123-py/Lumen/internal/config"
	"github.com/markdave123-py/Lumen/internal/observability/metrics"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

// Pinger reports whether the entity store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes are the handlers mounted by NewRouter.
type Routes struct {
	Auth     *handlers.AuthHandler
	Uploads  *handlers.UploadHandler
	Sessions *handlers.SessionHandler
	Chat     *handlers.ChatHandler
	Diagrams *handlers.DiagramHandler
	Health   Pinger
	Metrics  *metrics.PipelineMetrics
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, routes Routes, log *logger.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, routes, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// NewRouter mounts the API. Every API route sees the request token via
// ExtractToken; services decide whether it is required.
func NewRouter(cfg *config.Config, routes Routes, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Token"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", health(routes.Health))
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(60 * time.Second))
		api.Use(appMiddleware.ExtractToken)

		// public endpoints
		api.Post("/auth/register", routes.Auth.Register)
		api.Post("/auth/login", routes.Auth.Login)

		// sessions list answers an empty list instead of 401
		api.Get("/sessions", routes.Sessions.List)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.RequireToken)

			protected.Post("/videos/upload", routes.Uploads.UploadVideo)
			protected.Post("/documents/upload", routes.Uploads.UploadDocument)
			protected.Post("/upload/video", routes.Uploads.UploadVideoSession)
			protected.Post("/upload/document", routes.Uploads.UploadDocumentSession)

			protected.Post("/sessions", routes.Sessions.Create)
			protected.Get("/sessions/{id}", routes.Sessions.Get)
			protected.Delete("/sessions/{id}", routes.Sessions.Delete)
			protected.Post("/sessions/{id}/chat", routes.Chat.Ask)

			protected.Get("/videos/{id}/diagram-status", routes.Diagrams.Status)
			protected.Get("/videos/{id}/diagrams", routes.Diagrams.List)
		})
	})

	return r
}

func health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
