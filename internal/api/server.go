package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
	"github.com/ferrolab/podflow/internal/workflow"
)

// CanvasStore defines the canvas persistence operations the API needs.
type CanvasStore interface {
	CreatePod(ctx context.Context, p canvas.Pod) (canvas.Pod, error)
	GetPod(ctx context.Context, canvasID, podID string) (canvas.Pod, error)
	ListPods(ctx context.Context, canvasID string) ([]canvas.Pod, error)
	CreateConnection(ctx context.Context, c canvas.Connection) (canvas.Connection, error)
	GetConnection(ctx context.Context, canvasID, id string) (canvas.Connection, error)
	ListConnections(ctx context.Context, canvasID string) ([]canvas.Connection, error)
	DeleteConnection(ctx context.Context, canvasID, id string) error
}

// TriggerEngine defines the workflow operations the API needs.
type TriggerEngine interface {
	CheckAndTriggerWorkflows(ctx context.Context, canvasID, sourcePodID string) error
	Queues() *workflow.Queues
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the bearer token for all non-health endpoints. Empty
	// disables authentication.
	APIKey string
}

// Server is the HTTP API server.
type Server struct {
	config    Config
	store     CanvasStore
	engine    TriggerEngine
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance.
func New(config Config, store CanvasStore, engine TriggerEngine, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		store:     store,
		engine:    engine,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/events", s.handleEvents)

		r.Route("/canvas/{canvasID}", func(r chi.Router) {
			r.Post("/pods", s.handleCreatePod)
			r.Get("/pods", s.handleListPods)
			r.Get("/pods/{podID}", s.handleGetPod)
			r.Post("/pods/{podID}/complete", s.handlePodComplete)
			r.Get("/pods/{podID}/queue", s.handlePodQueue)

			r.Post("/connections", s.handleCreateConnection)
			r.Get("/connections", s.handleListConnections)
			r.Get("/connections/{connectionID}", s.handleGetConnection)
			r.Delete("/connections/{connectionID}", s.handleDeleteConnection)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
