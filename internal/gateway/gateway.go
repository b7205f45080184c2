// ABOUTME: Gateway server wiring: router, middleware, lifecycle.
// ABOUTME: Composes the store, agent checker, and run controller behind one HTTP surface.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentinbox/inbox-gateway/internal/agents"
	"github.com/agentinbox/inbox-gateway/internal/config"
	"github.com/agentinbox/inbox-gateway/internal/store"
)

// Gateway is the HTTP server fronting the run controller and the
// read-only inbox APIs. One Gateway serves many concurrent runs; the
// only state shared between requests is the store handle.
type Gateway struct {
	cfg     *config.Config
	store   store.Store
	checker *agents.Checker
	client  *http.Client
	logger  *slog.Logger

	httpServer *http.Server
}

// New creates a Gateway around an initialized store.
func New(cfg *config.Config, s store.Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:     cfg,
		store:   s,
		checker: agents.NewChecker(s, cfg.Agents.HealthTimeout),
		client:  &http.Client{},
		logger:  logger.With("component", "gateway"),
	}
}

// Routes builds the HTTP router.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/api/gateway", g.handleRun)

	r.Get("/api/agents", g.handleListAgents)
	r.Get("/api/agents/{id}/health", g.handleAgentHealth)

	r.Get("/api/threads", g.handleListThreads)
	r.Post("/api/threads", g.handleCreateThread)
	r.Get("/api/threads/{id}", g.handleGetThread)
	r.Get("/api/threads/{id}/messages", g.handleListMessages)

	r.Get("/api/digest", g.handleDigest)

	r.Get("/api/health", g.handleHealth)

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	g.httpServer = &http.Server{
		Addr:    g.cfg.Server.HTTPAddr,
		Handler: g.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", g.cfg.Server.HTTPAddr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		g.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return g.httpServer.Shutdown(shutdownCtx)
	}
}

// handleHealth reports gateway liveness.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sendJSONError writes a JSON error body with the given status code.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// statusWriter captures the response status for request logging while
// passing Flush through for SSE responses.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		g.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
