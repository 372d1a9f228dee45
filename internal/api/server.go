// Package api provides the JSON HTTP API for tabsplit.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tabsplit/internal/calculator"
	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Groups *service.GroupService
	Splits *service.SplitService

	// Auth guards every /api route when set.
	Auth middleware.TokenValidator

	Metrics *metrics.Metrics
	// Gatherer backs /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the tabsplit HTTP API server.
type Server struct {
	groups   *service.GroupService
	splits   *service.SplitService
	auth     middleware.TokenValidator
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	s := &Server{
		groups:   opts.Groups,
		splits:   opts.Splits,
		auth:     opts.Auth,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Instrument(s.metrics))
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/groups", func(r chi.Router) {
		if s.auth != nil {
			r.Use(middleware.RequireAuth(s.auth))
		}

		r.Post("/", s.handleCreateGroup)
		r.Get("/", s.handleListGroups)

		r.Get("/current", s.handleCurrentGroup)
		r.Put("/current", s.handleSelectGroup)
		r.Delete("/current", s.handleClearCurrent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGroup)
			r.Post("/items", s.handleAddItem)
			r.Delete("/items/{itemId}", s.handleRemoveItem)
			r.Post("/finish", s.handleFinishGroup)
			r.Post("/allocation", s.handleAllocate)
			r.Post("/share", s.handleShare)
			r.Post("/tip-preview", s.handleTipPreview)
		})
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully. HTTP/2 is accepted without TLS via h2c.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
		},
	})
}

// writeServiceError maps domain errors to HTTP status codes. Internal
// failures are logged and reported without details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrGroupFinished):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidInput), errors.Is(err, calculator.ErrInvalidTip):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
