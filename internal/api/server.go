// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/observability"
	"github.com/ai-financer/nlquery/internal/pipeline"
)

type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
}

func NewServer(ctx context.Context, pipe *pipeline.Pipeline) (*Server, error) {
	logger := common.Logger()
	if pipe == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	logger.Info("api: building server", "datasets", len(pipe.Datasets()))
	srv := &Server{
		router:   chi.NewRouter(),
		pipeline: pipe,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			observability.ObserveHTTPRequest(route, strconv.Itoa(ww.Status()), time.Since(start))
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Post("/v1/query", s.handleQuery)
	s.router.Post("/v1/disambiguate", s.handleDisambiguate)
	s.router.Get("/v1/datasets", s.handleDatasets)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
