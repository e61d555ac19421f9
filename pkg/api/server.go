// Package api exposes the HTTP surface: sample ingest, trend queries,
// series listing, health, and internal metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/trendline/pkg/trend"
	"github.com/vjranagit/trendline/pkg/types"
)

// Backend is what the server needs from the storage layer.
type Backend interface {
	trend.SeriesProvider
	Write(ctx context.Context, req *types.WriteRequest) error
	ListSeries() []types.SeriesInfo
	CacheStats() (hits, misses uint64)
}

// Server implements the HTTP API.
type Server struct {
	addr     string
	backend  Backend
	engine   *trend.Engine
	metrics  *Metrics
	registry *prometheus.Registry
	server   *http.Server
}

// NewServer wires the API around a backend and a trend engine.
func NewServer(addr string, backend Backend, engine *trend.Engine) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		addr:     addr,
		backend:  backend,
		engine:   engine,
		metrics:  NewMetrics(registry, backend.CacheStats),
		registry: registry,
	}
}

// Handler returns the routed handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/write", s.handleWrite)
	mux.HandleFunc("/api/v1/trend", s.handleTrend)
	mux.HandleFunc("/api/v1/series", s.handleSeries)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleWrite ingests averaged samples for one series.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Element == "" || req.Parameter == "" {
		http.Error(w, "element and parameter are required", http.StatusBadRequest)
		return
	}

	if err := s.backend.Write(r.Context(), &req); err != nil {
		log.WithError(err).Error("write failed")
		http.Error(w, fmt.Sprintf("Write failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.WriteRequests.Inc()
	s.metrics.SamplesIngested.Add(float64(len(req.Samples)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// handleTrend runs a trend query. Unknown range or interval names fall
// back to "All time" and "Day"; a missing series yields zero rows.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	element := q.Get("element")
	parameter := q.Get("parameter")
	if element == "" || parameter == "" {
		http.Error(w, "element and parameter are required", http.StatusBadRequest)
		return
	}

	req := types.TrendRequest{
		Element:      element,
		Parameter:    parameter,
		RangeName:    q.Get("range"),
		IntervalName: q.Get("interval"),
	}

	result, err := s.engine.Run(r.Context(), req)
	if err != nil {
		s.metrics.QueryFailures.Inc()
		log.WithError(err).Error("trend query failed")
		http.Error(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.metrics.TrendQueries.Inc()
	s.metrics.TrendRows.Add(float64(len(result.Rows)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleSeries lists stored series.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]types.SeriesInfo{
		"series": s.backend.ListSeries(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
