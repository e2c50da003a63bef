// Package api declares the ops HTTP surface: liveness, metrics, stats,
// and the live cycle feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentrylab/vigil/pkg/metrics"
)

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	Stats() map[string]interface{}
}

// Server wires HTTP routes for the ops API.
type Server struct {
	stats StatsProvider
	hub   *Hub
}

// NewServer creates an ops API server. The hub may be nil when the live
// feed is disabled.
func NewServer(stats StatsProvider, hub *Hub) *Server {
	return &Server{stats: stats, hub: hub}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleLive)
	}
}

// handleHealth handles GET /healthz requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleStats handles GET /stats requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
