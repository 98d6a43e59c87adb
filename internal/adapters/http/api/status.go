package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morywal/CalendarApp/pkg/metrics"
)

// StatsProvider reports queue, worker and user counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// exposition serves the custom registry; /healthz answering at all is the
// liveness signal.
func exposition() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.GetStats())
}
