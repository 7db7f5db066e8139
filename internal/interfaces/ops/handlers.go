package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// healthResponse reports overall and per-dependency health.
type healthResponse struct {
	Status    string            `json:"status"` // healthy | degraded
	Timestamp time.Time         `json:"timestamp"`
	Database  componentHealth   `json:"database"`
	Sources   []componentHealth `json:"sources"`
}

type componentHealth struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
}

// handleHealth probes every data source and pings the database. Any
// unhealthy dependency degrades the overall status but still returns 200;
// orchestration decides what degraded means.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC()}

	dbStart := time.Now()
	dbErr := s.repo.Ping(ctx)
	resp.Database = componentHealth{
		Name:      "postgres",
		Healthy:   dbErr == nil,
		LatencyMS: time.Since(dbStart).Milliseconds(),
	}
	if dbErr != nil {
		resp.Database.Detail = dbErr.Error()
		resp.Status = "degraded"
	}

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		probe := s.providers[name].Probe(ctx)
		ch := componentHealth{
			Name:      name,
			Healthy:   probe.Healthy,
			LatencyMS: int64(probe.LatencyMS),
		}
		if !probe.Healthy {
			ch.Detail = probe.Error
			resp.Status = "degraded"
		}
		resp.Sources = append(resp.Sources, ch)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLastRun returns the most recent finished run, or 404 before the
// first run completes.
func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastRun
	s.mu.RUnlock()

	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
