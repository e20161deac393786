package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-library/internal/jobs"
	"media-library/internal/logging"
	"media-library/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Scanning bool   `json:"scanning"`
	LastScan string `json:"lastScan,omitempty"`
	Error    string `json:"error,omitempty"`

	// Catalog summary
	TotalItems  int      `json:"totalItems"`
	RunningJobs []string `json:"runningJobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports catalog reachability and job activity. It answers 503
// when the catalog cannot be read.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		RunningJobs:  []string{},
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	for _, kind := range jobs.Kinds {
		if h.jobs.Status(kind).Running() {
			response.RunningJobs = append(response.RunningJobs, string(kind))
		}
	}
	response.Scanning = h.jobs.Status(jobs.KindScan).Running()

	code := http.StatusOK
	count, err := h.db.CountItems(r.Context())
	if err != nil {
		logging.Warn("health check: catalog unavailable: %v", err)
		response.Status = statusDegraded
		response.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	response.TotalItems = count

	if last, err := h.db.LastRun(r.Context(), string(jobs.KindScan)); err == nil && !last.IsZero() {
		response.LastScan = last.Format(time.RFC3339)
	}

	writeJSONCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
