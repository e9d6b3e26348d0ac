// Package healthprobe serves liveness and readiness endpoints.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// StatusFunc reports component details included in readiness responses.
type StatusFunc func() map[string]string

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	status    atomic.Pointer[StatusFunc]
}

// New creates a new HealthChecker. It starts not ready.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetStatusFunc attaches component details to readiness responses.
func (h *HealthChecker) SetStatusFunc(fn StatusFunc) {
	h.status.Store(&fn)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime,omitempty"`
	Message    string            `json:"message,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// Health always answers 200 while the process is up.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}

// Ready answers 200 once SetReady(true) was called, 503 before.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var components map[string]string
		if fn := h.status.Load(); fn != nil && *fn != nil {
			components = (*fn)()
		}

		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:     "not_ready",
				Message:    "application is starting",
				Components: components,
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:     "ready",
			Uptime:     time.Since(h.startTime).Round(time.Second).String(),
			Components: components,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
