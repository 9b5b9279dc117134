package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/zsiec/vidqa/pkg/version"
)

// requestCheckTimeout bounds a check run triggered by a /health request.
const requestCheckTimeout = 10 * time.Second

// Response is the body of /health and /ready.
type Response struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Failing   []string          `json:"failing,omitempty"`
	Checks    map[string]*Check `json:"checks,omitempty"`
}

// Handler serves the health endpoints.
type Handler struct {
	manager   *Manager
	startTime time.Time
}

// NewHandler creates a new health check handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager:   manager,
		startTime: time.Now(),
	}
}

// HandleHealth reports every check from the last run. It runs the checks
// itself when none have run yet or on ?fresh=true.
// Degraded still answers 200; only down answers 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := h.manager.GetResults()
	if len(checks) == 0 || r.URL.Query().Get("fresh") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), requestCheckTimeout)
		defer cancel()
		checks = h.manager.RunChecks(ctx)
	}

	status := h.manager.GetOverallStatus()
	h.writeJSON(w, statusCode(status), Response{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version.Version,
		Uptime:    h.getUptime(),
		Failing:   failing(checks),
		Checks:    checks,
	})
}

// HandleReady reports the status of the most recent check run without
// running any check.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	status := h.manager.GetOverallStatus()
	h.writeJSON(w, statusCode(status), Response{
		Status:    status,
		Timestamp: time.Now(),
		Failing:   failing(h.manager.GetResults()),
	})
}

// HandleLive answers as long as the process serves HTTP.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "alive",
		Timestamp: time.Now(),
	})
}

func statusCode(s Status) int {
	if s == StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// failing lists the checks that did not pass, sorted by name.
func failing(checks map[string]*Check) []string {
	var names []string
	for name, c := range checks {
		if c.Status != StatusOK {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (h *Handler) getUptime() string {
	return time.Since(h.startTime).Round(time.Second).String()
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.manager.logger.WithError(err).Error("Failed to encode health response")
	}
}
