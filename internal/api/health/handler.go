// Package health exposes liveness and readiness probes over the service's
// hard and optional dependencies.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"finbrief/pkg/logger"
)

// Checker is any dependency that can report whether it is usable
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface
type CheckerFunc func(ctx context.Context) error

// Health implements Checker
func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	required    map[string]Checker
	optional    map[string]Checker
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler. Required checkers gate readiness; optional
// ones only show up in the detailed report.
func New(serviceName, version string) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		required:    make(map[string]Checker),
		optional:    make(map[string]Checker),
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Require registers a dependency that must be healthy for readiness
func (h *Handler) Require(name string, c Checker) *Handler {
	h.required[name] = c
	return h
}

// Observe registers a dependency that is reported but never gates readiness
func (h *Handler) Observe(name string, c Checker) *Handler {
	h.optional[name] = c
	return h
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if the process is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness checks whether the service can accept traffic. Any
// unhealthy required dependency fails the probe.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	allHealthy := true
	for name, c := range h.required {
		ch := h.check(ctx, name, c)
		checks[name] = ch
		if ch.Status != "healthy" {
			allHealthy = false
		}
	}

	status := h.status(checks)
	statusCode := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// HandleHealth returns the detailed health report over every dependency.
// Optional dependency failures degrade the report but keep the 200.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	requiredHealthy := true
	degraded := false

	for name, c := range h.required {
		ch := h.check(ctx, name, c)
		checks[name] = ch
		if ch.Status != "healthy" {
			requiredHealthy = false
		}
	}
	for name, c := range h.optional {
		ch := h.check(ctx, name, c)
		checks[name] = ch
		if ch.Status != "healthy" {
			degraded = true
		}
	}

	status := h.status(checks)
	statusCode := http.StatusOK
	switch {
	case !requiredHealthy:
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	case degraded:
		status.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) check(ctx context.Context, name string, c Checker) ComponentHealth {
	start := time.Now()
	err := c.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Warnw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}
	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}
