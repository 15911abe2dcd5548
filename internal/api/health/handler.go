package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"stockwatch/internal/workers"
	"stockwatch/pkg/logger"
)

// CheckFunc pings one dependency
type CheckFunc func(ctx context.Context) error

// WorkerReporter is satisfied by *workers.Scheduler
type WorkerReporter interface {
	Health() map[string]workers.WorkerHealth
}

// Handler serves liveness, readiness and detailed health
type Handler struct {
	log         *logger.Logger
	checks      map[string]CheckFunc
	workers     WorkerReporter
	startTime   time.Time
	serviceName string
	version     string
}

func New(serviceName, version string) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		checks:      make(map[string]CheckFunc),
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// AddCheck registers a dependency that readiness requires
func (h *Handler) AddCheck(name string, check CheckFunc) *Handler {
	h.checks[name] = check
	return h
}

// WithWorkers includes scheduler bookkeeping in /health
func (h *Handler) WithWorkers(r WorkerReporter) *Handler {
	h.workers = r
	return h
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                          `json:"status"` // healthy|degraded|unhealthy
	Service   string                          `json:"service"`
	Version   string                          `json:"version"`
	Uptime    string                          `json:"uptime"`
	Timestamp string                          `json:"timestamp"`
	Checks    map[string]ComponentHealth      `json:"checks"`
	Workers   map[string]workers.WorkerHealth `json:"workers,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HandleLiveness returns 200 while the process serves requests
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness returns 503 unless every registered dependency answers
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.status(ctx)
	code := http.StatusOK
	if status.healthy < len(status.Checks) {
		status.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", status.Checks)
	}

	writeJSON(w, code, status.HealthStatus)
}

// HandleHealth reports degraded while at least one dependency answers
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := h.status(ctx)
	if h.workers != nil {
		status.Workers = h.workers.Health()
	}

	code := http.StatusOK
	switch {
	case len(status.Checks) > 0 && status.healthy == 0:
		status.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	case status.healthy < len(status.Checks):
		status.Status = statusDegraded
	}

	writeJSON(w, code, status.HealthStatus)
}

type evaluated struct {
	HealthStatus
	healthy int
}

func (h *Handler) status(ctx context.Context) evaluated {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := evaluated{HealthStatus: HealthStatus{
		Status:    statusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]ComponentHealth, len(names)),
	}}

	for _, name := range names {
		c := h.run(ctx, name, h.checks[name])
		out.Checks[name] = c
		if c.Status == statusHealthy {
			out.healthy++
		}
	}
	return out
}

func (h *Handler) run(ctx context.Context, name string, check CheckFunc) ComponentHealth {
	start := time.Now()
	err := check(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Warnw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{Status: statusUnhealthy, ResponseTime: elapsed.String(), Error: err.Error()}
	}
	return ComponentHealth{Status: statusHealthy, ResponseTime: elapsed.String()}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
