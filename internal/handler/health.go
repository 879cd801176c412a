package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"arrodes-economy/internal/repository"
	"arrodes-economy/pkg/response"
)

const storePingTimeout = 2 * time.Second

// Handler serves the liveness, readiness and monitoring endpoints.
type Handler struct {
	db      repository.Database
	service string
	version string
	started time.Time
}

// New creates a new handler. db may be nil when no store is configured.
func New(db repository.Database, service, version string) *Handler {
	return &Handler{db: db, service: service, version: version, started: time.Now()}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready handles GET /api/v1/ready. It reports unready while the backing
// store is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Ready:     true,
		Timestamp: time.Now().UTC(),
		Checks: []Check{
			{Name: "api", Status: "ok"},
			{Name: "store", Status: h.pingStore(r.Context())},
		},
	}
	for _, check := range resp.Checks {
		if check.Status == "error" {
			resp.Ready = false
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}

func (h *Handler) pingStore(ctx context.Context) string {
	if h.db == nil {
		return "not_configured"
	}
	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// StatusResponse is the single-call summary polled by monitoring.
type StatusResponse struct {
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	PingMS        int64   `json:"ping_ms"`
	Store         string  `json:"store"`
	Goroutines    int     `json:"goroutines"`
	MemoryMB      float64 `json:"memory_mb"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	store := h.pingStore(r.Context())
	ping := time.Since(start)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "ok"
	if store == "error" {
		status = "degraded"
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, StatusResponse{
		Service:       h.service,
		Version:       h.version,
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		PingMS:        ping.Milliseconds(),
		Store:         store,
		Goroutines:    runtime.NumGoroutine(),
		MemoryMB:      float64(mem.Alloc>>10) / 1024,
	})
}
