package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. store may be nil when no backing
// store is configured.
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HealthCheck responds with the process and backing-store status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Warn("health check store ping failed", slog.String("error", err.Error()))
			resp["status"] = "degraded"
			resp["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			resp["redis"] = "up"
		}
	}

	writeJSON(w, status, resp)
}
