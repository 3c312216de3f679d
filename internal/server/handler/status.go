package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// StatusHandler serves the scanner status snapshot: queue depth, cache size,
// and process uptime.
type StatusHandler struct {
	queue     domain.JobQueue
	cache     domain.Cache
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(q domain.JobQueue, c domain.Cache, startedAt time.Time, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{queue: q, cache: c, startedAt: startedAt, logger: logger}
}

// GetStatus returns the current queue and cache statistics.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qs, err := h.queue.Stats(ctx)
	if err != nil {
		h.logger.Error("queue stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "queue stats unavailable")
		return
	}
	cs, err := h.cache.Stats(ctx)
	if err != nil {
		h.logger.Error("cache stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cache stats unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"queue":          qs,
		"cache":          cs,
	})
}
