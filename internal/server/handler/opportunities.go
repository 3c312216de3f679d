package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// OpportunitiesHandler serves the latest opportunity set and per-platform
// market snapshots out of the cache.
type OpportunitiesHandler struct {
	cache  domain.Cache
	logger *slog.Logger
}

// NewOpportunitiesHandler creates an OpportunitiesHandler.
func NewOpportunitiesHandler(cache domain.Cache, logger *slog.Logger) *OpportunitiesHandler {
	return &OpportunitiesHandler{cache: cache, logger: logger}
}

// ListOpportunities returns the most recent scan's profitable opportunities.
// When no scan result is cached, the list is empty and stale is true.
// GET /api/opportunities
func (h *OpportunitiesHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	var opps []domain.ArbitrageOpportunity
	found, err := h.cache.Get(r.Context(), domain.OpportunitiesKey, &opps)
	if err != nil {
		h.logger.Error("opportunities read failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	if !found {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
		"stale":         !found,
	})
}

// ListMarkets returns the cached market snapshot for one platform.
// GET /api/markets/{platform}
func (h *OpportunitiesHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	platform := domain.Platform(r.PathValue("platform"))
	if !platform.Valid() {
		writeError(w, http.StatusBadRequest, "unknown platform")
		return
	}

	var markets []domain.StandardMarket
	found, err := h.cache.Get(r.Context(), domain.MarketsKey(platform), &markets)
	if err != nil {
		h.logger.Error("markets read failed",
			slog.String("platform", string(platform)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	if !found {
		markets = []domain.StandardMarket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platform": platform,
		"markets":  markets,
		"count":    len(markets),
		"stale":    !found,
	})
}
