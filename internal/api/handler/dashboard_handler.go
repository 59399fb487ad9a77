package handler

import (
	"context"
	"net/http"

	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type DashboardService interface {
	Stats(ctx context.Context, userID string) (*service.Stats, error)
	Analytics(ctx context.Context, userID string) (*service.Analytics, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type DashboardHandler struct {
	dashboardService DashboardService
}

func NewDashboardHandler(ds DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: ds}
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.stats)
	r.Get("/analytics", h.analytics)
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.dashboardService.Stats(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	a, err := h.dashboardService.Analytics(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, a)
}

// Leaderboard is public.
func (h *DashboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.dashboardService.Leaderboard(r.Context(), parsePositiveInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
