package handler

import (
	"context"
	"net/http"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SyncService interface {
	EnqueueSync(ctx context.Context, userID, platform string) ([]model.SyncJob, error)
	ListJobs(ctx context.Context, userID string, limit int) ([]model.SyncJob, error)
}

type SyncHandler struct {
	syncService SyncService
}

func NewSyncHandler(ss SyncService) *SyncHandler {
	return &SyncHandler{syncService: ss}
}

type syncRequest struct {
	Platform string `json:"platform,omitempty"` // Empty syncs every linked profile
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.enqueue)
	r.Get("/jobs", h.listJobs)
}

func (h *SyncHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req syncRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	jobs, err := h.syncService.EnqueueSync(r.Context(), userID, req.Platform)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, jobs)
}

func (h *SyncHandler) listJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := min(parsePositiveInt(r.URL.Query().Get("limit"), 20), 100)
	jobs, err := h.syncService.ListJobs(r.Context(), userID, limit)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, jobs)
}
