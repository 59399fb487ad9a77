package handler

import (
	"context"
	"net/http"

	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProfileService interface {
	List(ctx context.Context, userID string) ([]model.PlatformProfile, error)
	Link(ctx context.Context, userID, platform string, req service.LinkProfileRequest) (*model.PlatformProfile, error)
	Unlink(ctx context.Context, userID, platform string) error
}

type ProfileHandler struct {
	profileService ProfileService
}

func NewProfileHandler(ps ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: ps}
}

// RegisterRoutes expects an authenticated router.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/{platform}", h.link)
	r.Delete("/{platform}", h.unlink)
}

func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profiles, err := h.profileService.List(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) link(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.LinkProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.profileService.Link(r.Context(), userID, chi.URLParam(r, "platform"), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) unlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.profileService.Unlink(r.Context(), userID, chi.URLParam(r, "platform")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondNoContent(w)
}
