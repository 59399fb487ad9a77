package handler

import (
	"context"
	"net/http"

	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionService interface {
	ListMine(ctx context.Context, userID string, q service.SubmissionQuery) (*common.PageResponse[model.Submission], error)
}

type SubmissionHandler struct {
	submissionService SubmissionService
}

func NewSubmissionHandler(ss SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterRoutes expects an authenticated router.
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listMine)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := h.submissionService.ListMine(r.Context(), userID, service.SubmissionQuery{
		Page:     parsePositiveInt(q.Get("page"), 1),
		PageSize: parsePositiveInt(q.Get("pageSize"), 20),
		Platform: q.Get("platform"),
		Verdict:  q.Get("verdict"),
	})
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}
