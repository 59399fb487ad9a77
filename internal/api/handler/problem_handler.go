package handler

import (
	"context"
	"net/http"

	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemService interface {
	ListProblems(ctx context.Context, q service.ProblemQuery) (*common.PageResponse[model.Problem], error)
	GetProblem(ctx context.Context, id string) (*model.Problem, error)
}

type ProblemHandler struct {
	problemService ProblemService
}

func NewProblemHandler(ps ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)          // GET /api/v1/problems?platform=leetcode&difficulty=hard&tags=dp,graphs
	r.Get("/{problemID}", h.getProblem) // GET /api/v1/problems/{id}
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.problemService.ListProblems(r.Context(), service.ProblemQuery{
		Page:       parsePositiveInt(q.Get("page"), 1),
		PageSize:   parsePositiveInt(q.Get("pageSize"), 20),
		Platform:   q.Get("platform"),
		Difficulty: q.Get("difficulty"),
		Tags:       parseCommaSeparated(q.Get("tags")),
		Search:     q.Get("search"),
	})
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
