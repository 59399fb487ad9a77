package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"cpdash/internal/app/coach"
	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CoachService interface {
	Insights(ctx context.Context, userID string) (*coach.Report, error)
}

type MentorService interface {
	Chat(ctx context.Context, userID string, req service.ChatRequest, onToken func(string) error) (*model.ChatMessage, error)
	History(ctx context.Context, userID string) ([]model.ChatMessage, error)
}

type CoachHandler struct {
	coachService  CoachService
	mentorService MentorService
}

func NewCoachHandler(cs CoachService, ms MentorService) *CoachHandler {
	return &CoachHandler{coachService: cs, mentorService: ms}
}

func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Get("/insights", h.insights)
	r.Post("/chat", h.chat)
	r.Get("/chat/history", h.history)
}

func (h *CoachHandler) insights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	report, err := h.coachService.Insights(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, report)
}

// chat streams the mentor reply as server-sent events: one "token" event per
// fragment, then "done" with the stored message, then [DONE].
func (h *CoachHandler) chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	msg, err := h.mentorService.Chat(r.Context(), userID, req, func(token string) error {
		start()
		payload, _ := json.Marshal(map[string]string{"content": token})
		if err := common.WriteSSE(w, "token", string(payload)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			common.RespondWithErr(w, err)
			return
		}
		logger.Log.Warn("mentor stream aborted", zap.String("user_id", userID), zap.Error(err))
		payload, _ := json.Marshal(map[string]string{"message": err.Error()})
		_ = common.WriteSSE(w, "error", string(payload))
		flusher.Flush()
		return
	}

	start()
	payload, _ := json.Marshal(msg)
	_ = common.WriteSSE(w, "done", string(payload))
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

func (h *CoachHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	msgs, err := h.mentorService.History(r.Context(), userID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, msgs)
}
