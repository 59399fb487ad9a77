package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cpdash/internal/app/coach"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/llm"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxChatMessageLen = 4000

type insightsProvider interface {
	Insights(ctx context.Context, userID string) (*coach.Report, error)
}

type chatModel interface {
	Enabled() bool
	StreamChat(ctx context.Context, messages []llm.Message, onDelta func(string) error) (string, error)
}

type MentorService struct {
	insights   insightsProvider
	chatRepo   repository.ChatRepository
	model      chatModel
	historyLen int
	log        *zap.Logger
	now        func() time.Time
}

func NewMentorService(insights insightsProvider, chatRepo repository.ChatRepository, model chatModel, historyLen int, log *zap.Logger) *MentorService {
	if historyLen <= 0 {
		historyLen = 10
	}
	return &MentorService{
		insights:   insights,
		chatRepo:   chatRepo,
		model:      model,
		historyLen: historyLen,
		log:        log.Named("mentor"),
		now:        time.Now,
	}
}

type ChatRequest struct {
	Message string `json:"message"`
}

const mentorPrompt = `You are a competitive programming coach. Answer the user's questions about their practice using the profile below. Be concrete and brief, and suggest specific topics or problem types when useful.

Profile:
`

// Chat answers one user message, passing reply fragments to onToken as they
// arrive. Both sides of the exchange are stored.
func (s *MentorService) Chat(ctx context.Context, userID string, req ChatRequest, onToken func(string) error) (*model.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, common.Errorf("message is required: %w", common.ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxChatMessageLen {
		return nil, common.Errorf("message exceeds %d characters: %w", maxChatMessageLen, common.ErrValidation)
	}

	report, err := s.insights.Insights(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.chatRepo.ListRecent(ctx, userID, s.historyLen)
	if err != nil {
		return nil, err
	}

	if err := s.chatRepo.Create(ctx, &model.ChatMessage{
		ID: uuid.NewString(), UserID: userID, Role: model.ChatRoleUser, Content: text,
	}); err != nil {
		return nil, err
	}

	var reply string
	if s.model == nil || !s.model.Enabled() {
		reply = coach.Summary(*report)
		if onToken != nil {
			if err := onToken(reply); err != nil {
				return nil, err
			}
		}
	} else {
		messages := make([]llm.Message, 0, len(history)+2)
		messages = append(messages, llm.Message{Role: model.ChatRoleSystem, Content: mentorPrompt + coach.Summary(*report)})
		for _, m := range history {
			messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
		}
		messages = append(messages, llm.Message{Role: model.ChatRoleUser, Content: text})

		reply, err = s.model.StreamChat(ctx, messages, onToken)
		if err != nil {
			s.log.Warn("mentor reply failed", zap.String("user_id", userID), zap.Int("partial_len", len(reply)), zap.Error(err))
			if reply == "" {
				return nil, common.Errorf("mentor model unavailable: %v: %w", err, common.ErrServiceUnavailable)
			}
		}
	}

	answer := &model.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      model.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: s.now().UTC(),
	}
	// A reply already streamed to the client is kept even if the request was cancelled.
	if err := s.chatRepo.Create(context.WithoutCancel(ctx), answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *MentorService) History(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	return s.chatRepo.ListRecent(ctx, userID, s.historyLen)
}
