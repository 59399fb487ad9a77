package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cpdash/internal/app/coach"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticInsights struct{ report coach.Report }

func (s staticInsights) Insights(context.Context, string) (*coach.Report, error) {
	r := s.report
	return &r, nil
}

func sampleReport() coach.Report {
	return coach.Report{Score: 42.5, Level: coach.LevelBeginner, Recommendations: []string{"Practice graphs."}}
}

func TestMentorStreamsModelReply(t *testing.T) {
	chats := &fakeChats{messages: []model.ChatMessage{
		{Role: model.ChatRoleUser, Content: "hi"},
		{Role: model.ChatRoleAssistant, Content: "hello"},
	}}
	m := &fakeModel{enabled: true, chunks: []string{"Try ", "BFS."}}
	s := NewMentorService(staticInsights{sampleReport()}, chats, m, 10, zap.NewNop())

	var streamed []string
	reply, err := s.Chat(context.Background(), "u1", ChatRequest{Message: "  what next?  "}, func(tok string) error {
		streamed = append(streamed, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Try BFS.", reply.Content)
	assert.Equal(t, []string{"Try ", "BFS."}, streamed)

	require.Len(t, m.got, 4)
	assert.Equal(t, model.ChatRoleSystem, m.got[0].Role)
	assert.Contains(t, m.got[0].Content, "Composite score 42.5/100 (Beginner)")
	assert.Equal(t, "hi", m.got[1].Content)
	assert.Equal(t, "hello", m.got[2].Content)
	assert.Equal(t, "what next?", m.got[3].Content)

	require.Len(t, chats.messages, 4)
	assert.Equal(t, model.ChatRoleUser, chats.messages[2].Role)
	assert.Equal(t, model.ChatRoleAssistant, chats.messages[3].Role)
	assert.Equal(t, "Try BFS.", chats.messages[3].Content)
}

func TestMentorOfflineRepliesWithSummary(t *testing.T) {
	chats := &fakeChats{}
	s := NewMentorService(staticInsights{sampleReport()}, chats, &fakeModel{}, 10, zap.NewNop())

	var streamed string
	reply, err := s.Chat(context.Background(), "u1", ChatRequest{Message: "how am I doing?"}, func(tok string) error {
		streamed += tok
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, coach.Summary(sampleReport()), reply.Content)
	assert.Equal(t, reply.Content, streamed)
	assert.Len(t, chats.messages, 2)
}

func TestMentorRejectsEmptyMessage(t *testing.T) {
	s := NewMentorService(staticInsights{sampleReport()}, &fakeChats{}, &fakeModel{}, 10, zap.NewNop())
	_, err := s.Chat(context.Background(), "u1", ChatRequest{Message: "   "}, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMentorMessageLimitCountsCharacters(t *testing.T) {
	chats := &fakeChats{}
	s := NewMentorService(staticInsights{sampleReport()}, chats, &fakeModel{}, 10, zap.NewNop())

	// 4000 characters, 12000 bytes.
	_, err := s.Chat(context.Background(), "u1", ChatRequest{Message: strings.Repeat("图", maxChatMessageLen)}, nil)
	require.NoError(t, err)
	assert.Len(t, chats.messages, 2)

	_, err = s.Chat(context.Background(), "u1", ChatRequest{Message: strings.Repeat("图", maxChatMessageLen+1)}, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Len(t, chats.messages, 2)
}

func TestMentorModelFailureWithoutOutput(t *testing.T) {
	chats := &fakeChats{}
	m := &fakeModel{enabled: true, err: errors.New("connection refused")}
	s := NewMentorService(staticInsights{sampleReport()}, chats, m, 10, zap.NewNop())

	_, err := s.Chat(context.Background(), "u1", ChatRequest{Message: "hi"}, nil)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	require.Len(t, chats.messages, 1, "only the user message is stored")
}

func TestMentorKeepsPartialReply(t *testing.T) {
	chats := &fakeChats{}
	m := &fakeModel{enabled: true, chunks: []string{"Partial"}, err: errors.New("stream reset")}
	s := NewMentorService(staticInsights{sampleReport()}, chats, m, 10, zap.NewNop())

	reply, err := s.Chat(context.Background(), "u1", ChatRequest{Message: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Partial", reply.Content)
}

func TestMentorHistoryIsBounded(t *testing.T) {
	chats := &fakeChats{}
	for i := 0; i < 6; i++ {
		chats.messages = append(chats.messages, model.ChatMessage{Role: model.ChatRoleUser, Content: "m"})
	}
	s := NewMentorService(staticInsights{}, chats, nil, 4, zap.NewNop())
	history, err := s.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}
