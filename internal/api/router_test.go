package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cpdash/internal/app/coach"
	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/common/security"
	"cpdash/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuth struct{}

func (stubAuth) Signup(_ context.Context, req service.SignupRequest) (*service.AuthResponse, error) {
	if req.Username == "taken" {
		return nil, common.Errorf("failed to create user: %w", common.ErrConflict)
	}
	return &service.AuthResponse{User: &model.User{ID: "u1", Username: req.Username}, Token: "t"}, nil
}

func (stubAuth) Login(context.Context, service.LoginRequest) (*service.AuthResponse, error) {
	return nil, common.ErrUnauthorized
}

func (stubAuth) Me(_ context.Context, id string) (*model.Account, error) {
	return &model.Account{
		User:     &model.User{ID: id, Username: "alice"},
		Profiles: []model.PlatformProfile{{Platform: model.PlatformLeetCode, Handle: "alice"}},
	}, nil
}

type stubProfiles struct{ lastPlatform, lastHandle string }

func (s *stubProfiles) List(context.Context, string) ([]model.PlatformProfile, error) {
	return []model.PlatformProfile{{Platform: model.PlatformLeetCode, Handle: "alice"}}, nil
}

func (s *stubProfiles) Link(_ context.Context, userID, platform string, req service.LinkProfileRequest) (*model.PlatformProfile, error) {
	s.lastPlatform, s.lastHandle = platform, req.Handle
	if platform == "atcoder" {
		return nil, common.Errorf("unsupported platform: %w", common.ErrBadRequest)
	}
	return &model.PlatformProfile{UserID: userID, Platform: model.Platform(platform), Handle: req.Handle}, nil
}

func (s *stubProfiles) Unlink(context.Context, string, string) error { return nil }

type stubSync struct{ platform string }

func (s *stubSync) EnqueueSync(_ context.Context, userID, platform string) ([]model.SyncJob, error) {
	s.platform = platform
	return []model.SyncJob{{ID: "job-1", UserID: userID, Status: model.SyncStatusQueued}}, nil
}

func (s *stubSync) ListJobs(context.Context, string, int) ([]model.SyncJob, error) {
	return []model.SyncJob{}, nil
}

type stubDashboard struct{ limit int }

func (s *stubDashboard) Stats(context.Context, string) (*service.Stats, error) {
	return &service.Stats{TotalSolved: 42}, nil
}

func (s *stubDashboard) Analytics(context.Context, string) (*service.Analytics, error) {
	return &service.Analytics{Heatmap: model.Calendar{"2024-06-14": 1}}, nil
}

func (s *stubDashboard) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	s.limit = limit
	return []model.LeaderboardEntry{{Rank: 1, Username: "alice", ProblemsSolved: 10}}, nil
}

type stubCoach struct{}

func (stubCoach) Insights(context.Context, string) (*coach.Report, error) {
	return &coach.Report{Score: 55.5, Level: coach.LevelIntermediate}, nil
}

type stubMentor struct{ fail bool }

func (m stubMentor) Chat(_ context.Context, userID string, req service.ChatRequest, onToken func(string) error) (*model.ChatMessage, error) {
	if m.fail {
		return nil, common.Errorf("message is required: %w", common.ErrValidation)
	}
	for _, tok := range []string{"Hello", " there"} {
		if err := onToken(tok); err != nil {
			return nil, err
		}
	}
	return &model.ChatMessage{ID: "m1", UserID: userID, Role: model.ChatRoleAssistant, Content: "Hello there"}, nil
}

func (stubMentor) History(context.Context, string) ([]model.ChatMessage, error) {
	return []model.ChatMessage{{Role: model.ChatRoleUser, Content: "hi"}}, nil
}

type stubProblems struct{ q service.ProblemQuery }

func (s *stubProblems) ListProblems(_ context.Context, q service.ProblemQuery) (*common.PageResponse[model.Problem], error) {
	s.q = q
	return &common.PageResponse[model.Problem]{Items: []model.Problem{}, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *stubProblems) GetProblem(_ context.Context, id string) (*model.Problem, error) {
	if id == "missing" {
		return nil, common.ErrNotFound
	}
	return &model.Problem{ID: id}, nil
}

type stubSubmissions struct{}

func (stubSubmissions) ListMine(_ context.Context, _ string, q service.SubmissionQuery) (*common.PageResponse[model.Submission], error) {
	return &common.PageResponse[model.Submission]{Items: []model.Submission{}, Page: q.Page, PageSize: q.PageSize}, nil
}

type harness struct {
	handler   http.Handler
	token     string
	profiles  *stubProfiles
	sync      *stubSync
	dashboard *stubDashboard
	problems  *stubProblems
}

func newHarness(t *testing.T, mentor stubMentor) *harness {
	t.Helper()
	security.InitJWT([]byte("router-test-secret-0123456789abcdef"), time.Hour)
	token, _, err := security.IssueToken(security.Identity{UserID: "u1", Username: "alice", Role: model.RoleUser})
	require.NoError(t, err)

	h := &harness{
		token:     token,
		profiles:  &stubProfiles{},
		sync:      &stubSync{},
		dashboard: &stubDashboard{},
		problems:  &stubProblems{},
	}
	h.handler = NewRouter(Services{
		Auth:        stubAuth{},
		Profiles:    h.profiles,
		Sync:        h.sync,
		Dashboard:   h.dashboard,
		Coach:       stubCoach{},
		Mentor:      mentor,
		Problems:    h.problems,
		Submissions: stubSubmissions{},
	}, Options{AllowedOrigins: []string{"http://localhost:5173"}}, zap.NewNop())
	return h
}

func (h *harness) do(method, path, body string, auth bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newHarness(t, stubMentor{})
	rec := h.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthRoutes(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodPost, "/api/v1/signup", `{"username":"alice","email":"a@b.co","password":"longenough"}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/signup", `{"username":"taken"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/signup", `{not json`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/login", `{"login_field":"alice","password":"x"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/me", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/me", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var account model.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	require.NotNil(t, account.User)
	assert.Equal(t, "u1", account.ID)
	assert.Len(t, account.Profiles, 1)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, stubMentor{})
	for _, path := range []string{"/api/v1/profiles", "/api/v1/dashboard/stats", "/api/v1/coach/insights", "/api/v1/submissions", "/api/v1/sync/jobs"} {
		rec := h.do(http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestProfileRoutes(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodPut, "/api/v1/profiles/codeforces", `{"handle":"tourist"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "codeforces", h.profiles.lastPlatform)
	assert.Equal(t, "tourist", h.profiles.lastHandle)

	rec = h.do(http.MethodPut, "/api/v1/profiles/atcoder", `{"handle":"x"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/profiles/leetcode", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/profiles", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"handle":"alice"`)
}

func TestSyncRoutes(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodPost, "/api/v1/sync", "", true)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, h.sync.platform)

	rec = h.do(http.MethodPost, "/api/v1/sync", `{"platform":"leetcode"}`, true)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "leetcode", h.sync.platform)
}

func TestDashboardAndCoachRoutes(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodGet, "/api/v1/dashboard/stats", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_solved":42`)

	rec = h.do(http.MethodGet, "/api/v1/dashboard/analytics", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/coach/insights", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	var report coach.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 55.5, report.Score)

	rec = h.do(http.MethodGet, "/api/v1/coach/chat/history", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/leaderboard?limit=5", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, h.dashboard.limit)
}

func TestProblemRoutes(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodGet, "/api/v1/problems?page=2&pageSize=10&platform=codeforces&tags=dp,%20graphs", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, h.problems.q.Page)
	assert.Equal(t, 10, h.problems.q.PageSize)
	assert.Equal(t, []string{"dp", "graphs"}, h.problems.q.Tags)

	rec = h.do(http.MethodGet, "/api/v1/problems/missing", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatStreamsEvents(t *testing.T) {
	h := newHarness(t, stubMentor{})

	rec := h.do(http.MethodPost, "/api/v1/coach/chat", `{"message":"help"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))

	var events, data []string
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	assert.Equal(t, []string{"token", "token", "done"}, events)
	require.Len(t, data, 4)
	assert.JSONEq(t, `{"content":"Hello"}`, data[0])
	assert.Contains(t, data[2], `"content":"Hello there"`)
	assert.Equal(t, "[DONE]", data[3])
}

func TestChatErrorBeforeStreamIsJSON(t *testing.T) {
	h := newHarness(t, stubMentor{fail: true})
	rec := h.do(http.MethodPost, "/api/v1/coach/chat", `{"message":""}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
