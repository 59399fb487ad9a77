package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"cpdash/internal/collector"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/llm"
)

// Fakes embed the repository interface so unimplemented methods panic if reached.

type fakeProfiles struct {
	repository.ProfileRepository
	mu       sync.Mutex
	profiles []model.PlatformProfile
	updated  []model.PlatformProfile
	deleted  []model.Platform
}

func (f *fakeProfiles) ListByUser(context.Context, string) ([]model.PlatformProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PlatformProfile(nil), f.profiles...), nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *model.PlatformProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, *p)
	return nil
}

func (f *fakeProfiles) UpdateStats(_ context.Context, _ *sql.Tx, p *model.PlatformProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *p)
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, _ string, p model.Platform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return nil
}

type fakeSubmissions struct {
	repository.SubmissionRepository
	facts    []model.SubmissionFact
	totals   []model.PlatformTotals
	byDiff   []model.DifficultyCount
	heatmap  model.Calendar
	verdicts map[model.SubmissionStatus]int
	solved   int

	mu       sync.Mutex
	inserted []model.Submission
	seen     map[string]bool
}

func (f *fakeSubmissions) ListFacts(context.Context, string) ([]model.SubmissionFact, error) {
	return f.facts, nil
}

func (f *fakeSubmissions) PlatformTotals(context.Context, string) ([]model.PlatformTotals, error) {
	return f.totals, nil
}

func (f *fakeSubmissions) SolvedByDifficulty(context.Context, string) ([]model.DifficultyCount, error) {
	return f.byDiff, nil
}

func (f *fakeSubmissions) DailyActivity(context.Context, string, time.Time) (model.Calendar, error) {
	return f.heatmap, nil
}

func (f *fakeSubmissions) VerdictDistribution(context.Context, string) (map[model.SubmissionStatus]int, error) {
	return f.verdicts, nil
}

func (f *fakeSubmissions) CountSolved(context.Context, *sql.Tx, string, model.Platform) (int, error) {
	return f.solved, nil
}

func (f *fakeSubmissions) Insert(_ context.Context, _ *sql.Tx, s *model.Submission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[s.ExternalID] {
		return false, nil
	}
	f.seen[s.ExternalID] = true
	f.inserted = append(f.inserted, *s)
	return true, nil
}

type fakeContests struct {
	repository.ContestRepository
	parts        []model.ContestParticipation
	contests     []model.Contest
	participated []model.ContestParticipation
}

func (f *fakeContests) ListParticipations(context.Context, string) ([]model.ContestParticipation, error) {
	return f.parts, nil
}

func (f *fakeContests) UpsertContest(_ context.Context, _ *sql.Tx, c *model.Contest) error {
	f.contests = append(f.contests, *c)
	return nil
}

func (f *fakeContests) UpsertParticipation(_ context.Context, _ *sql.Tx, p *model.ContestParticipation) error {
	f.participated = append(f.participated, *p)
	return nil
}

type fakeCalendars struct {
	repository.CalendarRepository
	mu      sync.Mutex
	caches  map[model.Platform]*model.CalendarCache
	upserts int
}

func (f *fakeCalendars) Get(_ context.Context, _ string, p model.Platform) (*model.CalendarCache, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.caches[p]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (f *fakeCalendars) Upsert(_ context.Context, _ *sql.Tx, c *model.CalendarCache) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.caches == nil {
		f.caches = map[model.Platform]*model.CalendarCache{}
	}
	f.caches[c.Platform] = c
	f.upserts++
	return nil
}

type fakeProblems struct {
	repository.ProblemRepository
	problems []model.Problem
	filter   repository.ProblemFilter
	tags     map[string][]model.Tag
	upserted []model.Problem
	tagged   map[string][]string
}

func (f *fakeProblems) ListProblems(_ context.Context, filter repository.ProblemFilter) ([]model.Problem, int, error) {
	f.filter = filter
	return f.problems, len(f.problems), nil
}

func (f *fakeProblems) GetTagsByProblemIDs(context.Context, []string) (map[string][]model.Tag, error) {
	return f.tags, nil
}

func (f *fakeProblems) Upsert(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	f.upserted = append(f.upserted, *p)
	return nil
}

func (f *fakeProblems) UpsertTag(context.Context, *sql.Tx, *model.Tag) error { return nil }

func (f *fakeProblems) SetProblemTags(_ context.Context, _ *sql.Tx, problemID string, tagIDs []string) error {
	if f.tagged == nil {
		f.tagged = map[string][]string{}
	}
	f.tagged[problemID] = tagIDs
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	values      map[string]any
	invalidated int
}

func (c *fakeCache) Get(_ context.Context, userID, view string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[userID+":"+view]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *Stats:
		*d = *(v.(*Stats))
	case *Analytics:
		*d = *(v.(*Analytics))
	default:
		return false, nil
	}
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, userID, view string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[userID+":"+view] = value
	return nil
}

func (c *fakeCache) Invalidate(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.values = nil
	return nil
}

type fakeChats struct {
	repository.ChatRepository
	messages []model.ChatMessage
}

func (f *fakeChats) Create(_ context.Context, m *model.ChatMessage) error {
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeChats) ListRecent(_ context.Context, _ string, limit int) ([]model.ChatMessage, error) {
	if len(f.messages) > limit {
		return append([]model.ChatMessage(nil), f.messages[len(f.messages)-limit:]...), nil
	}
	return append([]model.ChatMessage(nil), f.messages...), nil
}

type fakeModel struct {
	enabled bool
	chunks  []string
	err     error
	got     []llm.Message
}

func (m *fakeModel) Enabled() bool { return m.enabled }

func (m *fakeModel) StreamChat(_ context.Context, messages []llm.Message, onDelta func(string) error) (string, error) {
	m.got = messages
	full := ""
	for _, c := range m.chunks {
		full += c
		if onDelta != nil {
			if err := onDelta(c); err != nil {
				return full, err
			}
		}
	}
	return full, m.err
}

type fakeCollector struct {
	platform    model.Platform
	profile     *collector.ProfileRecord
	profileErr  error
	submissions []collector.SubmissionRecord
	contests    []collector.ContestRecord
	calendar    model.Calendar
	calendarErr error
	calls       int
}

func (c *fakeCollector) Platform() model.Platform { return c.platform }

func (c *fakeCollector) FetchProfile(context.Context, string) (*collector.ProfileRecord, error) {
	return c.profile, c.profileErr
}

func (c *fakeCollector) FetchSubmissions(context.Context, string, int) ([]collector.SubmissionRecord, error) {
	return c.submissions, nil
}

func (c *fakeCollector) FetchContests(context.Context, string) ([]collector.ContestRecord, error) {
	return c.contests, nil
}

func (c *fakeCollector) FetchCalendar(context.Context, string) (model.Calendar, error) {
	c.calls++
	return c.calendar, c.calendarErr
}

type fakeEnqueuer struct {
	calls int
	err   error
}

func (e *fakeEnqueuer) EnqueueSync(context.Context, string, string) ([]model.SyncJob, error) {
	e.calls++
	return nil, e.err
}

type fakeUsers struct {
	repository.UserRepository
	byID map[string]*model.User
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.byID == nil {
		f.byID = map[string]*model.User{}
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return common.ErrConflict
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) FindByLogin(_ context.Context, login string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == login || u.Email == strings.ToLower(login) })
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}
