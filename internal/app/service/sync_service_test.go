package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"cpdash/internal/collector"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJobs struct {
	repository.SyncJobRepository
	created []model.SyncJob
}

func (f *fakeJobs) CreateJob(_ context.Context, _ *sql.Tx, j *model.SyncJob) error {
	f.created = append(f.created, *j)
	return nil
}

func newSyncHarness(t *testing.T, repos SyncRepos, collectors ...collector.Collector) (*SyncService, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s := NewSyncService(db, rdb, repos, collector.NewRegistry(collectors...), SyncOptions{QueueName: "q", SubmissionLimit: 100}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s, mock, mr
}

func TestEnqueueSyncPushesOneJobPerProfile(t *testing.T) {
	jobs := &fakeJobs{}
	profiles := &fakeProfiles{profiles: []model.PlatformProfile{
		{UserID: "u1", Platform: model.PlatformLeetCode},
		{UserID: "u1", Platform: model.PlatformCodeforces},
	}}
	s, mock, mr := newSyncHarness(t, SyncRepos{Jobs: jobs, Profiles: profiles})
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	out, err := s.EnqueueSync(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, model.SyncStatusQueued, out[0].Status)

	queued, err := mr.List("q")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{jobs.created[0].ID, jobs.created[1].ID}, queued)
}

func TestEnqueueSyncSinglePlatform(t *testing.T) {
	jobs := &fakeJobs{}
	profiles := &fakeProfiles{profiles: []model.PlatformProfile{
		{UserID: "u1", Platform: model.PlatformLeetCode},
		{UserID: "u1", Platform: model.PlatformCodeforces},
	}}
	s, mock, _ := newSyncHarness(t, SyncRepos{Jobs: jobs, Profiles: profiles})
	mock.ExpectBegin()
	mock.ExpectCommit()

	out, err := s.EnqueueSync(context.Background(), "u1", "codeforces")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.PlatformCodeforces, out[0].Platform)
}

func TestEnqueueSyncWithoutProfiles(t *testing.T) {
	s, _, _ := newSyncHarness(t, SyncRepos{Jobs: &fakeJobs{}, Profiles: &fakeProfiles{}})
	_, err := s.EnqueueSync(context.Background(), "u1", "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.EnqueueSync(context.Background(), "u1", "topcoder")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestEnqueueSyncRollsBackWhenPushFails(t *testing.T) {
	profiles := &fakeProfiles{profiles: []model.PlatformProfile{{UserID: "u1", Platform: model.PlatformLeetCode}}}
	s, mock, mr := newSyncHarness(t, SyncRepos{Jobs: &fakeJobs{}, Profiles: profiles})
	mr.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.EnqueueSync(context.Background(), "u1", "leetcode")
	assert.Error(t, err)
}

func TestSyncProfileStoresEverything(t *testing.T) {
	tags := []collector.TagRecord{{Name: "greedy", Slug: "greedy"}}
	problem := collector.ProblemRecord{ExternalID: "1843A", Title: "Sasha", Difficulty: model.DifficultyEasy, Tags: tags}
	fc := &fakeCollector{
		platform: model.PlatformCodeforces,
		profile:  &collector.ProfileRecord{Handle: "h", CurrentRating: 1600, MaxRating: 1700, RankLabel: "expert"},
		submissions: []collector.SubmissionRecord{
			{ExternalID: "1", Problem: problem, Verdict: model.StatusWrongAnswer, SubmittedAt: daysAgo(1)},
			{ExternalID: "2", Problem: problem, Verdict: model.StatusAccepted, SubmittedAt: daysAgo(1)},
		},
		contests: []collector.ContestRecord{{ExternalID: "1843", Name: "Round 881", OldRating: 1500, NewRating: 1600}},
		calendar: model.Calendar{model.DayKey(daysAgo(1)): 2},
	}
	profiles := &fakeProfiles{}
	subs := &fakeSubmissions{solved: 1}
	problems := &fakeProblems{}
	contests := &fakeContests{}
	cals := &fakeCalendars{}
	cache := &fakeCache{}
	s, mock, _ := newSyncHarness(t, SyncRepos{
		Profiles: profiles, Problems: problems, Submissions: subs, Contests: contests, Calendars: cals, Cache: cache,
	}, fc)
	mock.ExpectBegin()
	mock.ExpectCommit()

	profile := &model.PlatformProfile{UserID: "u1", Platform: model.PlatformCodeforces, Handle: "h"}
	res, err := s.SyncProfile(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, 2, res.NewSubmissions)
	assert.Len(t, problems.upserted, 1, "problem stored once per sync")
	for _, sub := range subs.inserted {
		assert.Equal(t, problems.upserted[0].ID, sub.ProblemID)
	}
	require.Len(t, contests.participated, 1)
	assert.Equal(t, 100, contests.participated[0].Delta())
	assert.Equal(t, 1, cals.upserts)

	require.Len(t, profiles.updated, 1)
	assert.Equal(t, 1600, profiles.updated[0].CurrentRating)
	assert.Equal(t, 1700, profiles.updated[0].MaxRating)
	assert.Equal(t, 1, profiles.updated[0].SolvedCount)
	require.NotNil(t, profiles.updated[0].LastSyncedAt)
	assert.Equal(t, 1, cache.invalidated)
}

func TestSyncProfileToleratesCalendarFailure(t *testing.T) {
	fc := &fakeCollector{
		platform:    model.PlatformLeetCode,
		profile:     &collector.ProfileRecord{Handle: "h", SolvedCount: 300},
		calendarErr: errors.New("timeout"),
	}
	profiles := &fakeProfiles{}
	cals := &fakeCalendars{}
	s, mock, _ := newSyncHarness(t, SyncRepos{
		Profiles: profiles, Problems: &fakeProblems{}, Submissions: &fakeSubmissions{}, Contests: &fakeContests{}, Calendars: cals,
	}, fc)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := s.SyncProfile(context.Background(), &model.PlatformProfile{UserID: "u1", Platform: model.PlatformLeetCode, Handle: "h"})
	require.NoError(t, err)
	assert.Zero(t, cals.upserts)
	assert.Equal(t, 300, profiles.updated[0].SolvedCount)
}
