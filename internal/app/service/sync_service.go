package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cpdash/internal/collector"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/tracing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SyncOptions struct {
	QueueName       string
	SubmissionLimit int
}

type SyncService struct {
	db             *sql.DB
	rdb            *redis.Client
	jobRepo        repository.SyncJobRepository
	profileRepo    repository.ProfileRepository
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	contestRepo    repository.ContestRepository
	calendarRepo   repository.CalendarRepository
	cache          repository.DashboardCache
	collectors     *collector.Registry
	opts           SyncOptions
	log            *zap.Logger
	now            func() time.Time
}

type SyncRepos struct {
	Jobs        repository.SyncJobRepository
	Profiles    repository.ProfileRepository
	Problems    repository.ProblemRepository
	Submissions repository.SubmissionRepository
	Contests    repository.ContestRepository
	Calendars   repository.CalendarRepository
	Cache       repository.DashboardCache
}

func NewSyncService(db *sql.DB, rdb *redis.Client, repos SyncRepos, collectors *collector.Registry, opts SyncOptions, log *zap.Logger) *SyncService {
	return &SyncService{
		db:             db,
		rdb:            rdb,
		jobRepo:        repos.Jobs,
		profileRepo:    repos.Profiles,
		problemRepo:    repos.Problems,
		submissionRepo: repos.Submissions,
		contestRepo:    repos.Contests,
		calendarRepo:   repos.Calendars,
		cache:          repos.Cache,
		collectors:     collectors,
		opts:           opts,
		log:            log.Named("sync"),
		now:            time.Now,
	}
}

// EnqueueSync queues one job per linked profile, or only for platform when it is set.
func (s *SyncService) EnqueueSync(ctx context.Context, userID, platform string) ([]model.SyncJob, error) {
	profiles, err := s.profileRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load profiles: %w", err)
	}

	var only model.Platform
	if platform != "" {
		if only, err = model.ParsePlatform(platform); err != nil {
			return nil, common.Errorf("%v: %w", err, common.ErrBadRequest)
		}
	}

	jobs := []model.SyncJob{}
	for _, p := range profiles {
		if only != "" && p.Platform != only {
			continue
		}
		job, err := s.enqueue(ctx, userID, p.Platform)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if len(jobs) == 0 {
		return nil, common.Errorf("no linked profile to sync: %w", common.ErrNotFound)
	}
	return jobs, nil
}

// enqueue creates the job row and pushes its ID in one transaction so a failed
// push leaves no orphaned row.
func (s *SyncService) enqueue(ctx context.Context, userID string, platform model.Platform) (*model.SyncJob, error) {
	job := &model.SyncJob{
		ID:       uuid.NewString(),
		UserID:   userID,
		Platform: platform,
		Status:   model.SyncStatusQueued,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction for sync job: %w", err)
	}
	defer tx.Rollback()

	if err := s.jobRepo.CreateJob(ctx, tx, job); err != nil {
		return nil, common.Errorf("failed to create sync job in DB: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.opts.QueueName, job.ID).Err(); err != nil {
		return nil, common.Errorf("failed to push sync job ID to Redis queue: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit sync job: %w", err)
	}

	now := s.now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	s.log.Info("sync job enqueued", zap.String("job_id", job.ID), zap.String("user_id", userID), zap.String("platform", string(platform)))
	return job, nil
}

func (s *SyncService) ListJobs(ctx context.Context, userID string, limit int) ([]model.SyncJob, error) {
	return s.jobRepo.ListByUser(ctx, userID, limit)
}

type SyncResult struct {
	NewSubmissions int
	Submissions    int
	Contests       int
	CalendarDays   int
}

type fetched struct {
	profile     *collector.ProfileRecord
	submissions []collector.SubmissionRecord
	contests    []collector.ContestRecord
	calendar    model.Calendar
}

// SyncProfile pulls the profile's platform data and stores it in one
// transaction. A calendar fetch failure is logged and does not fail the sync.
func (s *SyncService) SyncProfile(ctx context.Context, profile *model.PlatformProfile) (*SyncResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "sync.profile")
	defer span.End()
	span.SetAttributes(attribute.String("platform", string(profile.Platform)), attribute.String("user_id", profile.UserID))

	c, err := s.collectors.Get(profile.Platform)
	if err != nil {
		return nil, err
	}

	var f fetched
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		f.profile, err = c.FetchProfile(gctx, profile.Handle)
		return err
	})
	g.Go(func() (err error) {
		f.submissions, err = c.FetchSubmissions(gctx, profile.Handle, s.opts.SubmissionLimit)
		return err
	})
	g.Go(func() (err error) {
		f.contests, err = c.FetchContests(gctx, profile.Handle)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching %s data for %s: %w", profile.Platform, profile.Handle, err)
	}

	if cal, err := c.FetchCalendar(ctx, profile.Handle); err != nil {
		s.log.Warn("calendar fetch failed, keeping previous cache",
			zap.String("platform", string(profile.Platform)), zap.String("handle", profile.Handle), zap.Error(err))
	} else {
		f.calendar = cal
	}

	res, err := s.store(ctx, profile, &f)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, profile.UserID); err != nil {
			s.log.Warn("dashboard cache invalidation failed", zap.String("user_id", profile.UserID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *SyncService) store(ctx context.Context, profile *model.PlatformProfile, f *fetched) (*SyncResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	res := &SyncResult{Submissions: len(f.submissions), Contests: len(f.contests), CalendarDays: len(f.calendar)}
	problemIDs := map[string]string{}
	tagIDs := map[string]string{}

	for _, rec := range f.submissions {
		problemID, ok := problemIDs[rec.Problem.ExternalID]
		if !ok {
			problemID, err = s.storeProblem(ctx, tx, profile.Platform, rec.Problem, tagIDs)
			if err != nil {
				return nil, err
			}
			problemIDs[rec.Problem.ExternalID] = problemID
		}

		inserted, err := s.submissionRepo.Insert(ctx, tx, &model.Submission{
			ID:          uuid.NewString(),
			UserID:      profile.UserID,
			Platform:    profile.Platform,
			ExternalID:  rec.ExternalID,
			ProblemID:   problemID,
			Verdict:     rec.Verdict,
			RawVerdict:  rec.RawVerdict,
			Language:    rec.Language,
			SubmittedAt: rec.SubmittedAt,
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			res.NewSubmissions++
		}
	}

	for _, rec := range f.contests {
		contest := &model.Contest{
			ID:         uuid.NewString(),
			Platform:   profile.Platform,
			ExternalID: rec.ExternalID,
			Name:       rec.Name,
			StartTime:  rec.StartTime,
		}
		if err := s.contestRepo.UpsertContest(ctx, tx, contest); err != nil {
			return nil, err
		}
		if err := s.contestRepo.UpsertParticipation(ctx, tx, &model.ContestParticipation{
			ID:             uuid.NewString(),
			UserID:         profile.UserID,
			ContestID:      contest.ID,
			Platform:       profile.Platform,
			Rank:           rec.Rank,
			OldRating:      rec.OldRating,
			NewRating:      rec.NewRating,
			ParticipatedAt: rec.ParticipatedAt,
		}); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	if f.calendar != nil {
		if err := s.calendarRepo.Upsert(ctx, tx, &model.CalendarCache{
			UserID: profile.UserID, Platform: profile.Platform, Calendar: f.calendar, FetchedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	solved, err := s.submissionRepo.CountSolved(ctx, tx, profile.UserID, profile.Platform)
	if err != nil {
		return nil, err
	}
	profile.CurrentRating = f.profile.CurrentRating
	profile.MaxRating = max(profile.MaxRating, f.profile.MaxRating, f.profile.CurrentRating)
	profile.RankLabel = f.profile.RankLabel
	profile.SolvedCount = max(solved, f.profile.SolvedCount)
	profile.LastSyncedAt = &now
	if err := s.profileRepo.UpdateStats(ctx, tx, profile); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit sync: %w", err)
	}
	s.log.Info("profile synced",
		zap.String("user_id", profile.UserID),
		zap.String("platform", string(profile.Platform)),
		zap.Int("submissions", res.Submissions),
		zap.Int("new_submissions", res.NewSubmissions),
		zap.Int("contests", res.Contests))
	return res, nil
}

// storeProblem upserts the problem and its tags and returns the stored problem ID.
func (s *SyncService) storeProblem(ctx context.Context, tx *sql.Tx, platform model.Platform, rec collector.ProblemRecord, tagIDs map[string]string) (string, error) {
	p := &model.Problem{
		ID:         uuid.NewString(),
		Platform:   platform,
		ExternalID: rec.ExternalID,
		Slug:       rec.Slug,
		Title:      rec.Title,
		Difficulty: rec.Difficulty,
		Rating:     rec.Rating,
		URL:        rec.URL,
	}
	if err := s.problemRepo.Upsert(ctx, tx, p); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		id, ok := tagIDs[t.Slug]
		if !ok {
			tag := &model.Tag{ID: uuid.NewString(), Name: t.Name, Slug: t.Slug}
			if err := s.problemRepo.UpsertTag(ctx, tx, tag); err != nil {
				return "", err
			}
			id = tag.ID
			tagIDs[t.Slug] = id
		}
		ids = append(ids, id)
	}
	if err := s.problemRepo.SetProblemTags(ctx, tx, p.ID, ids); err != nil {
		return "", err
	}
	return p.ID, nil
}

// RefreshCalendar refetches and caches a profile's calendar outside a full sync.
func (s *SyncService) RefreshCalendar(ctx context.Context, profile *model.PlatformProfile) (model.Calendar, error) {
	c, err := s.collectors.Get(profile.Platform)
	if err != nil {
		return nil, err
	}
	cal, err := c.FetchCalendar(ctx, profile.Handle)
	if err != nil {
		return nil, err
	}
	if err := s.calendarRepo.Upsert(ctx, nil, &model.CalendarCache{
		UserID: profile.UserID, Platform: profile.Platform, Calendar: cal, FetchedAt: s.now().UTC(),
	}); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("calendar cache write failed", zap.String("user_id", profile.UserID), zap.Error(err))
		}
	}
	return cal, nil
}
