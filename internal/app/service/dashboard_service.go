package service

import (
	"context"
	"time"

	"cpdash/internal/app/coach"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	statsView          = "stats"
	analyticsView      = "analytics"
	heatmapDays        = 365
	maxLeaderboardSize = 100
)

type DashboardService struct {
	profileRepo    repository.ProfileRepository
	submissionRepo repository.SubmissionRepository
	contestRepo    repository.ContestRepository
	cache          repository.DashboardCache
	log            *zap.Logger
	now            func() time.Time
}

func NewDashboardService(profileRepo repository.ProfileRepository, submissionRepo repository.SubmissionRepository, contestRepo repository.ContestRepository, cache repository.DashboardCache, log *zap.Logger) *DashboardService {
	return &DashboardService{
		profileRepo:    profileRepo,
		submissionRepo: submissionRepo,
		contestRepo:    contestRepo,
		cache:          cache,
		log:            log.Named("dashboard"),
		now:            time.Now,
	}
}

type PlatformStats struct {
	Profile        *model.PlatformProfile `json:"profile,omitempty"`
	Submissions    int                    `json:"submissions"`
	Accepted       int                    `json:"accepted"`
	Solved         int                    `json:"solved"`
	AcceptanceRate float64                `json:"acceptance_rate"`
	ByDifficulty   map[string]int         `json:"by_difficulty"`
}

type Stats struct {
	Platforms        map[model.Platform]*PlatformStats `json:"platforms"`
	TotalSolved      int                               `json:"total_solved"`
	TotalSubmissions int                               `json:"total_submissions"`
	AcceptanceRate   float64                           `json:"acceptance_rate"`
}

type Analytics struct {
	Heatmap       model.Calendar                 `json:"heatmap"`
	Verdicts      map[model.SubmissionStatus]int `json:"verdicts"`
	Topics        []coach.TopicStat              `json:"topics"`
	RatingHistory []model.ContestParticipation   `json:"rating_history"`
}

// Stats returns per-platform totals for the user's linked profiles.
func (s *DashboardService) Stats(ctx context.Context, userID string) (*Stats, error) {
	var out Stats
	if s.cached(ctx, userID, statsView, &out) {
		return &out, nil
	}

	var (
		profiles []model.PlatformProfile
		totals   []model.PlatformTotals
		byDiff   []model.DifficultyCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profiles, err = s.profileRepo.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.submissionRepo.PlatformTotals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		byDiff, err = s.submissionRepo.SolvedByDifficulty(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out = Stats{Platforms: map[model.Platform]*PlatformStats{}}
	entry := func(p model.Platform) *PlatformStats {
		ps, ok := out.Platforms[p]
		if !ok {
			ps = &PlatformStats{ByDifficulty: map[string]int{}}
			out.Platforms[p] = ps
		}
		return ps
	}
	for i := range profiles {
		entry(profiles[i].Platform).Profile = &profiles[i]
	}
	accepted := 0
	for _, t := range totals {
		ps := entry(t.Platform)
		ps.Submissions = t.Submissions
		ps.Accepted = t.Accepted
		ps.Solved = t.Solved
		ps.AcceptanceRate = round2(t.AcceptanceRate())
		out.TotalSubmissions += t.Submissions
		accepted += t.Accepted
	}
	for _, d := range byDiff {
		entry(d.Platform).ByDifficulty[string(d.Difficulty)] = d.Solved
	}
	// Profile counters cover history older than the stored submissions.
	for _, ps := range out.Platforms {
		if ps.Profile != nil && ps.Profile.SolvedCount > ps.Solved {
			ps.Solved = ps.Profile.SolvedCount
		}
		out.TotalSolved += ps.Solved
	}
	out.AcceptanceRate = round2(model.PlatformTotals{Submissions: out.TotalSubmissions, Accepted: accepted}.AcceptanceRate())

	s.store(ctx, userID, statsView, &out)
	return &out, nil
}

// Analytics returns the activity heatmap, verdict split, topic breakdown and rating history.
func (s *DashboardService) Analytics(ctx context.Context, userID string) (*Analytics, error) {
	var out Analytics
	if s.cached(ctx, userID, analyticsView, &out) {
		return &out, nil
	}

	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(heatmapDays - 1))
	var facts []model.SubmissionFact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Heatmap, err = s.submissionRepo.DailyActivity(gctx, userID, since)
		return err
	})
	g.Go(func() (err error) {
		out.Verdicts, err = s.submissionRepo.VerdictDistribution(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		facts, err = s.submissionRepo.ListFacts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.RatingHistory, err = s.contestRepo.ListParticipations(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Topics = coach.TopicStats(facts)
	if out.RatingHistory == nil {
		out.RatingHistory = []model.ContestParticipation{}
	}

	s.store(ctx, userID, analyticsView, &out)
	return &out, nil
}

func (s *DashboardService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return s.submissionRepo.GetLeaderboard(ctx, limit)
}

func (s *DashboardService) cached(ctx context.Context, userID, view string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, userID, view, dest)
	if err != nil {
		s.log.Warn("dashboard cache read failed", zap.String("user_id", userID), zap.String("view", view), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) store(ctx context.Context, userID, view string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, userID, view, value); err != nil {
		s.log.Warn("dashboard cache write failed", zap.String("user_id", userID), zap.String("view", view), zap.Error(err))
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
