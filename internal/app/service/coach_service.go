package service

import (
	"context"
	"errors"
	"time"

	"cpdash/internal/app/coach"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/metrics"
	"cpdash/internal/platform/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const insightsView = "insights"

// CalendarFetcher refetches a profile's external submission calendar.
type CalendarFetcher interface {
	RefreshCalendar(ctx context.Context, profile *model.PlatformProfile) (model.Calendar, error)
}

type CoachService struct {
	profileRepo    repository.ProfileRepository
	submissionRepo repository.SubmissionRepository
	contestRepo    repository.ContestRepository
	calendarRepo   repository.CalendarRepository
	cache          repository.DashboardCache
	calendars      CalendarFetcher
	staleAfter     time.Duration
	log            *zap.Logger
	now            func() time.Time
}

type CoachRepos struct {
	Profiles    repository.ProfileRepository
	Submissions repository.SubmissionRepository
	Contests    repository.ContestRepository
	Calendars   repository.CalendarRepository
	Cache       repository.DashboardCache
}

func NewCoachService(repos CoachRepos, calendars CalendarFetcher, staleAfter time.Duration, log *zap.Logger) *CoachService {
	return &CoachService{
		profileRepo:    repos.Profiles,
		submissionRepo: repos.Submissions,
		contestRepo:    repos.Contests,
		calendarRepo:   repos.Calendars,
		cache:          repos.Cache,
		calendars:      calendars,
		staleAfter:     staleAfter,
		log:            log.Named("coach"),
		now:            time.Now,
	}
}

type userData struct {
	profiles       []model.PlatformProfile
	facts          []model.SubmissionFact
	participations []model.ContestParticipation
	calendars      map[model.Platform]*model.CalendarCache
}

// load runs the independent reads in parallel.
func (s *CoachService) load(ctx context.Context, userID string) (*userData, error) {
	d := &userData{calendars: map[model.Platform]*model.CalendarCache{}}
	cached := make([]*model.CalendarCache, len(model.SupportedPlatforms))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.profiles, err = s.profileRepo.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.facts, err = s.submissionRepo.ListFacts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.participations, err = s.contestRepo.ListParticipations(gctx, userID)
		return err
	})
	for i, platform := range model.SupportedPlatforms {
		g.Go(func() error {
			c, err := s.calendarRepo.Get(gctx, userID, platform)
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			cached[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, common.Errorf("loading coach data: %w", err)
	}
	for _, c := range cached {
		if c != nil {
			d.calendars[c.Platform] = c
		}
	}
	return d, nil
}

// Insights computes the user's coaching report, served from the dashboard cache when fresh.
func (s *CoachService) Insights(ctx context.Context, userID string) (*coach.Report, error) {
	if s.cache != nil {
		var cached coach.Report
		if hit, err := s.cache.Get(ctx, userID, insightsView, &cached); err != nil {
			s.log.Warn("insights cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	report, err := s.compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, insightsView, report); err != nil {
			s.log.Warn("insights cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return report, nil
}

func (s *CoachService) compute(ctx context.Context, userID string) (*coach.Report, error) {
	ctx, span := tracing.Tracer().Start(ctx, "coach.insights")
	defer span.End()

	d, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	in := coach.Input{
		Now:            now,
		Submissions:    d.facts,
		Participations: d.participations,
		Profiles:       d.profiles,
		Calendar:       model.Calendar{},
	}
	for _, c := range d.calendars {
		in.Calendar.Merge(c.Calendar)
	}
	if s.needsCalendarCounts(now, d) {
		if cal, source, ok := s.externalCalendar(ctx, now, d); ok {
			in.Calendar, in.CountsSource = cal, source
		}
	}

	report := coach.Compute(in)
	metrics.CalendarFallbacks.WithLabelValues(report.Progress.CountsSource).Inc()
	metrics.CompositeScore.Observe(report.Score)
	span.SetAttributes(
		attribute.Float64("score", report.Score),
		attribute.String("counts_source", report.Progress.CountsSource),
	)
	return &report, nil
}

// needsCalendarCounts reports whether local activity counts cannot be trusted:
// a linked profile has not synced recently, or nothing was stored for the month.
func (s *CoachService) needsCalendarCounts(now time.Time, d *userData) bool {
	if len(d.profiles) == 0 {
		return false
	}
	if coach.LocalCalendar(d.facts).CountLastDays(now, 30) == 0 {
		return true
	}
	for _, profile := range d.profiles {
		if profile.IsStale(now, s.staleAfter) {
			return true
		}
	}
	return false
}

// externalCalendar merges every linked profile's external calendar: the cached
// one when fresh, otherwise a live refetch. ok is false when any profile's
// calendar is unavailable, in which case local counts stay.
func (s *CoachService) externalCalendar(ctx context.Context, now time.Time, d *userData) (model.Calendar, string, bool) {
	merged := model.Calendar{}
	source := coach.CountsSourceCache
	for i := range d.profiles {
		profile := &d.profiles[i]
		if c, ok := d.calendars[profile.Platform]; ok && now.Sub(c.FetchedAt) <= s.staleAfter {
			merged.Merge(c.Calendar)
			continue
		}
		if s.calendars == nil {
			return nil, "", false
		}
		cal, err := s.calendars.RefreshCalendar(ctx, profile)
		if err != nil {
			s.log.Warn("calendar refetch failed, using local counts",
				zap.String("user_id", profile.UserID),
				zap.String("platform", string(profile.Platform)),
				zap.Error(err))
			return nil, "", false
		}
		merged.Merge(cal)
		source = coach.CountsSourceExternal
	}
	return merged, source, true
}
