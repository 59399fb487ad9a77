// Package app wires repositories, collectors and services into one graph
// shared by the API server and the standalone worker.
package app

import (
	"database/sql"
	"time"

	"cpdash/internal/api"
	"cpdash/internal/app/service"
	"cpdash/internal/app/worker"
	"cpdash/internal/collector"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/config"
	"cpdash/internal/platform/llm"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Container struct {
	Auth        *service.AuthService
	Profiles    *service.ProfileService
	Sync        *service.SyncService
	Coach       *service.CoachService
	Mentor      *service.MentorService
	Dashboard   *service.DashboardService
	Problems    *service.ProblemService
	Submissions *service.SubmissionService
	Worker      *worker.SyncWorker
}

func NewContainer(cfg *config.Config, db *sql.DB, rdb *redis.Client, log *zap.Logger) *Container {
	userRepo := repository.NewPgUserRepository(db)
	profileRepo := repository.NewPgProfileRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)
	contestRepo := repository.NewPgContestRepository(db)
	calendarRepo := repository.NewPgCalendarRepository(db)
	jobRepo := repository.NewPgSyncJobRepository(db)
	chatRepo := repository.NewPgChatRepository(db)
	cache := repository.NewRedisDashboardCache(rdb, cfg.DashboardCacheTTL)

	collectors := collector.NewRegistry(
		collector.NewLeetCodeCollector(cfg.LeetCodeGraphQLURL, cfg.HTTPClientTimeout, cfg.LeetCodeRPS),
		collector.NewCodeforcesCollector(cfg.CodeforcesAPIURL, cfg.HTTPClientTimeout, cfg.CodeforcesRPS),
	)

	syncService := service.NewSyncService(db, rdb, service.SyncRepos{
		Jobs:        jobRepo,
		Profiles:    profileRepo,
		Problems:    problemRepo,
		Submissions: submissionRepo,
		Contests:    contestRepo,
		Calendars:   calendarRepo,
		Cache:       cache,
	}, collectors, service.SyncOptions{
		QueueName:       cfg.SyncQueueName,
		SubmissionLimit: cfg.SyncSubmissionLimit,
	}, log)

	coachService := service.NewCoachService(service.CoachRepos{
		Profiles:    profileRepo,
		Submissions: submissionRepo,
		Contests:    contestRepo,
		Calendars:   calendarRepo,
		Cache:       cache,
	}, syncService, cfg.CalendarStaleAfter, log)

	// Chat replies stream for longer than a collector call.
	chatModel := llm.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, 2*time.Minute)

	return &Container{
		Auth:        service.NewAuthService(userRepo, profileRepo, log),
		Profiles:    service.NewProfileService(profileRepo, cache, collectors, syncService, log),
		Sync:        syncService,
		Coach:       coachService,
		Mentor:      service.NewMentorService(coachService, chatRepo, chatModel, cfg.ChatHistoryLen, log),
		Dashboard:   service.NewDashboardService(profileRepo, submissionRepo, contestRepo, cache, log),
		Problems:    service.NewProblemService(problemRepo),
		Submissions: service.NewSubmissionService(submissionRepo),
		Worker: worker.NewSyncWorker(rdb, jobRepo, profileRepo, syncService, worker.Options{
			QueueName:   cfg.SyncQueueName,
			LockPrefix:  cfg.SyncLockPrefix,
			LockTTL:     time.Duration(cfg.SyncLockTTLSeconds) * time.Second,
			MaxAttempts: cfg.SyncMaxAttempts,
			RetryDelay:  time.Duration(cfg.SyncRetryDelaySecs) * time.Second,
		}, log),
	}
}

func (c *Container) APIServices() api.Services {
	return api.Services{
		Auth:        c.Auth,
		Profiles:    c.Profiles,
		Sync:        c.Sync,
		Dashboard:   c.Dashboard,
		Coach:       c.Coach,
		Mentor:      c.Mentor,
		Problems:    c.Problems,
		Submissions: c.Submissions,
	}
}
