package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cpdash/internal/app/service"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"
	"cpdash/internal/platform/metrics"
	"cpdash/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type profileSyncer interface {
	SyncProfile(ctx context.Context, profile *model.PlatformProfile) (*service.SyncResult, error)
}

type Options struct {
	QueueName   string
	LockPrefix  string
	LockTTL     time.Duration
	MaxAttempts int
	PopTimeout  time.Duration
	// RetryDelay is how long a job waits before retrying. Jobs that found
	// the user lock busy wait exactly this long; failed attempts back off
	// linearly with the attempt count.
	RetryDelay time.Duration
}

// SyncWorker drains the sync queue. Jobs of the same user never run
// concurrently: each one holds a per-user Redis lock.
type SyncWorker struct {
	rdb         *redis.Client
	jobRepo     repository.SyncJobRepository
	profileRepo repository.ProfileRepository
	syncer      profileSyncer
	opts        Options
	delayedKey  string
	log         *zap.Logger
	now         func() time.Time
}

func NewSyncWorker(rdb *redis.Client, jobRepo repository.SyncJobRepository, profileRepo repository.ProfileRepository, syncer profileSyncer, opts Options, log *zap.Logger) *SyncWorker {
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Second
	}
	return &SyncWorker{
		rdb:         rdb,
		jobRepo:     jobRepo,
		profileRepo: profileRepo,
		syncer:      syncer,
		opts:        opts,
		delayedKey:  opts.QueueName + ":delayed",
		log:         log.Named("sync_worker"),
		now:         time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	w.log.Info("sync worker started", zap.String("queue", w.opts.QueueName))
	for {
		if ctx.Err() != nil {
			w.log.Info("sync worker stopping")
			return
		}
		if _, err := queue.PromoteDue(ctx, w.rdb, w.delayedKey, w.opts.QueueName, w.now()); err != nil && ctx.Err() == nil {
			w.log.Error("failed to promote delayed sync jobs", zap.String("queue", w.opts.QueueName), zap.Error(err))
		}
		jobID, err := queue.Pop(ctx, w.rdb, w.opts.QueueName, w.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("failed to pop from sync queue", zap.String("queue", w.opts.QueueName), zap.Error(err))
			sleepCtx(ctx, 2*time.Second)
			continue
		}
		if jobID == "" {
			continue
		}
		w.ProcessJob(ctx, jobID)
	}
}

// ProcessJob runs one queued job to a terminal state or puts it back in the queue.
func (w *SyncWorker) ProcessJob(ctx context.Context, jobID string) {
	log := w.log.With(zap.String("job_id", jobID))

	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		log.Error("failed to load sync job", zap.Error(err))
		return
	}
	if job.IsTerminal() {
		log.Info("sync job already finished", zap.String("status", job.Status))
		return
	}
	log = log.With(zap.String("user_id", job.UserID), zap.String("platform", string(job.Platform)))

	lock, ok, err := queue.TryLock(ctx, w.rdb, w.opts.LockPrefix+job.UserID, w.opts.LockTTL)
	if err != nil {
		log.Error("failed to attempt sync lock", zap.Error(err))
		attempts, incErr := w.jobRepo.IncrementJobAttempts(ctx, nil, job.ID)
		if incErr != nil {
			log.Error("failed to count sync attempt", zap.Error(incErr))
			return
		}
		w.retryLater(ctx, log, job, attempts, err)
		return
	}
	if !ok {
		// Another job for this user is running; waiting costs no attempt.
		log.Info("user sync already running, delaying job", zap.Duration("delay", w.opts.RetryDelay))
		w.schedule(ctx, log, job.ID, w.opts.RetryDelay)
		return
	}
	if _, err := w.jobRepo.IncrementJobAttempts(ctx, nil, job.ID); err != nil {
		log.Error("failed to count sync attempt", zap.Error(err))
	}
	defer func() {
		held, err := lock.Release(context.WithoutCancel(ctx))
		switch {
		case err != nil:
			log.Error("failed to release sync lock", zap.String("key", lock.Key()), zap.Error(err))
		case !held:
			log.Warn("sync lock expired before release", zap.String("key", lock.Key()))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.opts.LockTTL)
	defer cancel()
	w.run(jobCtx, log, job)
}

func (w *SyncWorker) run(ctx context.Context, log *zap.Logger, job *model.SyncJob) {
	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.SyncStatusProcessing, nil); err != nil {
		log.Error("failed to mark sync job processing", zap.Error(err))
	}

	profile, err := w.profileRepo.FindByUserAndPlatform(ctx, job.UserID, job.Platform)
	if errors.Is(err, common.ErrNotFound) {
		log.Info("profile unlinked before sync, skipping")
		w.finish(ctx, log, job.ID, model.SyncStatusSkipped, nil)
		return
	}
	if err != nil {
		w.finish(ctx, log, job.ID, model.SyncStatusFailed, err)
		return
	}

	started := time.Now()
	res, err := w.syncer.SyncProfile(ctx, profile)
	if err != nil {
		w.finish(ctx, log, job.ID, model.SyncStatusFailed, err)
		return
	}
	log.Info("sync job completed",
		zap.Int("new_submissions", res.NewSubmissions),
		zap.Int("contests", res.Contests),
		zap.Duration("took", time.Since(started)))
	w.finish(ctx, log, job.ID, model.SyncStatusCompleted, nil)
}

// retryLater schedules the job again after a linear backoff, or fails it once
// it has used up its attempts.
func (w *SyncWorker) retryLater(ctx context.Context, log *zap.Logger, job *model.SyncJob, attempts int, cause error) {
	if attempts >= w.opts.MaxAttempts {
		w.finish(ctx, log, job.ID, model.SyncStatusFailed, fmt.Errorf("gave up after %d attempts: %w", attempts, cause))
		return
	}
	w.schedule(ctx, log, job.ID, time.Duration(attempts)*w.opts.RetryDelay)
}

func (w *SyncWorker) schedule(ctx context.Context, log *zap.Logger, jobID string, delay time.Duration) {
	if err := queue.Schedule(context.WithoutCancel(ctx), w.rdb, w.delayedKey, jobID, w.now().Add(delay)); err != nil {
		log.Error("failed to re-queue sync job", zap.Error(err))
	}
}

func (w *SyncWorker) finish(ctx context.Context, log *zap.Logger, jobID, status string, cause error) {
	var lastError *string
	if cause != nil {
		msg := cause.Error()
		lastError = &msg
		log.Error("sync job failed", zap.Error(cause))
	}
	if err := w.jobRepo.UpdateJobStatus(context.WithoutCancel(ctx), nil, jobID, status, lastError); err != nil {
		log.Error("failed to record sync job status", zap.String("status", status), zap.Error(err))
	}
	metrics.SyncJobs.WithLabelValues(status).Inc()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
