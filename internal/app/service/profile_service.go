package service

import (
	"context"
	"errors"
	"strings"

	"cpdash/internal/collector"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type syncEnqueuer interface {
	EnqueueSync(ctx context.Context, userID, platform string) ([]model.SyncJob, error)
}

type ProfileService struct {
	profileRepo repository.ProfileRepository
	cache       repository.DashboardCache
	collectors  *collector.Registry
	syncer      syncEnqueuer
	log         *zap.Logger
}

func NewProfileService(profileRepo repository.ProfileRepository, cache repository.DashboardCache, collectors *collector.Registry, syncer syncEnqueuer, log *zap.Logger) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		cache:       cache,
		collectors:  collectors,
		syncer:      syncer,
		log:         log.Named("profile"),
	}
}

type LinkProfileRequest struct {
	Handle string `json:"handle"`
}

func (s *ProfileService) List(ctx context.Context, userID string) ([]model.PlatformProfile, error) {
	return s.profileRepo.ListByUser(ctx, userID)
}

// Link verifies the handle exists upstream, stores it and queues a first sync.
func (s *ProfileService) Link(ctx context.Context, userID, rawPlatform string, req LinkProfileRequest) (*model.PlatformProfile, error) {
	platform, err := model.ParsePlatform(rawPlatform)
	if err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrBadRequest)
	}
	handle := strings.TrimSpace(req.Handle)
	if handle == "" || len(handle) > 64 {
		return nil, common.Errorf("handle must be 1-64 characters: %w", common.ErrValidation)
	}

	c, err := s.collectors.Get(platform)
	if err != nil {
		return nil, err
	}
	rec, err := c.FetchProfile(ctx, handle)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("%s handle %q does not exist: %w", platform, handle, common.ErrValidation)
		}
		return nil, err
	}

	profile := &model.PlatformProfile{
		ID:       uuid.NewString(),
		UserID:   userID,
		Platform: platform,
		Handle:   rec.Handle,
	}
	if profile.Handle == "" {
		profile.Handle = handle
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	if _, err := s.syncer.EnqueueSync(ctx, userID, string(platform)); err != nil {
		s.log.Warn("initial sync not queued", zap.String("user_id", userID), zap.String("platform", string(platform)), zap.Error(err))
	}
	s.invalidate(ctx, userID)
	return profile, nil
}

func (s *ProfileService) Unlink(ctx context.Context, userID, rawPlatform string) error {
	platform, err := model.ParsePlatform(rawPlatform)
	if err != nil {
		return common.Errorf("%v: %w", err, common.ErrBadRequest)
	}
	if err := s.profileRepo.Delete(ctx, userID, platform); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *ProfileService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("dashboard cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
