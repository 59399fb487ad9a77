package service

import (
	"context"
	"errors"
	"testing"

	"cpdash/internal/collector"
	"cpdash/internal/common"
	"cpdash/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLinkStoresProfileAndQueuesSync(t *testing.T) {
	profiles := &fakeProfiles{}
	cache := &fakeCache{}
	enq := &fakeEnqueuer{}
	fc := &fakeCollector{platform: model.PlatformCodeforces, profile: &collector.ProfileRecord{Handle: "Tourist"}}
	s := NewProfileService(profiles, cache, collector.NewRegistry(fc), enq, zap.NewNop())

	p, err := s.Link(context.Background(), "u1", "Codeforces", LinkProfileRequest{Handle: " tourist "})
	require.NoError(t, err)
	assert.Equal(t, "Tourist", p.Handle, "canonical handle from upstream")
	assert.Equal(t, model.PlatformCodeforces, p.Platform)
	require.Len(t, profiles.profiles, 1)
	assert.Equal(t, 1, enq.calls)
	assert.Equal(t, 1, cache.invalidated)
}

func TestLinkUnknownHandle(t *testing.T) {
	fc := &fakeCollector{platform: model.PlatformLeetCode, profileErr: common.Errorf("user missing: %w", common.ErrNotFound)}
	s := NewProfileService(&fakeProfiles{}, nil, collector.NewRegistry(fc), &fakeEnqueuer{}, zap.NewNop())

	_, err := s.Link(context.Background(), "u1", "leetcode", LinkProfileRequest{Handle: "ghost"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLinkValidation(t *testing.T) {
	s := NewProfileService(&fakeProfiles{}, nil, collector.NewRegistry(), &fakeEnqueuer{}, zap.NewNop())

	_, err := s.Link(context.Background(), "u1", "atcoder", LinkProfileRequest{Handle: "x"})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = s.Link(context.Background(), "u1", "leetcode", LinkProfileRequest{Handle: "  "})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLinkSucceedsWhenSyncQueueDown(t *testing.T) {
	fc := &fakeCollector{platform: model.PlatformLeetCode, profile: &collector.ProfileRecord{}}
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	s := NewProfileService(&fakeProfiles{}, nil, collector.NewRegistry(fc), enq, zap.NewNop())

	p, err := s.Link(context.Background(), "u1", "leetcode", LinkProfileRequest{Handle: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Handle)
}

func TestUnlink(t *testing.T) {
	profiles := &fakeProfiles{}
	cache := &fakeCache{}
	s := NewProfileService(profiles, cache, collector.NewRegistry(), &fakeEnqueuer{}, zap.NewNop())

	require.NoError(t, s.Unlink(context.Background(), "u1", "leetcode"))
	assert.Equal(t, []model.Platform{model.PlatformLeetCode}, profiles.deleted)
	assert.Equal(t, 1, cache.invalidated)
}
