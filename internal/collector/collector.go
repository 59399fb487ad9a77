// Package collector pulls raw activity from competitive-programming judges and
// normalizes it into platform-independent records.
package collector

import (
	"context"
	"fmt"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type ProfileRecord struct {
	Handle        string
	CurrentRating int
	MaxRating     int
	RankLabel     string
	SolvedCount   int // As reported by the platform, 0 when it does not expose one
	Contests      int
}

type TagRecord struct {
	Name string
	Slug string
}

type ProblemRecord struct {
	ExternalID string
	Slug       string
	Title      string
	Difficulty model.ProblemDifficulty
	Rating     int
	URL        string
	Tags       []TagRecord
}

type SubmissionRecord struct {
	ExternalID  string
	Problem     ProblemRecord
	RawVerdict  string
	Verdict     model.SubmissionStatus
	Language    string
	SubmittedAt time.Time
}

type ContestRecord struct {
	ExternalID     string
	Name           string
	StartTime      *time.Time
	Rank           int
	OldRating      int
	NewRating      int
	ParticipatedAt time.Time
}

// Collector fetches one platform's data for a handle. Implementations must be
// safe for concurrent use.
type Collector interface {
	Platform() model.Platform
	FetchProfile(ctx context.Context, handle string) (*ProfileRecord, error)
	FetchSubmissions(ctx context.Context, handle string, limit int) ([]SubmissionRecord, error)
	FetchContests(ctx context.Context, handle string) ([]ContestRecord, error)
	FetchCalendar(ctx context.Context, handle string) (model.Calendar, error)
}

type Registry struct {
	collectors map[model.Platform]Collector
}

func NewRegistry(collectors ...Collector) *Registry {
	r := &Registry{collectors: make(map[model.Platform]Collector, len(collectors))}
	for _, c := range collectors {
		r.collectors[c.Platform()] = c
	}
	return r
}

func (r *Registry) Get(platform model.Platform) (Collector, error) {
	c, ok := r.collectors[platform]
	if !ok {
		return nil, fmt.Errorf("no collector for platform %q: %w", platform, common.ErrBadRequest)
	}
	return c, nil
}
