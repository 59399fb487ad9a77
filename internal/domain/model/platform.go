package model

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
)

var SupportedPlatforms = []Platform{PlatformLeetCode, PlatformCodeforces}

func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PlatformLeetCode, PlatformCodeforces:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform %q", raw)
}

// PlatformProfile links a user to their handle on one judge.
type PlatformProfile struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Platform      Platform   `json:"platform"`
	Handle        string     `json:"handle"`
	CurrentRating int        `json:"current_rating"`
	MaxRating     int        `json:"max_rating"`
	RankLabel     string     `json:"rank_label"`
	SolvedCount   int        `json:"solved_count"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsStale reports whether the profile has not been synced within maxAge.
func (p PlatformProfile) IsStale(now time.Time, maxAge time.Duration) bool {
	if p.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*p.LastSyncedAt) > maxAge
}
