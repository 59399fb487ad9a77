package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy    ProblemDifficulty = "Easy"
	DifficultyMedium  ProblemDifficulty = "Medium"
	DifficultyHard    ProblemDifficulty = "Hard"
	DifficultyUnknown ProblemDifficulty = "Unknown"
)

// ParseDifficulty accepts LeetCode's capitalised labels and lower-case query values.
func ParseDifficulty(raw string) ProblemDifficulty {
	switch raw {
	case "Easy", "easy", "EASY":
		return DifficultyEasy
	case "Medium", "medium", "MEDIUM":
		return DifficultyMedium
	case "Hard", "hard", "HARD":
		return DifficultyHard
	}
	return DifficultyUnknown
}

// DifficultyFromRating buckets a Codeforces problem rating.
func DifficultyFromRating(rating int) ProblemDifficulty {
	switch {
	case rating <= 0:
		return DifficultyUnknown
	case rating < 1200:
		return DifficultyEasy
	case rating < 1900:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

type Problem struct {
	ID         string            `json:"id"`
	Platform   Platform          `json:"platform"`
	ExternalID string            `json:"external_id"` // LeetCode title slug, Codeforces "1843A"
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	Difficulty ProblemDifficulty `json:"difficulty"`
	Rating     int               `json:"rating,omitempty"` // Codeforces only
	URL        string            `json:"url"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Tags       []Tag             `json:"tags,omitempty"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (p Problem) TagSlugs() []string {
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		out = append(out, t.Slug)
	}
	return out
}
