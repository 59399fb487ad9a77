// Package coach turns a user's submission and contest history into scores,
// topic proficiency and recent-progress metrics. Everything here is pure.
package coach

import (
	"math"
	"time"

	"cpdash/internal/domain/model"
)

// Benchmarks at which a sub-score reaches 100.
const (
	SolvedBenchmark        = 500
	DifficultyBenchmark    = 1000
	ContestCountBenchmark  = 50
	ConsistencyWindowDays  = 30
	TopicCoverageBenchmark = 30
	contestRatingWeight    = 0.7
	contestCountWeight     = 0.3
)

// Difficulty points per solved problem.
const (
	easyPoints   = 1
	mediumPoints = 3
	hardPoints   = 5
)

var ratingBenchmarks = map[model.Platform]float64{
	model.PlatformLeetCode:   2500,
	model.PlatformCodeforces: 2100,
}

// Weights of the composite score. They sum to 1.
var Weights = SubScores{
	Solved:        0.25,
	Difficulty:    0.20,
	Contest:       0.20,
	Consistency:   0.15,
	TopicCoverage: 0.20,
}

type SubScores struct {
	Solved        float64 `json:"solved"`
	Difficulty    float64 `json:"difficulty"`
	Contest       float64 `json:"contest"`
	Consistency   float64 `json:"consistency"`
	TopicCoverage float64 `json:"topicCoverage"`
}

// Input is everything the engine reads for one user.
type Input struct {
	Now            time.Time
	Submissions    []model.SubmissionFact
	Participations []model.ContestParticipation
	Profiles       []model.PlatformProfile
	// Calendar holds externally fetched daily counts; may be nil.
	Calendar model.Calendar
	// CountsSource set to CountsSourceCache or CountsSourceExternal makes
	// Calendar the source of every activity count instead of local facts.
	CountsSource string
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 100)
}

func ratio(n, benchmark float64) float64 {
	if benchmark <= 0 {
		return 0
	}
	return clamp(n / benchmark * 100)
}

func SolvedScore(uniqueSolved int) float64 {
	return ratio(float64(uniqueSolved), SolvedBenchmark)
}

func DifficultyScore(easy, medium, hard int) float64 {
	points := easy*easyPoints + medium*mediumPoints + hard*hardPoints
	return ratio(float64(points), DifficultyBenchmark)
}

// ContestScore is 0 without contests. Otherwise it blends the best platform
// rating (relative to that platform's benchmark) with the number of contests.
func ContestScore(contests int, ratings map[model.Platform]int) float64 {
	if contests <= 0 {
		return 0
	}
	best := 0.0
	for platform, rating := range ratings {
		best = math.Max(best, ratio(float64(rating), ratingBenchmarks[platform]))
	}
	return clamp(contestRatingWeight*best + contestCountWeight*ratio(float64(contests), ContestCountBenchmark))
}

func ConsistencyScore(activeDays int) float64 {
	return ratio(float64(activeDays), ConsistencyWindowDays)
}

func TopicCoverageScore(topicsSolved int) float64 {
	return ratio(float64(topicsSolved), TopicCoverageBenchmark)
}

// Composite is the weighted sum of the sub-scores, clamped to [0,100].
func Composite(s SubScores) float64 {
	return clamp(Weights.Solved*clamp(s.Solved) +
		Weights.Difficulty*clamp(s.Difficulty) +
		Weights.Contest*clamp(s.Contest) +
		Weights.Consistency*clamp(s.Consistency) +
		Weights.TopicCoverage*clamp(s.TopicCoverage))
}

const (
	LevelExpert       = "Expert"
	LevelAdvanced     = "Advanced"
	LevelIntermediate = "Intermediate"
	LevelBeginner     = "Beginner"
	LevelNovice       = "Novice"
)

func LevelFor(score float64) string {
	switch {
	case score >= 90:
		return LevelExpert
	case score >= 75:
		return LevelAdvanced
	case score >= 50:
		return LevelIntermediate
	case score >= 25:
		return LevelBeginner
	default:
		return LevelNovice
	}
}

// SolvedCounts are distinct accepted problems.
type SolvedCounts struct {
	Total      int                    `json:"total"`
	Easy       int                    `json:"easy"`
	Medium     int                    `json:"medium"`
	Hard       int                    `json:"hard"`
	ByPlatform map[model.Platform]int `json:"byPlatform"`
}

// CountSolved counts distinct accepted problems from the facts. A platform's
// total is raised to the profile's reported solved count when that is larger,
// since LeetCode only exposes recent submissions.
func CountSolved(facts []model.SubmissionFact, profiles []model.PlatformProfile) SolvedCounts {
	counts := SolvedCounts{ByPlatform: map[model.Platform]int{}}
	seen := map[string]bool{}
	for _, f := range facts {
		if f.Verdict != model.StatusAccepted {
			continue
		}
		key := string(f.Platform) + "/" + f.ProblemID
		if seen[key] {
			continue
		}
		seen[key] = true
		counts.ByPlatform[f.Platform]++
		switch f.Difficulty {
		case model.DifficultyEasy:
			counts.Easy++
		case model.DifficultyMedium:
			counts.Medium++
		case model.DifficultyHard:
			counts.Hard++
		}
	}
	for _, p := range profiles {
		if p.SolvedCount > counts.ByPlatform[p.Platform] {
			counts.ByPlatform[p.Platform] = p.SolvedCount
		}
	}
	for _, n := range counts.ByPlatform {
		counts.Total += n
	}
	return counts
}

// CurrentRatings takes each platform's rating from its profile, falling back to
// the latest contest result.
func CurrentRatings(profiles []model.PlatformProfile, parts []model.ContestParticipation) map[model.Platform]int {
	ratings := map[model.Platform]int{}
	latest := map[model.Platform]time.Time{}
	for _, p := range parts {
		if t, ok := latest[p.Platform]; !ok || p.ParticipatedAt.After(t) {
			latest[p.Platform] = p.ParticipatedAt
			ratings[p.Platform] = p.NewRating
		}
	}
	for _, p := range profiles {
		if p.CurrentRating > 0 {
			ratings[p.Platform] = p.CurrentRating
		}
	}
	return ratings
}
