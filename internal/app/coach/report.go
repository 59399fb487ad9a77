package coach

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cpdash/internal/domain/model"
)

type Report struct {
	Score           float64        `json:"score"`
	Level           string         `json:"level"`
	SubScores       SubScores      `json:"subScores"`
	Solved          SolvedCounts   `json:"solved"`
	Contests        int            `json:"contests"`
	Topics          TopicReport    `json:"topics"`
	Progress        RecentProgress `json:"progress"`
	Recommendations []string       `json:"recommendations"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}

// Compute runs the whole engine over one user's data.
func Compute(in Input) Report {
	solved := CountSolved(in.Submissions, in.Profiles)
	topics := ClassifyTopics(in.Submissions, MinTopicAttempts)
	progress := ComputeProgress(in)

	sub := SubScores{
		Solved:        SolvedScore(solved.Total),
		Difficulty:    DifficultyScore(solved.Easy, solved.Medium, solved.Hard),
		Contest:       ContestScore(len(in.Participations), CurrentRatings(in.Profiles, in.Participations)),
		Consistency:   ConsistencyScore(progress.ActiveDays),
		TopicCoverage: TopicCoverageScore(TopicsSolved(topics.All)),
	}
	score, level := scoreAndLevel(sub)

	r := Report{
		Score:       score,
		Level:       level,
		SubScores:   roundSubScores(sub),
		Solved:      solved,
		Contests:    len(in.Participations),
		Topics:      topics,
		Progress:    progress,
		GeneratedAt: in.Now.UTC(),
	}
	r.Recommendations = Recommend(r)
	return r
}

// scoreAndLevel buckets the unrounded composite; only the displayed score is rounded.
func scoreAndLevel(sub SubScores) (float64, string) {
	composite := Composite(sub)
	return round1(composite), LevelFor(composite)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func roundSubScores(s SubScores) SubScores {
	return SubScores{
		Solved:        round1(s.Solved),
		Difficulty:    round1(s.Difficulty),
		Contest:       round1(s.Contest),
		Consistency:   round1(s.Consistency),
		TopicCoverage: round1(s.TopicCoverage),
	}
}

const maxWeakTopicTips = 3

// Recommend produces rule-based next steps from a computed report.
func Recommend(r Report) []string {
	var tips []string
	if r.Solved.Total == 0 && r.Contests == 0 {
		return []string{"Link a LeetCode or Codeforces profile and run a sync to get personalised advice."}
	}

	for i, t := range r.Topics.Weak {
		if i == maxWeakTopicTips {
			break
		}
		tips = append(tips, fmt.Sprintf("Revisit %s: %d of %d attempted problems solved (%.0f%%).",
			t.Tag, t.Solved, t.Attempted, t.Proficiency*100))
	}

	if r.Progress.ActiveDays < ConsistencyWindowDays/2 {
		tips = append(tips, fmt.Sprintf("You were active on %d of the last %d days. Aim for a short daily session.",
			r.Progress.ActiveDays, ConsistencyWindowDays))
	}

	switch {
	case r.Solved.Hard == 0 && r.Solved.Medium >= 20:
		tips = append(tips, "You are comfortable with Medium problems. Start mixing in Hard ones.")
	case r.Solved.Easy > 0 && r.Solved.Medium*2 < r.Solved.Easy:
		tips = append(tips, "Most of your solves are Easy. Shift the balance towards Medium problems.")
	}

	if r.Contests == 0 {
		tips = append(tips, "Take part in a rated contest to benchmark yourself under time pressure.")
	}
	for _, platform := range model.SupportedPlatforms {
		if delta := r.Progress.RatingTrend[platform]; delta < 0 {
			tips = append(tips, fmt.Sprintf("Your %s rating dropped by %d over recent contests. Upsolve the problems you missed.",
				platform, -delta))
		}
	}

	if len(r.Topics.Strong) > 0 && r.Level != LevelExpert {
		tips = append(tips, fmt.Sprintf("%s is a strength. Use it to attempt harder problems in that area.", r.Topics.Strong[0].Tag))
	}
	if len(tips) == 0 {
		tips = append(tips, "Keep the current pace and widen your topic coverage.")
	}
	return tips
}

// Summary renders the report as plain text for the mentor prompt and the
// offline mentor reply.
func Summary(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Composite score %.1f/100 (%s).\n", r.Score, r.Level)
	fmt.Fprintf(&b, "Solved %d problems (Easy %d, Medium %d, Hard %d) and took part in %d contests.\n",
		r.Solved.Total, r.Solved.Easy, r.Solved.Medium, r.Solved.Hard, r.Contests)
	fmt.Fprintf(&b, "Last 7 days: %d submissions. Last 30 days: %d. Active on %d of the last %d days.\n",
		r.Progress.WeekCount, r.Progress.MonthCount, r.Progress.ActiveDays, ConsistencyWindowDays)
	if len(r.Topics.Strong) > 0 {
		fmt.Fprintf(&b, "Strong topics: %s.\n", topicNames(r.Topics.Strong))
	}
	if len(r.Topics.Weak) > 0 {
		fmt.Fprintf(&b, "Weak topics: %s.\n", topicNames(r.Topics.Weak))
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("Suggestions:\n")
		for _, tip := range r.Recommendations {
			b.WriteString("- " + tip + "\n")
		}
	}
	return b.String()
}

func topicNames(ts []TopicStat) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Tag
	}
	return strings.Join(names, ", ")
}
