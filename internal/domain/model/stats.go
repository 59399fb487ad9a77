package model

// DifficultyCount is the number of distinct problems a user solved at one difficulty.
type DifficultyCount struct {
	Platform   Platform          `json:"platform"`
	Difficulty ProblemDifficulty `json:"difficulty"`
	Solved     int               `json:"solved"`
}

type PlatformTotals struct {
	Platform    Platform `json:"platform"`
	Submissions int      `json:"submissions"`
	Accepted    int      `json:"accepted"`
	Solved      int      `json:"solved"`
}

// AcceptanceRate is accepted/submissions as a percentage, 0 when there are no submissions.
func (t PlatformTotals) AcceptanceRate() float64 {
	if t.Submissions == 0 {
		return 0
	}
	return float64(t.Accepted) / float64(t.Submissions) * 100
}
