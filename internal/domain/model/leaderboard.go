package model

// LeaderboardEntry ranks users by distinct accepted problems across both
// platforms. Each platform's count is at least the profile's reported total.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	UserID         string  `json:"user_id"`
	Username       string  `json:"username"`
	ProblemsSolved int     `json:"problems_solved"`
	Submissions    int     `json:"submissions"`
	Accepted       int     `json:"accepted"`
	AcceptanceRate float64 `json:"acceptance_rate"` // percent of submissions accepted
}

func (e *LeaderboardEntry) computeAcceptance() {
	if e.Submissions == 0 {
		e.AcceptanceRate = 0
		return
	}
	e.AcceptanceRate = float64(int(float64(e.Accepted)/float64(e.Submissions)*10000+0.5)) / 100
}

// RankLeaderboard assigns ranks to entries already sorted by ProblemsSolved
// descending. Equal solved counts share a rank (1, 1, 3).
func RankLeaderboard(entries []LeaderboardEntry) {
	for i := range entries {
		entries[i].computeAcceptance()
		entries[i].Rank = i + 1
		if i > 0 && entries[i-1].ProblemsSolved == entries[i].ProblemsSolved {
			entries[i].Rank = entries[i-1].Rank
		}
	}
}
