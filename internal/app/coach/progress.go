package coach

import (
	"sort"

	"cpdash/internal/domain/model"
)

const (
	ratingTrendContests = 5
	rollingWeeks        = 4
)

// Where week/month counts came from.
const (
	CountsSourceLocal    = "local"
	CountsSourceCache    = "calendar_cache"
	CountsSourceExternal = "calendar_live"
)

type RecentProgress struct {
	WeekCount        int                    `json:"weekCount"`
	MonthCount       int                    `json:"monthCount"`
	RollingWeeklyAvg float64                `json:"rollingWeeklyAvg"`
	ActiveDays       int                    `json:"activeDays"`
	ConsistencyPct   float64                `json:"consistencyPct"`
	RatingTrend      map[model.Platform]int `json:"ratingTrend"`
	CountsSource     string                 `json:"countsSource"`
}

// LocalCalendar buckets submission facts by UTC day.
func LocalCalendar(facts []model.SubmissionFact) model.Calendar {
	cal := model.Calendar{}
	for _, f := range facts {
		cal[model.DayKey(f.SubmittedAt)]++
	}
	return cal
}

// ActiveDays counts days in the consistency window with activity in either calendar.
func ActiveDays(in Input, local model.Calendar) int {
	n := 0
	day := in.Now.UTC()
	for i := 0; i < ConsistencyWindowDays; i++ {
		key := model.DayKey(day.AddDate(0, 0, -i))
		if local[key] > 0 || in.Calendar[key] > 0 {
			n++
		}
	}
	return n
}

// ComputeProgress derives recent activity from local facts, or from
// in.Calendar when in.CountsSource names a calendar source.
func ComputeProgress(in Input) RecentProgress {
	local := LocalCalendar(in.Submissions)
	counts, source := local, CountsSourceLocal
	if in.Calendar != nil && (in.CountsSource == CountsSourceCache || in.CountsSource == CountsSourceExternal) {
		counts, source = in.Calendar, in.CountsSource
	}
	active := ActiveDays(in, local)
	return RecentProgress{
		WeekCount:        counts.CountLastDays(in.Now, 7),
		MonthCount:       counts.CountLastDays(in.Now, 30),
		RollingWeeklyAvg: float64(counts.CountLastDays(in.Now, 7*rollingWeeks)) / rollingWeeks,
		ActiveDays:       active,
		ConsistencyPct:   ConsistencyScore(active),
		RatingTrend:      RatingTrend(in.Participations),
		CountsSource:     source,
	}
}

// RatingTrend is, per platform, the new rating of the latest contest minus the
// old rating of the earliest among the last five.
func RatingTrend(parts []model.ContestParticipation) map[model.Platform]int {
	byPlatform := map[model.Platform][]model.ContestParticipation{}
	for _, p := range parts {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}
	trend := map[model.Platform]int{}
	for platform, ps := range byPlatform {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].ParticipatedAt.Before(ps[j].ParticipatedAt) })
		if len(ps) > ratingTrendContests {
			ps = ps[len(ps)-ratingTrendContests:]
		}
		trend[platform] = ps[len(ps)-1].NewRating - ps[0].OldRating
	}
	return trend
}
