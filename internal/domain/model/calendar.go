package model

import "time"

// Calendar maps a UTC day (YYYY-MM-DD) to the number of submissions made that day.
type Calendar map[string]int

const CalendarDayLayout = "2006-01-02"

func DayKey(t time.Time) string {
	return t.UTC().Format(CalendarDayLayout)
}

// CountLastDays sums submissions over the last `days` calendar days, today included.
func (c Calendar) CountLastDays(now time.Time, days int) int {
	today := now.UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(days - 1))
	total := 0
	for day, n := range c {
		d, err := time.Parse(CalendarDayLayout, day)
		if err != nil {
			continue
		}
		if d.Before(first) || d.After(today) {
			continue
		}
		total += n
	}
	return total
}

// Merge adds other's counts into c.
func (c Calendar) Merge(other Calendar) {
	for day, n := range other {
		c[day] += n
	}
}

type CalendarCache struct {
	UserID    string    `json:"user_id"`
	Platform  Platform  `json:"platform"`
	Calendar  Calendar  `json:"calendar"`
	FetchedAt time.Time `json:"fetched_at"`
}
