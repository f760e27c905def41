package plan

import (
	"time"
)

const windowDays = 30

// Window is a rolling 30-day submission period anchored at the
// organization's signup date (not a calendar month).
type Window struct {
	Index int
	Start time.Time
	End   time.Time // next reset
}

// SubmissionWindow computes the current rolling period. The signup day
// counts as day one: an organization created 2024-01-01 is in period 2 on
// 2024-03-05, with the period starting 2024-02-29 and resetting 2024-03-30.
// Only starter-plan limit checks use this; unlimited plans skip it entirely.
func SubmissionWindow(signup, now time.Time) Window {
	s := dateUTC(signup)
	n := dateUTC(now)

	days := int(n.Sub(s).Hours() / 24)
	if days < 0 {
		days = 0
	}
	index := (days + 1) / windowDays

	start := s
	if index > 0 {
		start = s.AddDate(0, 0, windowDays*index-1)
	}
	end := s.AddDate(0, 0, windowDays*(index+1)-1)

	return Window{Index: index, Start: start, End: end}
}

func dateUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
