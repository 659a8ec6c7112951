package reports

import (
	"time"
)

// Daily report window. Issues happen during working hours, so the daily
// report covers 06:00 to 19:00 local time.
const (
	dailyStartHour = 6
	dailyEndHour   = 19
)

// MonthlyPeriod returns the full calendar month containing t.
func MonthlyPeriod(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// WeeklyPeriod returns the Monday-to-Sunday week containing t.
func WeeklyPeriod(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -(weekday - 1))
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return start, end
}

// DailyPeriod returns the working-hours window on the given day.
func DailyPeriod(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), dailyStartHour, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), dailyEndHour, 0, 0, 0, t.Location())
	return start, end
}
