// Package dates holds the date and time conversions shared by the pipeline stages.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DayLayout is the only accepted calendar date format.
	DayLayout = "2006-01-02"
	// ProviderLayout is the UTC timestamp format the email provider expects.
	ProviderLayout = "2006-01-02T15:04:05.000000Z"

	clockLayout = "3:04 PM"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Parse accepts exactly YYYY-MM-DD.
func Parse(s string) (time.Time, error) {
	if len(s) != len(DayLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Format renders the calendar day of t.
func Format(t time.Time) string {
	return t.Format(DayLayout)
}

// SameDay compares calendar days, ignoring clock and zone.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LocalToUTC interprets timeOfDay ("09:30") and period ("AM"/"PM") on the calendar day of
// day, in loc, and returns the corresponding UTC instant.
func LocalToUTC(day time.Time, timeOfDay, period string, loc *time.Location) (time.Time, error) {
	p := strings.ToUpper(strings.TrimSpace(period))
	if p != "AM" && p != "PM" {
		return time.Time{}, fmt.Errorf("invalid period %q, expected AM or PM", period)
	}
	clock, err := time.Parse(clockLayout, strings.TrimSpace(timeOfDay)+" "+p)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q %s: %w", timeOfDay, p, err)
	}
	y, m, d := day.Date()
	local := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// ProviderTime formats t in UTC for the email provider.
func ProviderTime(t time.Time) string {
	return t.UTC().Format(ProviderLayout)
}
