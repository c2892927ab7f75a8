package domain

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
)

// ViewingDateLayout is the day/month/year format the CRM export stores
// viewing dates in.
const ViewingDateLayout = "02/01/2006"

// ParseViewingDate parses a raw CRM date field into a calendar date.
// The returned time is midnight UTC on the viewing day.
func ParseViewingDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(ViewingDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrDataFormat, raw)
	}
	return t, nil
}

// WeekStart truncates a date to the Monday on or before it, at midnight UTC.
func WeekStart(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// time.Weekday counts Sunday as 0; shift so Monday is the anchor.
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// WeekEnd returns the last day of the week bucket starting at start.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 6)
}

// Rate converts a numerator/denominator pair into a percentage rounded to
// one decimal place. A zero denominator yields 0 rather than an error or
// an infinite value.
func Rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return RoundRate(float64(numerator) / float64(denominator) * 100)
}

// RoundRate rounds a percentage to one decimal place.
func RoundRate(pct float64) float64 {
	return math.Round(pct*10) / 10
}
