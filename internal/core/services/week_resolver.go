package services

import (
	"time"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
)

// WeekResolver resolves a "current week" over the distinct week starts
// present in a loaded report table. It is a pure value rebuilt per
// request; the selected index itself lives in per-session state.
type WeekResolver struct {
	weeks []time.Time
}

// NewWeekResolver creates a resolver over the given week starts, which
// must be sorted ascending (domain.DistinctWeeks guarantees this).
func NewWeekResolver(weeks []time.Time) *WeekResolver {
	return &WeekResolver{weeks: weeks}
}

// Len returns the number of weeks available.
func (r *WeekResolver) Len() int {
	return len(r.weeks)
}

// Weeks returns the underlying week starts.
func (r *WeekResolver) Weeks() []time.Time {
	return r.weeks
}

// Contains reports whether i is a valid index into the week set.
func (r *WeekResolver) Contains(i int) bool {
	return i >= 0 && i < len(r.weeks)
}

// InitialSelection returns the index of the most recent week. Used when a
// session has no prior selection.
func (r *WeekResolver) InitialSelection() (int, error) {
	if len(r.weeks) == 0 {
		return 0, apperrors.ErrNoWeeksAvailable
	}
	return len(r.weeks) - 1, nil
}

// SelectByIndex returns the week start at index i.
func (r *WeekResolver) SelectByIndex(i int) (time.Time, error) {
	if !r.Contains(i) {
		return time.Time{}, apperrors.ErrWeekIndexOutOfRange
	}
	return r.weeks[i], nil
}

// SelectNearest snaps target to the Monday of its own week, then returns
// the index and start of the dataset week closest to that Monday. Ties
// resolve to the earlier week: the scan keeps the first minimum over an
// ascending-sorted sequence.
func (r *WeekResolver) SelectNearest(target time.Time) (int, time.Time, error) {
	if len(r.weeks) == 0 {
		return 0, time.Time{}, apperrors.ErrNoWeeksAvailable
	}

	snap := domain.WeekStart(target)

	nearest := 0
	best := absDuration(r.weeks[0].Sub(snap))
	for i := 1; i < len(r.weeks); i++ {
		if d := absDuration(r.weeks[i].Sub(snap)); d < best {
			nearest = i
			best = d
		}
	}

	return nearest, r.weeks[nearest], nil
}

// WindowFor returns the display window for a week: its start and the day
// six days later.
func (r *WeekResolver) WindowFor(start time.Time) (time.Time, time.Time) {
	return start, domain.WeekEnd(start)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
