package domain

import "time"

// DateLayout is the calendar-day format persisted in lock files.
const DateLayout = "2006-01-02"

// Day formats t as a calendar day.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// RunLock is an exclusive per-workflow lock that remembers the last day a
// report was sent.
type RunLock interface {
	// LastDay is the recorded day, empty when none was recorded.
	LastDay() string
	RecordDay(day string) error
	Release() error
}

// Locker acquires a RunLock for a path without blocking.
type Locker interface {
	Acquire(path string) (RunLock, error)
}
