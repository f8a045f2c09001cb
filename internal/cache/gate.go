package cache

import (
	"math"
	"time"
)

// DefaultStalenessDays is the refresh threshold used when none is configured.
const DefaultStalenessDays = 3

// NeedsRefresh reports whether a cached series must be refetched: when it
// was never written, or when the number of whole days elapsed since
// lastWrite reaches stalenessDays.
func NeedsRefresh(lastWrite *time.Time, now time.Time, stalenessDays int) bool {
	if lastWrite == nil {
		return true
	}
	return ElapsedDays(*lastWrite, now) >= stalenessDays
}

// ElapsedDays returns the whole days between then and now, floored so that
// a timestamp in the future counts as -1 rather than 0.
func ElapsedDays(then, now time.Time) int {
	return int(math.Floor(now.Sub(then).Hours() / 24))
}
