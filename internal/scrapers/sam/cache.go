package sam

import (
	"samtimesheet/internal/components/chrono"
	"samtimesheet/internal/components/store"
	"time"
)

// DefaultCacheExpiry is how long a cached month of the current (or a future)
// month is served before it is fetched again.
const DefaultCacheExpiry = time.Hour

// IsFresh decides if a cached month may be served instead of fetching it.
//
// Months strictly before the month of now never change anymore so they stay
// fresh forever, anything else is fresh for less than expiry after it was
// updated.
func IsFresh(month store.CachedMonth, target, now time.Time, expiry time.Duration) bool {
	if target.Before(chrono.StartOfMonth(now)) {
		return true
	}
	return now.Sub(month.Updated) < expiry
}
