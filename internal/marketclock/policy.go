package marketclock

import "time"

// TTLPolicy picks a freshness window by session: quotes move only while the
// market is open, so the closed TTL is usually much longer.
type TTLPolicy struct {
	Clock  *Clock
	Open   time.Duration
	Closed time.Duration
}

// For returns the TTL that applies at now
func (p TTLPolicy) For(now time.Time) time.Duration {
	if p.Clock != nil && p.Clock.IsOpen(now) {
		return p.Open
	}
	return p.Closed
}
