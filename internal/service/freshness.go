package service

import "time"

// DefaultTTL is how long a cached chart stays fresh when nothing else is
// configured.
const DefaultTTL = 24 * time.Hour

// FreshnessPolicy decides whether a cached chart can be served as-is or
// must be refetched. It is a pure value: no clock access, no side effects —
// callers pass in `now`, which keeps the decision trivially testable.
type FreshnessPolicy struct {
	TTL time.Duration
}

// Fresh reports whether a chart written at updatedAt is still servable at
// `now`. The boundary is exclusive: an age of exactly TTL is stale. A zero
// updatedAt (never fetched) is never fresh — identical to an absent chart.
func (p FreshnessPolicy) Fresh(updatedAt, now time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	return now.Sub(updatedAt) < p.TTL
}
