// Package ratelimit approximates the pipeline's data-loading rate limiter
// (spec §4.8) on top of a sliding-window limiter rather than a literal
// token bucket: a single category is configured with a one-second window
// admitting the refill rate, and a capacity/refill-second window admitting
// the capacity, without this package needing its own timer-driven refill
// loop. Sustained throughput is the refill rate. Bursts are capped by the
// one-second window as well: no more than the refill rate is admitted in
// any one second, even when capacity is larger.
package ratelimit

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// category is the single bucket every data-loading request shares; the
// pipeline applies one global limit, not one per source.
const category = "dataLoading"

// Limiter rate-limits data-loading starts.
type Limiter struct {
	inner *catrate.Limiter
}

// New builds a Limiter with the given token-bucket capacity and per-second
// refill rate (spec §4.8 defaults: ~80 capacity, ~25/sec).
func New(capacity, refillPerSecond int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if refillPerSecond <= 0 {
		refillPerSecond = 1
	}
	return &Limiter{inner: catrate.NewLimiter(map[time.Duration]int{
		time.Second: refillPerSecond,
		// a window sized to drain a full burst at the refill rate admits
		// capacity events per that window, the sliding-window analogue of
		// bucket capacity.
		time.Duration(capacity) * time.Second / time.Duration(refillPerSecond): capacity,
	})}
}

// Allow reports whether a data-loading start may proceed now, and if not,
// the time at which it next may.
func (l *Limiter) Allow() (time.Time, bool) {
	if l == nil {
		return time.Time{}, true
	}
	return l.inner.Allow(category)
}
