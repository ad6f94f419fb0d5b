package ratelimit

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// minSweepInterval bounds how often the background sweep runs for very
// short cooldowns.
const minSweepInterval = time.Second

// --------------------------------------------------------------------------
// Limiter
// --------------------------------------------------------------------------

// Limiter is a fixed-window-per-key write throttle: it admits at most one
// write per source address per cooldown interval, independent of how many
// were attempted. Entries older than the cooldown are swept periodically so
// memory stays bounded under many distinct source addresses.
type Limiter struct {
	cooldown time.Duration
	seen     *xsync.MapOf[string, int64] // source address -> last accepted unix nanos

	sweepIsRunning atomic.Bool
	stop           chan struct{}
}

// New creates a Limiter with the given cooldown and starts its background
// sweep. A non-positive cooldown admits every request.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization. All methods of the returned limiter are safe
// for concurrent use.
func New(cooldown time.Duration) *Limiter {
	l := &Limiter{
		cooldown: cooldown,
		seen:     xsync.NewMapOf[string, int64](),
		stop:     make(chan struct{}),
	}
	l.startSweep()
	return l
}

// Admit reports whether a write from the source address is allowed at the
// given instant. An allowed write records the instant as the address's new
// window start; a throttled one leaves the recorded window untouched.
//
// Thread-safety: This method is thread-safe. The check and the timestamp
// update happen inside a single Compute call per address, so two concurrent
// requests from the same address cannot both be admitted within one window.
func (l *Limiter) Admit(addr string, now time.Time) bool {
	if l.cooldown <= 0 {
		return true
	}

	var admitted bool
	l.seen.Compute(addr, func(prev int64, loaded bool) (int64, bool) {
		if loaded && now.UnixNano()-prev < int64(l.cooldown) {
			return prev, false
		}
		admitted = true
		return now.UnixNano(), false
	})
	return admitted
}

// Size returns the number of tracked source addresses.
func (l *Limiter) Size() int {
	return l.seen.Size()
}

// Close stops the background sweep. The limiter keeps admitting afterwards,
// but stale entries are no longer pruned.
func (l *Limiter) Close() {
	if l.sweepIsRunning.CompareAndSwap(true, false) {
		close(l.stop)
	}
}

// --------------------------------------------------------------------------
// Background Sweep
// --------------------------------------------------------------------------

// startSweep starts the sweep goroutine.
// If the sweep is already running, this function does nothing.
func (l *Limiter) startSweep() {
	if l.cooldown <= 0 {
		return
	}
	if l.sweepIsRunning.CompareAndSwap(false, true) {
		go l.sweeper()
	}
}

// sweeper periodically removes entries whose window elapsed. An entry that
// is re-admitted between the Range snapshot and the removal is kept: the
// removal re-checks the timestamp inside the same Compute call.
func (l *Limiter) sweeper() {
	interval := l.cooldown
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.cooldown).UnixNano()
			l.seen.Range(func(addr string, _ int64) bool {
				l.seen.Compute(addr, func(prev int64, loaded bool) (int64, bool) {
					return prev, loaded && prev < cutoff
				})
				return true
			})
		}
	}
}
