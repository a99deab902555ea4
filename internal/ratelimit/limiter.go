package ratelimit

import (
	"sync"
	"time"
)

// Limiter applies sliding-window admission control keyed by caller identity.
// Each key holds the timestamps of its admitted requests within the window;
// a request beyond the per-window limit is refused, never queued.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string][]time.Time
	now     func() time.Time
}

// NewLimiter allows up to perWindow admissions per key within each sliding
// window.
func NewLimiter(perWindow int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   perWindow,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit reports whether the caller identified by key may proceed. Admission
// records the current time; rejection records nothing.
func (l *Limiter) Admit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= l.limit {
		l.entries[key] = recent
		return false
	}
	l.entries[key] = append(recent, now)
	return true
}

// SweepStale drops keys whose newest timestamp is older than twice the
// window. The doubled margin avoids evicting a key mid-burst. Keys are
// snapshotted first and re-checked before deletion.
func (l *Limiter) SweepStale() int {
	l.mu.Lock()
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	l.mu.Unlock()

	dropped := 0
	for _, k := range keys {
		l.mu.Lock()
		if ts, ok := l.entries[k]; ok {
			if len(ts) == 0 || l.now().Sub(ts[len(ts)-1]) > 2*l.window {
				delete(l.entries, k)
				dropped++
			}
		}
		l.mu.Unlock()
	}
	return dropped
}

// Keys reports how many caller keys are currently tracked.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
