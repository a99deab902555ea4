package lifecycle

import (
	"io"
	"log"

	"profile-assistant/internal/ratelimit"
	"profile-assistant/internal/session"
)

// Janitor reclaims stale sessions and rate-limit keys. It has no scheduler
// of its own; callers run Sweep opportunistically at the start of each
// inbound request. Both sweeps are O(live entries) and make no network
// calls, so they add no meaningful latency.
type Janitor struct {
	sessions *session.Store
	limiter  *ratelimit.Limiter
	logger   *log.Logger
}

func NewJanitor(sessions *session.Store, limiter *ratelimit.Limiter, logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Janitor{sessions: sessions, limiter: limiter, logger: logger}
}

// Sweep evicts expired sessions and stale rate-limit keys. Safe to call
// concurrently with ongoing reads and writes to either store.
func (j *Janitor) Sweep() {
	if evicted := j.sessions.SweepExpired(); evicted > 0 {
		j.logger.Printf("cleaned up %d expired sessions", evicted)
	}
	if dropped := j.limiter.SweepStale(); dropped > 0 {
		j.logger.Printf("dropped %d stale rate-limit keys", dropped)
	}
}
