package session

import (
	"strings"
	"sync"
	"time"

	"profile-assistant/internal/domain"
)

// summaryBanner prefixes every compaction digest message.
const summaryBanner = "Earlier conversation summary (compacted for context):\n"

// Limits bounds per-session history growth and idle retention.
type Limits struct {
	// MaxMessages is the hard cap on history length, enforced after every
	// append.
	MaxMessages int
	// CompactAfter is the history length beyond which compaction collapses
	// everything but the most recent CompactKeepRecent messages into one
	// summary message.
	CompactAfter      int
	CompactKeepRecent int
	// CompactCharLimit hard-truncates the summary digest. The cut ignores
	// word boundaries on purpose; the goal is bounding memory, nothing more.
	CompactCharLimit int
	// MaxAge is the idle window after which a session is swept.
	MaxAge time.Duration
}

type entry struct {
	messages   []domain.Message
	createdAt  time.Time
	lastAccess time.Time
}

// Store is a thread-safe in-memory session store with self-pruning history.
// The session map is owned exclusively by the store; all access goes through
// its methods.
type Store struct {
	mu      sync.Mutex
	limits  Limits
	entries map[string]*entry
	now     func() time.Time
}

func NewStore(limits Limits) *Store {
	return &Store{
		limits:  limits,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Touch records the session's creation time if new and advances its
// last-access time. Called once per inbound request, whether or not the chat
// turn ultimately succeeds.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(id)
}

// History returns a copy of the session's message sequence, creating an
// empty session if absent.
func (s *Store) History(id string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touchLocked(id)
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Append adds a single-text-block message and immediately compacts, so the
// MaxMessages invariant holds on return.
func (s *Store) Append(id string, role domain.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touchLocked(id)
	e.messages = append(e.messages, domain.NewTextMessage(role, text))
	e.messages = s.compact(e.messages)
}

// Count reports how many sessions are live.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Exists reports whether a session is present without creating it.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// SweepExpired removes sessions idle longer than MaxAge and returns how many
// were evicted. Ids are snapshotted first and every entry is re-checked
// under the lock before deletion, so concurrent appends and touches cannot
// corrupt the sweep or evict a session that just became active.
func (s *Store) SweepExpired() int {
	if s.limits.MaxAge <= 0 {
		return 0
	}
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	evicted := 0
	for _, id := range ids {
		s.mu.Lock()
		if e, ok := s.entries[id]; ok && s.now().Sub(e.lastAccess) > s.limits.MaxAge {
			delete(s.entries, id)
			evicted++
		}
		s.mu.Unlock()
	}
	return evicted
}

func (s *Store) touchLocked(id string) *entry {
	now := s.now()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{createdAt: now, lastAccess: now}
		s.entries[id] = e
		return e
	}
	if now.After(e.lastAccess) {
		e.lastAccess = now
	}
	return e
}

// compact collapses all but the most recent CompactKeepRecent messages into
// one system-role summary once history exceeds CompactAfter, then re-caps to
// MaxMessages. If the recent tail alone exceeds the cap, the final re-cap
// can drop the summary itself; that is documented behavior, kept as-is.
func (s *Store) compact(history []domain.Message) []domain.Message {
	if len(history) <= s.limits.CompactAfter {
		return history
	}

	// A keep-recent setting at or above the history length leaves nothing
	// to summarize; clamp so the split never goes negative.
	keep := s.limits.CompactKeepRecent
	if keep > len(history) {
		keep = len(history)
	}
	early := history[:len(history)-keep]
	recent := history[len(history)-keep:]

	compacted := recent
	if len(early) > 0 {
		var lines []string
		for _, msg := range early {
			text := extractText(msg)
			if text == "" {
				continue
			}
			lines = append(lines, capitalize(string(msg.Role))+": "+text)
		}
		digest := truncateRunes(strings.Join(lines, "\n"), s.limits.CompactCharLimit)
		summary := domain.NewTextMessage(domain.RoleSystem, summaryBanner+digest)
		compacted = append([]domain.Message{summary}, recent...)
	}

	if len(compacted) > s.limits.MaxMessages {
		compacted = compacted[len(compacted)-s.limits.MaxMessages:]
	}
	return compacted
}

// extractText space-joins the text blocks of a message.
func extractText(msg domain.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Kind == domain.BlockText {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
