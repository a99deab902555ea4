package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"profile-assistant/internal/domain"
)

// Store is an in-memory vector collection using brute-force cosine
// similarity. Records live in a map keyed by id, so re-upserting an id
// overwrites in place.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   map[uint64]domain.VectorRecord
}

func NewStore() *Store {
	return &Store{records: make(map[uint64]domain.VectorRecord)}
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	_ = ctx
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		// Collection already exists; creation is a no-op.
		return nil
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("collection not initialized")
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, limit int, threshold float64) ([]domain.SearchResult, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}
	results := make([]domain.SearchResult, 0, len(s.records))
	for _, r := range s.records {
		score := cosine(r.Vector, vector)
		if score < threshold {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: r.Payload, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
