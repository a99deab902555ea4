package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"profile-assistant/internal/domain"
)

// Store wraps an embedded chromem-go collection as a vector store backend.
// Useful for single-process deployments that want persistence without a
// hosted Qdrant instance.
type Store struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

type Config struct {
	// Path enables on-disk persistence; empty keeps everything in memory.
	Path       string
	Collection string
}

func NewStore(cfg Config) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem database: %w", err)
		}
	}
	return &Store{db: db, name: cfg.Collection}, nil
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	_ = ctx
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		return nil
	}
	// Embeddings are always supplied explicitly, so no embedding func is
	// ever invoked by chromem itself.
	collection, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.name, err)
	}
	s.collection = collection
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		return errors.New("collection not initialized")
	}
	for _, r := range records {
		doc := chromem.Document{
			ID:        strconv.FormatUint(r.ID, 10),
			Content:   r.Payload.Text,
			Embedding: toFloat32(r.Vector),
			Metadata: map[string]string{
				"type":      r.Payload.Type,
				"title":     r.Payload.Title,
				"timeframe": r.Payload.Timeframe,
				"tags":      strings.Join(r.Payload.Tags, ","),
			},
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float64, limit int, threshold float64) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, errors.New("collection not initialized")
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > count {
		limit = count
	}
	found, err := s.collection.QueryEmbedding(ctx, toFloat32(vector), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.name, err)
	}
	results := make([]domain.SearchResult, 0, len(found))
	for _, r := range found {
		score := float64(r.Similarity)
		if score < threshold {
			continue
		}
		chunk := domain.DocumentChunk{
			Text:      r.Content,
			Type:      r.Metadata["type"],
			Title:     r.Metadata["title"],
			Timeframe: r.Metadata["timeframe"],
		}
		if tags := r.Metadata["tags"]; tags != "" {
			chunk.Tags = strings.Split(tags, ",")
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: score})
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0, nil
	}
	return s.collection.Count(), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
