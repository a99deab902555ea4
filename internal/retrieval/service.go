package retrieval

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"profile-assistant/internal/domain"
	"profile-assistant/internal/embedding"
	"profile-assistant/internal/vectorstore"
)

// Service orchestrates query embedding and index search, falling back to a
// precomputed static context whenever the pipeline is absent, fails, or
// yields nothing above the similarity threshold. Retrieval failure is never
// fatal to a chat turn.
type Service struct {
	embedder  embedding.Embedder
	store     vectorstore.Storage
	static    string
	limit     int
	threshold float64
	logger    *log.Logger
}

// Config tunes search behavior.
type Config struct {
	Limit          int
	ScoreThreshold float64
}

// NewService builds a retrieval service. Passing a nil embedder or store
// disables retrieval entirely: every query answers with the static context.
func NewService(embedder embedding.Embedder, store vectorstore.Storage, staticContext string, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 3
	}
	return &Service{
		embedder:  embedder,
		store:     store,
		static:    staticContext,
		limit:     limit,
		threshold: cfg.ScoreThreshold,
		logger:    logger,
	}
}

// Enabled reports whether the full retrieval pipeline is configured.
func (s *Service) Enabled() bool { return s.embedder != nil && s.store != nil }

// Retrieve returns grounding context for query and whether retrieved chunks
// were used. Embedding or search failures degrade to the static context.
func (s *Service) Retrieve(ctx context.Context, query string) (string, bool) {
	if !s.Enabled() {
		return s.static, false
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Printf("query embedding failed, using static context: %v", err)
		return s.static, false
	}
	results, err := s.store.Search(ctx, vec, s.limit, s.threshold)
	if err != nil {
		s.logger.Printf("index search failed, using static context: %v", err)
		return s.static, false
	}
	if len(results) == 0 {
		return s.static, false
	}
	return renderResults(results), true
}

// BootstrapIndex makes sure the collection exists and indexes chunks into it.
// Indexing is skipped when the collection already holds points, so process
// restarts do not pay the embedding cost again.
func (s *Service) BootstrapIndex(ctx context.Context, chunks []domain.DocumentChunk, dimension int) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.EnsureCollection(ctx, dimension); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count points: %w", err)
	}
	if count > 0 {
		s.logger.Printf("collection already indexed with %d points, skipping re-indexing", count)
		return nil
	}
	return s.Reindex(ctx, chunks)
}

// Reindex embeds every chunk and upserts it, unconditionally. Record ids
// come from chunk order, so repeating the call overwrites rather than
// duplicates.
func (s *Service) Reindex(ctx context.Context, chunks []domain.DocumentChunk) error {
	if !s.Enabled() {
		return fmt.Errorf("retrieval pipeline not configured")
	}
	records := make([]domain.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d (%s): %w", i, chunk.Title, err)
		}
		records = append(records, domain.VectorRecord{
			ID:      uint64(i),
			Vector:  vec,
			Payload: chunk,
		})
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	s.logger.Printf("indexed %d chunks", len(records))
	return nil
}

func renderResults(results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("[Context %d: %s]\n%s", i+1, r.Chunk.Title, r.Chunk.Text))
	}
	return strings.Join(blocks, "\n\n")
}
