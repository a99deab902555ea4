package vectorstore

import (
	"context"

	"profile-assistant/internal/domain"
)

// Storage persists chunk vectors and supports threshold-gated similarity
// search. All implementations are idempotent on collection creation and on
// upsert-by-id.
type Storage interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, vector []float64, limit int, threshold float64) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
}
