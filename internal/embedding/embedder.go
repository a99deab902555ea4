package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations wrap remote services and must honor ctx deadlines.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}
