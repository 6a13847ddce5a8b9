package embedding

import "context"

// Embedder turns one text into one vector. Batch fan-out and ordering are
// the indexer's job, not the provider's.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}
