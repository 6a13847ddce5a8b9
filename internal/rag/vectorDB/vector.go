package vectorDB

import (
	"context"

	"github.com/ragready/pipeline/internal/domain/docModel"
)

// SearchHit is one scored chunk coming back from a store.
type SearchHit struct {
	ChunkId string  `json:"chunkId"`
	DocId   string  `json:"docId"`
	Text    string  `json:"text"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
}

// SearchFilter narrows a query to one tenant, optionally one dataset.
type SearchFilter struct {
	TenantId  string
	DatasetId string
}

type DataProcessor interface {
	// EnsureReady creates the index or table on first use. Safe to call
	// before every write.
	EnsureReady(ctx context.Context) error

	// DeleteDocument removes every chunk previously stored for the
	// document so a re-ingest replaces rather than accumulates.
	DeleteDocument(ctx context.Context, tenantId string, datasetId string, docId string) error

	InsertChunks(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error

	Search(ctx context.Context, queryVector []float32, filter SearchFilter, topK int) ([]SearchHit, error)
}
