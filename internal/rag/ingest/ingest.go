// Package ingest turns chunk records into indexed vectors. Records are
// normalized, embedded in bounded batches with a shared worker pool, and
// written through whichever vector store the caller wired in. Re-ingesting
// a document replaces its previous chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/pipeline/identity"
	"github.com/ragready/pipeline/internal/rag/embedding"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var (
	ErrMissingConfiguration = errors.New("vector ingestion is missing embedding configuration")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
)

type Indexer struct {
	store     vectorDB.DataProcessor
	embedder  embedding.Embedder
	modelId   string
	dimension int
	batchSize int
	pool      *ants.Pool
	logger    *logger_i.Logger
}

func NewIndexer(store vectorDB.DataProcessor, embedder embedding.Embedder, modelId string, dimension int, batchSize int, concurrency int) (*Indexer, error) {
	if batchSize <= 0 {
		batchSize = config.IngestBatchSize
	}
	if concurrency <= 0 {
		concurrency = config.IngestConcurrency
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		modelId:   modelId,
		dimension: dimension,
		batchSize: batchSize,
		pool:      pool,
		logger:    logger_i.NewLogger("Vector Indexing "),
	}, nil
}

func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

// DocumentContext carries the identity fields every record of one
// ingestion run shares.
type DocumentContext struct {
	TenantId       string
	DatasetId      string
	DocId          string
	SourceUri      string
	Filename       string
	CreatedAt      string
	EmbeddingModel string
}

// IndexDocument replaces the document's chunks in the store. Writes are
// committed batch by batch, so a mid-run failure can leave earlier
// batches indexed. The delete-then-insert replace makes a later retry
// converge rather than accumulate.
func (ix *Indexer) IndexDocument(ctx context.Context, doc DocumentContext, records []docModel.ChunkRecord) (int, error) {
	loggr := ix.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if ix.modelId == "" {
		return 0, ErrMissingConfiguration
	}
	if ix.dimension <= 0 {
		return 0, fmt.Errorf("%w: embedding dimension must be positive", ErrMissingConfiguration)
	}

	if err := ix.store.EnsureReady(ctx); err != nil {
		return 0, fmt.Errorf("store not ready: %w", err)
	}
	if err := ix.store.DeleteDocument(ctx, doc.TenantId, doc.DatasetId, doc.DocId); err != nil {
		return 0, fmt.Errorf("could not clear previous chunks: %w", err)
	}

	processed := 0
	var batch []docModel.ChunkRecord
	for idx, record := range records {
		if strings.TrimSpace(record.Text) == "" {
			continue
		}
		batch = append(batch, NormalizeRecord(record, doc, idx))

		if len(batch) >= ix.batchSize {
			if err := ix.flush(ctx, batch); err != nil {
				return processed, err
			}
			processed += len(batch)
			batch = nil
		}
	}
	if len(batch) > 0 {
		if err := ix.flush(ctx, batch); err != nil {
			return processed, err
		}
		processed += len(batch)
	}

	loggr.Info("document indexed", "docId", doc.DocId, "chunks", processed)
	return processed, nil
}

func (ix *Indexer) flush(ctx context.Context, batch []docModel.ChunkRecord) error {
	vectors, err := ix.embedBatch(ctx, batch)
	if err != nil {
		return err
	}
	if len(vectors) > 0 && len(vectors[0]) != ix.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, ix.dimension, len(vectors[0]))
	}
	return ix.store.InsertChunks(ctx, batch, vectors)
}

// embedBatch fans the batch out over the pool and reassembles results by
// position so vectors line up with their records.
func (ix *Indexer) embedBatch(ctx context.Context, batch []docModel.ChunkRecord) ([][]float32, error) {
	vectors := make([][]float32, len(batch))
	errs := make([]error, len(batch))
	var wg sync.WaitGroup

	for i, record := range batch {
		i, text := i, record.Text
		wg.Add(1)
		if err := ix.pool.Submit(func() {
			defer wg.Done()
			vectors[i], errs[i] = ix.embedder.GetEmbedding(ctx, text)
		}); err != nil {
			wg.Done()
			return nil, err
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
	}
	return vectors, nil
}

// NormalizeRecord fills identity defaults, promotes the legacy chunkId key
// and synthesizes chunk_id and content_hash when absent.
func NormalizeRecord(record docModel.ChunkRecord, doc DocumentContext, chunkIndex int) docModel.ChunkRecord {
	if record.ChunkId == "" && record.LegacyChunkId != "" {
		record.ChunkId = record.LegacyChunkId
	}
	record.LegacyChunkId = ""

	record.TenantId = doc.TenantId
	record.DatasetId = doc.DatasetId
	if record.DocId == "" {
		record.DocId = doc.DocId
	}
	if record.SourceUri == "" {
		record.SourceUri = doc.SourceUri
	}
	if record.Filename == "" {
		record.Filename = doc.Filename
	}
	if record.ChunkIndex == 0 {
		record.ChunkIndex = chunkIndex
	}
	if record.CreatedAt == "" {
		record.CreatedAt = doc.CreatedAt
	}
	if record.EmbeddingModel == "" {
		record.EmbeddingModel = doc.EmbeddingModel
	}
	if record.Acl == nil {
		record.Acl = []string{}
	}

	if record.ChunkId == "" {
		record.ChunkId = identity.ChunkId(record.DocId, record.Page, record.ChunkIndex)
	}
	if record.ContentHash == "" {
		record.ContentHash = identity.ContentHash(record.DocId, record.Page, record.ChunkIndex, record.Text)
	}
	return record
}
