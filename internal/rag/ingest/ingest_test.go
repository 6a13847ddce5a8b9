package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
)

// --- Mocks ---

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return m.embedFunc(ctx, text)
}

type mockStore struct {
	insertFunc  func(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error
	deleteCalls int
	readyCalls  int
}

func (m *mockStore) EnsureReady(ctx context.Context) error {
	m.readyCalls++
	return nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, tenantId string, datasetId string, docId string) error {
	m.deleteCalls++
	return nil
}

func (m *mockStore) InsertChunks(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
	return m.insertFunc(ctx, records, vectors)
}

func (m *mockStore) Search(ctx context.Context, queryVector []float32, filter vectorDB.SearchFilter, topK int) ([]vectorDB.SearchHit, error) {
	return nil, nil
}

func fixedEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return make([]float32, dim), nil
		},
	}
}

func testDoc() DocumentContext {
	return DocumentContext{
		TenantId:       "tenant-a",
		DatasetId:      "ds-1",
		DocId:          "doc-1",
		Filename:       "spec.pdf",
		CreatedAt:      "2026-01-02T03:04:05Z",
		EmbeddingModel: "embed-model",
	}
}

func makeRecords(n int) []docModel.ChunkRecord {
	records := make([]docModel.ChunkRecord, n)
	for i := range records {
		records[i] = docModel.ChunkRecord{Text: fmt.Sprintf("chunk content %d", i)}
	}
	return records
}

// --- Unit Tests ---

func TestIndexDocument_Batching(t *testing.T) {
	var batchSizes []int
	store := &mockStore{
		insertFunc: func(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
			batchSizes = append(batchSizes, len(records))
			return nil
		},
	}

	ix, err := NewIndexer(store, fixedEmbedder(4), "embed-model", 4, 50, 4)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix.Release()

	processed, err := ix.IndexDocument(context.Background(), testDoc(), makeRecords(120))
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}

	if processed != 120 {
		t.Errorf("Expected 120 processed chunks, got %d", processed)
	}
	if len(batchSizes) != 3 || batchSizes[0] != 50 || batchSizes[1] != 50 || batchSizes[2] != 20 {
		t.Errorf("Expected batches of 50/50/20, got %v", batchSizes)
	}
	if store.readyCalls != 1 || store.deleteCalls != 1 {
		t.Errorf("Expected one EnsureReady and one DeleteDocument, got %d/%d", store.readyCalls, store.deleteCalls)
	}
}

func TestIndexDocument_VectorOrderMatchesRecords(t *testing.T) {
	// encode the chunk index into the vector so reordering is detectable
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			var idx int
			fmt.Sscanf(text, "chunk content %d", &idx)
			return []float32{float32(idx), 0, 0, 0}, nil
		},
	}
	store := &mockStore{
		insertFunc: func(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
			for i, record := range records {
				var idx int
				fmt.Sscanf(record.Text, "chunk content %d", &idx)
				if int(vectors[i][0]) != idx {
					return fmt.Errorf("vector %d belongs to chunk %d", int(vectors[i][0]), idx)
				}
			}
			return nil
		},
	}

	ix, err := NewIndexer(store, embedder, "embed-model", 4, 50, 4)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix.Release()

	if _, err := ix.IndexDocument(context.Background(), testDoc(), makeRecords(75)); err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
}

func TestIndexDocument_DimensionMismatchAbortsMidRun(t *testing.T) {
	calls := 0
	store := &mockStore{
		insertFunc: func(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
			calls++
			return nil
		},
	}
	embedCount := 0
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			embedCount++
			if embedCount > 50 {
				return make([]float32, 3), nil //wrong dimension from the second batch on
			}
			return make([]float32, 4), nil
		},
	}

	ix, err := NewIndexer(store, embedder, "embed-model", 4, 50, 1)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix.Release()

	processed, err := ix.IndexDocument(context.Background(), testDoc(), makeRecords(100))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}
	// the first batch was already committed; the run reports what landed
	if processed != 50 {
		t.Errorf("Expected 50 committed chunks before the abort, got %d", processed)
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 committed batch, got %d", calls)
	}
}

func TestIndexDocument_SkipsEmptyText(t *testing.T) {
	var inserted int
	store := &mockStore{
		insertFunc: func(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
			inserted += len(records)
			return nil
		},
	}
	ix, err := NewIndexer(store, fixedEmbedder(4), "embed-model", 4, 50, 2)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix.Release()

	records := makeRecords(5)
	records[1].Text = ""
	records[3].Text = "   \n\t"

	processed, err := ix.IndexDocument(context.Background(), testDoc(), records)
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
	if processed != 3 || inserted != 3 {
		t.Errorf("Expected 3 indexed chunks, got processed=%d inserted=%d", processed, inserted)
	}
}

func TestIndexDocument_MissingConfiguration(t *testing.T) {
	store := &mockStore{insertFunc: func(ctx context.Context, r []docModel.ChunkRecord, v [][]float32) error { return nil }}

	ix, err := NewIndexer(store, fixedEmbedder(4), "", 4, 50, 2)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix.Release()
	if _, err := ix.IndexDocument(context.Background(), testDoc(), makeRecords(1)); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("Expected ErrMissingConfiguration for empty model id, got %v", err)
	}

	ix2, err := NewIndexer(store, fixedEmbedder(4), "embed-model", 0, 50, 2)
	if err != nil {
		t.Fatalf("NewIndexer failed: %v", err)
	}
	defer ix2.Release()
	if _, err := ix2.IndexDocument(context.Background(), testDoc(), makeRecords(1)); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("Expected ErrMissingConfiguration for zero dimension, got %v", err)
	}
}

func TestNormalizeRecord(t *testing.T) {
	doc := testDoc()

	t.Run("fills defaults and synthesizes identity", func(t *testing.T) {
		record := NormalizeRecord(docModel.ChunkRecord{Text: "some text", Page: 3}, doc, 7)

		if record.TenantId != "tenant-a" || record.DatasetId != "ds-1" || record.DocId != "doc-1" {
			t.Errorf("Identity defaults not applied: %+v", record)
		}
		if record.ChunkId != "doc-1#p3#c7" {
			t.Errorf("Expected synthesized chunk id doc-1#p3#c7, got %s", record.ChunkId)
		}
		if record.ContentHash == "" {
			t.Error("Expected synthesized content hash")
		}
		if record.EmbeddingModel != "embed-model" {
			t.Errorf("Expected embedding model default, got %s", record.EmbeddingModel)
		}
		if record.Acl == nil {
			t.Error("Expected non-nil acl")
		}
	})

	t.Run("promotes legacy chunk id", func(t *testing.T) {
		record := NormalizeRecord(docModel.ChunkRecord{Text: "x", LegacyChunkId: "doc-1#p1#c0"}, doc, 0)
		if record.ChunkId != "doc-1#p1#c0" {
			t.Errorf("Expected legacy id promoted, got %s", record.ChunkId)
		}
		if record.LegacyChunkId != "" {
			t.Error("Expected legacy key cleared after promotion")
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		record := NormalizeRecord(docModel.ChunkRecord{
			Text:        "y",
			ChunkId:     "explicit#p0#c0",
			ContentHash: "abc123",
			Filename:    "other.pdf",
		}, doc, 2)
		if record.ChunkId != "explicit#p0#c0" || record.ContentHash != "abc123" || record.Filename != "other.pdf" {
			t.Errorf("Explicit values were overwritten: %+v", record)
		}
	})
}
