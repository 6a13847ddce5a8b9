package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ragready/pipeline/internal/data/artifacts"
	"github.com/ragready/pipeline/internal/data/store"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/rag/ingest"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
)

type stubEmbedder struct {
	calls int
	fail  bool
}

func (e *stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("provider unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubVectorStore struct {
	inserted   []docModel.ChunkRecord
	searchHits []vectorDB.SearchHit
	failInsert bool
	lastTopK   int
}

func (s *stubVectorStore) EnsureReady(ctx context.Context) error { return nil }

func (s *stubVectorStore) DeleteDocument(ctx context.Context, tenantId string, datasetId string, docId string) error {
	return nil
}

func (s *stubVectorStore) InsertChunks(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
	if s.failInsert {
		return errors.New("cluster down")
	}
	s.inserted = append(s.inserted, records...)
	return nil
}

func (s *stubVectorStore) Search(ctx context.Context, queryVector []float32, filter vectorDB.SearchFilter, topK int) ([]vectorDB.SearchHit, error) {
	s.lastTopK = topK
	return s.searchHits, nil
}

func specPages() []docModel.Page {
	pageText := func(start int) string {
		var b strings.Builder
		for i := start; i < start+10; i++ {
			fmt.Fprintf(&b, "Item %d: the contractor shall maintain inspection records for every stage of the permanent works on site.\n", i)
		}
		return b.String()
	}
	return []docModel.Page{
		{Number: 1, Text: pageText(1)},
		{Number: 2, Text: pageText(11)},
	}
}

type serviceFixture struct {
	service  Service
	vector   *stubVectorStore
	embedder *stubEmbedder
	index    *store.InMemoryFileIndex
}

func newFixture(t *testing.T, extractFn func(path string) ([]docModel.Page, error)) *serviceFixture {
	t.Helper()
	art, err := artifacts.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifacts store: %v", err)
	}
	vector := &stubVectorStore{}
	embedder := &stubEmbedder{}
	indexer, err := ingest.NewIndexer(vector, embedder, "test-model", 3, 10, 2)
	if err != nil {
		t.Fatalf("indexer: %v", err)
	}
	t.Cleanup(indexer.Release)
	fileIndex := store.InitInMemoryFileIndex()
	return &serviceFixture{
		service:  NewService(fileIndex, art, indexer, embedder, vector, "test-model", extractFn),
		vector:   vector,
		embedder: embedder,
		index:    fileIndex,
	}
}

func testJob() jobModel.Job {
	return jobModel.Job{
		Id:        "job-1",
		TraceId:   "trace-1",
		TenantId:  "tenant-1",
		DatasetId: "ds-1",
		FileId:    "job-1",
		Payload: jobModel.JobPayload{
			Filename:  "method statement rev A.pdf",
			RawSha256: "hash-1",
		},
	}
}

func TestIngestDocument_CompletesAndPersists(t *testing.T) {
	fx := newFixture(t, func(path string) ([]docModel.Page, error) {
		return specPages(), nil
	})

	done := fx.service.IngestDocument(context.Background(), testJob())

	if done.Status != jobModel.JobStatusComplete {
		t.Fatalf("status = %q, error = %+v", done.Status, done.Error)
	}
	if done.CurrentStep != jobModel.Complete {
		t.Errorf("current step = %q", done.CurrentStep)
	}
	if done.ChunkCount == 0 || len(fx.vector.inserted) != done.ChunkCount {
		t.Errorf("chunk count = %d, vector store holds %d", done.ChunkCount, len(fx.vector.inserted))
	}
	if done.ReadinessScore <= 0 || done.ReadinessScore > 100 {
		t.Errorf("readiness score = %d", done.ReadinessScore)
	}
	for _, key := range []string{done.Artifacts.ChunksKey, done.Artifacts.QualityReportKey, done.Artifacts.DocumentKey} {
		if key == "" {
			t.Errorf("missing artifact key on completed job: %+v", done.Artifacts)
		}
	}

	for _, record := range fx.vector.inserted {
		if record.TenantId != "tenant-1" || record.DocId != "job-1" {
			t.Errorf("record carries wrong identity: %+v", record)
		}
		if record.ChunkId == "" || record.ContentHash == "" {
			t.Errorf("record missing derived identity: %+v", record)
		}
	}

	if _, ok := done.Summary[string(docModel.SeverityWarn)]; !ok {
		t.Error("summary should always carry all severity keys")
	}
}

func TestIngestDocument_RegistersFingerprint(t *testing.T) {
	fx := newFixture(t, func(path string) ([]docModel.Page, error) {
		return specPages(), nil
	})
	ctx := context.Background()
	job := testJob()
	fx.index.RegisterFile(ctx, job.TenantId, docModel.FileEntry{FileId: job.FileId, Filename: job.Payload.Filename, RawSha256: job.Payload.RawSha256})

	fx.service.IngestDocument(ctx, job)

	recent, err := fx.index.RecentFiles(ctx, "tenant-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Simhash == 0 {
		t.Error("quality stage should persist the document fingerprint")
	}
}

func TestIngestDocument_ExtractionFailure(t *testing.T) {
	fx := newFixture(t, func(path string) ([]docModel.Page, error) {
		return nil, errors.New("corrupt file")
	})

	done := fx.service.IngestDocument(context.Background(), testJob())

	if done.Status != jobModel.JobStatusError {
		t.Fatalf("status = %q, expected error", done.Status)
	}
	if done.Error.Message != "EXTRACTION_FAILURE" {
		t.Errorf("error message = %q", done.Error.Message)
	}
	if done.Error.Retry {
		t.Error("a corrupt file never gets better, retry should be false")
	}
}

func TestIngestDocument_NoChunkableText(t *testing.T) {
	fx := newFixture(t, func(path string) ([]docModel.Page, error) {
		return []docModel.Page{{Number: 1, Text: "   \n\t  "}}, nil
	})

	done := fx.service.IngestDocument(context.Background(), testJob())

	if done.Status != jobModel.JobStatusError {
		t.Fatalf("status = %q, expected error", done.Status)
	}
	if done.Error.Message != "SEGMENTATION_FAILURE" {
		t.Errorf("error message = %q", done.Error.Message)
	}
}

func TestIngestDocument_VectorStoreFailure(t *testing.T) {
	fx := newFixture(t, func(path string) ([]docModel.Page, error) {
		return specPages(), nil
	})
	fx.vector.failInsert = true

	done := fx.service.IngestDocument(context.Background(), testJob())

	if done.Status != jobModel.JobStatusError {
		t.Fatalf("status = %q, expected error", done.Status)
	}
	if done.Error.Message != "VECTOR_INGEST_FAILURE" {
		t.Errorf("error message = %q", done.Error.Message)
	}
	if !done.Error.Retry {
		t.Error("a cluster outage is transient, retry should be true")
	}
}

func TestSearch(t *testing.T) {
	fx := newFixture(t, nil)
	fx.vector.searchHits = []vectorDB.SearchHit{{ChunkId: "c1", Text: "anchor bolts", Score: 0.9}}

	hits, err := fx.service.Search(context.Background(), "tenant-1", "ds-1", "bolt torque", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkId != "c1" {
		t.Errorf("unexpected hits: %+v", hits)
	}
	if fx.embedder.calls != 1 {
		t.Errorf("query should be embedded exactly once, got %d calls", fx.embedder.calls)
	}
	if fx.vector.lastTopK != 5 {
		t.Errorf("topK = %d, expected 5", fx.vector.lastTopK)
	}
}

func TestSearch_DefaultTopK(t *testing.T) {
	fx := newFixture(t, nil)

	if _, err := fx.service.Search(context.Background(), "tenant-1", "", "query", 0); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if fx.vector.lastTopK <= 0 {
		t.Errorf("topK = %d, expected the configured default", fx.vector.lastTopK)
	}
}

func TestSearch_EmbedderFailure(t *testing.T) {
	fx := newFixture(t, nil)
	fx.embedder.fail = true

	if _, err := fx.service.Search(context.Background(), "tenant-1", "", "query", 3); err == nil {
		t.Fatal("expected the embedder error to surface")
	}
}
