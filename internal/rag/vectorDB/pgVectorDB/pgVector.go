// Package pgVectorDB stores chunk vectors in Postgres with the pgvector
// extension. It is the relational alternative to the search-index store
// and satisfies the same interface.
package pgVectorDB

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/pkg/logger_i"
)

type Store struct {
	connString string
	dimension  int

	mu     sync.Mutex
	conn   *pgx.Conn
	logger *logger_i.Logger
}

func NewStore(host string, port int, database string, user string, password string, dimension int) *Store {
	return &Store{
		connString: fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=require", user, password, host, port, database),
		dimension:  dimension,
		logger:     logger_i.NewLogger("pgvector"),
	}
}

// connection returns the cached connection, re-dialing when it has been
// closed underneath us.
func (s *Store) connection(ctx context.Context) (*pgx.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && !s.conn.IsClosed() {
		if err := s.conn.Ping(ctx); err == nil {
			return s.conn, nil
		}
		_ = s.conn.Close(ctx)
		s.conn = nil
	}

	conn, err := pgx.Connect(ctx, s.connString)
	if err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	s.conn = conn
	go s.closeOnDone(ctx, conn)
	return conn, nil
}

func (s *Store) closeOnDone(ctx context.Context, conn *pgx.Conn) {
	<-ctx.Done()
	s.logger.Info("Shutting down Postgres connection")
	if err := conn.Close(context.Background()); err != nil {
		s.logger.Error("could not close connection: ", "error:", err)
	}
}

func (s *Store) EnsureReady(ctx context.Context) error {
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("could not enable pgvector: %w", err)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
		tenant_id TEXT NOT NULL,
		dataset_id TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		chunk_id TEXT NOT NULL UNIQUE,
		source_uri TEXT,
		filename TEXT,
		page INTEGER,
		chunk_index INTEGER,
		text TEXT,
		embedding vector(%d),
		content_hash TEXT,
		embedding_model TEXT,
		acl TEXT[],
		created_at TIMESTAMPTZ,
		doc_type TEXT,
		discipline TEXT,
		section_reference TEXT,
		standards_referenced TEXT[]
	)`, s.dimension)
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("could not create chunks table: %w", err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, tenantId string, datasetId string, docId string) error {
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx,
		"DELETE FROM chunks WHERE tenant_id = $1 AND dataset_id = $2 AND doc_id = $3",
		tenantId, datasetId, docId)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("removed previous chunks", "docId", docId, "count", tag.RowsAffected())
	}
	return nil
}

const insertChunk = `INSERT INTO chunks (
	tenant_id, dataset_id, doc_id, chunk_id, source_uri, filename,
	page, chunk_index, text, embedding, content_hash, embedding_model,
	acl, created_at, doc_type, discipline, section_reference, standards_referenced
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (chunk_id) DO UPDATE SET
	text = EXCLUDED.text,
	embedding = EXCLUDED.embedding,
	content_hash = EXCLUDED.content_hash,
	created_at = EXCLUDED.created_at`

func (s *Store) InsertChunks(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("mismatch: got %d records but %d vectors", len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, record := range records {
		batch.Queue(insertChunk,
			record.TenantId, record.DatasetId, record.DocId, record.ChunkId,
			record.SourceUri, record.Filename, record.Page, record.ChunkIndex,
			record.Text, pgvector.NewVector(vectors[i]), record.ContentHash,
			record.EmbeddingModel, record.Acl, record.CreatedAt,
			record.DocType, record.Discipline, record.SectionReference,
			record.StandardsReferenced)
	}
	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("chunk insert failed: %w", err)
		}
	}
	return nil
}

const searchChunks = `SELECT chunk_id, doc_id, page, text,
	1 - (embedding <=> $1) AS score
FROM chunks
WHERE tenant_id = $2 %s
ORDER BY embedding <=> $1
LIMIT $3`

func (s *Store) Search(ctx context.Context, queryVector []float32, filter vectorDB.SearchFilter, topK int) ([]vectorDB.SearchHit, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = config.SearchDefaultTopK
	}

	args := []any{pgvector.NewVector(queryVector), filter.TenantId, topK}
	datasetClause := ""
	if filter.DatasetId != "" {
		datasetClause = "AND dataset_id = $4"
		args = append(args, filter.DatasetId)
	}
	rows, err := conn.Query(ctx, fmt.Sprintf(searchChunks, datasetClause), args...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var hits []vectorDB.SearchHit
	for rows.Next() {
		var hit vectorDB.SearchHit
		var page *int
		if err := rows.Scan(&hit.ChunkId, &hit.DocId, &page, &hit.Text, &hit.Score); err != nil {
			return nil, err
		}
		if page != nil {
			hit.Page = *page
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
