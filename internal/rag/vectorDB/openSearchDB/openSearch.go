// Package openSearchDB stores chunk vectors in an OpenSearch-compatible
// index over plain HTTP. Index lifecycle, document replacement and bulk
// writes all go through the generic request helper so the store works
// against any endpoint that speaks the REST API.
package openSearchDB

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/customHttpClient"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var ErrBulkWrite = errors.New("bulk write rejected documents")

type Store struct {
	endpoint  string
	indexName string
	dimension int
	http      *http.Client
	logger    *logger_i.Logger
}

func NewStore(endpoint string, indexName string, dimension int) *Store {
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = "https://" + endpoint
	}
	return &Store{
		endpoint:  strings.TrimRight(endpoint, "/"),
		indexName: indexName,
		dimension: dimension,
		http:      customHttpClient.Get(),
		logger:    logger_i.NewLogger("opensearch"),
	}
}

type response struct {
	status int
	body   []byte
}

func (s *Store) request(ctx context.Context, method string, path string, body []byte, contentType string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return response{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("opensearch request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, err
	}
	return response{status: resp.StatusCode, body: data}, nil
}

// EnsureReady creates the index when missing and recreates it when an
// existing mapping carries a different vector dimension. Any other HEAD
// status is an error rather than a silent proceed.
func (s *Store) EnsureReady(ctx context.Context) error {
	head, err := s.request(ctx, http.MethodHead, "/"+s.indexName, nil, "")
	if err != nil {
		return err
	}

	recreate := false
	if head.status == http.StatusOK {
		mapping, err := s.request(ctx, http.MethodGet, "/"+s.indexName+"/_mapping", nil, "")
		if err != nil {
			return err
		}
		if mapping.status == http.StatusOK && len(mapping.body) > 0 {
			existing := existingDimension(mapping.body, s.indexName)
			if existing != 0 && existing != s.dimension {
				if _, err := s.request(ctx, http.MethodDelete, "/"+s.indexName, nil, ""); err != nil {
					return err
				}
				recreate = true
			} else {
				return nil
			}
		} else {
			return nil
		}
	}
	if head.status != http.StatusNotFound && head.status != http.StatusBadRequest && !recreate {
		return fmt.Errorf("unexpected index check status %d", head.status)
	}

	body, err := json.Marshal(indexMapping(s.dimension))
	if err != nil {
		return err
	}
	resp, err := s.request(ctx, http.MethodPut, "/"+s.indexName, body, "application/json")
	if err != nil {
		return err
	}
	if resp.status >= 300 {
		return fmt.Errorf("index creation failed (%d): %s", resp.status, resp.body)
	}
	s.logger.Info("created index", "indexName", s.indexName, "dimension", s.dimension)
	return nil
}

func existingDimension(body []byte, indexName string) int {
	var payload map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Dimension int `json:"dimension"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	return payload[indexName].Mappings.Properties["vector"].Dimension
}

func indexMapping(dimension int) map[string]any {
	return map[string]any{
		"settings": map[string]any{"index": map[string]any{"knn": true}},
		"mappings": map[string]any{
			"properties": map[string]any{
				"tenant_id":       map[string]any{"type": "keyword"},
				"dataset_id":      map[string]any{"type": "keyword"},
				"doc_id":          map[string]any{"type": "keyword"},
				"chunk_id":        map[string]any{"type": "keyword"},
				"source_uri":      map[string]any{"type": "keyword"},
				"filename":        map[string]any{"type": "keyword"},
				"page":            map[string]any{"type": "integer"},
				"chunk_index":     map[string]any{"type": "integer"},
				"created_at":      map[string]any{"type": "date"},
				"embedding_model": map[string]any{"type": "keyword"},
				"content_hash":    map[string]any{"type": "keyword"},
				"acl":             map[string]any{"type": "keyword"},
				"text":            map[string]any{"type": "text"},
				"vector":          map[string]any{"type": "knn_vector", "dimension": dimension},
			},
		},
	}
}

func (s *Store) DeleteDocument(ctx context.Context, tenantId string, datasetId string, docId string) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"tenant_id": tenantId}},
					{"term": map[string]any{"dataset_id": datasetId}},
					{"term": map[string]any{"doc_id": docId}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	resp, err := s.request(ctx, http.MethodPost, "/"+s.indexName+"/_delete_by_query", body, "application/json")
	if err != nil {
		return err
	}
	// 404 means nothing indexed yet, which is fine on first ingest
	if resp.status >= 300 && resp.status != http.StatusNotFound {
		return fmt.Errorf("delete_by_query failed (%d): %s", resp.status, resp.body)
	}
	return nil
}

func (s *Store) InsertChunks(ctx context.Context, records []docModel.ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("mismatch: got %d records but %d vectors", len(records), len(vectors))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, record := range records {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": s.indexName, "_id": record.ChunkId}}); err != nil {
			return err
		}
		doc, err := bulkDocument(record, vectors[i])
		if err != nil {
			return err
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	resp, err := s.request(ctx, http.MethodPost, "/"+s.indexName+"/_bulk", buf.Bytes(), "application/x-ndjson")
	if err != nil {
		return err
	}
	if resp.status >= 300 {
		return fmt.Errorf("bulk write failed (%d): %s", resp.status, resp.body)
	}
	return checkBulkResponse(resp.body)
}

func bulkDocument(record docModel.ChunkRecord, vector []float32) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["vector"] = vector
	return json.Marshal(doc)
}

// checkBulkResponse surfaces per-action errors, capped to a short sample
// so a thousand-row failure does not flood the log.
func checkBulkResponse(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var payload struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("unreadable bulk response: %w", err)
	}
	if !payload.Errors {
		return nil
	}
	var sample []string
	for _, item := range payload.Items {
		for _, action := range item {
			if len(action.Error) > 0 {
				sample = append(sample, string(action.Error))
			}
		}
		if len(sample) >= config.BulkErrorSampleLimit {
			break
		}
	}
	return fmt.Errorf("%w: %s", ErrBulkWrite, strings.Join(sample, "; "))
}

func (s *Store) Search(ctx context.Context, queryVector []float32, filter vectorDB.SearchFilter, topK int) ([]vectorDB.SearchHit, error) {
	filters := []map[string]any{
		{"term": map[string]any{"tenant_id": filter.TenantId}},
	}
	if filter.DatasetId != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"dataset_id": filter.DatasetId}})
	}
	query := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": filters,
				"must": []map[string]any{
					{"knn": map[string]any{"vector": map[string]any{"vector": queryVector, "k": topK}}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := s.request(ctx, http.MethodPost, "/"+s.indexName+"/_search", body, "application/json")
	if err != nil {
		return nil, err
	}
	if resp.status >= 300 {
		return nil, fmt.Errorf("search failed (%d): %s", resp.status, resp.body)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float32 `json:"_score"`
				Source struct {
					ChunkId string `json:"chunk_id"`
					DocId   string `json:"doc_id"`
					Text    string `json:"text"`
					Page    int    `json:"page"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return nil, err
	}
	hits := make([]vectorDB.SearchHit, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		hits = append(hits, vectorDB.SearchHit{
			ChunkId: hit.Source.ChunkId,
			DocId:   hit.Source.DocId,
			Text:    hit.Source.Text,
			Page:    hit.Source.Page,
			Score:   hit.Score,
		})
	}
	return hits, nil
}
