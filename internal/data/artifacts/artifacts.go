// Package artifacts persists per-document pipeline outputs on disk: the
// chunk records as JSON lines, plus the document and quality report
// snapshots. Keys are relative paths under the artifacts root so they can
// be handed between stages and stored on the job.
package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragready/pipeline/internal/domain/docModel"
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("could not create artifacts root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) prefix(tenantId string, datasetId string, fileId string) string {
	return filepath.Join("processed", tenantId, datasetId, fileId)
}

func (s *Store) ChunksKey(tenantId string, datasetId string, fileId string) string {
	return filepath.Join(s.prefix(tenantId, datasetId, fileId), "chunks.jsonl")
}

func (s *Store) QualityReportKey(tenantId string, datasetId string, fileId string) string {
	return filepath.Join(s.prefix(tenantId, datasetId, fileId), "quality_report.json")
}

func (s *Store) DocumentKey(tenantId string, datasetId string, fileId string) string {
	return filepath.Join(s.prefix(tenantId, datasetId, fileId), "document.json")
}

// WriteChunks writes one JSON object per line and returns the key.
func (s *Store) WriteChunks(tenantId string, datasetId string, fileId string, records []docModel.ChunkRecord) (string, error) {
	key := s.ChunksKey(tenantId, datasetId, fileId)
	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create chunks artifact: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return key, nil
}

// ReadChunks streams the JSONL artifact back, skipping blank lines.
func (s *Store) ReadChunks(key string) ([]docModel.ChunkRecord, error) {
	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		return nil, fmt.Errorf("could not open chunks artifact: %w", err)
	}
	defer f.Close()

	var records []docModel.ChunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record docModel.ChunkRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("corrupt chunk record: %w", err)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func (s *Store) WriteJSON(key string, payload any) error {
	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

func (s *Store) ReadJSON(key string, target any) error {
	data, err := os.ReadFile(filepath.Join(s.root, key))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
