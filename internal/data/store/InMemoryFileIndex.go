package store

import (
	"context"
	"sync"

	"github.com/ragready/pipeline/internal/domain/docModel"
)

// InMemoryFileIndex is the fallback when Redis is offline, and what tests use.
type InMemoryFileIndex struct {
	mu      *sync.RWMutex
	entries map[string][]docModel.FileEntry //per tenant, insertion order
}

func InitInMemoryFileIndex() *InMemoryFileIndex {
	return &InMemoryFileIndex{
		mu:      new(sync.RWMutex),
		entries: make(map[string][]docModel.FileEntry),
	}
}

func (idx *InMemoryFileIndex) RegisterFile(ctx context.Context, tenantId string, entry docModel.FileEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[tenantId] = append(idx.entries[tenantId], entry)
	return nil
}

func (idx *InMemoryFileIndex) QueryByRawHash(ctx context.Context, tenantId string, rawSha256 string) ([]docModel.FileEntry, error) {
	if rawSha256 == "" {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var matches []docModel.FileEntry
	for _, entry := range idx.entries[tenantId] {
		if entry.RawSha256 == rawSha256 {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func (idx *InMemoryFileIndex) RecentFiles(ctx context.Context, tenantId string, limit int) ([]docModel.FileEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	all := idx.entries[tenantId]
	var recent []docModel.FileEntry
	for i := len(all) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

func (idx *InMemoryFileIndex) SaveFingerprint(ctx context.Context, tenantId string, fileId string, fingerprint uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := range idx.entries[tenantId] {
		if idx.entries[tenantId][i].FileId == fileId {
			idx.entries[tenantId][i].Simhash = fingerprint
		}
	}
	return nil
}
