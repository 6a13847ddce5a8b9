package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/data/redisStore"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/pkg/logger_i"
)

// RedisFileIndex keeps the per-tenant file registry the duplicate detector
// queries: a raw-hash set for exact matches and a recency-ordered window of
// file entries carrying simhash fingerprints. Entries never expire; only the
// recent window bounds how many files near-duplicate checks compare.
type RedisFileIndex struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisFileIndex(ctx context.Context) *RedisFileIndex {
	s := redisStore.GetRedisStore(ctx, config.RedisFileIndex)
	if s == nil {
		return nil
	}
	return &RedisFileIndex{
		store:  s,
		logger: logger_i.NewLogger("FileIndex"),
	}
}

func hashKey(tenantId string, rawSha256 string) string {
	return fmt.Sprintf("idx:%s:hash:%s", tenantId, rawSha256)
}

func recentKey(tenantId string) string {
	return fmt.Sprintf("idx:%s:recent", tenantId)
}

func entryKey(tenantId string, fileId string) string {
	return fmt.Sprintf("idx:%s:file:%s", tenantId, fileId)
}

func (idx *RedisFileIndex) RegisterFile(ctx context.Context, tenantId string, entry docModel.FileEntry) error {
	log := idx.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "fileId", entry.FileId)

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := idx.store.Set(ctx, entryKey(tenantId, entry.FileId), data, 0); err != nil {
		return err
	}
	if entry.RawSha256 != "" {
		if err := idx.store.SetAdd(ctx, hashKey(tenantId, entry.RawSha256), entry.FileId); err != nil {
			return err
		}
	}
	err = idx.store.SortedAdd(ctx, recentKey(tenantId), float64(time.Now().UnixNano()), entry.FileId)
	if err == nil {
		log.Debug("Registered file in index")
	}
	return err
}

func (idx *RedisFileIndex) QueryByRawHash(ctx context.Context, tenantId string, rawSha256 string) ([]docModel.FileEntry, error) {
	if rawSha256 == "" {
		return nil, nil
	}
	fileIds, err := idx.store.SetMembers(ctx, hashKey(tenantId, rawSha256))
	if err != nil {
		return nil, err
	}
	return idx.loadEntries(ctx, tenantId, fileIds)
}

// RecentFiles returns up to limit of the tenant's most recently registered
// files, newest first.
func (idx *RedisFileIndex) RecentFiles(ctx context.Context, tenantId string, limit int) ([]docModel.FileEntry, error) {
	fileIds, err := idx.store.SortedTopN(ctx, recentKey(tenantId), int64(limit))
	if err != nil {
		return nil, err
	}
	return idx.loadEntries(ctx, tenantId, fileIds)
}

// SaveFingerprint rewrites the stored entry with the fingerprint computed
// during quality checks. Later uploads compare against it.
func (idx *RedisFileIndex) SaveFingerprint(ctx context.Context, tenantId string, fileId string, fingerprint uint64) error {
	val, err := idx.store.Get(ctx, entryKey(tenantId, fileId))
	if err != nil {
		if idx.store.IsNil(err) {
			return fmt.Errorf("file %s not registered for tenant %s", fileId, tenantId)
		}
		return err
	}
	var entry docModel.FileEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return err
	}
	entry.Simhash = fingerprint
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return idx.store.Set(ctx, entryKey(tenantId, fileId), data, 0)
}

func (idx *RedisFileIndex) loadEntries(ctx context.Context, tenantId string, fileIds []string) ([]docModel.FileEntry, error) {
	var entries []docModel.FileEntry
	for _, fileId := range fileIds {
		val, err := idx.store.Get(ctx, entryKey(tenantId, fileId))
		if idx.store.IsNil(err) {
			continue //registered id without an entry, skip it
		}
		if err != nil {
			return nil, err
		}
		var entry docModel.FileEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			idx.logger.Error("Corrupt file entry", "fileId", fileId, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func TestFileIndex(store *redisStore.Store) *RedisFileIndex {
	return &RedisFileIndex{
		store:  store,
		logger: logger_i.NewLogger("test file index"),
	}
}
