// Package index implements the sharded on-disk secondary index engine:
// composite-key encoding, shard routing by hash, exact/prefix/range
// lookups, atomic shard persistence, and full rebuild from a document
// source.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/augustgrove/shardodb/internal/docpath"
	"github.com/augustgrove/shardodb/internal/logger"
	"github.com/augustgrove/shardodb/storage"
)

// DefaultShardCount is used when a schema doesn't override it.
const DefaultShardCount = 16

// DefaultCacheCapacity is the default number of shards an engine keeps
// resident at once (spec §4.2).
const DefaultCacheCapacity = 4

// Engine is one named index: an ordered field list, a fixed shard count,
// and a bounded shard cache.
type Engine struct {
	mu         sync.Mutex
	dir        string // directory holding this collection's _indices files
	name       string
	fields     []string
	shardCount int
	cache      *storage.ShardCache
	log        *logger.Logger
}

// New returns an Engine for the named index over fields, persisting its
// shard files under dir (a collection's _indices directory).
func New(dir, name string, fields []string, shardCount, cacheCapacity int, log *logger.Logger) *Engine {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultCacheCapacity
	}
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		dir:        dir,
		name:       name,
		fields:     fields,
		shardCount: shardCount,
		cache:      storage.NewShardCache(cacheCapacity),
		log:        log,
	}
}

// Name returns the index's declared name.
func (e *Engine) Name() string { return e.name }

// Fields returns the index's ordered field list. The slice is not a copy;
// callers must not mutate it.
func (e *Engine) Fields() []string { return e.fields }

func (e *Engine) shardPath(idx int) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_shard%d.json", e.name, idx))
}

func (e *Engine) shardCacheKey(idx int) string {
	return e.shardPath(idx)
}

// loadShard returns the parsed contents of shard idx, consulting the
// resident cache first. A missing file is an empty shard; a corrupt file
// is logged and treated as empty (reads tolerate corruption, the next
// write recreates a valid file). ctx is checked before the load starts
// (spec §5's "every shard load" suspension point).
func (e *Engine) loadShard(ctx context.Context, idx int) (storage.ShardData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := e.shardCacheKey(idx)
	if data, ok := e.cache.Get(key); ok {
		return data, nil
	}
	path := e.shardPath(idx)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data := storage.ShardData{}
			e.cache.Put(key, data)
			return data, nil
		}
		return nil, fmt.Errorf("index: read shard %s: %w", path, err)
	}
	var data storage.ShardData
	if err := json.Unmarshal(raw, &data); err != nil {
		e.log.Warn("shard %s is corrupt, treating as empty: %v", path, err)
		data = storage.ShardData{}
	}
	e.cache.Put(key, data)
	return data, nil
}

// persistShard atomically rewrites shard idx and updates the cache.
func (e *Engine) persistShard(idx int, data storage.ShardData) error {
	path := e.shardPath(idx)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("index: create index dir: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal shard %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("index: atomic write shard %s: %w", path, err)
	}
	e.cache.Put(e.shardCacheKey(idx), data)
	return nil
}

// Add inserts docId into the posting list for the composite key derived
// from values, persisting the owning shard atomically. A no-op if docId is
// already present for that key (invariant I1).
func (e *Engine) Add(ctx context.Context, values []interface{}, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := EncodeKey(values)
	if err != nil {
		return err
	}
	idx := ShardIndex(key, e.shardCount)

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadShard(ctx, idx)
	if err != nil {
		return err
	}
	postings := data[key]
	for _, id := range postings {
		if id == docID {
			return nil
		}
	}
	data[key] = append(postings, docID)
	return e.persistShard(idx, data)
}

// Remove drops docId from the posting list for the composite key derived
// from values, dropping the key entirely if the list becomes empty
// (invariant I2).
func (e *Engine) Remove(ctx context.Context, values []interface{}, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := EncodeKey(values)
	if err != nil {
		return err
	}
	idx := ShardIndex(key, e.shardCount)

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadShard(ctx, idx)
	if err != nil {
		return err
	}
	postings, ok := data[key]
	if !ok {
		return nil
	}
	out := postings[:0]
	for _, id := range postings {
		if id != docID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		delete(data, key)
	} else {
		data[key] = out
	}
	return e.persistShard(idx, data)
}

// GetExact returns the posting list for the fully-specified composite key,
// or an empty slice if absent. len(values) must equal len(e.Fields()).
func (e *Engine) GetExact(ctx context.Context, values []interface{}) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(values) != len(e.fields) {
		return nil, ErrWrongArity
	}
	key, err := EncodeKey(values)
	if err != nil {
		return nil, err
	}
	idx := ShardIndex(key, e.shardCount)

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadShard(ctx, idx)
	if err != nil {
		return nil, err
	}
	postings := data[key]
	out := make([]string, len(postings))
	copy(out, postings)
	return out, nil
}

// GetPrefix returns the deduplicated union of posting lists whose
// composite key equals prefixKey or starts with prefixKey+Separator.
// 1 <= len(prefixValues) < len(e.Fields()) is required.
func (e *Engine) GetPrefix(ctx context.Context, prefixValues []interface{}) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(prefixValues) == 0 || len(prefixValues) >= len(e.fields) {
		return nil, ErrWrongArity
	}
	prefixKey, err := KeyPrefix(prefixValues)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < e.shardCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.loadShard(ctx, i)
		if err != nil {
			return nil, err
		}
		for key, postings := range data {
			if !keyMatchesPrefix(key, prefixKey) {
				continue
			}
			for _, id := range postings {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
	}
	return out, nil
}

func keyMatchesPrefix(key, prefixKey string) bool {
	if key == prefixKey {
		return true
	}
	if len(key) <= len(prefixKey) {
		return false
	}
	return key[:len(prefixKey)] == prefixKey && key[len(prefixKey):len(prefixKey)+len(Separator)] == Separator
}

// GetRange returns the deduplicated union of posting lists whose composite
// key matches prefixValues and whose final segment, parsed as a number,
// falls within [min, max].
func (e *Engine) GetRange(ctx context.Context, prefixValues []interface{}, min, max float64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(prefixValues) == 0 || len(prefixValues) >= len(e.fields) {
		return nil, ErrWrongArity
	}
	prefixKey, err := KeyPrefix(prefixValues)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < e.shardCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.loadShard(ctx, i)
		if err != nil {
			return nil, err
		}
		for key, postings := range data {
			if !keyMatchesPrefix(key, prefixKey) {
				continue
			}
			v, ok := LastSegmentAsNumber(key)
			if !ok || v < min || v > max {
				continue
			}
			for _, id := range postings {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
	}
	return out, nil
}

// GetAllKeys returns the concatenated key to postings map across every
// shard, used by the planner's ORDER-BY-by-index helper.
func (e *Engine) GetAllKeys(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string][]string)
	for i := 0; i < e.shardCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.loadShard(ctx, i)
		if err != nil {
			return nil, err
		}
		for k, v := range data {
			out[k] = v
		}
	}
	return out, nil
}

// DocumentSource is the minimal streaming interface BuildFromDocuments
// needs: invoke fn once per document, stopping early if fn returns false.
type DocumentSource interface {
	GetAllDocuments(ctx context.Context, fn func(id string, doc storage.Document) bool) error
}

// BuildFromDocuments performs a full rebuild: every existing shard file is
// deleted, fresh empty shards are computed in memory while streaming every
// document from source, and only non-empty shards are written back
// atomically. Documents missing any indexed field are skipped (invariant
// I4).
func (e *Engine) BuildFromDocuments(ctx context.Context, source DocumentSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 0; i < e.shardCount; i++ {
		_ = os.Remove(e.shardPath(i))
	}
	e.cache.Clear()

	shards := make([]storage.ShardData, e.shardCount)
	for i := range shards {
		shards[i] = storage.ShardData{}
	}

	err := source.GetAllDocuments(ctx, func(id string, doc storage.Document) bool {
		values, ok := e.extractValues(doc)
		if !ok {
			return true
		}
		key, err := EncodeKey(values)
		if err != nil {
			e.log.Warn("skipping document %s during rebuild of %s: %v", id, e.name, err)
			return true
		}
		idx := ShardIndex(key, e.shardCount)
		postings := shards[idx][key]
		for _, existing := range postings {
			if existing == id {
				return true
			}
		}
		shards[idx][key] = append(postings, id)
		return true
	})
	if err != nil {
		return err
	}

	for i, data := range shards {
		if len(data) == 0 {
			continue
		}
		if err := e.persistShard(i, data); err != nil {
			return err
		}
	}
	return nil
}

// extractValues pulls this index's declared fields off doc in order,
// returning ok=false if any field is missing or null (invariant I4).
func (e *Engine) extractValues(doc storage.Document) ([]interface{}, bool) {
	values := make([]interface{}, len(e.fields))
	for i, field := range e.fields {
		v, ok := docpath.Get(doc, field)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// IndexedFieldsPresent reports whether doc carries every field this index
// declares, non-null — the precondition for Add/Remove to apply.
func (e *Engine) IndexedFieldsPresent(doc storage.Document) ([]interface{}, bool) {
	return e.extractValues(doc)
}

// Close flushes any dirty resident shards. Writes in this engine are
// eager (every Add/Remove persists before returning), so there is never
// anything dirty to flush; Close only releases the cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Clear()
	return nil
}
