// Package storage implements the two-level hash-sharded directory tree
// that holds one JSON file per document, plus the shard cache used by the
// index engine to avoid re-parsing hot shard files.
package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/augustgrove/shardodb/internal/logger"
)

// Document is an unordered mapping from field name to scalar, ordered
// sequence, or nested mapping — the in-memory shape of one record.
type Document map[string]interface{}

// Clone returns a deep copy of d so callers can mutate it without aliasing
// the original.
func (d Document) Clone() Document {
	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = deepCopyValue(v)
	}
	return clone
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]interface{}:
		return Document(val).Clone()
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = deepCopyValue(item)
		}
		return cp
	default:
		return val
	}
}

// ID returns the document's id field, if present and a string.
func (d Document) ID() (string, bool) {
	v, ok := d["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Serialize renders the document as human-readable JSON.
func (d Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("storage: serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeDocument parses JSON bytes into a Document.
func DeserializeDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentCorrupt, err)
	}
	return d, nil
}

// ShardPath computes the two-level directory path a document id hashes to,
// relative to a collection's root: HH/SSS, where HH is the primary shard
// (md5(id)[0:2] mod 256, 3-digit zero-padded decimal) and SSS is the
// deterministic sub-shard (md5(id)[2:4] mod subShardCount, 2-digit
// zero-padded decimal).
func ShardPath(id string, subShardCount int) (hh, sss string) {
	sum := md5.Sum([]byte(id))
	primary := int(sum[0]) % 256
	sub := int(sum[1]) % subShardCount
	return fmt.Sprintf("%03d", primary), fmt.Sprintf("%02d", sub)
}

// Store persists documents under a collection's directory using two-level
// hash sharding and atomic (temp-file + rename) writes.
type Store struct {
	root          string
	subShardCount int
	log           *logger.Logger
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string, subShardCount int, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	if subShardCount <= 0 {
		subShardCount = 16
	}
	return &Store{root: dir, subShardCount: subShardCount, log: log}
}

func (s *Store) documentPath(id string) string {
	hh, sss := ShardPath(id, s.subShardCount)
	return filepath.Join(s.root, hh, sss, id+".json")
}

// SaveDocument serializes doc and writes it to <id>.json atomically,
// creating parent directories on demand. The write itself is not
// cancellable mid-operation (spec §5); ctx is only checked before it
// starts.
func (s *Store) SaveDocument(ctx context.Context, id string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.documentPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create shard dir for %s: %w", id, err)
	}
	data, err := doc.Serialize()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storage: atomic write document %s: %w", id, err)
	}
	return nil
}

// LoadDocument returns the parsed document for id, or ErrDocumentNotFound
// if absent. A file that fails to parse is logged as a warning and treated
// as not found (fault isolation: one corrupt file must not fail a query).
func (s *Store) LoadDocument(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.documentPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("storage: read document %s: %w", id, err)
	}
	doc, err := DeserializeDocument(data)
	if err != nil {
		s.log.Warn("document %s is corrupt, treating as missing: %v", id, err)
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// DeleteDocument removes the file for id, reporting whether anything was
// removed.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path := s.documentPath(id)
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: delete document %s: %w", id, err)
	}
	return true, nil
}

// GetAllDocuments walks every primary and sub shard directory and invokes
// fn for each parsed document. Unreadable or corrupt files are skipped
// with a warning. Directory order is filesystem-dependent and must not be
// relied upon. Iteration stops early, returning nil, if fn returns false,
// and stops returning ctx.Err() if ctx is cancelled (checked once per
// document, the spec's "every getAllDocuments iteration step" suspension
// point).
func (s *Store) GetAllDocuments(ctx context.Context, fn func(id string, doc Document) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("storage: read collection root: %w", err)
	}
	for _, hhEntry := range entries {
		if !hhEntry.IsDir() {
			continue
		}
		hhPath := filepath.Join(s.root, hhEntry.Name())
		subEntries, err := os.ReadDir(hhPath)
		if err != nil {
			s.log.Warn("cannot read primary shard dir %s: %v", hhPath, err)
			continue
		}
		for _, sssEntry := range subEntries {
			if !sssEntry.IsDir() {
				continue
			}
			sssPath := filepath.Join(hhPath, sssEntry.Name())
			files, err := os.ReadDir(sssPath)
			if err != nil {
				s.log.Warn("cannot read sub-shard dir %s: %v", sssPath, err)
				continue
			}
			for _, f := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") || strings.HasSuffix(f.Name(), ".tmp") {
					continue
				}
				id := strings.TrimSuffix(f.Name(), ".json")
				data, err := os.ReadFile(filepath.Join(sssPath, f.Name()))
				if err != nil {
					s.log.Warn("cannot read document file %s: %v", f.Name(), err)
					continue
				}
				doc, err := DeserializeDocument(data)
				if err != nil {
					s.log.Warn("document %s is corrupt, skipping: %v", id, err)
					continue
				}
				if !fn(id, doc) {
					return nil
				}
			}
		}
	}
	return nil
}
