// Package shardodb implements an embedded, filesystem-backed document
// database. Documents are stored as one JSON file per record under a
// two-level hash-sharded directory tree; lookups are accelerated by named
// on-disk secondary indices (single-field or composite) whose postings are
// themselves sharded JSON files. A query planner chooses among composite
// exact-match, composite prefix-match, index-seek-with-filter, multi-index
// intersection, index union, or full scan based on estimated selectivity.
//
// Architecture:
//  1. Database: root handle, owns the collection registry and metadata file.
//  2. Collection: validates and persists documents, fans writes out to every
//     affected named index.
//  3. storage.Store: two-level hash-sharded document files, atomic writes.
//  4. index.Engine: one per named index — composite-key shard routing,
//     atomic shard rewrites, a bounded shard cache.
//  5. internal/query: the AND/OR condition tree, the strategy planner, and
//     the executor that runs the chosen strategy.
//
// Non-goals: multi-process concurrent writers, strict ACID transactions,
// B-tree ordered range scans inside a shard, and network access. A single
// process must own a database directory at a time; concurrent writers to
// one collection within that process serialize on a per-collection mutex.
package shardodb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/augustgrove/shardodb/internal/logger"
)

// Database is the root handle for an on-disk database directory. It owns
// the metadata file and the registry of open collections.
type Database struct {
	path     string
	opts     Options
	metadata *metadataManager

	mu          sync.RWMutex
	collections map[string]*Collection
	closed      bool
}

// Create initializes a new database at path, which must not exist or must
// be an empty directory, and returns it open.
func Create(path string, opts Options) (*Database, error) {
	opts = opts.withDefaults()

	entries, err := os.ReadDir(path)
	switch {
	case err == nil:
		if len(entries) > 0 {
			return nil, ErrNotEmptyDatabase
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return nil, fmt.Errorf("shardodb: create database directory: %w", mkErr)
		}
	default:
		return nil, fmt.Errorf("shardodb: stat database directory: %w", err)
	}

	mm := newMetadataManager(filepath.Join(path, metadataFileName))
	if err := mm.save(); err != nil {
		return nil, err
	}

	return &Database{
		path:        path,
		opts:        opts,
		metadata:    mm,
		collections: make(map[string]*Collection),
	}, nil
}

// Open opens an existing database at path. It fails with
// ErrMissingDatabase if the directory has no _db_metadata.json.
func Open(path string, opts Options) (*Database, error) {
	opts = opts.withDefaults()

	mm, err := loadMetadataManager(filepath.Join(path, metadataFileName))
	if err != nil {
		return nil, err
	}

	db := &Database{
		path:        path,
		opts:        opts,
		metadata:    mm,
		collections: make(map[string]*Collection),
	}

	for name, meta := range mm.data.Collections {
		col, err := newCollection(db, name, meta.Schema, opts)
		if err != nil {
			return nil, fmt.Errorf("shardodb: reopen collection %q: %w", name, err)
		}
		db.collections[name] = col
	}

	sweepOrphanedTempFiles(path)
	return db, nil
}

// Collection returns an existing collection, or, if schema is non-nil,
// creates a new one declared with that schema. Passing a non-nil schema
// for an already-existing collection returns ErrCollectionExists unless
// the schema is unchanged.
func (db *Database) Collection(name string, schema *Schema) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}

	if col, ok := db.collections[name]; ok {
		if schema != nil {
			equal, err := sameSchema(col.schema, *schema)
			if err != nil {
				return nil, err
			}
			if !equal {
				return nil, ErrCollectionExists
			}
		}
		return col, nil
	}

	if schema == nil {
		return nil, ErrCollectionNotFound
	}

	col, err := newCollection(db, name, *schema, db.opts)
	if err != nil {
		return nil, err
	}
	if err := db.metadata.putCollection(name, *schema); err != nil {
		return nil, err
	}
	db.collections[name] = col
	return col, nil
}

func sameSchema(a, b Schema) (bool, error) {
	aj, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return schemaEqual(string(aj), string(bj))
}

// DropCollection deletes a collection's directory and its metadata entry.
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}

	col, ok := db.collections[name]
	if !ok {
		return ErrCollectionNotFound
	}
	if err := col.closeIndices(); err != nil {
		return err
	}
	if err := os.RemoveAll(col.dir); err != nil {
		return fmt.Errorf("shardodb: remove collection directory: %w", err)
	}
	delete(db.collections, name)
	return db.metadata.deleteCollection(name)
}

// ListCollections returns every known collection name.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	return names
}

// Backup copies the entire database directory to dest. This is a
// black-box directory copy, not otherwise specified by the design —
// callers needing incremental or streaming backup should copy the
// directory tree themselves.
func (db *Database) Backup(dest string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return copyDir(db.path, dest)
}

// Close flushes every open collection's index engines and marks the
// database closed. Subsequent Collection and DropCollection calls return
// ErrClosed; other methods do not check it.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	for _, col := range db.collections {
		if err := col.closeIndices(); err != nil {
			return err
		}
	}
	db.closed = true
	return nil
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

// sweepOrphanedTempFiles removes leftover *.tmp files an aborted write left
// behind between its temp-file write and rename. A crash between those two
// steps is recoverable: the next successful write to that path recreates a
// valid file, and this sweep just keeps the tree tidy on reopen.
func sweepOrphanedTempFiles(root string) {
	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(p) == ".tmp" {
			if os.Remove(p) == nil {
				logger.Default().Warn("removed orphaned temp file %s", p)
			}
		}
		return nil
	})
}
