package shardodb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

const metadataVersion = "1"
const metadataFileName = "_db_metadata.json"

// CollectionMeta is the database root's record of one collection: the
// schema it was declared with and when it was created. This is the
// authoritative source for auto-discovery on Open.
type CollectionMeta struct {
	Schema  Schema    `json:"schema"`
	Created time.Time `json:"created"`
}

// databaseMetadata is the single file at the database root recording
// version, creation timestamp, and every collection's declared schema.
type databaseMetadata struct {
	Version     string                    `json:"version"`
	Created     time.Time                 `json:"created"`
	Collections map[string]CollectionMeta `json:"collections"`
}

// metadataManager guards reads and atomic rewrites of _db_metadata.json.
type metadataManager struct {
	path string
	mu   sync.RWMutex
	data databaseMetadata
}

func newMetadataManager(path string) *metadataManager {
	return &metadataManager{
		path: path,
		data: databaseMetadata{
			Version:     metadataVersion,
			Created:     time.Now().UTC(),
			Collections: make(map[string]CollectionMeta),
		},
	}
}

// loadMetadataManager reads an existing metadata file. It returns
// ErrMissingDatabase if the file doesn't exist.
func loadMetadataManager(path string) (*metadataManager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingDatabase
		}
		return nil, fmt.Errorf("shardodb: read metadata: %w", err)
	}
	var data databaseMetadata
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("shardodb: parse metadata: %w", err)
	}
	if data.Collections == nil {
		data.Collections = make(map[string]CollectionMeta)
	}
	return &metadataManager{path: path, data: data}, nil
}

func (m *metadataManager) save() error {
	raw, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("shardodb: marshal metadata: %w", err)
	}
	if err := atomic.WriteFile(m.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("shardodb: atomic write metadata: %w", err)
	}
	return nil
}

func (m *metadataManager) putCollection(name string, schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data.Collections[name]; ok {
		existing.Schema = schema
		m.data.Collections[name] = existing
		return m.save()
	}
	m.data.Collections[name] = CollectionMeta{Schema: schema, Created: time.Now().UTC()}
	return m.save()
}

func (m *metadataManager) getCollection(name string) (CollectionMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.data.Collections[name]
	return meta, ok
}

func (m *metadataManager) deleteCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.Collections, name)
	return m.save()
}

func (m *metadataManager) listCollections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data.Collections))
	for name := range m.data.Collections {
		names = append(names, name)
	}
	return names
}
