package shardodb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/augustgrove/shardodb/index"
	"github.com/augustgrove/shardodb/internal/logger"
	"github.com/augustgrove/shardodb/internal/query"
	"github.com/augustgrove/shardodb/storage"
)

// Collection is a named group of schema-validated documents plus the
// named indices declared over them. Writes to one collection serialize on
// its mutex; reads do not block each other or writers (the underlying
// store and index shard cache are themselves safe for concurrent use, but
// a write in flight must not be interleaved with another write's
// document-save/index-fanout sequence).
type Collection struct {
	name   string
	db     *Database
	dir    string
	schema Schema

	compiled *compiledSchema
	store    *storage.Store
	indices  map[string]*index.Engine
	log      *logger.Logger

	mu           sync.Mutex
	builtIndices map[string]bool
}

func newCollection(db *Database, name string, schema Schema, opts Options) (*Collection, error) {
	dir := filepath.Join(db.path, "collections", name)
	docsDir := filepath.Join(dir, "documents")
	indicesDir := filepath.Join(dir, "_indices")

	log := logger.Default()

	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, err
	}

	col := &Collection{
		name:         name,
		db:           db,
		dir:          dir,
		schema:       schema,
		compiled:     compiled,
		store:        storage.NewStore(docsDir, opts.SubShardCount, log),
		indices:      make(map[string]*index.Engine),
		log:          log,
		builtIndices: make(map[string]bool),
	}

	for indexName, fields := range schema.Indices {
		col.indices[indexName] = index.New(indicesDir, indexName, fields, opts.ShardCount, opts.ShardCacheSize, log)
		// Under SkipInitialIndexBuild an index counts as built only if shard
		// files for it are already on disk; any other is built on first write.
		onDisk, _ := filepath.Glob(filepath.Join(indicesDir, indexName+"_shard*.json"))
		col.builtIndices[indexName] = opts.SkipInitialIndexBuild && len(onDisk) > 0
	}

	if !opts.SkipInitialIndexBuild {
		// The callers (Database.Collection and Open) are not spec'd
		// cancellable operations; there is no caller ctx to thread in here.
		if err := col.rebuildAllIndices(context.Background()); err != nil {
			return nil, err
		}
	}

	return col, nil
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Schema returns the collection's declared schema.
func (c *Collection) Schema() Schema { return c.schema }

// Insert validates doc against the schema, synthesizes an id via
// uuid.NewString when doc has none, persists it, and fans it out to every
// named index whose fields are all present. It returns the stored
// document, id included.
func (c *Collection) Insert(ctx context.Context, doc map[string]interface{}) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := storage.Document(doc).Clone()
	id, ok := stored.ID()
	if !ok || id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}

	if _, err := c.store.LoadDocument(ctx, id); err == nil {
		return nil, fmt.Errorf("shardodb: insert %s: %w", id, ErrDocumentExists)
	}

	if err := c.schema.validate(stored, c.compiled); err != nil {
		return nil, err
	}
	if err := c.checkRelations(ctx, stored); err != nil {
		return nil, err
	}
	if err := c.ensureIndicesBuilt(ctx); err != nil {
		return nil, err
	}

	if err := c.store.SaveDocument(ctx, id, stored); err != nil {
		return nil, err
	}
	if err := c.addToIndices(ctx, id, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetByID returns the document with the given id, or ErrNotFound.
func (c *Collection) GetByID(ctx context.Context, id string) (storage.Document, error) {
	doc, err := c.store.LoadDocument(ctx, id)
	if err != nil {
		if err == storage.ErrDocumentNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Update merges doc into the document at id as a shallow overwrite: each
// top-level key of doc replaces the stored value and fields doc does not
// mention are kept. It revalidates the schema and relations and
// reconciles index membership: entries the old
// document contributed are removed before entries for the new document
// are added, so a changed indexed field never leaves a stale posting.
func (c *Collection) Update(ctx context.Context, id string, doc map[string]interface{}) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old, err := c.store.LoadDocument(ctx, id)
	if err != nil {
		if err == storage.ErrDocumentNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stored := old.Clone()
	for k, v := range storage.Document(doc).Clone() {
		stored[k] = v
	}
	stored["id"] = id

	if err := c.schema.validate(stored, c.compiled); err != nil {
		return nil, err
	}
	if err := c.checkRelations(ctx, stored); err != nil {
		return nil, err
	}
	if err := c.ensureIndicesBuilt(ctx); err != nil {
		return nil, err
	}

	if err := c.removeFromIndices(ctx, id, old); err != nil {
		return nil, err
	}
	if err := c.store.SaveDocument(ctx, id, stored); err != nil {
		return nil, err
	}
	if err := c.addToIndices(ctx, id, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes the document at id and every index entry it
// contributed. It reports false, nil if no such document existed.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old, err := c.store.LoadDocument(ctx, id)
	if err != nil {
		if err == storage.ErrDocumentNotFound {
			return false, nil
		}
		return false, err
	}

	if err := c.removeFromIndices(ctx, id, old); err != nil {
		return false, err
	}
	return c.store.DeleteDocument(ctx, id)
}

// Find runs where (a condition map in the same shape Parse accepts)
// through the planner and executor and returns the matching documents,
// ordered and paginated per opts.
func (c *Collection) Find(ctx context.Context, where map[string]interface{}, opts QueryOptions) ([]storage.Document, error) {
	return query.Execute(ctx, c.store, where, query.Options{
		SortField: opts.SortField,
		SortDesc:  opts.SortDesc,
		Limit:     opts.Limit,
		Skip:      opts.Skip,
	}, c.indexDescriptors())
}

// FindIterator is Find wrapped in an Iterator, for callers that prefer a
// cursor over a materialized slice.
func (c *Collection) FindIterator(ctx context.Context, where map[string]interface{}, opts QueryOptions) (Iterator, error) {
	docs, err := c.Find(ctx, where, opts)
	if err != nil {
		return nil, err
	}
	return newSliceIterator(docs), nil
}

// EnsureIndex declares (or redeclares) a named composite index and builds
// it immediately from the current document set.
func (c *Collection) EnsureIndex(ctx context.Context, name string, fields []string, opts Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	indicesDir := filepath.Join(c.dir, "_indices")
	engine := index.New(indicesDir, name, fields, opts.ShardCount, opts.ShardCacheSize, c.log)
	if err := engine.BuildFromDocuments(ctx, c.store); err != nil {
		return err
	}
	c.indices[name] = engine
	c.builtIndices[name] = true

	if c.schema.Indices == nil {
		c.schema.Indices = make(map[string][]string)
	}
	c.schema.Indices[name] = fields
	return c.db.metadata.putCollection(c.name, c.schema)
}

// DropIndex removes a named index's shard files and its schema entry.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indices[name]; !ok {
		return ErrCollectionNotFound
	}
	delete(c.indices, name)
	delete(c.builtIndices, name)
	delete(c.schema.Indices, name)

	indicesDir := filepath.Join(c.dir, "_indices")
	entries, err := os.ReadDir(indicesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	prefix := name + "_shard"
	for _, e := range entries {
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			_ = os.Remove(filepath.Join(indicesDir, e.Name()))
		}
	}
	return c.db.metadata.putCollection(c.name, c.schema)
}

// ListIndices returns every currently attached index's name.
func (c *Collection) ListIndices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.indices))
	for name := range c.indices {
		names = append(names, name)
	}
	return names
}

func (c *Collection) indexDescriptors() []query.IndexDescriptor {
	out := make([]query.IndexDescriptor, 0, len(c.indices))
	for name, engine := range c.indices {
		out = append(out, query.IndexDescriptor{Name: name, Lookup: engine})
	}
	return out
}

func (c *Collection) addToIndices(ctx context.Context, id string, doc storage.Document) error {
	for _, engine := range c.indices {
		values, ok := engine.IndexedFieldsPresent(doc)
		if !ok {
			continue
		}
		if err := engine.Add(ctx, values, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) removeFromIndices(ctx context.Context, id string, doc storage.Document) error {
	for _, engine := range c.indices {
		values, ok := engine.IndexedFieldsPresent(doc)
		if !ok {
			continue
		}
		if err := engine.Remove(ctx, values, id); err != nil {
			return err
		}
	}
	return nil
}

// rebuildAllIndices runs a full BuildFromDocuments pass over every
// declared index, used on Create/Open unless SkipInitialIndexBuild is set.
func (c *Collection) rebuildAllIndices(ctx context.Context) error {
	for name, engine := range c.indices {
		if err := engine.BuildFromDocuments(ctx, c.store); err != nil {
			return err
		}
		c.builtIndices[name] = true
	}
	return nil
}

// ensureIndicesBuilt lazily builds any index that was attached without an
// eager rebuild at open time (SkipInitialIndexBuild) and has not yet seen
// its first write.
func (c *Collection) ensureIndicesBuilt(ctx context.Context) error {
	for name, engine := range c.indices {
		if c.builtIndices[name] {
			continue
		}
		c.log.Warn("index %s of collection %s not built yet, building it on first write", name, c.name)
		if err := engine.BuildFromDocuments(ctx, c.store); err != nil {
			return err
		}
		c.builtIndices[name] = true
	}
	return nil
}

func (c *Collection) closeIndices() error {
	for _, engine := range c.indices {
		if err := engine.Close(); err != nil {
			return err
		}
	}
	return nil
}
