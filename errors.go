package shardodb

import (
	"errors"
	"fmt"

	"github.com/augustgrove/shardodb/storage"
)

// Sentinel errors for the database-root and collection-facade operations.
// Lower-level storage and index errors are defined in their own packages
// and surfaced to callers wrapped in the typed errors below where the
// distinction matters (ValidationError, RelationError) or passed through
// unchanged otherwise (CorruptShard, CorruptDocument).
var (
	// ErrNotFound is raised by Update and GetByID when the requested
	// document id does not exist (Delete reports false instead).
	ErrNotFound = errors.New("shardodb: document not found")

	// ErrMissingDatabase is raised by Open when the target directory has
	// no _db_metadata.json.
	ErrMissingDatabase = errors.New("shardodb: no database at path")

	// ErrNotEmptyDatabase is raised by Create when the target directory
	// already contains files.
	ErrNotEmptyDatabase = errors.New("shardodb: directory is not empty")

	// ErrCollectionNotFound is raised when a named collection hasn't been
	// created or discovered from metadata.
	ErrCollectionNotFound = errors.New("shardodb: collection not found")

	// ErrCollectionExists is raised by Collection(name, schema) when a
	// schema different from the declared one is supplied for an
	// already-existing collection.
	ErrCollectionExists = errors.New("shardodb: collection already exists")

	// ErrDocumentExists is raised by Insert when the caller-supplied id
	// already names a document in the collection.
	ErrDocumentExists = errors.New("shardodb: document already exists")

	// ErrPlannerError indicates the query planner found no admissible
	// strategy. Full scan is always admissible, so this should not occur
	// in practice; it exists so a planner bug surfaces as a typed error
	// instead of a panic.
	ErrPlannerError = errors.New("shardodb: no query strategy applicable")

	// ErrClosed is returned by Collection and DropCollection after Close.
	ErrClosed = errors.New("shardodb: database is closed")
)

// ValidationError reports a schema violation on insert or update: a
// missing required field or a value of the wrong declared type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("shardodb: validation failed for field %q: %s", e.Field, e.Reason)
}

// RelationError reports a relation-bearing value that doesn't resolve in
// its target collection when validateRelations is set.
type RelationError struct {
	Field            string
	TargetCollection string
	Value            interface{}
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("shardodb: relation %q -> %s: no document matches %v",
		e.Field, e.TargetCollection, e.Value)
}

// Category buckets any error this module returns into a coarse recovery
// class, for callers that want generic retry/backoff behavior without
// enumerating every sentinel by hand.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryNotFound
	CategoryCorrupt
	CategoryIO
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryNotFound:
		return "not_found"
	case CategoryCorrupt:
		return "corrupt"
	case CategoryIO:
		return "io"
	default:
		return "unknown"
	}
}

// Classify buckets err into a Category. Validation and relation errors are
// never worth retrying; not-found errors are a caller logic error; corrupt
// document errors (storage.ErrDocumentCorrupt) have already been handled
// internally (the caller sees an empty result, not this category, in
// practice) but are classified as Corrupt here for completeness; shard
// corruption has no error of its own. Anything else is classified as IO.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var ve *ValidationError
	var re *RelationError
	switch {
	case errors.As(err, &ve), errors.As(err, &re):
		return CategoryValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCollectionNotFound):
		return CategoryNotFound
	case errors.Is(err, storage.ErrDocumentCorrupt):
		return CategoryCorrupt
	}
	return CategoryIO
}
