package shardodb

import (
	"github.com/augustgrove/shardodb/storage"
)

// Iterator is the cursor interface Find results are exposed through, for
// callers that want to stream instead of holding the whole result set.
type Iterator interface {
	// Next advances to the next document. It returns false once the
	// iterator is exhausted.
	Next() bool
	// Value returns the document at the current position.
	Value() storage.Document
	// Close releases the iterator. It is always safe to call and never
	// returns an error: a sliceIterator holds no external resources.
	Close() error
}

// sliceIterator adapts an already-materialized result set (the executor
// always returns one: strategies operate on cached postings or a
// directory walk, never a live cursor) to the Iterator interface.
type sliceIterator struct {
	docs []storage.Document
	pos  int
}

func newSliceIterator(docs []storage.Document) *sliceIterator {
	return &sliceIterator{docs: docs, pos: -1}
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.docs)
}

func (it *sliceIterator) Value() storage.Document {
	if it.pos < 0 || it.pos >= len(it.docs) {
		return nil
	}
	return it.docs[it.pos]
}

func (it *sliceIterator) Close() error { return nil }
