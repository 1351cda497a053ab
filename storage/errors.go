package storage

import "errors"

// ErrDocumentNotFound indicates loadDocument found no file for the given id.
var ErrDocumentNotFound = errors.New("storage: document not found")

// ErrDocumentCorrupt indicates a document file exists but failed to parse
// as JSON. Callers treat this the same as not-found (fault isolation — one
// bad file must not fail a query) but log a warning first.
var ErrDocumentCorrupt = errors.New("storage: document file is corrupt")
