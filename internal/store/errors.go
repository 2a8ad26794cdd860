package store

import "errors"

var (
	// ErrInvalidConfig is returned when a store config cannot be used.
	ErrInvalidConfig = errors.New("invalid store configuration")

	// ErrEmptyDocuments is returned when AddDocuments is called with no documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrMissingEmbedding is returned for a document or query without an embedding.
	ErrMissingEmbedding = errors.New("embedding is required")

	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the vectors already stored in the collection.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCollectionNotFound is returned when querying a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidQuery is returned for a query with a non-positive result count.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrStoreClosed is returned by data operations after Shutdown.
	ErrStoreClosed = errors.New("store is closed")
)
