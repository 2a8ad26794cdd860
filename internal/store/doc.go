// Package store provides the document store that multistore registers
// under a name.
//
// A Store wraps one chromem-go database. Each store holds one or more
// collections of documents with caller-supplied embeddings and answers
// nearest-neighbour queries against them. Stores are created by a Factory
// from a Config carrying the store name and its options:
//
//	path        directory for on-disk persistence (empty keeps the store in memory)
//	compress    gzip persisted collections (bool or "true"/"false")
//	collection  collection used when a call does not name one (default "default")
//
// Every embedding in a collection has the same length, fixed by the first
// batch added to it. Persistent stores record these lengths beside their
// collections so the rule still holds after a reopen.
//
// Unknown options are kept verbatim and reported by Options and Snapshot,
// so callers can attach their own labels to a store.
//
// Stores implement Shutdown, which the container calls when the store is
// unregistered or the process exits. A shut down store rejects every data
// operation with ErrStoreClosed.
package store
