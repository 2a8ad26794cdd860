package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Document is a unit of content stored with its embedding.
type Document struct {
	ID        string            `json:"id,omitempty"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding"`
}

// Query is a nearest-neighbour search against one collection.
type Query struct {
	Embedding []float32         `json:"embedding"`
	K         int               `json:"k"`
	Where     map[string]string `json:"where,omitempty"`
}

// Result is one match returned by Query.
type Result struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float32           `json:"similarity"`
}

// AddDocuments stores docs in collection, creating the collection if
// needed. An empty collection name selects the store's default collection.
// Documents without an ID are given a random UUID. The stored IDs are
// returned in input order.
func (s *Store) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	ctx, span := tracer().Start(ctx, "Store.AddDocuments")
	defer span.End()

	collection = s.collectionName(collection)
	span.SetAttributes(
		attribute.String("store", s.name),
		attribute.String("collection", collection),
		attribute.Int("count", len(docs)),
	)

	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	dim := s.dims[collection]
	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			return nil, fmt.Errorf("document %d: %w", i, ErrMissingEmbedding)
		}
		if dim == 0 {
			dim = len(doc.Embedding)
		}
		if len(doc.Embedding) != dim {
			return nil, fmt.Errorf("document %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(doc.Embedding), dim)
		}
	}

	if _, known := s.dims[collection]; !known {
		s.dims[collection] = dim
		if err := s.saveDimensions(); err != nil {
			delete(s.dims, collection)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("recording embedding dimension of %s: %w", collection, err)
		}
	}

	coll, err := s.db.GetOrCreateCollection(collection, nil, noEmbedding)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("getting collection %s: %w", collection, err)
	}

	ids := make([]string, len(docs))
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		chromemDocs[i] = chromem.Document{
			ID:        id,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}

	if err := coll.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("adding documents to %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("added documents",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)

	return ids, nil
}

// Query returns up to q.K documents from collection ordered by descending
// similarity to q.Embedding. K larger than the collection is capped to
// its size.
func (s *Store) Query(ctx context.Context, collection string, q Query) ([]Result, error) {
	ctx, span := tracer().Start(ctx, "Store.Query")
	defer span.End()

	collection = s.collectionName(collection)
	span.SetAttributes(
		attribute.String("store", s.name),
		attribute.String("collection", collection),
		attribute.Int("k", q.K),
	)

	if q.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, q.K)
	}
	if len(q.Embedding) == 0 {
		return nil, ErrMissingEmbedding
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	coll := s.db.GetCollection(collection, noEmbedding)
	if coll == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if dim, ok := s.dims[collection]; ok && dim != len(q.Embedding) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(q.Embedding), dim)
	}

	k := q.K
	if count := coll.Count(); k > count {
		k = count
	}
	if k == 0 {
		return []Result{}, nil
	}

	matches, err := coll.QueryEmbedding(ctx, q.Embedding, k, q.Where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ID:         m.ID,
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: m.Similarity,
		}
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// DeleteDocuments removes the documents with the given IDs from
// collection.
func (s *Store) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	ctx, span := tracer().Start(ctx, "Store.DeleteDocuments")
	defer span.End()

	collection = s.collectionName(collection)
	span.SetAttributes(
		attribute.String("store", s.name),
		attribute.String("collection", collection),
		attribute.Int("count", len(ids)),
	)

	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	coll := s.db.GetCollection(collection, noEmbedding)
	if coll == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	if err := coll.Delete(ctx, nil, nil, ids...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting documents from %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("deleted documents",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
	)
	return nil
}

func (s *Store) collectionName(name string) string {
	if name == "" {
		return s.defaultCollection
	}
	return name
}

// noEmbedding is installed on every collection. Callers always supply
// embeddings, and passing nil would make chromem-go fall back to its
// OpenAI embedder.
func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrMissingEmbedding
}
