package store_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unit returns a unit vector of length dim with a 1 at position i.
func unit(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func newTestStore(t *testing.T, options map[string]interface{}) *store.Store {
	t.Helper()

	s, err := store.New(store.Config{Name: "test-store", Options: options}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestNew_RequiresName(t *testing.T) {
	t.Parallel()

	_, err := store.New(store.Config{}, zap.NewNop())
	require.ErrorIs(t, err, store.ErrInvalidConfig)
}

func TestNew_RejectsBadOptionTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		options map[string]interface{}
	}{
		{name: "path not string", options: map[string]interface{}{"path": 42}},
		{name: "compress not bool", options: map[string]interface{}{"compress": 1.5}},
		{name: "compress bad string", options: map[string]interface{}{"compress": "sometimes"}},
		{name: "collection not string", options: map[string]interface{}{"collection": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := store.New(store.Config{Name: "s", Options: tt.options}, zap.NewNop())
			require.ErrorIs(t, err, store.ErrInvalidConfig)
		})
	}
}

func TestStore_AttrAndOptions(t *testing.T) {
	t.Parallel()

	opts := map[string]interface{}{"team": "billing", "collection": "events"}
	s := newTestStore(t, opts)

	assert.Equal(t, "test-store", s.Name())
	assert.Equal(t, "events", s.DefaultCollection())

	name, ok := s.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "test-store", name)

	team, ok := s.Attr("team")
	require.True(t, ok)
	assert.Equal(t, "billing", team)

	_, ok = s.Attr("missing")
	assert.False(t, ok)

	// Mutating the caller's map or the returned copy must not leak in.
	opts["team"] = "changed"
	got := s.Options()
	got["team"] = "also-changed"
	team, _ = s.Attr("team")
	assert.Equal(t, "billing", team)
}

func TestStore_AddAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, nil)

	ids, err := s.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "alpha", Embedding: unit(3, 0), Metadata: map[string]string{"kind": "x"}},
		{ID: "b", Content: "beta", Embedding: unit(3, 1), Metadata: map[string]string{"kind": "y"}},
		{ID: "c", Content: "gamma", Embedding: unit(3, 2), Metadata: map[string]string{"kind": "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []string{store.DefaultCollection}, s.Collections())

	results, err := s.Query(ctx, "", store.Query{Embedding: unit(3, 1), K: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "beta", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)

	filtered, err := s.Query(ctx, "", store.Query{Embedding: unit(3, 2), K: 2, Where: map[string]string{"kind": "x"}})
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	assert.Equal(t, "c", filtered[0].ID)
	for _, r := range filtered {
		assert.Equal(t, "x", r.Metadata["kind"])
	}
}

func TestStore_QueryCapsK(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, nil)

	_, err := s.AddDocuments(ctx, "small", []store.Document{
		{ID: "only", Content: "one", Embedding: unit(2, 0)},
	})
	require.NoError(t, err)

	results, err := s.Query(ctx, "small", store.Query{Embedding: unit(2, 0), K: 10})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStore_GeneratesIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	ids, err := s.AddDocuments(context.Background(), "", []store.Document{
		{Content: "no id", Embedding: unit(2, 0)},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = uuid.Parse(ids[0])
	assert.NoError(t, err)
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, nil)

	_, err := s.AddDocuments(ctx, "", nil)
	assert.ErrorIs(t, err, store.ErrEmptyDocuments)

	_, err = s.AddDocuments(ctx, "", []store.Document{{ID: "x", Content: "no vector"}})
	assert.ErrorIs(t, err, store.ErrMissingEmbedding)

	_, err = s.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Embedding: unit(2, 0)},
		{ID: "b", Embedding: unit(3, 0)},
	})
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	_, err = s.Query(ctx, "missing", store.Query{Embedding: unit(2, 0), K: 1})
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)

	_, err = s.Query(ctx, "", store.Query{Embedding: unit(2, 0), K: 0})
	assert.ErrorIs(t, err, store.ErrInvalidQuery)

	_, err = s.Query(ctx, "", store.Query{K: 1})
	assert.ErrorIs(t, err, store.ErrMissingEmbedding)

	err = s.DeleteDocuments(ctx, "missing", []string{"a"})
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestStore_DeleteDocuments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, nil)

	_, err := s.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "a", Embedding: unit(2, 0)},
		{ID: "b", Content: "b", Embedding: unit(2, 1)},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocuments(ctx, "", []string{"a"}))

	snap := s.Snapshot(ctx)
	assert.Equal(t, 1, snap.Documents)
}

func TestStore_Shutdown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := store.New(store.Config{Name: "closing"}, zap.NewNop())
	require.NoError(t, err)

	_, err = s.AddDocuments(ctx, "", []store.Document{{ID: "a", Content: "a", Embedding: unit(2, 0)}})
	require.NoError(t, err)

	require.NoError(t, s.Shutdown())
	assert.True(t, s.Closed())
	require.NoError(t, s.Shutdown(), "second shutdown is a no-op")

	_, err = s.AddDocuments(ctx, "", []store.Document{{ID: "b", Content: "b", Embedding: unit(2, 1)}})
	assert.ErrorIs(t, err, store.ErrStoreClosed)

	_, err = s.Query(ctx, "", store.Query{Embedding: unit(2, 0), K: 1})
	assert.ErrorIs(t, err, store.ErrStoreClosed)

	assert.ErrorIs(t, s.DeleteDocuments(ctx, "", []string{"a"}), store.ErrStoreClosed)

	assert.True(t, s.Snapshot(ctx).Closed)
}

func TestStore_Snapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, map[string]interface{}{
		"collection": "main",
		"api_key":    "sk-live-1234",
		"team":       "search",
	})

	_, err := s.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "a", Embedding: unit(2, 0)},
		{ID: "b", Content: "b", Embedding: unit(2, 1)},
	})
	require.NoError(t, err)
	_, err = s.AddDocuments(ctx, "aux", []store.Document{
		{ID: "c", Content: "c", Embedding: unit(2, 0)},
	})
	require.NoError(t, err)

	snap := s.Snapshot(ctx)
	assert.Equal(t, "test-store", snap.Name)
	assert.False(t, snap.Persistent)
	assert.Equal(t, "main", snap.DefaultCollection)
	assert.Equal(t, 3, snap.Documents)
	assert.Equal(t, []store.CollectionInfo{
		{Name: "aux", Documents: 1},
		{Name: "main", Documents: 2},
	}, snap.Collections)
	assert.Equal(t, "[REDACTED]", snap.Options["api_key"])
	assert.Equal(t, "search", snap.Options["team"])
}

func TestStore_Persistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	opts := map[string]interface{}{"path": dir, "compress": "true"}

	first, err := store.New(store.Config{Name: "disk", Options: opts}, zap.NewNop())
	require.NoError(t, err)
	_, err = first.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "persisted", Embedding: unit(2, 0)},
	})
	require.NoError(t, err)
	require.NoError(t, first.Shutdown())

	second, err := store.New(store.Config{Name: "disk", Options: opts}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown() })

	snap := second.Snapshot(ctx)
	assert.True(t, snap.Persistent)
	assert.Equal(t, 1, snap.Documents)

	results, err := second.Query(ctx, "", store.Query{Embedding: unit(2, 0), K: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].Content)
}

func TestStore_PersistentKeepsDimension(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := map[string]interface{}{"path": t.TempDir()}

	first, err := store.New(store.Config{Name: "disk", Options: opts}, zap.NewNop())
	require.NoError(t, err)
	_, err = first.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "three", Embedding: unit(3, 0)},
	})
	require.NoError(t, err)
	require.NoError(t, first.Shutdown())

	reopened, err := store.New(store.Config{Name: "disk", Options: opts}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Shutdown() })

	_, err = reopened.AddDocuments(ctx, "", []store.Document{
		{ID: "b", Content: "two", Embedding: unit(2, 0)},
	})
	require.ErrorIs(t, err, store.ErrDimensionMismatch)

	_, err = reopened.Query(ctx, "", store.Query{Embedding: unit(2, 0), K: 1})
	require.ErrorIs(t, err, store.ErrDimensionMismatch)

	_, err = reopened.AddDocuments(ctx, "", []store.Document{
		{ID: "c", Content: "three again", Embedding: unit(3, 1)},
	})
	require.NoError(t, err)

	results, err := reopened.Query(ctx, "", store.Query{Embedding: unit(3, 1), K: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].ID)
}

func TestStore_QueryNoMatchesIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t, nil)

	_, err := s.AddDocuments(ctx, "", []store.Document{
		{ID: "a", Content: "a", Embedding: unit(2, 0), Metadata: map[string]string{"kind": "x"}},
	})
	require.NoError(t, err)

	results, err := s.Query(ctx, "", store.Query{Embedding: unit(2, 0), K: 1, Where: map[string]string{"kind": "none"}})
	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestNewFactory(t *testing.T) {
	t.Parallel()

	factory := store.NewFactory(zap.NewNop())
	s, err := factory(store.Config{Name: "from-factory", Options: map[string]interface{}{"k": "v"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	assert.Equal(t, "from-factory", s.Name())
	v, ok := s.Attr("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
