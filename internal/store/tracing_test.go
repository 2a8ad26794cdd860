package store_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/fyrsmithlabs/multistore/internal/telemetry"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Installs global providers, so it must not run in parallel.
func TestStore_Spans(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	restore := tt.Install()
	defer restore()

	ctx := context.Background()
	s, err := store.New(store.Config{Name: "traced"}, zap.NewNop())
	require.NoError(t, err)
	defer s.Shutdown()

	_, err = s.AddDocuments(ctx, "events", []store.Document{
		{ID: "a", Content: "a", Embedding: unit(2, 0)},
		{ID: "b", Content: "b", Embedding: unit(2, 1)},
	})
	require.NoError(t, err)

	_, err = s.Query(ctx, "events", store.Query{Embedding: unit(2, 0), K: 1})
	require.NoError(t, err)

	_, err = s.Query(ctx, "events", store.Query{Embedding: unit(2, 0), K: 0})
	require.Error(t, err)

	tt.AssertSpanAttribute(t, "Store.AddDocuments", "store", "traced")
	tt.AssertSpanAttribute(t, "Store.AddDocuments", "collection", "events")
	tt.AssertSpanAttribute(t, "Store.AddDocuments", "count", int64(2))
	tt.AssertSpanExists(t, "Store.Query")

	span := tt.SpanByName("Store.AddDocuments")
	require.NotNil(t, span)
	require.Equal(t, codes.Ok, span.Status().Code)
}
