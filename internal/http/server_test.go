package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	server    *Server
	registry  *registry.Registry
	inspector *inspector.Inspector
	defStore  *store.Store
}

// newTestEnv wires a registry, a default store and an inspector the way
// the serve command does, and points the inspector at the default store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	injector := do.New()
	t.Cleanup(func() { _ = injector.Shutdown() })

	defStore, err := store.New(store.Config{Name: "default"}, zap.NewNop())
	require.NoError(t, err)
	insp := inspector.New(zap.NewNop())

	do.ProvideNamedValue(injector, registry.DefaultStoreKey, defStore)
	do.ProvideNamedValue(injector, registry.InspectorKey, insp)

	reg := registry.New(injector, store.NewFactory(zap.NewNop()), zap.NewNop())
	require.NoError(t, reg.SwitchInspectorStore(""))

	server, err := NewServer(reg, insp, zap.NewNop(), &Config{Host: "localhost", Port: 9191, Version: "test"})
	require.NoError(t, err)

	return &testEnv{server: server, registry: reg, inspector: insp, defStore: defStore}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.server.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	injector := do.New()
	t.Cleanup(func() { _ = injector.Shutdown() })
	reg := registry.New(injector, store.NewFactory(zap.NewNop()), zap.NewNop())
	insp := inspector.New(zap.NewNop())

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 9191}

		server, err := NewServer(reg, insp, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.Echo())
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(reg, insp, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9191, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(reg, insp, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when registry is nil", func(t *testing.T) {
		_, err := NewServer(nil, insp, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry cannot be nil")
	})

	t.Run("returns error when inspector is nil", func(t *testing.T) {
		_, err := NewServer(reg, nil, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inspector cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.registry.Register("alpha", nil))

	rec := env.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, 1, resp.Stores)
	assert.Equal(t, "default", resp.Inspector)
}

func TestHandleStores(t *testing.T) {
	t.Run("registers and lists stores", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{
			Name:    "events",
			Options: map[string]interface{}{"collection": "log", "team": "infra"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		snap := decode[store.Snapshot](t, rec)
		assert.Equal(t, "events", snap.Name)
		assert.Equal(t, "log", snap.DefaultCollection)
		assert.Equal(t, "infra", snap.Options["team"])

		rec = env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{Name: "archive"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v1/stores", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[StoreListResponse](t, rec)
		assert.Equal(t, []string{"events", "archive"}, list.Stores)
		assert.Equal(t, "default", list.Inspector)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{Name: "dup"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{Name: "dup"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		env := newTestEnv(t)

		for _, name := range []string{"", "../escape", "has space"} {
			rec := env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{Name: name})
			assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		}
		assert.Empty(t, env.registry.Names())
	})

	t.Run("rejects bad options and rolls back", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/v1/stores", RegisterStoreRequest{
			Name:    "broken",
			Options: map[string]interface{}{"compress": "sometimes"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.registry.IsRegistered("broken"))
	})

	t.Run("shows a registered store", func(t *testing.T) {
		env := newTestEnv(t)
		require.True(t, env.registry.Register("shown", map[string]interface{}{"password": "hunter2"}))

		rec := env.do(t, http.MethodGet, "/api/v1/stores/shown", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		snap := decode[store.Snapshot](t, rec)
		assert.Equal(t, "shown", snap.Name)
		assert.Equal(t, "[REDACTED]", snap.Options["password"])
	})

	t.Run("unknown store is not found", func(t *testing.T) {
		env := newTestEnv(t)

		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/stores/nope", nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/stores/nope", nil).Code)
	})

	t.Run("unregisters a store", func(t *testing.T) {
		env := newTestEnv(t)
		require.True(t, env.registry.Register("gone", nil))
		st, err := env.registry.GetStore("gone")
		require.NoError(t, err)

		rec := env.do(t, http.MethodDelete, "/api/v1/stores/gone", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, env.registry.IsRegistered("gone"))
		assert.True(t, st.Closed())
	})
}

func TestHandleDocuments(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.registry.Register("vectors", nil))

	rec := env.do(t, http.MethodPost, "/api/v1/stores/vectors/documents", AddDocumentsRequest{
		Documents: []store.Document{
			{ID: "a", Content: "alpha", Embedding: []float32{1, 0}},
			{ID: "b", Content: "beta", Embedding: []float32{0, 1}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a", "b"}, decode[AddDocumentsResponse](t, rec).IDs)

	rec = env.do(t, http.MethodPost, "/api/v1/stores/vectors/query", QueryRequest{
		Query: store.Query{Embedding: []float32{0, 1}, K: 1},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := decode[QueryResponse](t, rec).Results
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/stores/vectors/documents?id=a", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/stores/vectors/query", QueryRequest{
		Query: store.Query{Embedding: []float32{1, 0}, K: 5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	results = decode[QueryResponse](t, rec).Results
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	t.Run("maps store errors", func(t *testing.T) {
		tests := []struct {
			name   string
			method string
			path   string
			body   interface{}
			want   int
		}{
			{"empty documents", http.MethodPost, "/api/v1/stores/vectors/documents", AddDocumentsRequest{}, http.StatusBadRequest},
			{"dimension mismatch", http.MethodPost, "/api/v1/stores/vectors/documents", AddDocumentsRequest{
				Documents: []store.Document{{Content: "x", Embedding: []float32{1, 0, 0}}},
			}, http.StatusBadRequest},
			{"zero k", http.MethodPost, "/api/v1/stores/vectors/query", QueryRequest{Query: store.Query{Embedding: []float32{1, 0}}}, http.StatusBadRequest},
			{"unknown collection", http.MethodPost, "/api/v1/stores/vectors/query", QueryRequest{
				Collection: "missing",
				Query:      store.Query{Embedding: []float32{1, 0}, K: 1},
			}, http.StatusNotFound},
			{"delete without ids", http.MethodDelete, "/api/v1/stores/vectors/documents", nil, http.StatusBadRequest},
			{"unknown store", http.MethodPost, "/api/v1/stores/nope/query", QueryRequest{Query: store.Query{Embedding: []float32{1, 0}, K: 1}}, http.StatusNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := env.do(t, tt.method, tt.path, tt.body)
				assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			})
		}
	})
}

func TestHandleInspector(t *testing.T) {
	t.Run("shows the default store", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/api/v1/inspector", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "default", decode[store.Snapshot](t, rec).Name)
	})

	t.Run("switches to a named store and back", func(t *testing.T) {
		env := newTestEnv(t)
		require.True(t, env.registry.Register("debug-me", nil))

		rec := env.do(t, http.MethodPut, "/api/v1/inspector", SwitchInspectorRequest{Name: "debug-me"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "debug-me", decode[store.Snapshot](t, rec).Name)

		rec = env.do(t, http.MethodPut, "/api/v1/inspector", SwitchInspectorRequest{})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Same(t, env.defStore, env.inspector.Store())
	})

	t.Run("unknown store leaves the inspector alone", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPut, "/api/v1/inspector", SwitchInspectorRequest{Name: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Same(t, env.defStore, env.inspector.Store())
	})

	t.Run("unregistering the inspected store resets to default", func(t *testing.T) {
		env := newTestEnv(t)
		require.True(t, env.registry.Register("watched", nil))
		require.NoError(t, env.registry.SwitchInspectorStore("watched"))

		rec := env.do(t, http.MethodDelete, "/api/v1/stores/watched", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Same(t, env.defStore, env.inspector.Store())
	})

	t.Run("no store selected", func(t *testing.T) {
		injector := do.New()
		t.Cleanup(func() { _ = injector.Shutdown() })
		reg := registry.New(injector, store.NewFactory(zap.NewNop()), zap.NewNop())

		server, err := NewServer(reg, inspector.New(zap.NewNop()), zap.NewNop(), nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/inspector", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	t.Run("starts and shuts down gracefully", func(t *testing.T) {
		env := newTestEnv(t)
		env.server.config.Port = 0 // random available port

		errChan := make(chan error, 1)
		go func() {
			errChan <- env.server.Start()
		}()

		// Give server time to start
		time.Sleep(100 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, env.server.Shutdown(ctx))

		select {
		case err := <-errChan:
			assert.True(t, err == nil || err == http.ErrServerClosed)
		case <-time.After(6 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID to response", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/health", nil)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		env := newTestEnv(t)
		env.server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		rec := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			env.server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("serves prometheus metrics", func(t *testing.T) {
		env := newTestEnv(t)
		require.True(t, env.registry.Register("counted", nil))

		rec := env.do(t, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "multistore_registry_stores")
	})
}

func TestWithRegistryLock(t *testing.T) {
	env := newTestEnv(t)

	err := env.server.WithRegistryLock(func(reg *registry.Registry) error {
		assert.True(t, reg.Register("locked", nil))
		return nil
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/stores", nil)
	assert.Equal(t, []string{"locked"}, decode[StoreListResponse](t, rec).Stores)
}

func TestRequestLog_CarriesCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	injector := do.New()
	t.Cleanup(func() { _ = injector.Shutdown() })
	insp := inspector.New(nil)
	reg := registry.New(injector, store.NewFactory(zap.NewNop()), nil)
	require.True(t, reg.Register("billing", nil))

	server, err := NewServer(reg, insp, zap.New(core), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/billing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request.id"])
	assert.Equal(t, "billing", fields["store.name"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}
