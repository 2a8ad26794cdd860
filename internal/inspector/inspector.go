// Package inspector holds the debug inspector: a single slot pointing at
// the store that diagnostics currently look at.
package inspector

import (
	"context"
	"errors"
	"sync"

	"github.com/fyrsmithlabs/multistore/internal/store"
	"go.uber.org/zap"
)

// ErrNoStore is returned by Snapshot before any store has been selected.
var ErrNoStore = errors.New("inspector has no store selected")

// Inspector points debugging output at one store at a time.
type Inspector struct {
	mu     sync.RWMutex
	store  *store.Store
	logger *zap.Logger
}

// New returns an inspector with no store selected.
func New(logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{logger: logger}
}

// SetStore points the inspector at s. Passing nil clears the selection.
func (i *Inspector) SetStore(s *store.Store) {
	i.mu.Lock()
	prev := i.store
	i.store = s
	i.mu.Unlock()

	fields := []zap.Field{zap.String("to", storeName(s))}
	if prev != nil {
		fields = append(fields, zap.String("from", prev.Name()))
	}
	i.logger.Info("inspector store switched", fields...)
}

// Store returns the selected store, or nil.
func (i *Inspector) Store() *store.Store {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.store
}

// Snapshot describes the selected store.
func (i *Inspector) Snapshot(ctx context.Context) (store.Snapshot, error) {
	s := i.Store()
	if s == nil {
		return store.Snapshot{}, ErrNoStore
	}
	return s.Snapshot(ctx), nil
}

func storeName(s *store.Store) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
