// Package registry keeps a set of named stores inside a samber/do
// container.
//
// Each registered name maps to a lazily built *store.Store provided under
// StoreKey(name). The registry tracks the names it registered in insertion
// order and is the only writer of keys under StoreKeyPrefix, so its name
// list and the container stay in step.
//
// A Registry is not safe for concurrent use. Callers that share one across
// goroutines serialize access themselves.
package registry

import (
	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// Observer is told about every change the registry makes. Callbacks run
// synchronously after the change.
type Observer interface {
	StoreRegistered(name string)
	StoreUnregistered(name string)
	InspectorSwitched(name string)
}

// Registry maps store names to container entries.
type Registry struct {
	injector do.Injector
	factory  store.Factory
	logger   *zap.Logger

	names     []string
	observers []Observer
}

// New returns an empty registry that provides stores into injector, built
// by factory.
func New(injector do.Injector, factory store.Factory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		injector: injector,
		factory:  factory,
		logger:   logger,
		names:    []string{},
	}
}

// Observe adds o to the observers notified of registry changes.
func (r *Registry) Observe(o Observer) {
	r.observers = append(r.observers, o)
}

// IsRegistered reports whether name has been registered and not since
// unregistered.
func (r *Registry) IsRegistered(name string) bool {
	return r.indexOf(name) >= 0
}

// Register provides a store for name, built on first lookup from
// store.Config{Name: name, Options: options}. It returns false and changes
// nothing when name is already registered.
//
// The registered name always wins: a "name" key in options is dropped.
func (r *Registry) Register(name string, options map[string]interface{}) bool {
	if r.IsRegistered(name) {
		OperationsTotal.WithLabelValues("register", resultNoop).Inc()
		return false
	}

	opts := make(map[string]interface{}, len(options))
	for k, v := range options {
		opts[k] = v
	}
	if v, ok := opts["name"]; ok {
		r.logger.Warn("ignoring name option, registered name takes precedence",
			zap.String("store", name),
			zap.Any("option", v),
		)
		delete(opts, "name")
	}

	cfg := store.Config{Name: name, Options: opts}
	factory := r.factory
	do.ProvideNamed(r.injector, StoreKey(name), func(do.Injector) (*store.Store, error) {
		return factory(cfg)
	})

	r.names = append(r.names, name)
	StoresRegistered.Inc()
	OperationsTotal.WithLabelValues("register", resultOK).Inc()

	r.logger.Info("store registered", zap.String("store", name), zap.Int("options", len(opts)))
	for _, o := range r.observers {
		o.StoreRegistered(name)
	}
	return true
}

// Unregister removes the store registered as name, shutting it down if it
// was built. It returns false when name is not registered.
func (r *Registry) Unregister(name string) bool {
	idx := r.indexOf(name)
	if idx < 0 {
		OperationsTotal.WithLabelValues("unregister", resultNoop).Inc()
		return false
	}

	if err := do.ShutdownNamed(r.injector, StoreKey(name)); err != nil {
		r.logger.Warn("store shutdown failed", zap.String("store", name), zap.Error(err))
	}

	r.names = append(r.names[:idx], r.names[idx+1:]...)
	StoresRegistered.Dec()
	OperationsTotal.WithLabelValues("unregister", resultOK).Inc()

	r.logger.Info("store unregistered", zap.String("store", name))
	for _, o := range r.observers {
		o.StoreUnregistered(name)
	}
	return true
}

// GetStore returns the store registered as name. It does not check the
// name list first: an unknown name yields the container's own error.
func (r *Registry) GetStore(name string) (*store.Store, error) {
	s, err := do.InvokeNamed[*store.Store](r.injector, StoreKey(name))
	if err != nil {
		OperationsTotal.WithLabelValues("get", resultError).Inc()
		return nil, err
	}
	OperationsTotal.WithLabelValues("get", resultOK).Inc()
	return s, nil
}

// SwitchInspectorStore points the debug inspector at the store registered
// as name, or at the default store when name is empty. On error the
// inspector keeps its current store.
func (r *Registry) SwitchInspectorStore(name string) error {
	var (
		target *store.Store
		err    error
	)
	if name != "" {
		target, err = r.GetStore(name)
	} else {
		target, err = do.InvokeNamed[*store.Store](r.injector, DefaultStoreKey)
	}
	if err != nil {
		OperationsTotal.WithLabelValues("switch_inspector", resultError).Inc()
		return err
	}

	insp, err := do.InvokeNamed[*inspector.Inspector](r.injector, InspectorKey)
	if err != nil {
		OperationsTotal.WithLabelValues("switch_inspector", resultError).Inc()
		return err
	}

	insp.SetStore(target)
	OperationsTotal.WithLabelValues("switch_inspector", resultOK).Inc()
	for _, o := range r.observers {
		o.InspectorSwitched(target.Name())
	}
	return nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) indexOf(name string) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}
