package di

import (
	"fmt"

	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/logging"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/samber/do/v2"
)

// Dependency resolvers.

// ResolveLogger retrieves the service logger.
func ResolveLogger(injector Injector) (*logging.Logger, error) {
	logger, err := do.Invoke[*logging.Logger](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve logger dependency: %w", err)
	}

	return logger, nil
}

// ResolveStoreFactory retrieves the store factory.
func ResolveStoreFactory(injector Injector) (store.Factory, error) {
	factory, err := do.Invoke[store.Factory](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve store factory dependency: %w", err)
	}

	return factory, nil
}

// ResolveDefaultStore retrieves the default store, building it on first use.
func ResolveDefaultStore(injector Injector) (*store.Store, error) {
	s, err := do.InvokeNamed[*store.Store](injector, registry.DefaultStoreKey)
	if err != nil {
		return nil, fmt.Errorf("resolve default store dependency: %w", err)
	}

	return s, nil
}

// ResolveInspector retrieves the debug inspector.
func ResolveInspector(injector Injector) (*inspector.Inspector, error) {
	insp, err := do.InvokeNamed[*inspector.Inspector](injector, registry.InspectorKey)
	if err != nil {
		return nil, fmt.Errorf("resolve inspector dependency: %w", err)
	}

	return insp, nil
}

// ResolveRegistry retrieves the store registry.
func ResolveRegistry(injector Injector) (*registry.Registry, error) {
	reg, err := do.Invoke[*registry.Registry](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve registry dependency: %w", err)
	}

	return reg, nil
}
