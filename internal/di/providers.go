package di

import (
	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/logging"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/samber/do/v2"
)

// Dependency providers.

// NewRuntime constructs the runtime used by the serve command: logger,
// store factory, default store, inspector and registry.
func NewRuntime(logger *logging.Logger, defaultStore store.Config) *Runtime {
	return New(
		ProvideLogger(logger),
		ProvideStoreFactory,
		ProvideDefaultStore(defaultStore),
		ProvideInspector,
		ProvideRegistry,
	)
}

// ProvideLogger registers logger as the shared service logger.
func ProvideLogger(logger *logging.Logger) Module {
	return func(i Injector) error {
		if logger == nil {
			logger = logging.NewNop()
		}
		do.ProvideValue(i, logger)

		return nil
	}
}

// ProvideStoreFactory registers the factory every store is built with.
func ProvideStoreFactory(i Injector) error {
	do.Provide(i, func(i Injector) (store.Factory, error) {
		logger, err := ResolveLogger(i)
		if err != nil {
			return nil, err
		}

		return store.NewFactory(logger.Named("store").Underlying()), nil
	})

	return nil
}

// ProvideDefaultStore registers the default store under
// registry.DefaultStoreKey, built from cfg on first use.
func ProvideDefaultStore(cfg store.Config) Module {
	return func(i Injector) error {
		do.ProvideNamed(i, registry.DefaultStoreKey, func(i Injector) (*store.Store, error) {
			factory, err := ResolveStoreFactory(i)
			if err != nil {
				return nil, err
			}

			return factory(cfg)
		})

		return nil
	}
}

// ProvideInspector registers the debug inspector under registry.InspectorKey.
func ProvideInspector(i Injector) error {
	do.ProvideNamed(i, registry.InspectorKey, func(i Injector) (*inspector.Inspector, error) {
		logger, err := ResolveLogger(i)
		if err != nil {
			return nil, err
		}

		return inspector.New(logger.Named("inspector").Underlying()), nil
	})

	return nil
}

// ProvideRegistry registers the store registry. The registry provides
// stores into the scope the module was applied to.
func ProvideRegistry(i Injector) error {
	scope := i
	do.Provide(i, func(i Injector) (*registry.Registry, error) {
		factory, err := ResolveStoreFactory(i)
		if err != nil {
			return nil, err
		}
		logger, err := ResolveLogger(i)
		if err != nil {
			return nil, err
		}

		return registry.New(scope, factory, logger.Named("registry").Underlying()), nil
	})

	return nil
}
