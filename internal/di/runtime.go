// Package di wires multistore's components into a samber/do container.
package di

import (
	"github.com/samber/do/v2"
)

// Injector is the container type handed to modules and handlers.
type Injector = do.Injector

// Module registers providers with an injector.
type Module func(Injector) error

// Runtime builds a fresh injector for every Invoke from a fixed set of
// modules.
type Runtime struct {
	modules []Module
}

// New returns a runtime that applies modules, in order, on every Invoke.
func New(modules ...Module) *Runtime {
	return &Runtime{modules: modules}
}

// Invoke creates a new root scope, applies the runtime's modules followed
// by extra, then runs handler. Nil modules are skipped. A module error is
// returned as is and the handler does not run. The scope is shut down
// before Invoke returns, which shuts down every store built inside it.
func (r *Runtime) Invoke(handler func(Injector) error, extra ...Module) error {
	injector := do.New()
	defer func() { _ = injector.Shutdown() }()

	for _, group := range [][]Module{r.modules, extra} {
		for _, module := range group {
			if module == nil {
				continue
			}
			if err := module(injector); err != nil {
				return err
			}
		}
	}

	return handler(injector)
}
