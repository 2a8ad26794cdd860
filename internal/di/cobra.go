package di

import (
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/spf13/cobra"
)

// RunEWithRuntime adapts a handler that needs an injector into a cobra
// RunE function. Each call runs the handler inside a fresh runtime scope.
func RunEWithRuntime(
	runtime *Runtime,
	handler func(cmd *cobra.Command, injector Injector) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return runtime.Invoke(func(injector Injector) error {
			return handler(cmd, injector)
		})
	}
}

// WithRegistry decorates a handler to resolve the store registry first.
func WithRegistry(
	handler func(cmd *cobra.Command, injector Injector, reg *registry.Registry) error,
) func(cmd *cobra.Command, injector Injector) error {
	return func(cmd *cobra.Command, injector Injector) error {
		reg, err := ResolveRegistry(injector)
		if err != nil {
			return err
		}

		return handler(cmd, injector, reg)
	}
}
