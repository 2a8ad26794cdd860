package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/multistore/internal/config"
	"github.com/fyrsmithlabs/multistore/internal/di"
	"github.com/fyrsmithlabs/multistore/internal/events"
	httpserver "github.com/fyrsmithlabs/multistore/internal/http"
	"github.com/fyrsmithlabs/multistore/internal/logging"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/fyrsmithlabs/multistore/internal/telemetry"
)

var (
	serveConfigPath string
	serveWatch      bool
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Config file (default ~/.config/multistore/config.yaml)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload named stores and the inspector binding when the config file changes")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the multistore HTTP server",
	Long: `Start the multistore HTTP server.

The server registers the stores listed under stores.named, binds the
inspector to inspector.store (or the default store) and serves the API
until interrupted.

Examples:
  # Start with the default config file
  multistore serve

  # Start with an explicit config file
  multistore serve --config /etc/multistore/config.yaml

  # Pick up stores added to the config file without a restart
  multistore serve --watch

  # Override the port from the environment
  MULTISTORE_SERVER_HTTP_PORT=9292 multistore serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFile(serveConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return runServe(cmd, args, cfg)
	},
}

// runServe starts the server described by cfg and blocks until the command
// context is cancelled.
//
// Startup order:
//  1. Logger and telemetry
//  2. Runtime with the default store, inspector and registry
//  3. Event publisher, when events.nats_url is set
//  4. Named stores from config
//  5. Inspector binding
//  6. HTTP server
func runServe(cmd *cobra.Command, args []string, cfg *config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version), logger.Named("telemetry").Underlying())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "starting multistore",
		zap.String("version", version),
		zap.String("default_store", cfg.Stores.Default.Name),
		zap.Int("named_stores", len(cfg.Stores.Named)),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	runtime := di.NewRuntime(logger, store.Config{
		Name:    cfg.Stores.Default.Name,
		Options: cfg.Stores.Default.Options,
	})

	return di.RunEWithRuntime(runtime, di.WithRegistry(
		func(cmd *cobra.Command, injector di.Injector, reg *registry.Registry) error {
			return serve(ctx, injector, reg, cfg, logger)
		},
	))(cmd, args)
}

func serve(ctx context.Context, injector di.Injector, reg *registry.Registry, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger.Named("events").Underlying())
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn(ctx, "event publisher close failed", zap.Error(err))
			}
		}()
		reg.Observe(pub)
	}

	for _, sc := range cfg.Stores.Named {
		if err := registry.ValidateName(sc.Name); err != nil {
			return fmt.Errorf("configured store: %w", err)
		}
		reg.Register(sc.Name, sc.Options)
	}

	if err := reg.SwitchInspectorStore(cfg.Inspector.Store); err != nil {
		return fmt.Errorf("binding inspector: %w", err)
	}

	insp, err := di.ResolveInspector(injector)
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(reg, insp, logger.Named("http").Underlying(), &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Version:   version,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if serveWatch {
		go watchConfig(ctx, srv, cfg, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutdown requested", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watchConfig applies config file changes to the running server. Newly
// listed named stores are registered and a changed inspector.store is
// applied. Stores dropped from the file stay registered; unregistering is
// left to the API.
func watchConfig(ctx context.Context, srv *httpserver.Server, initial *config.Config, logger *logging.Logger) {
	inspected := initial.Inspector.Store

	onChange := func(cfg *config.Config) {
		err := srv.WithRegistryLock(func(reg *registry.Registry) error {
			added := reconcileStores(reg, cfg.Stores.Named)
			if len(added) > 0 {
				logger.Info(ctx, "config reload registered stores", zap.Strings("stores", added))
			}

			if cfg.Inspector.Store == inspected {
				return nil
			}
			if err := reg.SwitchInspectorStore(cfg.Inspector.Store); err != nil {
				return fmt.Errorf("binding inspector: %w", err)
			}
			inspected = cfg.Inspector.Store
			return nil
		})
		if err != nil {
			logger.Warn(ctx, "config reload failed", zap.Error(err))
		}
	}
	onError := func(err error) {
		logger.Warn(ctx, "config reload rejected", zap.Error(err))
	}

	if err := config.Watch(ctx, serveConfigPath, config.DefaultWatchDebounce, onChange, onError); err != nil {
		logger.Error(ctx, "config watch stopped", zap.Error(err))
	}
}

// reconcileStores registers every configured store that is not yet
// registered and returns the names it added.
func reconcileStores(reg *registry.Registry, stores []config.StoreConfig) []string {
	var added []string
	for _, sc := range stores {
		if registry.ValidateName(sc.Name) != nil || reg.IsRegistered(sc.Name) {
			continue
		}
		if reg.Register(sc.Name, sc.Options) {
			added = append(added, sc.Name)
		}
	}
	return added
}
