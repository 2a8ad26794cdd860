// Package config provides configuration loading for multistore.
//
// Configuration is read from a YAML file and overridden by MULTISTORE_*
// environment variables. See LoadWithFile for precedence and security
// rules.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/multistore/internal/registry"
)

// Config holds the complete multistore configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Stores    StoresConfig    `koanf:"stores"`
	Inspector InspectorConfig `koanf:"inspector"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per second per client on the API. Zero
	// disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// LoggingConfig selects level and encoding for the service logger. OTEL
// also forwards records to the OpenTelemetry log pipeline.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
}

// StoresConfig describes the default store and the named stores registered
// at startup.
type StoresConfig struct {
	Default StoreConfig   `koanf:"default"`
	Named   []StoreConfig `koanf:"named"`
}

// StoreConfig is one store entry. Options are passed to the store factory
// untouched.
type StoreConfig struct {
	Name    string                 `koanf:"name"`
	Options map[string]interface{} `koanf:"options"`
}

// InspectorConfig holds the debug inspector binding.
type InspectorConfig struct {
	// Store is the named store the inspector starts on. Empty means the
	// default store.
	Store string `koanf:"store"`
}

// EventsConfig enables publishing registry changes to NATS. An empty
// NATSURL turns publishing off.
type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

// TelemetryConfig holds OpenTelemetry export settings. Defaults are
// applied before the file is read, so boolean fields set to false in the
// file stay false.
type TelemetryConfig struct {
	Enabled         bool                  `koanf:"enabled"`
	Endpoint        string                `koanf:"endpoint"`
	Protocol        string                `koanf:"protocol"`
	Insecure        bool                  `koanf:"insecure"`
	TLSSkipVerify   bool                  `koanf:"tls_skip_verify"`
	ServiceName     string                `koanf:"service_name"`
	SampleRate      float64               `koanf:"sample_rate"`
	Metrics         TelemetryMetricConfig `koanf:"metrics"`
	ShutdownTimeout Duration              `koanf:"shutdown_timeout"`
}

// TelemetryMetricConfig controls OTLP metric export.
type TelemetryMetricConfig struct {
	Enabled        bool     `koanf:"enabled"`
	ExportInterval Duration `koanf:"export_interval"`
}

func defaultTelemetry() TelemetryConfig {
	return TelemetryConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		Insecure:    true,
		ServiceName: "multistore",
		SampleRate:  1.0,
		Metrics: TelemetryMetricConfig{
			Enabled:        true,
			ExportInterval: Duration(15 * time.Second),
		},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// DefaultStoreName is the name given to the default store when the config
// does not set one.
const DefaultStoreName = "default"

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Telemetry: defaultTelemetry()}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Rate limit or burst is negative
//   - Logging level or format is unknown
//   - The default store or a named store has an invalid name
//   - A named store has an empty or duplicate name
//   - The events subject contains wildcards or whitespace
//   - The inspector references a store that is not configured
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit and burst cannot be negative")
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %q (must be json or console)", c.Logging.Format)
	}

	if err := registry.ValidateName(c.Stores.Default.Name); err != nil {
		return fmt.Errorf("stores.default: %w", err)
	}

	seen := make(map[string]bool, len(c.Stores.Named))
	for i, s := range c.Stores.Named {
		if s.Name == "" {
			return fmt.Errorf("stores.named[%d]: name is required", i)
		}
		if err := registry.ValidateName(s.Name); err != nil {
			return fmt.Errorf("stores.named[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("stores.named[%d]: duplicate store name %q", i, s.Name)
		}
		seen[s.Name] = true
	}

	if c.Events.Subject != "" && strings.ContainsAny(c.Events.Subject, "*> \t") {
		return fmt.Errorf("invalid events subject: %q (wildcards and spaces are not allowed)", c.Events.Subject)
	}

	if c.Inspector.Store != "" && !seen[c.Inspector.Store] {
		return fmt.Errorf("inspector.store %q is not a configured store", c.Inspector.Store)
	}

	return nil
}
