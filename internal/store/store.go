package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "multistore.store"

// tracer resolves the global provider on every call so a provider
// installed after package init is picked up.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

const (
	// OptionPath selects on-disk persistence.
	OptionPath = "path"
	// OptionCompress enables gzip for persisted collections.
	OptionCompress = "compress"
	// OptionCollection names the collection used when a call passes none.
	OptionCollection = "collection"

	// DefaultCollection is used when OptionCollection is not set.
	DefaultCollection = "default"
)

// Config is the construction input handed to a Factory: the name the
// store is registered under and its free-form options.
type Config struct {
	Name    string
	Options map[string]interface{}
}

// Factory builds a Store from a Config.
type Factory func(cfg Config) (*Store, error)

// NewFactory returns the Factory used for every registered store.
func NewFactory(logger *zap.Logger) Factory {
	return func(cfg Config) (*Store, error) {
		return New(cfg, logger)
	}
}

// Store is a named chromem-go database.
type Store struct {
	name              string
	options           map[string]interface{}
	path              string
	compress          bool
	defaultCollection string

	db     *chromem.DB
	logger *zap.Logger

	mu     sync.RWMutex
	dims   map[string]int
	closed bool
}

// New creates a store from cfg. A store with a path option is persisted
// under that directory and reloads existing collections from it.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		name:              cfg.Name,
		options:           copyOptions(cfg.Options),
		defaultCollection: DefaultCollection,
		logger:            logger.With(zap.String("store", cfg.Name)),
		dims:              make(map[string]int),
	}

	var err error
	if s.path, err = stringOption(cfg.Options, OptionPath); err != nil {
		return nil, err
	}
	if s.compress, err = boolOption(cfg.Options, OptionCompress); err != nil {
		return nil, err
	}
	if coll, err := stringOption(cfg.Options, OptionCollection); err != nil {
		return nil, err
	} else if coll != "" {
		s.defaultCollection = coll
	}

	if s.path == "" {
		s.db = chromem.NewDB()
	} else {
		path, err := expandPath(s.path)
		if err != nil {
			return nil, fmt.Errorf("expanding store path: %w", err)
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", path, err)
		}
		db, err := chromem.NewPersistentDB(path, s.compress)
		if err != nil {
			return nil, fmt.Errorf("opening store %s at %s: %w", cfg.Name, path, err)
		}
		s.path = path
		s.db = db
		if err := s.loadDimensions(); err != nil {
			return nil, fmt.Errorf("loading embedding dimensions for store %s: %w", cfg.Name, err)
		}
	}

	s.logger.Info("store created",
		zap.String("path", s.path),
		zap.Bool("compress", s.compress),
		zap.String("collection", s.defaultCollection),
	)

	return s, nil
}

// Name returns the name the store was created with.
func (s *Store) Name() string {
	return s.name
}

// Attr returns a configuration attribute. "name" always resolves to the
// store name; any other key is looked up in the options.
func (s *Store) Attr(key string) (interface{}, bool) {
	if key == "name" {
		return s.name, true
	}
	v, ok := s.options[key]
	return v, ok
}

// Options returns a copy of the options the store was created with.
func (s *Store) Options() map[string]interface{} {
	return copyOptions(s.options)
}

// DefaultCollection returns the collection used when a call names none.
func (s *Store) DefaultCollection() string {
	return s.defaultCollection
}

// Closed reports whether Shutdown has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Shutdown closes the store. chromem-go flushes persisted documents on
// write, so there is nothing left to sync; later data operations fail with
// ErrStoreClosed. Calling Shutdown twice is a no-op.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("store closed")
	return nil
}

// CollectionInfo describes one collection in a Snapshot.
type CollectionInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// Snapshot is a point-in-time description of a store, as shown by the
// debug inspector.
type Snapshot struct {
	Name              string                 `json:"name"`
	Options           map[string]interface{} `json:"options,omitempty"`
	Persistent        bool                   `json:"persistent"`
	DefaultCollection string                 `json:"default_collection"`
	Collections       []CollectionInfo       `json:"collections"`
	Documents         int                    `json:"documents"`
	Closed            bool                   `json:"closed"`
}

// Snapshot describes the store. Options whose key looks like a credential
// are masked.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	_, span := tracer().Start(ctx, "Store.Snapshot")
	defer span.End()

	snap := Snapshot{
		Name:              s.name,
		Options:           maskOptions(s.options),
		Persistent:        s.path != "",
		DefaultCollection: s.defaultCollection,
		Collections:       []CollectionInfo{},
		Closed:            s.Closed(),
	}

	for name, coll := range s.db.ListCollections() {
		n := coll.Count()
		snap.Collections = append(snap.Collections, CollectionInfo{Name: name, Documents: n})
		snap.Documents += n
	}
	sort.Slice(snap.Collections, func(i, j int) bool {
		return snap.Collections[i].Name < snap.Collections[j].Name
	})

	return snap
}

// Collections returns the sorted names of every collection in the store.
func (s *Store) Collections() []string {
	colls := s.db.ListCollections()
	names := make([]string, 0, len(colls))
	for name := range colls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyOptions(opts map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

var sensitiveOptionKeys = []string{"password", "secret", "token", "api_key", "apikey", "credential"}

func maskOptions(opts map[string]interface{}) map[string]interface{} {
	out := copyOptions(opts)
	for k := range out {
		lower := strings.ToLower(k)
		for _, sensitive := range sensitiveOptionKeys {
			if strings.Contains(lower, sensitive) {
				out[k] = "[REDACTED]"
				break
			}
		}
	}
	return out
}

func stringOption(opts map[string]interface{}, key string) (string, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: option %q must be a string, got %T", ErrInvalidConfig, key, v)
	}
	return s, nil
}

func boolOption(opts map[string]interface{}, key string) (bool, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("%w: option %q: %v", ErrInvalidConfig, key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: option %q must be a bool, got %T", ErrInvalidConfig, key, v)
	}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
