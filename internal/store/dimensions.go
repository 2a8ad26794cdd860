package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// dimensionsFile sits next to the collection directories of a persistent
// store. chromem-go only loads subdirectories, so it ignores the file.
const dimensionsFile = "dimensions.json"

// loadDimensions restores the per-collection embedding dimensions of a
// persistent store. Entries for collections that no longer exist are
// dropped. Collections persisted without an entry take their dimension
// from the next batch added to them.
func (s *Store) loadDimensions() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(s.path, dimensionsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var dims map[string]int
	if err := json.Unmarshal(data, &dims); err != nil {
		return fmt.Errorf("parsing %s: %w", dimensionsFile, err)
	}

	existing := s.db.ListCollections()
	for name, dim := range dims {
		if _, ok := existing[name]; ok && dim > 0 {
			s.dims[name] = dim
		}
	}
	return nil
}

// saveDimensions writes s.dims for a persistent store. The caller holds
// s.mu.
func (s *Store) saveDimensions() error {
	if s.path == "" {
		return nil
	}

	data, err := json.Marshal(s.dims)
	if err != nil {
		return err
	}

	path := filepath.Join(s.path, dimensionsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
