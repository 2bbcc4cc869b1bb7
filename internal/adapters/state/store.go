// Package state persists build records in a flat JSON file under the
// workspace's state directory.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RecordStore = (*Store)(nil)

// DefaultPath is the state file location relative to the workspace root.
const DefaultPath = ".weft/state.json"

// Store implements ports.RecordStore using a flat JSON file keyed by
// step (or step@profile) name. A file that cannot be parsed is treated as
// absent, so a corrupt state only costs a full rebuild.
type Store struct {
	path  string
	mu    sync.RWMutex
	cache map[string]domain.Record
}

// NewStore creates a RecordStore backed by the file at the given path.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.Record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read state file")
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		// Unparseable state degrades to an empty cache: every step reports a
		// miss and the next successful run rewrites the file.
		s.cache = make(map[string]domain.Record)
		return nil
	}

	return nil
}

// save writes the cache atomically: temp file in the same directory, then
// rename, so a crash mid-write never leaves a truncated state file.
func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal state")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create state directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck,gosec // cleanup path
		os.Remove(tmpName) //nolint:errcheck,gosec // cleanup path
		return zerr.Wrap(err, "failed to write state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // cleanup path
		return zerr.Wrap(err, "failed to close temp state file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // cleanup path
		return zerr.Wrap(err, "failed to replace state file")
	}

	return nil
}

// Get retrieves the record for a (step, profile) pair. A missing record
// returns nil without error.
func (s *Store) Get(step, profile string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.cache[domain.RecordKey(step, profile)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Put stores a record and persists the file.
func (s *Store) Put(record domain.Record) error {
	s.mu.Lock()
	s.cache[domain.RecordKey(record.Step, record.Profile)] = record
	s.mu.Unlock()

	return s.save()
}

// Reset drops every record and removes the state file.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.cache = make(map[string]domain.Record)
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.Wrap(err, "failed to remove state file")
	}
	return nil
}
