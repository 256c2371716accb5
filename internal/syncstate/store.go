package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/aatumaykin/iliassync/internal/logger"
)

// PersistenceError reports a state file that exists but cannot be read,
// parsed or written. An absent file is not an error.
type PersistenceError struct {
	Op   string // read, parse, write
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sync state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store reads and writes the state file.
type Store struct {
	fs     afero.Fs
	path   string
	logger *logger.Logger
}

// NewStore creates a store for the file at path on fsys.
func NewStore(fsys afero.Fs, path string, log *logger.Logger) *Store {
	return &Store{fs: fsys, path: path, logger: log}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty state; any
// other failure is returned as *PersistenceError and never replaced with an
// empty state.
func (s *Store) Load() (*State, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("sync state file not found, starting empty",
			logger.Field{Key: "file", Value: s.path})
		return New(), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}

	state := New()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, &PersistenceError{Op: "parse", Path: s.path, Err: err}
	}

	s.logger.Debug("sync state loaded",
		logger.Field{Key: "file", Value: s.path},
		logger.Field{Key: "synced_files", Value: state.Len()},
		logger.Field{Key: "events", Value: len(state.events)})

	return state, nil
}

// Save overwrites the state file atomically: the document is written to a
// temporary file, synced and renamed over the original.
func (s *Store) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "\t")
	if err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	tmpPath := s.path + ".tmp"
	file, err := s.fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &PersistenceError{Op: "write", Path: tmpPath, Err: err}
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = s.fs.Remove(tmpPath)
		return &PersistenceError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = s.fs.Remove(tmpPath)
		return &PersistenceError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return &PersistenceError{Op: "write", Path: tmpPath, Err: err}
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	s.logger.Debug("sync state saved",
		logger.Field{Key: "file", Value: s.path},
		logger.Field{Key: "synced_files", Value: state.Len()})

	return nil
}
