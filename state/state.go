// Package state persists the updater's bookkeeping between process runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const fileName = "state.json"

// UpdateState is the persisted record.
type UpdateState struct {
	// LastCheckTimestamp is the time of the last successful metadata check
	// in epoch milliseconds; zero means never.
	LastCheckTimestamp int64 `json:"lastCheckTimestamp"`
	// BundleVersion is the bundle version currently in effect.
	BundleVersion string `json:"storedBundleVersion,omitempty"`
	// AppliedVersion is the version of the last bundle downloaded by the updater.
	AppliedVersion string `json:"storedAppliedVersion,omitempty"`
}

// LastCheck returns LastCheckTimestamp as a time.
func (s UpdateState) LastCheck() time.Time {
	return time.UnixMilli(s.LastCheckTimestamp)
}

// Store holds one UpdateState. A Store created with NewFileStore keeps it in
// a JSON file; NewMemoryStore keeps it in memory only.
// Each call is atomic; there are no cross-call transactions.
type Store struct {
	mu   sync.Mutex
	path string

	mem *UpdateState
}

// NewFileStore returns a store backed by the file at path. Parent
// directories are created on the first save.
func NewFileStore(path string) *Store {
	return &Store{path: path}
}

// NewMemoryStore returns a store that does not survive the process.
func NewMemoryStore() *Store {
	return &Store{mem: &UpdateState{}}
}

// DefaultPath returns the default state file for app:
// $XDG_STATE_HOME/<app>/state.json or ~/.local/state/<app>/state.json.
func DefaultPath(app string) (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, app, fileName), nil
}

// Path returns the backing file, or "" for a memory store.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted state, or the zero state if nothing was saved.
func (s *Store) Load() (UpdateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Save replaces the persisted state.
func (s *Store) Save(st UpdateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(st)
}

// BundleVersion returns the stored bundle version and whether one is set.
func (s *Store) BundleVersion() (string, bool, error) {
	st, err := s.Load()
	if err != nil {
		return "", false, err
	}
	return st.BundleVersion, st.BundleVersion != "", nil
}

// SetBundleVersion stores the bundle version currently in effect.
func (s *Store) SetBundleVersion(version string) error {
	return s.update(func(st *UpdateState) {
		st.BundleVersion = version
	})
}

// LastCheck returns the time of the last successful check.
func (s *Store) LastCheck() (time.Time, error) {
	st, err := s.Load()
	if err != nil {
		return time.Time{}, err
	}
	return st.LastCheck(), nil
}

// SetLastCheck stores the time of the last successful check.
func (s *Store) SetLastCheck(t time.Time) error {
	return s.update(func(st *UpdateState) {
		st.LastCheckTimestamp = t.UnixMilli()
	})
}

// Reset removes the persisted state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem != nil {
		*s.mem = UpdateState{}
		return nil
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	log.Debugf("removed update state %s", s.path)
	return nil
}

func (s *Store) update(fn func(st *UpdateState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.save(st)
}

func (s *Store) load() (UpdateState, error) {
	if s.mem != nil {
		return *s.mem, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return UpdateState{}, nil
	}
	if err != nil {
		return UpdateState{}, fmt.Errorf("read state file: %w", err)
	}

	var st UpdateState
	if err := json.Unmarshal(data, &st); err != nil {
		return UpdateState{}, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	return st, nil
}

func (s *Store) save(st UpdateState) error {
	if s.mem != nil {
		*s.mem = st
		return nil
	}

	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			if rerr := os.Remove(tmpName); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				log.Warnf("failed to remove temp state file %s: %v", tmpName, rerr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
