package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var (
	ErrLocked = errors.New("manifest is locked by another run")
)

// Store reads and writes the manifest file. A run is expected to Lock the
// store, Load once, mutate the returned Manifest and Persist once.
type Store struct {
	path string
	lock *flock.Flock
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(lockPath(path)),
	}
}

// lockPath keeps the lock file out of the published directory. Stores for the
// same manifest share one lock.
func lockPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(os.TempDir(), "retroboston-"+hex.EncodeToString(sum[:8])+".lock")
}

func (s *Store) Path() string {
	return s.path
}

// Lock takes the advisory run lock without waiting.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Load returns the persisted manifest. A missing, unreadable or corrupt file
// yields an empty manifest.
func (s *Store) Load() *Manifest {
	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Debug("manifest: starting empty", "path", s.path, "error", err)
		return New(nil)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Debug("manifest: ignoring corrupt manifest", "path", s.path, "error", err)
		return New(nil)
	}

	slog.Debug("manifest: loaded", "path", s.path, "entries", len(entries))

	return New(entries)
}

// Persist truncates m to MaxEntries and replaces the manifest file with it.
func (s *Store) Persist(m *Manifest) error {
	m.Truncate()

	entries := m.Entries()
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	slog.Debug("manifest: persisted", "path", s.path, "entries", len(entries))

	return nil
}
