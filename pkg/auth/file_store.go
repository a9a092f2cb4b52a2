package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps the tuple as plain JSON ({"bearer","browser","device"}).
// Its version is the file's modification time.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and validates the stored tuple
func (f *FileStore) Load() (*Tuple, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return decodeTuple(content)
}

// Save atomically replaces the file. The modification time is forced past
// the previous one so a save always registers as a new version.
func (f *FileStore) Save(t *Tuple) error {
	if err := t.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	previous, _ := f.Version()

	content, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace credentials: %w", err)
	}

	return bumpModTime(f.path, previous)
}

// Version returns the file's modification time, or the zero time if absent
func (f *FileStore) Version() (time.Time, error) {
	return modTime(f.path)
}

// Delete removes the file; a missing file is not an error
func (f *FileStore) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func decodeTuple(content []byte) (*Tuple, error) {
	var t Tuple
	if err := json.Unmarshal(content, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	t.Bearer = strings.TrimSpace(t.Bearer)
	t.BrowserToken = strings.TrimSpace(t.BrowserToken)
	t.DeviceID = strings.TrimSpace(t.DeviceID)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// bumpModTime makes sure path's modification time is after previous, for
// filesystems with coarse timestamps
func bumpModTime(path string, previous time.Time) error {
	current, err := modTime(path)
	if err != nil {
		return err
	}
	if previous.IsZero() || current.After(previous) {
		return nil
	}
	next := previous.Add(time.Second)
	return os.Chtimes(path, next, next)
}
