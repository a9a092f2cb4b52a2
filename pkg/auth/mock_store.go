package auth

import (
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests. Every Save advances the
// version by one second from a fixed epoch.
type MockStore struct {
	mu      sync.Mutex
	tuple   *Tuple
	version time.Time
	loads   int

	// Error injection for testing
	LoadError    error
	SaveError    error
	VersionError error
	DeleteError  error
}

var mockEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMockStore creates a mock store, optionally seeded with a tuple
func NewMockStore(initial *Tuple) *MockStore {
	m := &MockStore{}
	if initial != nil {
		cp := *initial
		m.tuple = &cp
		m.version = mockEpoch
	}
	return m
}

// Load returns a copy of the current tuple
func (m *MockStore) Load() (*Tuple, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.tuple == nil {
		return nil, ErrCredentialsNotFound
	}
	cp := *m.tuple
	return &cp, nil
}

// Save replaces the tuple and advances the version
func (m *MockStore) Save(t *Tuple) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := t.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	m.tuple = &cp
	if m.version.IsZero() {
		m.version = mockEpoch
	} else {
		m.version = m.version.Add(time.Second)
	}
	return nil
}

// Version returns the current version
func (m *MockStore) Version() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.VersionError != nil {
		return time.Time{}, m.VersionError
	}
	return m.version, nil
}

// Delete clears the tuple
func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tuple = nil
	m.version = time.Time{}
	return nil
}

// Loads reports how many times Load was called
func (m *MockStore) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
