package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "sunocrawl"
	keyringUser    = "credentials"
)

// KeyringStore keeps the tuple in the system keychain. The keychain has no
// modification time, so the record carries its own.
type KeyringStore struct {
	mu sync.Mutex
}

// keyringRecord is the JSON value stored under the keyring entry
type keyringRecord struct {
	Tuple
	UpdatedAt time.Time `json:"updated_at"`
}

// NewKeyringStore probes the system keychain and returns a store over it
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("%w: keyring not available: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Load returns the tuple from the keychain
func (k *KeyringStore) Load() (*Tuple, error) {
	record, err := k.read()
	if err != nil {
		return nil, err
	}
	t := record.Tuple
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save replaces the keychain entry, stamping a new version
func (k *KeyringStore) Save(t *Tuple) error {
	if err := t.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	record := keyringRecord{Tuple: *t, UpdatedAt: time.Now().UTC()}
	if previous, err := k.read(); err == nil && !record.UpdatedAt.After(previous.UpdatedAt) {
		record.UpdatedAt = previous.UpdatedAt.Add(time.Millisecond)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Version returns the record's update stamp, or the zero time if absent
func (k *KeyringStore) Version() (time.Time, error) {
	record, err := k.read()
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return record.UpdatedAt, nil
}

// Delete removes the keychain entry; a missing entry is not an error
func (k *KeyringStore) Delete() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) read() (*keyringRecord, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var record keyringRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return &record, nil
}
