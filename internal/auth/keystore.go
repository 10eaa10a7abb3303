package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryKeyStore is an in-memory KeyStore implementation, used with the
// memory storage backend and in tests.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]APIKey
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]APIKey)}
}

// CreateAPIKey generates a new key, stores its hash, and returns the stored
// record together with the plain key. The plain key is not recoverable later.
func (m *MemoryKeyStore) CreateAPIKey(ctx context.Context, name string, role Role, expiresAt *time.Time) (APIKey, string, error) {
	plain, err := GenerateAPIKey()
	if err != nil {
		return APIKey{}, "", err
	}
	hash, err := HashAPIKey(plain)
	if err != nil {
		return APIKey{}, "", err
	}

	key := APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   hash,
		Role:      role,
		Enabled:   true,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.keys[key.ID] = key
	m.mu.Unlock()
	return key, plain, nil
}

// ListAPIKeys returns all stored keys.
func (m *MemoryKeyStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		result = append(result, k)
	}
	return result, nil
}

// UpdateAPIKeyLastUsed stamps the key's last-used time.
func (m *MemoryKeyStore) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return fmt.Errorf("api key not found: %s", id)
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	m.keys[id] = k
	return nil
}

// RevokeAPIKey disables a key without deleting it.
func (m *MemoryKeyStore) RevokeAPIKey(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return fmt.Errorf("api key not found: %s", id)
	}
	k.Enabled = false
	m.keys[id] = k
	return nil
}
