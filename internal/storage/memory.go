package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps payloads in process memory. It backs tests and
// ephemeral runs where nothing should touch disk.
type MemoryStore struct {
	mutex    sync.RWMutex
	payloads map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

// Get returns a copy of the stored payload, or nil when the key is absent.
func (store *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	payload, present := store.payloads[key]
	if !present {
		return nil, nil
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	return copied, nil
}

// Set stores a copy of the payload under the key.
func (store *MemoryStore) Set(ctx context.Context, key string, payload []byte) error {
	copied := make([]byte, len(payload))
	copy(copied, payload)

	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.payloads[key] = copied
	return nil
}

// Remove deletes the key. Removing an absent key is not an error.
func (store *MemoryStore) Remove(ctx context.Context, key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.payloads, key)
	return nil
}

// Clear drops every stored payload.
func (store *MemoryStore) Clear(ctx context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.payloads = make(map[string][]byte)
	return nil
}

// Size reports the total number of stored payload bytes.
func (store *MemoryStore) Size(ctx context.Context) (int64, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	var total int64
	for _, payload := range store.payloads {
		total += int64(len(payload))
	}
	return total, nil
}

// Close is a no-op for the in-memory store.
func (store *MemoryStore) Close() error {
	return nil
}
