package storage

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerStore persists documents in an embedded Badger key-value database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a persistent Badger database rooted at path. Badger's
// internal logging is disabled; the caller's logger reports lifecycle events.
func OpenBadger(path string, logger *zap.Logger) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: badger path is required")
	}

	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	if logger != nil {
		logger.Info("badger storage initialized", zap.String("path", path))
	}

	return &BadgerStore{db: db}, nil
}

// OpenBadgerInMemory opens a Badger database that never touches disk.
func OpenBadgerInMemory() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the stored payload, or nil when the key is absent.
func (store *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read document %s: %w", key, err)
	}
	return payload, nil
}

// Set writes the payload under the key.
func (store *BadgerStore) Set(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
	if err != nil {
		return fmt.Errorf("storage: write document %s: %w", key, err)
	}
	return nil
}

// Remove deletes the key. Removing an absent key is not an error.
func (store *BadgerStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("storage: remove document %s: %w", key, err)
	}
	return nil
}

// Clear drops every stored document.
func (store *BadgerStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.db.DropAll(); err != nil {
		return fmt.Errorf("storage: clear badger: %w", err)
	}
	return nil
}

// Size reports the total number of stored payload bytes.
func (store *BadgerStore) Size(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var total int64
	err := store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		iterator := txn.NewIterator(options)
		defer iterator.Close()
		for iterator.Rewind(); iterator.Valid(); iterator.Next() {
			total += iterator.Item().ValueSize()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: measure badger: %w", err)
	}
	return total, nil
}

// Close releases the underlying database.
func (store *BadgerStore) Close() error {
	return store.db.Close()
}
