// Package storage defines the persistence boundary for serialized documents
// and the drivers that satisfy it. Payloads are opaque bytes: callers own
// serialization, so legacy fields in old documents survive untouched until
// the migration pipeline reads them.
package storage

import "context"

// Store is a key-addressed byte store. Get returns nil bytes without an
// error when the key is absent. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
	Close() error
}
