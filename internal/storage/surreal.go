package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
	"go.uber.org/zap"
)

const defaultSurrealTable = "bound_documents"

// SurrealConfig carries the connection settings for a remote SurrealDB
// backend.
type SurrealConfig struct {
	Endpoint  string
	Namespace string
	Database  string
	Username  string
	Password  string
	Table     string
}

// documentRecord is the stored row shape. The payload stays a plain string
// so the driver's CBOR codec never reinterprets document internals.
type documentRecord struct {
	Payload   string `json:"payload"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SurrealStore keeps documents in a remote SurrealDB table. Read-side
// failures degrade to absent-document semantics with a logged warning so a
// flaky remote cannot wedge startup; write-side failures are returned.
type SurrealStore struct {
	db     *surrealdb.DB
	table  string
	logger *zap.Logger
}

// OpenSurreal connects to the endpoint, signs in when credentials are
// configured, and selects the namespace and database.
func OpenSurreal(ctx context.Context, config SurrealConfig, logger *zap.Logger) (*SurrealStore, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("storage: surreal endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	table := config.Table
	if table == "" {
		table = defaultSurrealTable
	}

	db, err := surrealdb.FromEndpointURLString(ctx, config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("storage: connect surreal: %w", err)
	}

	if config.Username != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: config.Username,
			Password: config.Password,
		}); err != nil {
			return nil, fmt.Errorf("storage: surreal sign in: %w", err)
		}
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		return nil, fmt.Errorf("storage: surreal use %s/%s: %w", config.Namespace, config.Database, err)
	}

	logger.Info("surreal storage initialized",
		zap.String("endpoint", config.Endpoint),
		zap.String("namespace", config.Namespace),
		zap.String("database", config.Database),
		zap.String("table", table))

	return &SurrealStore{db: db, table: table, logger: logger}, nil
}

// Get returns the stored payload, or nil when the record is absent or the
// remote read fails.
func (store *SurrealStore) Get(ctx context.Context, key string) ([]byte, error) {
	record, err := surrealdb.Select[documentRecord](ctx, store.db, models.NewRecordID(store.table, key))
	if err != nil {
		if surrealRecordAbsent(err) {
			return nil, nil
		}
		store.logger.Warn("surreal read failed", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if record == nil || record.Payload == "" {
		return nil, nil
	}
	return []byte(record.Payload), nil
}

// Set upserts the payload under the key.
func (store *SurrealStore) Set(ctx context.Context, key string, payload []byte) error {
	_, err := surrealdb.Query[any](ctx, store.db,
		"UPSERT type::thing($tb, $id) CONTENT { payload: $payload, updatedAt: $updatedAt }",
		map[string]any{
			"tb":        store.table,
			"id":        key,
			"payload":   string(payload),
			"updatedAt": time.Now().UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("storage: write document %s: %w", key, err)
	}
	return nil
}

// Remove deletes the record. Removing an absent record is not an error.
func (store *SurrealStore) Remove(ctx context.Context, key string) error {
	_, err := surrealdb.Delete[documentRecord](ctx, store.db, models.NewRecordID(store.table, key))
	if err != nil && !surrealRecordAbsent(err) {
		return fmt.Errorf("storage: remove document %s: %w", key, err)
	}
	return nil
}

// Clear drops every record in the document table.
func (store *SurrealStore) Clear(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, store.db, "DELETE type::table($tb)", map[string]any{"tb": store.table})
	if err != nil {
		return fmt.Errorf("storage: clear documents: %w", err)
	}
	return nil
}

// Size reports the total number of stored payload bytes, or 0 with a logged
// warning when the remote read fails.
func (store *SurrealStore) Size(ctx context.Context) (int64, error) {
	records, err := surrealdb.Select[[]documentRecord](ctx, store.db, models.Table(store.table))
	if err != nil {
		store.logger.Warn("surreal size query failed", zap.Error(err))
		return 0, nil
	}
	var total int64
	if records != nil {
		for _, record := range *records {
			total += int64(len(record.Payload))
		}
	}
	return total, nil
}

// Close terminates the remote connection.
func (store *SurrealStore) Close() error {
	return store.db.Close(context.Background())
}

// surrealRecordAbsent reports whether the error is the driver's way of
// saying the record does not exist rather than a transport failure.
func surrealRecordAbsent(err error) bool {
	message := err.Error()
	return strings.Contains(message, "but got 0") || strings.Contains(message, "cannot unmarshal")
}
