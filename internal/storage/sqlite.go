package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the single-row-per-key table backing the sqlite driver.
type documentRow struct {
	DocumentKey      string `gorm:"primaryKey;size:190;column:document_key"`
	Payload          []byte
	UpdatedAtSeconds int64 `gorm:"not null;default:0"`
}

func (documentRow) TableName() string {
	return "bound_documents"
}

// SQLiteStore persists documents in a local SQLite file through GORM.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens the database file, limits the pool to a single
// connection, and migrates the document table.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("storage: migrate document table: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite storage initialized", zap.String("path", path))
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the stored payload, or nil when the key is absent.
func (store *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row documentRow
	err := store.db.WithContext(ctx).Where("document_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read document %s: %w", key, err)
	}
	return row.Payload, nil
}

// Set writes the payload, replacing any existing row for the key.
func (store *SQLiteStore) Set(ctx context.Context, key string, payload []byte) error {
	row := documentRow{
		DocumentKey:      key,
		Payload:          payload,
		UpdatedAtSeconds: time.Now().Unix(),
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "document_key"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("storage: write document %s: %w", key, err)
	}
	return nil
}

// Remove deletes the row for the key. Removing an absent key is not an error.
func (store *SQLiteStore) Remove(ctx context.Context, key string) error {
	err := store.db.WithContext(ctx).Where("document_key = ?", key).Delete(&documentRow{}).Error
	if err != nil {
		return fmt.Errorf("storage: remove document %s: %w", key, err)
	}
	return nil
}

// Clear drops every stored document.
func (store *SQLiteStore) Clear(ctx context.Context) error {
	if err := store.db.WithContext(ctx).Exec("DELETE FROM bound_documents").Error; err != nil {
		return fmt.Errorf("storage: clear documents: %w", err)
	}
	return nil
}

// Size reports the total number of stored payload bytes.
func (store *SQLiteStore) Size(ctx context.Context) (int64, error) {
	var total int64
	err := store.db.WithContext(ctx).
		Model(&documentRow{}).
		Select("COALESCE(SUM(LENGTH(payload)), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("storage: measure documents: %w", err)
	}
	return total, nil
}

// Close releases the underlying database connection.
func (store *SQLiteStore) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
