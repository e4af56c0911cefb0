// Package persist loads and saves the application document through the
// storage boundary, applying schema migrations on read and structural
// validation on write.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/migrate"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/storage"
)

// StateKey is the storage key the application document lives under.
const StateKey = "bound.app_state"

var errMissingStore = errors.New("persist: store is required")

// Config carries the service dependencies.
type Config struct {
	Store  storage.Store
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service mediates between the document model and a storage driver.
type Service struct {
	store  storage.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates dependencies and applies defaults.
func NewService(config Config) (*Service, error) {
	if config.Store == nil {
		return nil, errMissingStore
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: config.Store, clock: clock, logger: logger}, nil
}

// Load reads the stored document. An absent document yields the default
// state. An undecodable or structurally invalid one is logged and replaced
// by the default rather than wedging startup. A stale one runs through the
// migration pipeline and the migrated result is persisted back.
func (service *Service) Load(ctx context.Context) (state.AppState, error) {
	payload, err := service.store.Get(ctx, StateKey)
	if err != nil {
		return state.AppState{}, fmt.Errorf("load document: %w", err)
	}
	if payload == nil {
		return state.DefaultState(service.clock()), nil
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		service.logger.Warn("stored document is corrupt, starting from default state", zap.Error(err))
		return state.DefaultState(service.clock()), nil
	}

	fromVersion := migrate.FromVersion(raw)
	if fromVersion > state.SchemaVersion {
		service.logger.Warn("stored document is newer than this build supports, starting from default state",
			zap.Int("storedVersion", fromVersion),
			zap.Int("supportedVersion", state.SchemaVersion))
		return state.DefaultState(service.clock()), nil
	}
	if fromVersion < state.SchemaVersion {
		return service.loadStale(ctx, raw, fromVersion)
	}

	var document state.AppState
	if err := json.Unmarshal(payload, &document); err != nil {
		service.logger.Warn("stored document failed to decode, starting from default state", zap.Error(err))
		return state.DefaultState(service.clock()), nil
	}
	if err := state.CheckState(document); err != nil {
		service.logger.Warn("stored document failed validation, starting from default state", zap.Error(err))
		return state.DefaultState(service.clock()), nil
	}
	return document, nil
}

func (service *Service) loadStale(ctx context.Context, raw map[string]any, fromVersion int) (state.AppState, error) {
	document, err := migrate.Run(raw, service.logger)
	if err != nil {
		service.logger.Warn("stored document failed migration, starting from default state",
			zap.Int("storedVersion", fromVersion), zap.Error(err))
		return state.DefaultState(service.clock()), nil
	}
	if err := state.CheckState(document); err != nil {
		service.logger.Warn("migrated document failed validation, starting from default state",
			zap.Int("storedVersion", fromVersion), zap.Error(err))
		return state.DefaultState(service.clock()), nil
	}

	service.logger.Info("stored document migrated",
		zap.Int("fromVersion", fromVersion),
		zap.Int("toVersion", document.Version))

	// Keep the store current so the pipeline only runs once per generation.
	if err := service.write(ctx, document); err != nil {
		service.logger.Warn("persisting migrated document failed", zap.Error(err))
	}
	return document, nil
}

// Save validates the document, stamps its update time, and writes it. The
// stamped document is returned so callers keep the committed copy.
func (service *Service) Save(ctx context.Context, document state.AppState) (state.AppState, error) {
	if problems := state.ValidateState(document); len(problems) > 0 {
		return state.AppState{}, state.NewValidationError("invalid app state: cannot save", problems)
	}

	stamped := state.CloneState(document)
	stamped.UpdatedAt = state.NowMillis(service.clock())

	if err := service.write(ctx, stamped); err != nil {
		return state.AppState{}, err
	}
	return stamped, nil
}

// Size reports the bytes held by the underlying store.
func (service *Service) Size(ctx context.Context) (int64, error) {
	return service.store.Size(ctx)
}

func (service *Service) write(ctx context.Context, document state.AppState) error {
	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := service.store.Set(ctx, StateKey, payload); err != nil {
		return fmt.Errorf("persist document: %w", err)
	}
	service.logger.Debug("document persisted", zap.Int("bytes", len(payload)))
	return nil
}
