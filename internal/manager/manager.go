// Package manager derives new documents and entities from existing ones.
// Operations never mutate their inputs; each returns freshly built values
// that the caller commits into a document via the Put/Remove transitions.
package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

var (
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// IDProvider issues identifiers for newly created entities.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Config carries the collaborators for a Manager.
type Config struct {
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Manager builds and reshapes document entities.
type Manager struct {
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// New constructs a Manager. The id provider is required; clock and logger
// default to time.Now and a no-op logger.
func New(cfg Config) (*Manager, error) {
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Manager{
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// DeleteResult reports a delete outcome without raising: deleting an entity
// that is already gone is a normal interactive outcome, not an error.
type DeleteResult struct {
	Deleted bool
	Reason  string
}

func (m *Manager) nowMillis() int64 {
	return state.NowMillis(m.clock())
}

func (m *Manager) newID(entity string) (string, error) {
	value, err := m.idProvider.NewID()
	if err != nil {
		m.logger.Error("id generation failed", zap.String("entity", entity), zap.Error(err))
		return "", fmt.Errorf("generate %s id: %w", entity, err)
	}
	return value, nil
}

func notFoundError(entity, entityID string) error {
	return fmt.Errorf("%w: %s %s", state.ErrNotFound, entity, entityID)
}

func validationError(format string, arguments ...any) error {
	return fmt.Errorf("%w: %s", state.ErrValidation, fmt.Sprintf(format, arguments...))
}
