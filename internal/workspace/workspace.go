// Package workspace coordinates the committed document, per-content undo
// sessions, and debounced persistence behind a single mutex. The managers
// stay pure; every commit and timing decision lives here.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/bound"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/history"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/manager"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/persist"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// DefaultSaveDelay is the debounce window between a mutation and the
// background write it schedules.
const DefaultSaveDelay = 500 * time.Millisecond

var (
	errMissingManager = errors.New("workspace: manager is required")
	errMissingPersist = errors.New("workspace: persistence service is required")
)

// Config carries the coordinator dependencies.
type Config struct {
	Manager      *manager.Manager
	Persist      *persist.Service
	Clock        func() time.Time
	Logger       *zap.Logger
	SaveDelay    time.Duration
	HistoryLimit int
}

// Workspace owns the committed document and serializes every mutation.
type Workspace struct {
	manager      *manager.Manager
	persist      *persist.Service
	clock        func() time.Time
	logger       *zap.Logger
	saveDelay    time.Duration
	historyLimit int

	mutex     sync.Mutex
	document  state.AppState
	sessions  map[string]history.History
	saveTimer *time.Timer
	dirty     bool
	closed    bool
}

// New validates dependencies and applies defaults. Open loads the stored
// document before the workspace serves state.
func New(config Config) (*Workspace, error) {
	if config.Manager == nil {
		return nil, errMissingManager
	}
	if config.Persist == nil {
		return nil, errMissingPersist
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	saveDelay := config.SaveDelay
	if saveDelay <= 0 {
		saveDelay = DefaultSaveDelay
	}
	historyLimit := config.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = history.DefaultMaxSize
	}
	return &Workspace{
		manager:      config.Manager,
		persist:      config.Persist,
		clock:        clock,
		logger:       logger,
		saveDelay:    saveDelay,
		historyLimit: historyLimit,
		document:     state.DefaultState(clock()),
		sessions:     make(map[string]history.History),
	}, nil
}

// Open loads the stored document into the workspace.
func (w *Workspace) Open(ctx context.Context) error {
	document, err := w.persist.Load(ctx)
	if err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.document = document
	w.sessions = make(map[string]history.History)
	w.logger.Info("workspace opened",
		zap.Int("areas", len(document.Areas)),
		zap.Int("contents", len(document.Contents)),
		zap.Int("links", len(document.Links)))
	return nil
}

// State returns a deep copy of the committed document.
func (w *Workspace) State() state.AppState {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return state.CloneState(w.document)
}

// CreateArea adds an area and commits it.
func (w *Workspace) CreateArea(name string) (state.Area, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	area, err := w.manager.CreateArea(w.document, name)
	if err != nil {
		return state.Area{}, err
	}
	w.document = manager.PutArea(w.document, area)
	w.scheduleSaveLocked()
	return area, nil
}

// UpdateArea applies partial area updates and commits the result.
func (w *Workspace) UpdateArea(areaID string, updates manager.AreaUpdates) (state.Area, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	area, err := w.manager.UpdateArea(w.document, areaID, updates)
	if err != nil {
		return state.Area{}, err
	}
	w.document = manager.PutArea(w.document, area)
	w.scheduleSaveLocked()
	return area, nil
}

// DeleteArea removes an area together with its contents, their links, and
// any open sessions on those contents.
func (w *Workspace) DeleteArea(areaID string) manager.DeleteResult {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	result := w.manager.DeleteArea(w.document, areaID)
	if !result.Deleted {
		return result
	}
	for _, contentID := range manager.ContentIDsForCascade(w.document, areaID) {
		w.document = manager.RemoveContent(w.document, contentID)
		delete(w.sessions, contentID)
	}
	w.document = manager.RemoveArea(w.document, areaID)
	w.scheduleSaveLocked()
	return result
}

// SelectArea moves the area selection. An empty identifier clears it.
func (w *Workspace) SelectArea(areaID string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if areaID != "" {
		if _, found := w.document.AreaByID(areaID); !found {
			return fmt.Errorf("%w: area %s", state.ErrNotFound, areaID)
		}
	}
	w.document = manager.SetCurrentArea(w.document, areaID)
	w.scheduleSaveLocked()
	return nil
}

// CreateContent adds a content to an area and commits it.
func (w *Workspace) CreateContent(areaID, title string) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.CreateContent(w.document, areaID, title)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// UpdateContent applies partial content updates and commits the result.
func (w *Workspace) UpdateContent(contentID string, updates manager.ContentUpdates) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.UpdateContent(w.document, contentID, updates)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// DeleteContent removes a content, its links, and any open session on it.
func (w *Workspace) DeleteContent(contentID string) manager.DeleteResult {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	result := w.manager.DeleteContent(w.document, contentID)
	if !result.Deleted {
		return result
	}
	w.document = manager.RemoveContent(w.document, contentID)
	delete(w.sessions, contentID)
	w.scheduleSaveLocked()
	return result
}

// OpenContent marks a content open, makes it current, and starts an undo
// session seeded with its canvas.
func (w *Workspace) OpenContent(contentID string) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.OpenContent(w.document, contentID)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.document = manager.SetCurrentContent(w.document, contentID)
	w.sessions[contentID] = history.New(content.Body.Shapes)
	w.scheduleSaveLocked()
	return content, nil
}

// CloseContent marks a content closed and drops its undo session.
func (w *Workspace) CloseContent(contentID string) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.CloseContent(w.document, contentID)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	delete(w.sessions, contentID)
	if w.document.CurrentContentID == contentID {
		w.document = manager.SetCurrentContent(w.document, "")
	}
	w.scheduleSaveLocked()
	return content, nil
}

// AddShape adds a shape to a content canvas and commits the result.
func (w *Workspace) AddShape(contentID string, shape state.Shape) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.AddShapeToContent(w.document, contentID, shape)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// UpdateShape applies partial shape updates and commits the result.
func (w *Workspace) UpdateShape(contentID, shapeID string, updates manager.ShapeUpdates) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.UpdateShapeInContent(w.document, contentID, shapeID, updates)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// RemoveShape removes a shape. Removing an absent shape is not an error.
func (w *Workspace) RemoveShape(contentID, shapeID string) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.RemoveShapeFromContent(w.document, contentID, shapeID)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// PushShapes replaces a content canvas wholesale and records the snapshot
// in the content's undo session when one is open.
func (w *Workspace) PushShapes(contentID string, shapes []state.Shape) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.ReplaceShapesInContent(w.document, contentID, shapes)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	if session, open := w.sessions[contentID]; open {
		w.sessions[contentID] = session.PushBounded(content.Body.Shapes, w.historyLimit)
	}
	w.scheduleSaveLocked()
	return content, nil
}

// Undo steps the content's session one snapshot back and commits that
// canvas. At the bottom of the stack it reports applied=false without error.
func (w *Workspace) Undo(contentID string) (state.Content, bool, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	session, open := w.sessions[contentID]
	if !open {
		return state.Content{}, false, fmt.Errorf("%w: content %s is not open", state.ErrValidation, contentID)
	}
	if !session.CanUndo() {
		content, found := w.document.ContentByID(contentID)
		if !found {
			return state.Content{}, false, fmt.Errorf("%w: content %s", state.ErrNotFound, contentID)
		}
		return content, false, nil
	}

	session = session.Undo()
	content, err := w.manager.ReplaceShapesInContent(w.document, contentID, session.Present)
	if err != nil {
		return state.Content{}, false, err
	}
	w.sessions[contentID] = session
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, true, nil
}

// Redo steps the content's session one snapshot forward and commits that
// canvas. At the top of the stack it reports applied=false without error.
func (w *Workspace) Redo(contentID string) (state.Content, bool, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	session, open := w.sessions[contentID]
	if !open {
		return state.Content{}, false, fmt.Errorf("%w: content %s is not open", state.ErrValidation, contentID)
	}
	if !session.CanRedo() {
		content, found := w.document.ContentByID(contentID)
		if !found {
			return state.Content{}, false, fmt.Errorf("%w: content %s", state.ErrNotFound, contentID)
		}
		return content, false, nil
	}

	session = session.Redo()
	content, err := w.manager.ReplaceShapesInContent(w.document, contentID, session.Present)
	if err != nil {
		return state.Content{}, false, err
	}
	w.sessions[contentID] = session
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, true, nil
}

// HistoryStatus reports the undo and redo depth of a content session.
func (w *Workspace) HistoryStatus(contentID string) (undoSteps, redoSteps int, open bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	session, found := w.sessions[contentID]
	if !found {
		return 0, 0, false
	}
	return session.UndoSteps(), session.RedoSteps(), true
}

// CreateLink connects two contents and commits the link.
func (w *Workspace) CreateLink(fromContentID, toContentID string, linkType state.LinkType) (state.Link, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	link, err := w.manager.CreateLink(w.document, fromContentID, toContentID, linkType)
	if err != nil {
		return state.Link{}, err
	}
	w.document = manager.PutLink(w.document, link)
	w.scheduleSaveLocked()
	return link, nil
}

// DeleteLink removes a link.
func (w *Workspace) DeleteLink(linkID string) manager.DeleteResult {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	result := w.manager.DeleteLink(w.document, linkID)
	if !result.Deleted {
		return result
	}
	w.document = manager.RemoveLink(w.document, linkID)
	w.scheduleSaveLocked()
	return result
}

// AddProperty builds a property from a raw value, coercing it to the
// declared type, and attaches it to the content.
func (w *Workspace) AddProperty(contentID, name string, propertyType state.PropertyType, value any) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	property, err := w.manager.NewPropertyCoerced(name, propertyType, value)
	if err != nil {
		return state.Content{}, err
	}
	content, err := w.manager.AddPropertyToContent(w.document, contentID, property)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// UpdateProperty applies partial property updates and commits the result.
func (w *Workspace) UpdateProperty(contentID, propertyID string, updates manager.PropertyUpdates) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.UpdatePropertyInContent(w.document, contentID, propertyID, updates)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// RemoveProperty removes a property. Removing an absent property is not an
// error.
func (w *Workspace) RemoveProperty(contentID, propertyID string) (state.Content, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	content, err := w.manager.RemovePropertyFromContent(w.document, contentID, propertyID)
	if err != nil {
		return state.Content{}, err
	}
	w.document = manager.PutContent(w.document, content)
	w.scheduleSaveLocked()
	return content, nil
}

// Export serializes the committed document into the exchange format.
func (w *Workspace) Export(compress bool) ([]byte, error) {
	w.mutex.Lock()
	document := state.CloneState(w.document)
	w.mutex.Unlock()

	return bound.Encode(document, w.clock(), compress)
}

// Import replaces the committed document with a decoded exchange file,
// drops every open session, and persists immediately.
func (w *Workspace) Import(ctx context.Context, data []byte) (state.AppState, error) {
	document, err := bound.Decode(data, w.logger)
	if err != nil {
		return state.AppState{}, err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	saved, err := w.persist.Save(ctx, document)
	if err != nil {
		return state.AppState{}, err
	}
	w.document = saved
	w.sessions = make(map[string]history.History)
	w.dirty = false
	if w.saveTimer != nil {
		w.saveTimer.Stop()
	}
	w.logger.Info("document imported",
		zap.Int("areas", len(saved.Areas)),
		zap.Int("contents", len(saved.Contents)))
	return state.CloneState(saved), nil
}

// Flush writes any pending changes synchronously.
func (w *Workspace) Flush(ctx context.Context) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.flushLocked(ctx)
}

// Close flushes pending changes and stops background saving.
func (w *Workspace) Close(ctx context.Context) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.flushLocked(ctx)
}

// StorageSize reports the bytes held by the backing store.
func (w *Workspace) StorageSize(ctx context.Context) (int64, error) {
	return w.persist.Size(ctx)
}

func (w *Workspace) flushLocked(ctx context.Context) error {
	if w.saveTimer != nil {
		w.saveTimer.Stop()
	}
	if !w.dirty {
		return nil
	}
	saved, err := w.persist.Save(ctx, w.document)
	if err != nil {
		return err
	}
	w.document = saved
	w.dirty = false
	return nil
}

func (w *Workspace) scheduleSaveLocked() {
	w.dirty = true
	if w.closed {
		return
	}
	if w.saveTimer == nil {
		w.saveTimer = time.AfterFunc(w.saveDelay, w.backgroundSave)
		return
	}
	w.saveTimer.Reset(w.saveDelay)
}

func (w *Workspace) backgroundSave() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed || !w.dirty {
		return
	}
	saved, err := w.persist.Save(context.Background(), w.document)
	if err != nil {
		// Leave dirty set so Flush or the next mutation retries the write.
		w.logger.Error("background save failed", zap.Error(err))
		return
	}
	w.document = saved
	w.dirty = false
}
