package manager

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

const fixedNowMillis = int64(1723400000000)

type sequentialIDProvider struct {
	next int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("id-%d", p.next), nil
}

type failingIDProvider struct{}

func (p *failingIDProvider) NewID() (string, error) {
	return "", errors.New("id source exhausted")
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	service, err := New(Config{
		Clock:      func() time.Time { return time.UnixMilli(fixedNowMillis) },
		IDProvider: &sequentialIDProvider{},
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected manager error: %v", err)
	}
	return service
}

func buildDocument() state.AppState {
	return state.AppState{
		Version: state.SchemaVersion,
		Areas: []state.Area{
			{
				ID:         "area-1",
				Name:       "Research",
				ContentIDs: []string{"content-1", "content-2"},
				CreatedAt:  fixedNowMillis,
				UpdatedAt:  fixedNowMillis,
			},
			{
				ID:         "area-2",
				Name:       "Archive",
				ContentIDs: []string{},
				CreatedAt:  fixedNowMillis,
				UpdatedAt:  fixedNowMillis,
			},
		},
		Contents: []state.Content{
			{
				ID:     "content-1",
				Title:  "Reading list",
				AreaID: "area-1",
				Status: state.ContentStatusOpen,
				Body: state.CanvasBody{Shapes: []state.Shape{
					{ID: "shape-1", Type: state.ShapeTypeRect, Position: state.Position{X: 10, Y: 20}},
				}},
				Properties: []state.Property{
					{ID: "property-1", Name: "due", Type: state.PropertyTypeDate, Value: int64(fixedNowMillis)},
				},
				Tags:      []string{"reading"},
				CreatedAt: fixedNowMillis,
				UpdatedAt: fixedNowMillis,
			},
			{
				ID:           "content-2",
				Title:        "Old experiment",
				AreaID:       "area-1",
				Status:       state.ContentStatusClosed,
				Body:         state.CanvasBody{Shapes: []state.Shape{}},
				Properties:   []state.Property{},
				Tags:         []string{},
				NodePosition: &state.Position{X: 300, Y: 120},
				CreatedAt:    fixedNowMillis,
				UpdatedAt:    fixedNowMillis,
			},
		},
		Links: []state.Link{
			{ID: "link-1", FromContentID: "content-1", ToContentID: "content-2", Type: state.LinkTypeManual},
		},
		CurrentAreaID:    "area-1",
		CurrentContentID: "content-1",
		CreatedAt:        fixedNowMillis,
		UpdatedAt:        fixedNowMillis,
	}
}

func mustValidDocument(t *testing.T, document state.AppState) {
	t.Helper()
	if problems := state.ValidateState(document); len(problems) != 0 {
		t.Fatalf("expected document to validate, got %v", problems)
	}
}

func stringPointer(value string) *string {
	return &value
}

func valuePointer(value any) *any {
	return &value
}
