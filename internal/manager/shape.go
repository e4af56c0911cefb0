package manager

import (
	"strings"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// ShapeUpdates lists the shape fields UpdateShapeInContent may change. The
// merge is shallow: a provided Style replaces the whole style.
type ShapeUpdates struct {
	Type      *state.ShapeType
	Position  *state.Position
	Dimension *state.Dimension
	Points    []float64
	Style     *state.ShapeStyle
	Text      *string
	GroupID   *string
}

// AddShapeToContent appends a shape to the content canvas. Shape identifiers
// are caller-supplied and must be unique within the content.
func (m *Manager) AddShapeToContent(document state.AppState, contentID string, shape state.Shape) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}
	if strings.TrimSpace(shape.ID) == "" {
		return state.Content{}, validationError("shape id is required")
	}
	if shapeIndex(content.Body.Shapes, shape.ID) >= 0 {
		return state.Content{}, validationError("shape %s already exists", shape.ID)
	}

	updated := state.CloneContent(content)
	updated.Body.Shapes = append(updated.Body.Shapes, state.CloneShape(shape))
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// RemoveShapeFromContent drops a shape from the canvas. Removing a shape
// that is not present returns the content unchanged.
func (m *Manager) RemoveShapeFromContent(document state.AppState, contentID, shapeID string) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}

	updated := state.CloneContent(content)
	index := shapeIndex(updated.Body.Shapes, shapeID)
	if index < 0 {
		return updated, nil
	}

	updated.Body.Shapes = append(updated.Body.Shapes[:index], updated.Body.Shapes[index+1:]...)
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// UpdateShapeInContent merges updates onto one shape of the canvas.
func (m *Manager) UpdateShapeInContent(document state.AppState, contentID, shapeID string, updates ShapeUpdates) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}
	index := shapeIndex(content.Body.Shapes, shapeID)
	if index < 0 {
		return state.Content{}, notFoundError("shape", shapeID)
	}

	updated := state.CloneContent(content)
	shape := &updated.Body.Shapes[index]
	if updates.Type != nil {
		shape.Type = *updates.Type
	}
	if updates.Position != nil {
		shape.Position = *updates.Position
	}
	if updates.Dimension != nil {
		dimension := *updates.Dimension
		shape.Dimension = &dimension
	}
	if updates.Points != nil {
		points := make([]float64, len(updates.Points))
		copy(points, updates.Points)
		shape.Points = points
	}
	if updates.Style != nil {
		shape.Style = *updates.Style
	}
	if updates.Text != nil {
		shape.Text = *updates.Text
	}
	if updates.GroupID != nil {
		shape.GroupID = *updates.GroupID
	}

	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// ReplaceShapesInContent swaps the whole canvas for a new snapshot, as the
// editor does after a committed edit. Shape identifiers must be present and
// unique.
func (m *Manager) ReplaceShapesInContent(document state.AppState, contentID string, shapes []state.Shape) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}

	seen := make(map[string]bool, len(shapes))
	for _, shape := range shapes {
		if strings.TrimSpace(shape.ID) == "" {
			return state.Content{}, validationError("shape id is required")
		}
		if seen[shape.ID] {
			return state.Content{}, validationError("shape %s already exists", shape.ID)
		}
		seen[shape.ID] = true
	}

	updated := state.CloneContent(content)
	cloned := state.CloneShapes(shapes)
	if cloned == nil {
		cloned = []state.Shape{}
	}
	updated.Body.Shapes = cloned
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

func shapeIndex(shapes []state.Shape, shapeID string) int {
	for index, shape := range shapes {
		if shape.ID == shapeID {
			return index
		}
	}
	return -1
}
