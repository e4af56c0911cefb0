package manager

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// ContentUpdates lists the fields UpdateContent may change. Nil fields are
// left untouched. Status changes go through OpenContent and CloseContent.
type ContentUpdates struct {
	Title        *string
	AreaID       *string
	Tags         *[]string
	NodePosition *state.Position
}

// CreateContent builds a new open content inside an existing area.
func (m *Manager) CreateContent(document state.AppState, areaID, title string) (state.Content, error) {
	if _, found := document.AreaByID(areaID); !found {
		return state.Content{}, notFoundError("area", areaID)
	}

	contentID, err := m.newID("content")
	if err != nil {
		return state.Content{}, err
	}

	now := m.nowMillis()
	return state.Content{
		ID:         contentID,
		Title:      strings.TrimSpace(title),
		AreaID:     areaID,
		Status:     state.ContentStatusOpen,
		Body:       state.CanvasBody{Shapes: []state.Shape{}},
		Properties: []state.Property{},
		Tags:       []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// UpdateContent applies field updates onto a copy of the stored content.
// Moving a content to another area requires the destination to exist.
func (m *Manager) UpdateContent(document state.AppState, contentID string, updates ContentUpdates) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}

	updated := state.CloneContent(content)
	if updates.Title != nil {
		updated.Title = strings.TrimSpace(*updates.Title)
	}
	if updates.AreaID != nil {
		if _, found := document.AreaByID(*updates.AreaID); !found {
			return state.Content{}, notFoundError("area", *updates.AreaID)
		}
		updated.AreaID = *updates.AreaID
	}
	if updates.Tags != nil {
		tags := make([]string, len(*updates.Tags))
		copy(tags, *updates.Tags)
		updated.Tags = tags
	}
	if updates.NodePosition != nil {
		position := *updates.NodePosition
		updated.NodePosition = &position
	}

	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// OpenContent marks a content as open and clears its graph position. Opening
// an already open content is allowed and still clears the position.
func (m *Manager) OpenContent(document state.AppState, contentID string) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}

	updated := state.CloneContent(content)
	updated.Status = state.ContentStatusOpen
	updated.NodePosition = nil
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// CloseContent parks a content on the overview graph. Closing an already
// closed content fails.
func (m *Manager) CloseContent(document state.AppState, contentID string) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}
	if content.Status == state.ContentStatusClosed {
		return state.Content{}, validationError("content %s is already closed", contentID)
	}

	updated := state.CloneContent(content)
	updated.Status = state.ContentStatusClosed
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// DeleteContent reports whether the content can be removed. The removal and
// its link cascade happen in RemoveContent.
func (m *Manager) DeleteContent(document state.AppState, contentID string) DeleteResult {
	if _, found := document.ContentByID(contentID); !found {
		return DeleteResult{Reason: "content not found"}
	}
	return DeleteResult{Deleted: true}
}

// ValidateContent reports the editorial problems of a single content. It
// never raises; an empty result means the content is presentable.
func ValidateContent(content state.Content) []string {
	problems := make([]string, 0)

	if strings.TrimSpace(content.Title) == "" {
		problems = append(problems, "content title is empty")
	}
	if content.Status != state.ContentStatusOpen && content.Status != state.ContentStatusClosed {
		problems = append(problems, fmt.Sprintf("content status %q is unknown", content.Status))
	}

	seenShapes := make(map[string]bool, len(content.Body.Shapes))
	for _, shape := range content.Body.Shapes {
		if shape.ID == "" {
			problems = append(problems, "a shape is missing its id")
			continue
		}
		if seenShapes[shape.ID] {
			problems = append(problems, fmt.Sprintf("duplicate shape id %s", shape.ID))
		}
		seenShapes[shape.ID] = true
	}

	seenProperties := make(map[string]bool, len(content.Properties))
	for _, property := range content.Properties {
		if property.ID == "" {
			problems = append(problems, "a property is missing its id")
			continue
		}
		if seenProperties[property.ID] {
			problems = append(problems, fmt.Sprintf("duplicate property id %s", property.ID))
		}
		seenProperties[property.ID] = true
		if !state.KnownPropertyType(property.Type) {
			problems = append(problems, fmt.Sprintf("property %q has unknown type %q", property.Name, property.Type))
			continue
		}
		if !ValidPropertyValue(property.Type, property.Value) {
			problems = append(problems, fmt.Sprintf("property %q has an invalid %s value", property.Name, property.Type))
		}
	}

	return problems
}
