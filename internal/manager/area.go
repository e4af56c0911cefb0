package manager

import (
	"strings"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// AreaUpdates lists the fields UpdateArea may change. Nil fields are left
// untouched.
type AreaUpdates struct {
	Name            *string
	Description     *string
	BackgroundColor *string
	NodePosition    *state.Position
}

// CreateArea builds a new area. The name is trimmed, must be non-empty and
// must not collide case-insensitively with an existing area name.
func (m *Manager) CreateArea(document state.AppState, name string) (state.Area, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return state.Area{}, validationError("area name is required")
	}
	if _, taken := areaByName(document, trimmedName); taken {
		return state.Area{}, validationError("area name %q already exists", trimmedName)
	}

	areaID, err := m.newID("area")
	if err != nil {
		return state.Area{}, err
	}

	now := m.nowMillis()
	return state.Area{
		ID:         areaID,
		Name:       trimmedName,
		ContentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// UpdateArea applies field updates onto a copy of the stored area. A name
// update re-runs the uniqueness check against all other areas.
func (m *Manager) UpdateArea(document state.AppState, areaID string, updates AreaUpdates) (state.Area, error) {
	area, found := document.AreaByID(areaID)
	if !found {
		return state.Area{}, notFoundError("area", areaID)
	}

	updated := state.CloneArea(area)
	if updates.Name != nil {
		trimmedName := strings.TrimSpace(*updates.Name)
		if trimmedName == "" {
			return state.Area{}, validationError("area name is required")
		}
		if other, taken := areaByName(document, trimmedName); taken && other.ID != areaID {
			return state.Area{}, validationError("area name %q already exists", trimmedName)
		}
		updated.Name = trimmedName
	}
	if updates.Description != nil {
		updated.Description = *updates.Description
	}
	if updates.BackgroundColor != nil {
		updated.BackgroundColor = *updates.BackgroundColor
	}
	if updates.NodePosition != nil {
		position := *updates.NodePosition
		updated.NodePosition = &position
	}

	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// DeleteArea reports whether the area can be removed. Callers cascade the
// removal itself through ContentIDsForCascade, RemoveContent and RemoveArea.
func (m *Manager) DeleteArea(document state.AppState, areaID string) DeleteResult {
	if _, found := document.AreaByID(areaID); !found {
		return DeleteResult{Reason: "area not found"}
	}
	return DeleteResult{Deleted: true}
}

// ContentIDsForCascade lists the contents that must be removed alongside an
// area, in document order.
func ContentIDsForCascade(document state.AppState, areaID string) []string {
	contentIDs := make([]string, 0)
	for _, content := range document.Contents {
		if content.AreaID == areaID {
			contentIDs = append(contentIDs, content.ID)
		}
	}
	return contentIDs
}

func areaByName(document state.AppState, name string) (state.Area, bool) {
	for _, area := range document.Areas {
		if strings.EqualFold(strings.TrimSpace(area.Name), name) {
			return area, true
		}
	}
	return state.Area{}, false
}
