package manager

import (
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// CreateLink builds a link between two existing contents. A pair of contents
// carries at most one link regardless of direction, and a content cannot
// link to itself. An empty link type defaults to manual.
func (m *Manager) CreateLink(document state.AppState, fromContentID, toContentID string, linkType state.LinkType) (state.Link, error) {
	if _, found := document.ContentByID(fromContentID); !found {
		return state.Link{}, notFoundError("content", fromContentID)
	}
	if _, found := document.ContentByID(toContentID); !found {
		return state.Link{}, notFoundError("content", toContentID)
	}
	if fromContentID == toContentID {
		return state.Link{}, validationError("link endpoints must differ")
	}

	if linkType == "" {
		linkType = state.LinkTypeManual
	}
	if linkType != state.LinkTypeManual && linkType != state.LinkTypeAuto {
		return state.Link{}, validationError("unknown link type %q", linkType)
	}

	pair := state.LinkPairKey(fromContentID, toContentID)
	for _, link := range document.Links {
		if state.LinkPairKey(link.FromContentID, link.ToContentID) == pair {
			return state.Link{}, validationError("contents %s and %s are already linked", fromContentID, toContentID)
		}
	}

	linkID, err := m.newID("link")
	if err != nil {
		return state.Link{}, err
	}

	return state.Link{
		ID:            linkID,
		FromContentID: fromContentID,
		ToContentID:   toContentID,
		Type:          linkType,
	}, nil
}

// DeleteLink reports whether the link can be removed.
func (m *Manager) DeleteLink(document state.AppState, linkID string) DeleteResult {
	if _, found := document.LinkByID(linkID); !found {
		return DeleteResult{Reason: "link not found"}
	}
	return DeleteResult{Deleted: true}
}
