package manager

import (
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// The transitions commit manager-built entities into a document. Each one
// deep-copies the input document, keeps every area's content list mirroring
// the contents that point at it, and clears selection fields that would
// otherwise dangle.

// PutArea inserts or replaces an area by id.
func PutArea(document state.AppState, area state.Area) state.AppState {
	next := state.CloneState(document)
	for index := range next.Areas {
		if next.Areas[index].ID == area.ID {
			next.Areas[index] = state.CloneArea(area)
			return next
		}
	}
	next.Areas = append(next.Areas, state.CloneArea(area))
	return next
}

// RemoveArea drops an area. Contents of the area are expected to be removed
// first through RemoveContent; the selection is cleared when it pointed at
// the removed area.
func RemoveArea(document state.AppState, areaID string) state.AppState {
	next := state.CloneState(document)
	areas := make([]state.Area, 0, len(next.Areas))
	for _, area := range next.Areas {
		if area.ID != areaID {
			areas = append(areas, area)
		}
	}
	next.Areas = areas
	if next.CurrentAreaID == areaID {
		next.CurrentAreaID = ""
	}
	return next
}

// PutContent inserts or replaces a content by id and resynchronizes every
// area's content list: the owning area lists the content exactly once and no
// other area lists it at all.
func PutContent(document state.AppState, content state.Content) state.AppState {
	next := state.CloneState(document)

	replaced := false
	for index := range next.Contents {
		if next.Contents[index].ID == content.ID {
			next.Contents[index] = state.CloneContent(content)
			replaced = true
			break
		}
	}
	if !replaced {
		next.Contents = append(next.Contents, state.CloneContent(content))
	}

	for index := range next.Areas {
		area := &next.Areas[index]
		if area.ID == content.AreaID {
			if !containsID(area.ContentIDs, content.ID) {
				area.ContentIDs = append(area.ContentIDs, content.ID)
			}
			continue
		}
		area.ContentIDs = withoutID(area.ContentIDs, content.ID)
	}

	return next
}

// RemoveContent drops a content together with every link touching it, strips
// it from area content lists and clears a selection pointing at it.
func RemoveContent(document state.AppState, contentID string) state.AppState {
	next := state.CloneState(document)

	contents := make([]state.Content, 0, len(next.Contents))
	for _, content := range next.Contents {
		if content.ID != contentID {
			contents = append(contents, content)
		}
	}
	next.Contents = contents

	links := make([]state.Link, 0, len(next.Links))
	for _, link := range next.Links {
		if link.FromContentID != contentID && link.ToContentID != contentID {
			links = append(links, link)
		}
	}
	next.Links = links

	for index := range next.Areas {
		next.Areas[index].ContentIDs = withoutID(next.Areas[index].ContentIDs, contentID)
	}

	if next.CurrentContentID == contentID {
		next.CurrentContentID = ""
	}

	return next
}

// PutLink inserts or replaces a link by id.
func PutLink(document state.AppState, link state.Link) state.AppState {
	next := state.CloneState(document)
	for index := range next.Links {
		if next.Links[index].ID == link.ID {
			next.Links[index] = link
			return next
		}
	}
	next.Links = append(next.Links, link)
	return next
}

// RemoveLink drops a link by id.
func RemoveLink(document state.AppState, linkID string) state.AppState {
	next := state.CloneState(document)
	links := make([]state.Link, 0, len(next.Links))
	for _, link := range next.Links {
		if link.ID != linkID {
			links = append(links, link)
		}
	}
	next.Links = links
	return next
}

// SetCurrentArea records the selected area. An empty id clears the
// selection.
func SetCurrentArea(document state.AppState, areaID string) state.AppState {
	next := state.CloneState(document)
	next.CurrentAreaID = areaID
	return next
}

// SetCurrentContent records the selected content. An empty id clears the
// selection.
func SetCurrentContent(document state.AppState, contentID string) state.AppState {
	next := state.CloneState(document)
	next.CurrentContentID = contentID
	return next
}

func containsID(identifiers []string, candidate string) bool {
	for _, identifier := range identifiers {
		if identifier == candidate {
			return true
		}
	}
	return false
}

func withoutID(identifiers []string, candidate string) []string {
	filtered := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		if identifier != candidate {
			filtered = append(filtered, identifier)
		}
	}
	return filtered
}
