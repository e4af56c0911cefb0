package state

import (
	"fmt"
	"strings"
)

// ValidateState checks the structural invariants of a document and returns
// every violated constraint. An empty result means the document is sound.
// The same checks gate saving, loading and file import.
func ValidateState(document AppState) []string {
	problems := make([]string, 0)

	if document.Version != SchemaVersion {
		problems = append(problems, fmt.Sprintf("version must be %d, got %d", SchemaVersion, document.Version))
	}
	if document.Areas == nil {
		problems = append(problems, "areas must be present")
	}
	if document.Contents == nil {
		problems = append(problems, "contents must be present")
	}
	if document.Links == nil {
		problems = append(problems, "links must be present")
	}
	if document.CreatedAt < 0 {
		problems = append(problems, fmt.Sprintf("createdAt must not be negative, got %d", document.CreatedAt))
	}
	if document.UpdatedAt < 0 {
		problems = append(problems, fmt.Sprintf("updatedAt must not be negative, got %d", document.UpdatedAt))
	}

	problems = append(problems, validateAreas(document)...)
	problems = append(problems, validateContents(document)...)
	problems = append(problems, validateLinks(document)...)

	if document.CurrentAreaID != "" {
		if _, found := document.AreaByID(document.CurrentAreaID); !found {
			problems = append(problems, fmt.Sprintf("currentAreaId %s does not resolve", document.CurrentAreaID))
		}
	}
	if document.CurrentContentID != "" {
		if _, found := document.ContentByID(document.CurrentContentID); !found {
			problems = append(problems, fmt.Sprintf("currentContentId %s does not resolve", document.CurrentContentID))
		}
	}

	return problems
}

// CheckState returns nil for a sound document or a ValidationError listing
// every violation.
func CheckState(document AppState) error {
	problems := ValidateState(document)
	if len(problems) == 0 {
		return nil
	}
	return NewValidationError("invalid app state", problems)
}

func validateAreas(document AppState) []string {
	problems := make([]string, 0)
	seenIDs := make(map[string]bool, len(document.Areas))
	seenNames := make(map[string]bool, len(document.Areas))

	for _, area := range document.Areas {
		if area.ID == "" {
			problems = append(problems, "area id must not be empty")
			continue
		}
		if seenIDs[area.ID] {
			problems = append(problems, fmt.Sprintf("duplicate area id %s", area.ID))
		}
		seenIDs[area.ID] = true

		name := strings.TrimSpace(area.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("area %s has an empty name", area.ID))
		} else {
			folded := strings.ToLower(name)
			if seenNames[folded] {
				problems = append(problems, fmt.Sprintf("duplicate area name %q", name))
			}
			seenNames[folded] = true
		}

		if area.ContentIDs == nil {
			problems = append(problems, fmt.Sprintf("area %s is missing its content list", area.ID))
			continue
		}
		for _, contentID := range area.ContentIDs {
			content, found := document.ContentByID(contentID)
			if !found {
				problems = append(problems, fmt.Sprintf("area %s lists unknown content %s", area.ID, contentID))
				continue
			}
			if content.AreaID != area.ID {
				problems = append(problems, fmt.Sprintf("area %s lists content %s owned by area %s", area.ID, contentID, content.AreaID))
			}
		}
	}

	return problems
}

func validateContents(document AppState) []string {
	problems := make([]string, 0)
	seenIDs := make(map[string]bool, len(document.Contents))

	for _, content := range document.Contents {
		if content.ID == "" {
			problems = append(problems, "content id must not be empty")
			continue
		}
		if seenIDs[content.ID] {
			problems = append(problems, fmt.Sprintf("duplicate content id %s", content.ID))
		}
		seenIDs[content.ID] = true

		if content.Status != ContentStatusOpen && content.Status != ContentStatusClosed {
			problems = append(problems, fmt.Sprintf("content %s has unknown status %q", content.ID, content.Status))
		}

		area, found := document.AreaByID(content.AreaID)
		if !found {
			problems = append(problems, fmt.Sprintf("content %s references unknown area %s", content.ID, content.AreaID))
		} else if !containsID(area.ContentIDs, content.ID) {
			problems = append(problems, fmt.Sprintf("content %s is missing from the content list of area %s", content.ID, area.ID))
		}

		if content.Body.Shapes == nil {
			problems = append(problems, fmt.Sprintf("content %s is missing its shape list", content.ID))
		} else {
			seenShapes := make(map[string]bool, len(content.Body.Shapes))
			for _, shape := range content.Body.Shapes {
				if shape.ID == "" {
					problems = append(problems, fmt.Sprintf("content %s holds a shape without an id", content.ID))
					continue
				}
				if seenShapes[shape.ID] {
					problems = append(problems, fmt.Sprintf("content %s holds duplicate shape id %s", content.ID, shape.ID))
				}
				seenShapes[shape.ID] = true
			}
		}

		if content.Properties == nil {
			problems = append(problems, fmt.Sprintf("content %s is missing its property list", content.ID))
		} else {
			seenProperties := make(map[string]bool, len(content.Properties))
			for _, property := range content.Properties {
				if property.ID == "" {
					problems = append(problems, fmt.Sprintf("content %s holds a property without an id", content.ID))
					continue
				}
				if seenProperties[property.ID] {
					problems = append(problems, fmt.Sprintf("content %s holds duplicate property id %s", content.ID, property.ID))
				}
				seenProperties[property.ID] = true
				if !KnownPropertyType(property.Type) {
					problems = append(problems, fmt.Sprintf("property %s has unknown type %q", property.ID, property.Type))
				}
			}
		}

		if content.Tags == nil {
			problems = append(problems, fmt.Sprintf("content %s is missing its tag list", content.ID))
		}
	}

	return problems
}

func validateLinks(document AppState) []string {
	problems := make([]string, 0)
	seenIDs := make(map[string]bool, len(document.Links))
	seenPairs := make(map[string]bool, len(document.Links))

	for _, link := range document.Links {
		if link.ID == "" {
			problems = append(problems, "link id must not be empty")
			continue
		}
		if seenIDs[link.ID] {
			problems = append(problems, fmt.Sprintf("duplicate link id %s", link.ID))
		}
		seenIDs[link.ID] = true

		if link.Type != LinkTypeManual && link.Type != LinkTypeAuto {
			problems = append(problems, fmt.Sprintf("link %s has unknown type %q", link.ID, link.Type))
		}

		endpointsResolve := true
		if _, found := document.ContentByID(link.FromContentID); !found {
			problems = append(problems, fmt.Sprintf("link %s references unknown content %s", link.ID, link.FromContentID))
			endpointsResolve = false
		}
		if _, found := document.ContentByID(link.ToContentID); !found {
			problems = append(problems, fmt.Sprintf("link %s references unknown content %s", link.ID, link.ToContentID))
			endpointsResolve = false
		}
		if link.FromContentID == link.ToContentID {
			problems = append(problems, fmt.Sprintf("link %s connects content %s to itself", link.ID, link.FromContentID))
			endpointsResolve = false
		}
		if endpointsResolve {
			pair := LinkPairKey(link.FromContentID, link.ToContentID)
			if seenPairs[pair] {
				problems = append(problems, fmt.Sprintf("contents %s and %s are linked more than once", link.FromContentID, link.ToContentID))
			}
			seenPairs[pair] = true
		}
	}

	return problems
}

// KnownPropertyType reports whether the value names one of the supported
// property types.
func KnownPropertyType(propertyType PropertyType) bool {
	switch propertyType {
	case PropertyTypeTag, PropertyTypeDate, PropertyTypeShortText, PropertyTypeLongText, PropertyTypeNumber, PropertyTypeLink:
		return true
	default:
		return false
	}
}

// LinkPairKey builds a direction-independent key for a pair of content
// identifiers.
func LinkPairKey(firstContentID, secondContentID string) string {
	if firstContentID > secondContentID {
		firstContentID, secondContentID = secondContentID, firstContentID
	}
	return firstContentID + "\x00" + secondContentID
}

func containsID(identifiers []string, candidate string) bool {
	for _, identifier := range identifiers {
		if identifier == candidate {
			return true
		}
	}
	return false
}
