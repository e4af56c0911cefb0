// Package migrate lifts raw stored documents from older schema generations
// to the current one. Migrations work on the decoded JSON record rather than
// on typed structs, so fields that no longer exist in the model (legacy
// connections, labels) remain visible to the steps that fold them forward.
package migrate

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

type migrationDefinition struct {
	version int
	name    string
	apply   func(raw map[string]any) map[string]any
}

func definitions() []migrationDefinition {
	return []migrationDefinition{
		{version: 1, name: "normalize_legacy_document", apply: normalizeLegacyDocument},
		{version: 2, name: "introduce_links", apply: introduceLinks},
		{version: 3, name: "introduce_properties_and_tags", apply: introducePropertiesAndTags},
		{version: 4, name: "mirror_area_content_ids", apply: mirrorAreaContentIDs},
	}
}

// FromVersion extracts the recorded schema version of a raw document.
// Missing, negative or malformed values count as version 0, which routes the
// document through the full pipeline.
func FromVersion(raw map[string]any) int {
	number, numeric := rawNumber(raw["version"])
	if !numeric || number < 0 {
		return 0
	}
	return int(number)
}

// Run applies every migration newer than the document's recorded version and
// decodes the result. The input map is consumed. Already-current documents
// pass through decoding untouched; callers validate the outcome.
func Run(raw map[string]any, logger *zap.Logger) (state.AppState, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if raw == nil {
		raw = map[string]any{}
	}

	fromVersion := FromVersion(raw)
	for _, migration := range definitions() {
		if migration.version <= fromVersion {
			continue
		}
		raw = migration.apply(raw)
		raw["version"] = migration.version
		logger.Info("schema migration applied",
			zap.String("migration", migration.name),
			zap.Int("version", migration.version))
	}

	return decodeDocument(raw)
}

func decodeDocument(raw map[string]any) (state.AppState, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return state.AppState{}, fmt.Errorf("%w: encode migrated document: %v", state.ErrParse, err)
	}
	var document state.AppState
	if err := json.Unmarshal(encoded, &document); err != nil {
		return state.AppState{}, fmt.Errorf("%w: decode migrated document: %v", state.ErrParse, err)
	}
	return document, nil
}

// normalizeLegacyDocument repairs pre-versioning documents: root arrays and
// timestamps exist afterwards, every area and content entry is a map with
// its collections and timestamps in place, and contents carry a status.
func normalizeLegacyDocument(raw map[string]any) map[string]any {
	raw["areas"] = rawMaps(raw["areas"])
	raw["contents"] = rawMaps(raw["contents"])
	ensureNumber(raw, "createdAt")
	ensureNumber(raw, "updatedAt")

	for _, entry := range raw["areas"].([]any) {
		area := entry.(map[string]any)
		ensureString(area, "id")
		ensureString(area, "name")
		ensureNumber(area, "createdAt")
		ensureNumber(area, "updatedAt")
	}

	for _, entry := range raw["contents"].([]any) {
		content := entry.(map[string]any)
		ensureString(content, "id")
		ensureString(content, "title")
		ensureString(content, "areaId")
		ensureNumber(content, "createdAt")
		ensureNumber(content, "updatedAt")

		status, _ := content["status"].(string)
		if status != string(state.ContentStatusOpen) && status != string(state.ContentStatusClosed) {
			content["status"] = string(state.ContentStatusOpen)
		}

		body, isMap := content["body"].(map[string]any)
		if !isMap {
			body = map[string]any{}
			content["body"] = body
		}
		if _, isSlice := body["shapes"].([]any); !isSlice {
			body["shapes"] = []any{}
		}
	}

	return raw
}

// introduceLinks adds the links collection, folding the legacy connections
// list into direction-independent, deduplicated link records.
func introduceLinks(raw map[string]any) map[string]any {
	if _, isSlice := raw["links"].([]any); !isSlice {
		links := make([]any, 0)
		seenPairs := make(map[string]bool)
		for _, entry := range rawSlice(raw["connections"]) {
			connection, isMap := entry.(map[string]any)
			if !isMap {
				continue
			}
			from, fromOK := connection["from"].(string)
			to, toOK := connection["to"].(string)
			if !fromOK || !toOK || from == "" || to == "" || from == to {
				continue
			}
			pair := state.LinkPairKey(from, to)
			if seenPairs[pair] {
				continue
			}
			seenPairs[pair] = true
			links = append(links, map[string]any{
				"id":            fmt.Sprintf("link-%s-%s", from, to),
				"fromContentId": from,
				"toContentId":   to,
			})
		}
		raw["links"] = links
	}
	delete(raw, "connections")
	return raw
}

// introducePropertiesAndTags gives every content a properties collection and
// a tags collection, folding the legacy labels list into tags.
func introducePropertiesAndTags(raw map[string]any) map[string]any {
	for _, entry := range rawSlice(raw["contents"]) {
		content, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		if _, isSlice := content["properties"].([]any); !isSlice {
			content["properties"] = []any{}
		}
		if _, isSlice := content["tags"].([]any); !isSlice {
			tags := make([]any, 0)
			for _, label := range rawSlice(content["labels"]) {
				if text, isString := label.(string); isString && text != "" {
					tags = append(tags, text)
				}
			}
			content["tags"] = tags
		}
		delete(content, "labels")
	}
	return raw
}

// mirrorAreaContentIDs rebuilds every area's contentIds from content
// ownership and defaults untyped links to manual.
func mirrorAreaContentIDs(raw map[string]any) map[string]any {
	ownership := make(map[string][]any)
	for _, entry := range rawSlice(raw["contents"]) {
		content, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		contentID, idOK := content["id"].(string)
		areaID, areaOK := content["areaId"].(string)
		if !idOK || !areaOK || contentID == "" || areaID == "" {
			continue
		}
		ownership[areaID] = append(ownership[areaID], contentID)
	}

	for _, entry := range rawSlice(raw["areas"]) {
		area, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		areaID, _ := area["id"].(string)
		contentIDs := ownership[areaID]
		if contentIDs == nil {
			contentIDs = []any{}
		}
		area["contentIds"] = contentIDs
	}

	for _, entry := range rawSlice(raw["links"]) {
		link, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		linkType, _ := link["type"].(string)
		if linkType == "" {
			link["type"] = string(state.LinkTypeManual)
		}
	}

	return raw
}

func rawSlice(value any) []any {
	if typed, isSlice := value.([]any); isSlice {
		return typed
	}
	return []any{}
}

func rawMaps(value any) []any {
	entries := rawSlice(value)
	kept := make([]any, 0, len(entries))
	for _, entry := range entries {
		if _, isMap := entry.(map[string]any); isMap {
			kept = append(kept, entry)
		}
	}
	return kept
}

func rawNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		number, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return number, true
	default:
		return 0, false
	}
}

func ensureNumber(record map[string]any, key string) {
	if _, numeric := rawNumber(record[key]); !numeric {
		record[key] = int64(0)
	}
}

func ensureString(record map[string]any, key string) {
	if _, isString := record[key].(string); !isString {
		record[key] = ""
	}
}
