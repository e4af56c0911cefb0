package manager

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// ShortTextLimit bounds shortText property values, counted in runes.
const ShortTextLimit = 100

// PropertyUpdates lists the fields UpdatePropertyInContent may change. A
// non-nil Value is re-validated against the property type before it lands.
type PropertyUpdates struct {
	Name  *string
	Value *any
}

// NewProperty validates the value against the property type and returns the
// assembled property. The value is taken as-is; callers with lenient inputs
// coerce first via CoerceValue.
func (m *Manager) NewProperty(name string, propertyType state.PropertyType, value any) (state.Property, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return state.Property{}, validationError("property name is required")
	}
	if !state.KnownPropertyType(propertyType) {
		return state.Property{}, validationError("unknown property type %q", propertyType)
	}
	if !ValidPropertyValue(propertyType, value) {
		return state.Property{}, validationError("invalid %s value for property %q", propertyType, trimmedName)
	}

	propertyID, err := m.newID("property")
	if err != nil {
		return state.Property{}, err
	}

	return state.Property{
		ID:    propertyID,
		Name:  trimmedName,
		Type:  propertyType,
		Value: normalizeValue(propertyType, value),
	}, nil
}

// NewPropertyCoerced builds a property from a lenient input, running the
// creation-time coercion before validation.
func (m *Manager) NewPropertyCoerced(name string, propertyType state.PropertyType, rawValue any) (state.Property, error) {
	if !state.KnownPropertyType(propertyType) {
		return state.Property{}, validationError("unknown property type %q", propertyType)
	}
	coerced, usable := CoerceValue(propertyType, rawValue)
	if !usable {
		return state.Property{}, validationError("cannot coerce %s value for property %q", propertyType, strings.TrimSpace(name))
	}
	return m.NewProperty(name, propertyType, coerced)
}

// AddPropertyToContent attaches a property to a content. Property
// identifiers must be unique within the content.
func (m *Manager) AddPropertyToContent(document state.AppState, contentID string, property state.Property) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}
	if strings.TrimSpace(property.ID) == "" {
		return state.Content{}, validationError("property id is required")
	}
	if propertyIndex(content.Properties, property.ID) >= 0 {
		return state.Content{}, validationError("property %s already exists", property.ID)
	}
	if !state.KnownPropertyType(property.Type) {
		return state.Content{}, validationError("unknown property type %q", property.Type)
	}
	if !ValidPropertyValue(property.Type, property.Value) {
		return state.Content{}, validationError("invalid %s value for property %q", property.Type, property.Name)
	}

	updated := state.CloneContent(content)
	updated.Properties = append(updated.Properties, state.CloneProperty(property))
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// RemovePropertyFromContent drops a property from a content. Removing a
// property that is not present returns the content unchanged.
func (m *Manager) RemovePropertyFromContent(document state.AppState, contentID, propertyID string) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}

	updated := state.CloneContent(content)
	index := propertyIndex(updated.Properties, propertyID)
	if index < 0 {
		return updated, nil
	}

	updated.Properties = append(updated.Properties[:index], updated.Properties[index+1:]...)
	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// UpdatePropertyInContent merges updates onto one property. The merged value
// must still satisfy the property type, otherwise the stored document stays
// as it was.
func (m *Manager) UpdatePropertyInContent(document state.AppState, contentID, propertyID string, updates PropertyUpdates) (state.Content, error) {
	content, found := document.ContentByID(contentID)
	if !found {
		return state.Content{}, notFoundError("content", contentID)
	}
	index := propertyIndex(content.Properties, propertyID)
	if index < 0 {
		return state.Content{}, notFoundError("property", propertyID)
	}

	updated := state.CloneContent(content)
	property := &updated.Properties[index]
	if updates.Name != nil {
		trimmedName := strings.TrimSpace(*updates.Name)
		if trimmedName == "" {
			return state.Content{}, validationError("invalid property update: property name is required")
		}
		property.Name = trimmedName
	}
	if updates.Value != nil {
		candidate := *updates.Value
		if !ValidPropertyValue(property.Type, candidate) {
			return state.Content{}, validationError("invalid property update: %s value rejected for property %q", property.Type, property.Name)
		}
		property.Value = normalizeValue(property.Type, candidate)
	}

	updated.UpdatedAt = m.nowMillis()
	return updated, nil
}

// ValidPropertyValue reports whether a value satisfies the validator for the
// property type.
func ValidPropertyValue(propertyType state.PropertyType, value any) bool {
	switch propertyType {
	case state.PropertyTypeTag:
		switch typed := value.(type) {
		case string:
			return true
		case []string:
			return true
		case []any:
			for _, entry := range typed {
				if _, ok := entry.(string); !ok {
					return false
				}
			}
			return true
		default:
			return false
		}
	case state.PropertyTypeDate:
		millis, numeric := numericValue(value)
		return numeric && !math.IsNaN(millis) && millis >= 0
	case state.PropertyTypeShortText:
		text, ok := value.(string)
		return ok && utf8.RuneCountInString(text) <= ShortTextLimit
	case state.PropertyTypeLongText:
		_, ok := value.(string)
		return ok
	case state.PropertyTypeNumber:
		number, numeric := numericValue(value)
		return numeric && !math.IsNaN(number)
	case state.PropertyTypeLink:
		text, ok := value.(string)
		return ok && strings.TrimSpace(text) != ""
	default:
		return false
	}
}

// CoerceValue adapts creation-time convenience inputs into the canonical
// value for a property type: numeric strings parse, date-like strings become
// unix milliseconds, a single tag becomes a one-entry list, over-long short
// text is truncated. The boolean reports whether a usable value came out.
func CoerceValue(propertyType state.PropertyType, value any) (any, bool) {
	switch propertyType {
	case state.PropertyTypeTag:
		switch typed := value.(type) {
		case string:
			trimmed := strings.TrimSpace(typed)
			if trimmed == "" {
				return []string{}, true
			}
			return []string{trimmed}, true
		case []string, []any:
			if !ValidPropertyValue(propertyType, typed) {
				return nil, false
			}
			return normalizeValue(propertyType, typed), true
		default:
			return nil, false
		}
	case state.PropertyTypeDate:
		if millis, numeric := numericValue(value); numeric && !math.IsNaN(millis) && millis >= 0 {
			return int64(millis), true
		}
		switch typed := value.(type) {
		case time.Time:
			return typed.UnixMilli(), true
		case string:
			trimmed := strings.TrimSpace(typed)
			if millis, err := strconv.ParseFloat(trimmed, 64); err == nil && millis >= 0 {
				return int64(millis), true
			}
			if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
				return parsed.UnixMilli(), true
			}
			if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
				return parsed.UnixMilli(), true
			}
			return nil, false
		default:
			return nil, false
		}
	case state.PropertyTypeShortText:
		text, ok := value.(string)
		if !ok {
			return nil, false
		}
		runes := []rune(text)
		if len(runes) > ShortTextLimit {
			return string(runes[:ShortTextLimit]), true
		}
		return text, true
	case state.PropertyTypeLongText:
		text, ok := value.(string)
		if !ok {
			return nil, false
		}
		return text, true
	case state.PropertyTypeNumber:
		if number, numeric := numericValue(value); numeric && !math.IsNaN(number) {
			return number, true
		}
		if text, ok := value.(string); ok {
			if number, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil && !math.IsNaN(number) {
				return number, true
			}
		}
		return nil, false
	case state.PropertyTypeLink:
		text, ok := value.(string)
		if !ok {
			return nil, false
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, false
		}
		return trimmed, true
	default:
		return nil, false
	}
}

// normalizeValue settles accepted values into their storage form so clones
// and comparisons behave predictably.
func normalizeValue(propertyType state.PropertyType, value any) any {
	switch propertyType {
	case state.PropertyTypeTag:
		switch typed := value.(type) {
		case []any:
			tags := make([]string, 0, len(typed))
			for _, entry := range typed {
				tags = append(tags, entry.(string))
			}
			return tags
		case []string:
			tags := make([]string, len(typed))
			copy(tags, typed)
			return tags
		default:
			return typed
		}
	case state.PropertyTypeDate:
		millis, _ := numericValue(value)
		return int64(millis)
	case state.PropertyTypeNumber:
		number, _ := numericValue(value)
		return number
	default:
		return value
	}
}

func numericValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func propertyIndex(properties []state.Property, propertyID string) int {
	for index, property := range properties {
		if property.ID == propertyID {
			return index
		}
	}
	return -1
}
