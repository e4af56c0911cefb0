package manager

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

func TestValidPropertyValueByType(testContext *testing.T) {
	testCases := []struct {
		name         string
		propertyType state.PropertyType
		value        any
		want         bool
	}{
		{name: "tag-single-string", propertyType: state.PropertyTypeTag, value: "go", want: true},
		{name: "tag-string-slice", propertyType: state.PropertyTypeTag, value: []string{"go", "storage"}, want: true},
		{name: "tag-decoded-slice", propertyType: state.PropertyTypeTag, value: []any{"go", "storage"}, want: true},
		{name: "tag-mixed-slice", propertyType: state.PropertyTypeTag, value: []any{"go", 3}, want: false},
		{name: "tag-number", propertyType: state.PropertyTypeTag, value: 3, want: false},
		{name: "date-millis", propertyType: state.PropertyTypeDate, value: int64(1723400000000), want: true},
		{name: "date-decoded-float", propertyType: state.PropertyTypeDate, value: float64(1723400000000), want: true},
		{name: "date-negative", propertyType: state.PropertyTypeDate, value: int64(-5), want: false},
		{name: "date-string", propertyType: state.PropertyTypeDate, value: "2024-08-11", want: false},
		{name: "short-text", propertyType: state.PropertyTypeShortText, value: "brief", want: true},
		{name: "short-text-at-limit", propertyType: state.PropertyTypeShortText, value: strings.Repeat("a", ShortTextLimit), want: true},
		{name: "short-text-over-limit", propertyType: state.PropertyTypeShortText, value: strings.Repeat("a", ShortTextLimit+1), want: false},
		{name: "long-text", propertyType: state.PropertyTypeLongText, value: strings.Repeat("a", 5000), want: true},
		{name: "long-text-number", propertyType: state.PropertyTypeLongText, value: 5, want: false},
		{name: "number-int", propertyType: state.PropertyTypeNumber, value: 42, want: true},
		{name: "number-float", propertyType: state.PropertyTypeNumber, value: 42.5, want: true},
		{name: "number-string", propertyType: state.PropertyTypeNumber, value: "42", want: false},
		{name: "link-url", propertyType: state.PropertyTypeLink, value: "https://example.com", want: true},
		{name: "link-blank", propertyType: state.PropertyTypeLink, value: "  ", want: false},
		{name: "unknown-type", propertyType: "color", value: "red", want: false},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			if got := ValidPropertyValue(testCase.propertyType, testCase.value); got != testCase.want {
				testContext.Fatalf("expected %v, got %v", testCase.want, got)
			}
		})
	}
}

func TestCoerceValueAdaptsLenientInputs(testContext *testing.T) {
	testCases := []struct {
		name         string
		propertyType state.PropertyType
		value        any
		want         any
	}{
		{name: "tag-wraps-single", propertyType: state.PropertyTypeTag, value: " go ", want: []string{"go"}},
		{name: "tag-decoded-slice", propertyType: state.PropertyTypeTag, value: []any{"go", "storage"}, want: []string{"go", "storage"}},
		{name: "date-numeric-string", propertyType: state.PropertyTypeDate, value: "1723400000000", want: int64(1723400000000)},
		{name: "date-calendar-string", propertyType: state.PropertyTypeDate, value: "2024-08-11", want: int64(1723334400000)},
		{name: "date-rfc3339", propertyType: state.PropertyTypeDate, value: "2024-08-11T18:13:20Z", want: int64(1723400000000)},
		{name: "number-string", propertyType: state.PropertyTypeNumber, value: " 42.5 ", want: 42.5},
		{name: "number-passthrough", propertyType: state.PropertyTypeNumber, value: 7, want: float64(7)},
		{name: "short-text-truncates", propertyType: state.PropertyTypeShortText, value: strings.Repeat("b", ShortTextLimit+20), want: strings.Repeat("b", ShortTextLimit)},
		{name: "link-trims", propertyType: state.PropertyTypeLink, value: " https://example.com ", want: "https://example.com"},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			got, usable := CoerceValue(testCase.propertyType, testCase.value)
			if !usable {
				testContext.Fatalf("expected a usable value")
			}
			if !reflect.DeepEqual(got, testCase.want) {
				testContext.Fatalf("expected %#v, got %#v", testCase.want, got)
			}
		})
	}
}

func TestCoerceValueRejectsHopelessInputs(testContext *testing.T) {
	testCases := []struct {
		name         string
		propertyType state.PropertyType
		value        any
	}{
		{name: "date-prose", propertyType: state.PropertyTypeDate, value: "next tuesday"},
		{name: "number-prose", propertyType: state.PropertyTypeNumber, value: "many"},
		{name: "tag-number", propertyType: state.PropertyTypeTag, value: 5},
		{name: "link-empty", propertyType: state.PropertyTypeLink, value: ""},
		{name: "short-text-number", propertyType: state.PropertyTypeShortText, value: 5},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			if _, usable := CoerceValue(testCase.propertyType, testCase.value); usable {
				testContext.Fatalf("expected coercion to fail")
			}
		})
	}
}

func TestNewPropertyValidatesStrictly(testContext *testing.T) {
	service := newTestManager(testContext)

	property, err := service.NewProperty("due", state.PropertyTypeDate, int64(1723400000000))
	if err != nil {
		testContext.Fatalf("unexpected property error: %v", err)
	}
	if property.ID != "id-1" || property.Name != "due" {
		testContext.Fatalf("unexpected property: %+v", property)
	}

	if _, err := service.NewProperty("due", state.PropertyTypeDate, "2024-08-11"); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected strict creation to reject a date string, got %v", err)
	}
	if _, err := service.NewProperty("  ", state.PropertyTypeDate, int64(0)); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected empty name to fail, got %v", err)
	}
	if _, err := service.NewProperty("due", "color", "red"); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected unknown type to fail, got %v", err)
	}
}

func TestNewPropertyCoercedAcceptsLenientInputs(testContext *testing.T) {
	service := newTestManager(testContext)

	property, err := service.NewPropertyCoerced("due", state.PropertyTypeDate, "2024-08-11T18:13:20Z")
	if err != nil {
		testContext.Fatalf("unexpected property error: %v", err)
	}
	if property.Value != int64(1723400000000) {
		testContext.Fatalf("expected coerced millis, got %#v", property.Value)
	}

	if _, err := service.NewPropertyCoerced("due", state.PropertyTypeDate, "next tuesday"); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected hopeless input to fail, got %v", err)
	}
}

func TestAddPropertyToContentAppendsProperty(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	property := state.Property{ID: "property-2", Name: "topics", Type: state.PropertyTypeTag, Value: []string{"go"}}
	updated, err := service.AddPropertyToContent(document, "content-1", property)
	if err != nil {
		testContext.Fatalf("unexpected add error: %v", err)
	}
	if len(updated.Properties) != 2 {
		testContext.Fatalf("expected 2 properties, got %d", len(updated.Properties))
	}

	duplicate := state.Property{ID: "property-1", Name: "due", Type: state.PropertyTypeDate, Value: int64(1)}
	if _, err := service.AddPropertyToContent(document, "content-1", duplicate); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected duplicate id to fail, got %v", err)
	}

	invalid := state.Property{ID: "property-3", Name: "due", Type: state.PropertyTypeDate, Value: "soon"}
	if _, err := service.AddPropertyToContent(document, "content-1", invalid); !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected invalid value to fail, got %v", err)
	}
}

func TestUpdatePropertyInContentRejectsInvalidValue(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()
	witness := buildDocument()

	_, err := service.UpdatePropertyInContent(document, "content-1", "property-1", PropertyUpdates{
		Value: valuePointer("not a date"),
	})
	if !errors.Is(err, state.ErrValidation) {
		testContext.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid property update") {
		testContext.Fatalf("expected invalid-update reason, got %q", err.Error())
	}
	if !reflect.DeepEqual(document, witness) {
		testContext.Fatalf("expected the stored document to stay unchanged after a rejected update")
	}
}

func TestUpdatePropertyInContentMergesValidUpdate(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	updated, err := service.UpdatePropertyInContent(document, "content-1", "property-1", PropertyUpdates{
		Name:  stringPointer("deadline"),
		Value: valuePointer(float64(1723500000000)),
	})
	if err != nil {
		testContext.Fatalf("unexpected update error: %v", err)
	}
	property := updated.Properties[0]
	if property.Name != "deadline" {
		testContext.Fatalf("expected renamed property, got %q", property.Name)
	}
	if property.Value != int64(1723500000000) {
		testContext.Fatalf("expected normalized millis, got %#v", property.Value)
	}
}

func TestUpdatePropertyInContentMissingPropertyFails(testContext *testing.T) {
	service := newTestManager(testContext)

	_, err := service.UpdatePropertyInContent(buildDocument(), "content-1", "property-missing", PropertyUpdates{
		Value: valuePointer(float64(5)),
	})
	if !errors.Is(err, state.ErrNotFound) {
		testContext.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemovePropertyFromContentFiltersProperty(testContext *testing.T) {
	service := newTestManager(testContext)
	document := buildDocument()

	updated, err := service.RemovePropertyFromContent(document, "content-1", "property-1")
	if err != nil {
		testContext.Fatalf("unexpected remove error: %v", err)
	}
	if len(updated.Properties) != 0 {
		testContext.Fatalf("expected property to be removed, got %d", len(updated.Properties))
	}

	unchanged, err := service.RemovePropertyFromContent(document, "content-1", "property-missing")
	if err != nil {
		testContext.Fatalf("expected removing a missing property to pass, got %v", err)
	}
	stored, _ := document.ContentByID("content-1")
	if !reflect.DeepEqual(unchanged, stored) {
		testContext.Fatalf("expected removing a missing property to change nothing")
	}
}
