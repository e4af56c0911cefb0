package state

import (
	"reflect"
	"testing"
)

func TestCloneStateSharesNoMutableMemory(testContext *testing.T) {
	original := buildValidDocument()
	cloned := CloneState(original)

	if !reflect.DeepEqual(original, cloned) {
		testContext.Fatalf("expected clone to equal original")
	}

	cloned.Areas[0].Name = "Mutated"
	cloned.Areas[0].ContentIDs[0] = "mutated"
	cloned.Contents[0].Body.Shapes[0].Position.X = 999
	cloned.Contents[0].Body.Shapes[0].Points = append(cloned.Contents[0].Body.Shapes[0].Points, 1)
	*cloned.Contents[0].Body.Shapes[0].Style.StrokeWidth = 99
	cloned.Contents[0].Tags[0] = "mutated"
	cloned.Contents[1].NodePosition.X = 999
	cloned.Links[0].Type = LinkTypeAuto

	pristine := buildValidDocument()
	if !reflect.DeepEqual(original, pristine) {
		testContext.Fatalf("mutating the clone changed the original")
	}
}

func TestClonePropertyCopiesSliceValues(testContext *testing.T) {
	property := Property{
		ID:    "property-1",
		Name:  "topics",
		Type:  PropertyTypeTag,
		Value: []string{"go", "storage"},
	}

	cloned := CloneProperty(property)
	cloned.Value.([]string)[0] = "mutated"

	if property.Value.([]string)[0] != "go" {
		testContext.Fatalf("expected original tag value to survive clone mutation")
	}
}

func TestCloneValueCopiesNestedContainers(testContext *testing.T) {
	value := []any{"go", map[string]any{"nested": []any{"x"}}}

	cloned := CloneValue(value).([]any)
	cloned[0] = "mutated"
	cloned[1].(map[string]any)["nested"].([]any)[0] = "mutated"

	if value[0] != "go" {
		testContext.Fatalf("expected top-level entry to survive clone mutation")
	}
	if value[1].(map[string]any)["nested"].([]any)[0] != "x" {
		testContext.Fatalf("expected nested entry to survive clone mutation")
	}
}

func TestCloneShapesPreservesNil(testContext *testing.T) {
	if CloneShapes(nil) != nil {
		testContext.Fatalf("expected nil input to stay nil")
	}
	cloned := CloneShapes([]Shape{})
	if cloned == nil || len(cloned) != 0 {
		testContext.Fatalf("expected empty input to stay empty, got %v", cloned)
	}
}
