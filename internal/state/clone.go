package state

// CloneState returns a deep copy of the document. The copy shares no mutable
// memory with the input, so callers may hand either value across goroutines
// or into the undo history without further copying.
func CloneState(document AppState) AppState {
	cloned := document
	cloned.Areas = make([]Area, len(document.Areas))
	for index, area := range document.Areas {
		cloned.Areas[index] = CloneArea(area)
	}
	cloned.Contents = make([]Content, len(document.Contents))
	for index, content := range document.Contents {
		cloned.Contents[index] = CloneContent(content)
	}
	cloned.Links = make([]Link, len(document.Links))
	copy(cloned.Links, document.Links)
	return cloned
}

// CloneArea returns a deep copy of an area.
func CloneArea(area Area) Area {
	cloned := area
	if area.ContentIDs != nil {
		cloned.ContentIDs = make([]string, len(area.ContentIDs))
		copy(cloned.ContentIDs, area.ContentIDs)
	}
	cloned.NodePosition = clonePosition(area.NodePosition)
	return cloned
}

// CloneContent returns a deep copy of a content.
func CloneContent(content Content) Content {
	cloned := content
	cloned.Body.Shapes = CloneShapes(content.Body.Shapes)
	if content.Properties != nil {
		cloned.Properties = make([]Property, len(content.Properties))
		for index, property := range content.Properties {
			cloned.Properties[index] = CloneProperty(property)
		}
	}
	if content.Tags != nil {
		cloned.Tags = make([]string, len(content.Tags))
		copy(cloned.Tags, content.Tags)
	}
	cloned.NodePosition = clonePosition(content.NodePosition)
	return cloned
}

// CloneShapes returns a deep copy of a shape slice. A nil input stays nil.
func CloneShapes(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	cloned := make([]Shape, len(shapes))
	for index, shape := range shapes {
		cloned[index] = CloneShape(shape)
	}
	return cloned
}

// CloneShape returns a deep copy of a single shape.
func CloneShape(shape Shape) Shape {
	cloned := shape
	if shape.Dimension != nil {
		dimension := *shape.Dimension
		cloned.Dimension = &dimension
	}
	if shape.Points != nil {
		cloned.Points = make([]float64, len(shape.Points))
		copy(cloned.Points, shape.Points)
	}
	cloned.Style = cloneStyle(shape.Style)
	return cloned
}

// CloneProperty returns a deep copy of a property, including its value.
func CloneProperty(property Property) Property {
	cloned := property
	cloned.Value = CloneValue(property.Value)
	return cloned
}

// CloneValue deep-copies a property value. Values are strings, numbers, or
// string slices; unknown kinds are returned as-is.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		cloned := make([]string, len(typed))
		copy(cloned, typed)
		return cloned
	case []any:
		cloned := make([]any, len(typed))
		for index, entry := range typed {
			cloned[index] = CloneValue(entry)
		}
		return cloned
	case map[string]any:
		cloned := make(map[string]any, len(typed))
		for key, entry := range typed {
			cloned[key] = CloneValue(entry)
		}
		return cloned
	default:
		return typed
	}
}

func clonePosition(position *Position) *Position {
	if position == nil {
		return nil
	}
	cloned := *position
	return &cloned
}

func cloneStyle(style ShapeStyle) ShapeStyle {
	cloned := style
	cloned.StrokeWidth = cloneFloat(style.StrokeWidth)
	cloned.Opacity = cloneFloat(style.Opacity)
	cloned.FontSize = cloneFloat(style.FontSize)
	return cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
