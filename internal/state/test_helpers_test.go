package state

const testNowMillis = int64(1723400000000)

func buildValidDocument() AppState {
	strokeWidth := 2.0
	return AppState{
		Version: SchemaVersion,
		Areas: []Area{
			{
				ID:         "area-1",
				Name:       "Research",
				ContentIDs: []string{"content-1", "content-2"},
				CreatedAt:  testNowMillis,
				UpdatedAt:  testNowMillis,
			},
			{
				ID:         "area-2",
				Name:       "Archive",
				ContentIDs: []string{},
				CreatedAt:  testNowMillis,
				UpdatedAt:  testNowMillis,
			},
		},
		Contents: []Content{
			{
				ID:     "content-1",
				Title:  "Reading list",
				AreaID: "area-1",
				Status: ContentStatusOpen,
				Body: CanvasBody{Shapes: []Shape{
					{
						ID:        "shape-1",
						Type:      ShapeTypeRect,
						Position:  Position{X: 10, Y: 20},
						Dimension: &Dimension{Width: 120, Height: 80},
						Style:     ShapeStyle{Fill: "#ffffff", StrokeWidth: &strokeWidth},
					},
					{
						ID:       "shape-2",
						Type:     ShapeTypeLine,
						Position: Position{X: 0, Y: 0},
						Points:   []float64{0, 0, 40, 40},
					},
				}},
				Properties: []Property{
					{ID: "property-1", Name: "due", Type: PropertyTypeDate, Value: float64(testNowMillis)},
					{ID: "property-2", Name: "topics", Type: PropertyTypeTag, Value: []string{"go", "storage"}},
				},
				Tags:      []string{"reading"},
				CreatedAt: testNowMillis,
				UpdatedAt: testNowMillis,
			},
			{
				ID:           "content-2",
				Title:        "Old experiment",
				AreaID:       "area-1",
				Status:       ContentStatusClosed,
				Body:         CanvasBody{Shapes: []Shape{}},
				Properties:   []Property{},
				Tags:         []string{},
				NodePosition: &Position{X: 300, Y: 120},
				CreatedAt:    testNowMillis,
				UpdatedAt:    testNowMillis,
			},
		},
		Links: []Link{
			{ID: "link-1", FromContentID: "content-1", ToContentID: "content-2", Type: LinkTypeManual},
		},
		CurrentAreaID: "area-1",
		CreatedAt:     testNowMillis,
		UpdatedAt:     testNowMillis,
	}
}
