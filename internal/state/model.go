package state

import "time"

// SchemaVersion is the current generation of the persisted document shape.
// Documents recorded at older generations pass through the migration
// pipeline before they reach application code.
const SchemaVersion = 4

// ContentStatus enumerates the lifecycle states of a content.
type ContentStatus string

const (
	// ContentStatusOpen marks a content as actively worked on.
	ContentStatusOpen ContentStatus = "open"
	// ContentStatusClosed marks a content as parked on the overview graph.
	ContentStatusClosed ContentStatus = "closed"
)

// PropertyType enumerates the typed values a property may carry.
type PropertyType string

const (
	PropertyTypeTag       PropertyType = "tag"
	PropertyTypeDate      PropertyType = "date"
	PropertyTypeShortText PropertyType = "shortText"
	PropertyTypeLongText  PropertyType = "longText"
	PropertyTypeNumber    PropertyType = "number"
	PropertyTypeLink      PropertyType = "link"
)

// LinkType distinguishes user-drawn links from derived ones.
type LinkType string

const (
	LinkTypeManual LinkType = "manual"
	LinkTypeAuto   LinkType = "auto"
)

// ShapeType enumerates the vector primitives a canvas may hold.
type ShapeType string

const (
	ShapeTypeRect    ShapeType = "rect"
	ShapeTypeEllipse ShapeType = "ellipse"
	ShapeTypeLine    ShapeType = "line"
	ShapeTypeArrow   ShapeType = "arrow"
	ShapeTypeText    ShapeType = "text"
)

// Position locates an element on a canvas or on the overview graph.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimension sizes a box-like shape.
type Dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShapeStyle carries the optional visual attributes of a shape.
type ShapeStyle struct {
	Fill        string   `json:"fill,omitempty"`
	Stroke      string   `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
	FontSize    *float64 `json:"fontSize,omitempty"`
}

// Shape is one vector element on a content canvas.
type Shape struct {
	ID        string     `json:"id"`
	Type      ShapeType  `json:"type"`
	Position  Position   `json:"position"`
	Dimension *Dimension `json:"dimension,omitempty"`
	Points    []float64  `json:"points,omitempty"`
	Style     ShapeStyle `json:"style"`
	Text      string     `json:"text,omitempty"`
	GroupID   string     `json:"groupId,omitempty"`
}

// CanvasBody holds the drawable payload of a content.
type CanvasBody struct {
	Shapes []Shape `json:"shapes"`
}

// Property is a typed named attribute attached to a content. Value holds a
// string, a string slice, or a number depending on Type.
type Property struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Type  PropertyType `json:"type"`
	Value any          `json:"value"`
}

// Link is a relation between two contents. A pair of contents carries at
// most one link regardless of direction.
type Link struct {
	ID            string   `json:"id"`
	FromContentID string   `json:"fromContentId"`
	ToContentID   string   `json:"toContentId"`
	Type          LinkType `json:"type"`
}

// Content is one unit of work: a titled canvas with typed properties and
// free-form tags. NodePosition is only meaningful while the content is
// closed and parked on the overview graph.
type Content struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	AreaID       string        `json:"areaId"`
	Status       ContentStatus `json:"status"`
	Body         CanvasBody    `json:"body"`
	Properties   []Property    `json:"properties"`
	Tags         []string      `json:"tags"`
	NodePosition *Position     `json:"nodePosition,omitempty"`
	CreatedAt    int64         `json:"createdAt"`
	UpdatedAt    int64         `json:"updatedAt"`
}

// Area groups contents under a name that is unique case-insensitively.
// ContentIDs mirrors the contents whose AreaID points back at the area.
type Area struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	ContentIDs      []string  `json:"contentIds"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	NodePosition    *Position `json:"nodePosition,omitempty"`
	CreatedAt       int64     `json:"createdAt"`
	UpdatedAt       int64     `json:"updatedAt"`
}

// AppState is the single root document the whole application works on.
// Timestamps are unix milliseconds.
type AppState struct {
	Version          int       `json:"version"`
	Areas            []Area    `json:"areas"`
	Contents         []Content `json:"contents"`
	Links            []Link    `json:"links"`
	CurrentAreaID    string    `json:"currentAreaId,omitempty"`
	CurrentContentID string    `json:"currentContentId,omitempty"`
	CreatedAt        int64     `json:"createdAt"`
	UpdatedAt        int64     `json:"updatedAt"`
}

// DefaultState returns an empty document at the current schema version.
func DefaultState(now time.Time) AppState {
	stamp := NowMillis(now)
	return AppState{
		Version:   SchemaVersion,
		Areas:     []Area{},
		Contents:  []Content{},
		Links:     []Link{},
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

// NowMillis converts a wall-clock time to the unix-millisecond stamp used by
// the document.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// AreaByID returns the area with the given identifier.
func (s AppState) AreaByID(areaID string) (Area, bool) {
	for _, area := range s.Areas {
		if area.ID == areaID {
			return area, true
		}
	}
	return Area{}, false
}

// ContentByID returns the content with the given identifier.
func (s AppState) ContentByID(contentID string) (Content, bool) {
	for _, content := range s.Contents {
		if content.ID == contentID {
			return content, true
		}
	}
	return Content{}, false
}

// LinkByID returns the link with the given identifier.
func (s AppState) LinkByID(linkID string) (Link, bool) {
	for _, link := range s.Links {
		if link.ID == linkID {
			return link, true
		}
	}
	return Link{}, false
}
