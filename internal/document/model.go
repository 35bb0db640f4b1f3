package document

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyPath          = errors.New("path annotation has no points")
	ErrUnknownAnnotation  = errors.New("unknown annotation type")
	ErrNonPositiveMeasure = errors.New("annotation size must be positive")
)

// Point is a 2D coordinate. Stored annotations always hold document-space
// points (zoom 1.0).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type AnnotationType string

const (
	AnnotationTypePath AnnotationType = "path"
	AnnotationTypeText AnnotationType = "text"
)

// Annotation is one mark on a page. The variant is selected by Type; the
// path fields (Width, Points) and the text fields (Text, X, Y, Size) are
// only meaningful for their own variant. The JSON shape matches saved
// grading sessions.
type Annotation struct {
	ID    string         `json:"id,omitempty"`
	Type  AnnotationType `json:"type"`
	Color string         `json:"color"`

	// For path
	Width  float64 `json:"width,omitempty"`
	Points []Point `json:"points,omitempty"`

	// For text
	Text string  `json:"text,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Size float64 `json:"size,omitempty"`
}

// NewPath creates a path annotation from document-space points.
func NewPath(color string, width float64, points []Point) Annotation {
	return Annotation{
		Type:   AnnotationTypePath,
		Color:  color,
		Width:  width,
		Points: append([]Point(nil), points...),
	}
}

// NewText creates a text annotation anchored at the document-space point at.
func NewText(text string, at Point, size float64, color string) Annotation {
	return Annotation{
		Type:  AnnotationTypeText,
		Color: color,
		Text:  text,
		X:     at.X,
		Y:     at.Y,
		Size:  size,
	}
}

func (a Annotation) IsPath() bool { return a.Type == AnnotationTypePath }
func (a Annotation) IsText() bool { return a.Type == AnnotationTypeText }

// Anchor returns the top-left of a text annotation, or the first point of a path.
func (a Annotation) Anchor() Point {
	if a.IsPath() && len(a.Points) > 0 {
		return a.Points[0]
	}
	return Point{X: a.X, Y: a.Y}
}

// Validate checks the invariants every stored annotation must satisfy.
func (a Annotation) Validate() error {
	switch a.Type {
	case AnnotationTypePath:
		if len(a.Points) == 0 {
			return ErrEmptyPath
		}
		if a.Width < 0 {
			return fmt.Errorf("path width %v: %w", a.Width, ErrNonPositiveMeasure)
		}
	case AnnotationTypeText:
		if a.Size <= 0 {
			return fmt.Errorf("text size %v: %w", a.Size, ErrNonPositiveMeasure)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAnnotation, a.Type)
	}
	return nil
}

// Translate moves the annotation by d in place.
func (a *Annotation) Translate(d Point) {
	switch a.Type {
	case AnnotationTypePath:
		for i := range a.Points {
			a.Points[i] = a.Points[i].Add(d)
		}
	case AnnotationTypeText:
		a.X += d.X
		a.Y += d.Y
	}
}

// Clone returns a deep copy.
func (a Annotation) Clone() Annotation {
	if a.Points != nil {
		a.Points = append([]Point(nil), a.Points...)
	}
	return a
}

// CloneAll deep-copies a page's annotation list. The result is never nil.
func CloneAll(anns []Annotation) []Annotation {
	out := make([]Annotation, len(anns))
	for i, a := range anns {
		out[i] = a.Clone()
	}
	return out
}

// equalEpsilon absorbs float noise from zoom division when comparing
// annotations restored from different sessions.
const equalEpsilon = 0.001

// Equal reports whether two annotations describe the same mark. IDs are
// ignored.
func Equal(a, b Annotation) bool {
	if a.Type != b.Type || a.Color != b.Color {
		return false
	}
	near := func(x, y float64) bool { return math.Abs(x-y) <= equalEpsilon }

	switch a.Type {
	case AnnotationTypeText:
		return a.Text == b.Text && near(a.Size, b.Size) && near(a.X, b.X) && near(a.Y, b.Y)
	case AnnotationTypePath:
		if !near(a.Width, b.Width) || len(a.Points) != len(b.Points) {
			return false
		}
		for i := range a.Points {
			if !near(a.Points[i].X, b.Points[i].X) || !near(a.Points[i].Y, b.Points[i].Y) {
				return false
			}
		}
		return true
	}
	return false
}

// PageAnnotations holds the annotations of one document, keyed by 1-based
// page number.
type PageAnnotations map[int][]Annotation
