package engine

import (
	"errors"
	"math"

	"github.com/pdfgrader/grader/internal/document"
)

const (
	// MinZoom is the smallest zoom the view allows.
	MinZoom = 0.2
	// ZoomStep is the increment used by ZoomIn and ZoomOut.
	ZoomStep = 0.1
)

var ErrInvalidZoom = errors.New("zoom must be a positive finite number")

// ValidZoom reports whether z can be used as a coordinate scale.
func ValidZoom(z float64) bool {
	return z > 0 && !math.IsInf(z, 1)
}

// ClampZoom bounds z from below by MinZoom.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z < MinZoom {
		return MinZoom
	}
	return z
}

// ViewTransform maps document space to view space at the given zoom.
func ViewTransform(zoom float64) (Matrix2D, bool) {
	if !ValidZoom(zoom) {
		return Identity(), false
	}
	return Scale(zoom, zoom), true
}

// ToDocumentSpace converts a view-space point to document space. It reports
// false for an unusable zoom; callers drop the event.
func ToDocumentSpace(p document.Point, zoom float64) (document.Point, bool) {
	if !ValidZoom(zoom) {
		return document.Point{}, false
	}
	return document.Point{X: p.X / zoom, Y: p.Y / zoom}, true
}

// ToViewSpace converts a document-space point to view space.
func ToViewSpace(p document.Point, zoom float64) (document.Point, bool) {
	m, ok := ViewTransform(zoom)
	if !ok {
		return document.Point{}, false
	}
	x, y := m.TransformPoint(p.X, p.Y)
	return document.Point{X: x, Y: y}, true
}

// ScalarToDocument converts a view-space magnitude (stroke width, font size).
func ScalarToDocument(v, zoom float64) (float64, bool) {
	if !ValidZoom(zoom) {
		return 0, false
	}
	return v / zoom, true
}

// ScalarToView converts a document-space magnitude to view pixels.
func ScalarToView(v, zoom float64) (float64, bool) {
	if !ValidZoom(zoom) {
		return 0, false
	}
	return v * zoom, true
}
