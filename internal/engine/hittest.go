package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pdfgrader/grader/internal/bidi"
	"github.com/pdfgrader/grader/internal/document"
)

const (
	// HitRadius is the pick distance around path points, in view pixels
	// at zoom 1. The eraser uses the same radius.
	HitRadius = 10.0

	// TextLineHeight is the line advance as a multiple of the font size.
	TextLineHeight = 1.2

	// textCharWidth approximates a glyph advance as a multiple of the font
	// size. It is not a font metric.
	textCharWidth = 0.6
)

// TextBounds returns the view-space box of a text annotation. Lines
// containing Hebrew grow to the left of the anchor.
func TextBounds(a document.Annotation, zoom float64) Rect {
	fontSize := a.Size * zoom
	tx, ty := a.X*zoom, a.Y*zoom
	lines := strings.Split(a.Text, "\n")

	left, right := math.Inf(1), math.Inf(-1)
	for _, line := range lines {
		w := float64(utf8.RuneCountInString(line)) * fontSize * textCharWidth
		if bidi.HasHebrew(line) {
			left = min(left, tx-w)
			right = max(right, tx)
		} else {
			left = min(left, tx)
			right = max(right, tx+w)
		}
	}

	return Rect{
		X:      left,
		Y:      ty,
		Width:  right - left,
		Height: fontSize * TextLineHeight * float64(len(lines)),
	}
}

// PathBounds returns the view-space box around a path's points, padded by
// half the stroke width.
func PathBounds(a document.Annotation, zoom float64) Rect {
	if len(a.Points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range a.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	pad := a.Width / 2
	r := Rect{X: minX - pad, Y: minY - pad, Width: maxX - minX + 2*pad, Height: maxY - minY + 2*pad}
	return Scale(zoom, zoom).TransformRect(r)
}

// Bounds returns the view-space box of any annotation.
func Bounds(a document.Annotation, zoom float64) Rect {
	if a.IsText() {
		return TextBounds(a, zoom)
	}
	return PathBounds(a, zoom)
}

// hits reports whether the view-space point (x, y) picks a. Paths are
// sampled at their stored points only, so a query between two far-apart
// points of a straight stroke can miss.
func hits(a document.Annotation, x, y, zoom float64) bool {
	switch a.Type {
	case document.AnnotationTypePath:
		radius := HitRadius * zoom
		for _, p := range a.Points {
			if math.Hypot(p.X*zoom-x, p.Y*zoom-y) < radius {
				return true
			}
		}
	case document.AnnotationTypeText:
		return TextBounds(a, zoom).Contains(x, y)
	}
	return false
}

// HitTest returns the index of the topmost annotation under the view-space
// point, or -1.
func HitTest(anns []document.Annotation, x, y, zoom float64) int {
	if !ValidZoom(zoom) {
		return -1
	}
	for i := len(anns) - 1; i >= 0; i-- {
		if hits(anns[i], x, y, zoom) {
			return i
		}
	}
	return -1
}

// EraseAt returns anns without every annotation under the view-space point,
// and how many were removed. anns itself is not modified.
func EraseAt(anns []document.Annotation, x, y, zoom float64) ([]document.Annotation, int) {
	if !ValidZoom(zoom) {
		return anns, 0
	}
	removed := 0
	keep := make([]document.Annotation, 0, len(anns))
	for i := len(anns) - 1; i >= 0; i-- {
		if hits(anns[i], x, y, zoom) {
			removed++
			continue
		}
		keep = append(keep, anns[i])
	}
	if removed == 0 {
		return anns, 0
	}
	for l, r := 0, len(keep)-1; l < r; l, r = l+1, r-1 {
		keep[l], keep[r] = keep[r], keep[l]
	}
	return keep, removed
}
