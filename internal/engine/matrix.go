package engine

import "math"

// Matrix2D is an affine transform laid out as [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
//
// The annotation layer only scales: document space maps to view space by
// Scale(zoom, zoom).
type Matrix2D [6]float64

// Identity returns the identity transform.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Scale returns a transform scaling x by sx and y by sy.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// TransformPoint maps (x, y) through m.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect maps r through m and returns the axis-aligned box of the
// result.
func (m Matrix2D) TransformRect(r Rect) Rect {
	x0, y0 := m.TransformPoint(r.X, r.Y)
	x1, y1 := m.TransformPoint(r.X+r.Width, r.Y+r.Height)
	return Rect{
		X:      min(x0, x1),
		Y:      min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}
