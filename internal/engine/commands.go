package engine

import (
	"encoding/json"
	"strings"

	"github.com/pdfgrader/grader/internal/bidi"
	"github.com/pdfgrader/grader/internal/document"
)

// PathCommand is a single Canvas2D path instruction, e.g. ["M", x, y] or
// ["L", x, y].
type PathCommand []interface{}

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context
// layered over the rendered PDF page. All coordinates are in view space.
type DrawCommand struct {
	Op           string        `json:"op"`                     // Operation: "path", "text"
	AnnotationID string        `json:"annotationId,omitempty"` // For hit correlation
	Path         []PathCommand `json:"path,omitempty"`         // Path data for "path" ops
	Stroke       string        `json:"stroke,omitempty"`       // Stroke color
	StrokeWidth  float64       `json:"strokeWidth,omitempty"`  // Stroke width
	Fill         string        `json:"fill,omitempty"`         // Text color
	Text         string        `json:"text,omitempty"`         // Logical line, for editing overlays
	Runs         []bidi.Run    `json:"runs,omitempty"`         // Visual-order runs to draw left to right
	Direction    string        `json:"direction,omitempty"`    // "ltr" or "rtl"
	X            float64       `json:"x,omitempty"`            // Line anchor
	Y            float64       `json:"y,omitempty"`            // Baseline
	FontSize     float64       `json:"fontSize,omitempty"`
}

// CompileDrawCommands generates the view draw commands for one page.
// Commands are in painter's order (back to front). A pending pen stroke,
// given in view space, is drawn last.
func CompileDrawCommands(anns []document.Annotation, zoom float64, pending *document.Annotation) []DrawCommand {
	if !ValidZoom(zoom) {
		return nil
	}

	commands := make([]DrawCommand, 0, len(anns)+1)
	for _, a := range anns {
		switch a.Type {
		case document.AnnotationTypePath:
			commands = append(commands, compilePath(a, zoom))
		case document.AnnotationTypeText:
			commands = append(commands, compileText(a, zoom)...)
		}
	}
	if pending != nil && len(pending.Points) > 0 {
		commands = append(commands, compilePath(*pending, 1))
	}
	return commands
}

func compilePath(a document.Annotation, zoom float64) DrawCommand {
	path := make([]PathCommand, 0, len(a.Points))
	for i, p := range a.Points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X * zoom, p.Y * zoom})
	}
	return DrawCommand{
		Op:           "path",
		AnnotationID: a.ID,
		Path:         path,
		Stroke:       a.Color,
		StrokeWidth:  a.Width * zoom,
	}
}

func compileText(a document.Annotation, zoom float64) []DrawCommand {
	fontSize := a.Size * zoom
	lines := strings.Split(a.Text, "\n")
	commands := make([]DrawCommand, 0, len(lines))
	for i, line := range lines {
		dir := "ltr"
		if bidi.HasHebrew(line) {
			dir = "rtl"
		}
		commands = append(commands, DrawCommand{
			Op:           "text",
			AnnotationID: a.ID,
			Fill:         a.Color,
			Text:         line,
			Runs:         bidi.ShapeForDisplay(line),
			Direction:    dir,
			X:            a.X * zoom,
			Y:            a.Y*zoom + fontSize + float64(i)*fontSize*TextLineHeight,
			FontSize:     fontSize,
		})
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTestResult describes the annotation under a point.
type HitTestResult struct {
	Index        int     `json:"index"`
	AnnotationID string  `json:"annotationId"`
	Type         string  `json:"type"`
	Bounds       Rect    `json:"bounds"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}
