package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfgrader/grader/internal/bidi"
	"github.com/pdfgrader/grader/internal/document"
)

func TestCompilePathScalesToView(t *testing.T) {
	a := document.NewPath("#ff0000", 2, []document.Point{{X: 10, Y: 20}, {X: 30, Y: 40}})
	a.ID = "ann_1"

	got := CompileDrawCommands([]document.Annotation{a}, 2, nil)
	want := []DrawCommand{{
		Op:           "path",
		AnnotationID: "ann_1",
		Path:         []PathCommand{{"M", 20.0, 40.0}, {"L", 60.0, 80.0}},
		Stroke:       "#ff0000",
		StrokeWidth:  4,
	}}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", d)
	}
}

func TestCompileTextLines(t *testing.T) {
	a := document.NewText("Q1\nציון 90", document.Point{X: 100, Y: 50}, 10, "#000000")

	got := CompileDrawCommands([]document.Annotation{a}, 1, nil)
	want := []DrawCommand{
		{
			Op: "text", Fill: "#000000", Text: "Q1",
			Runs:      []bidi.Run{{Text: "Q1"}},
			Direction: "ltr", X: 100, Y: 60, FontSize: 10,
		},
		{
			Op: "text", Fill: "#000000", Text: "ציון 90",
			Runs:      []bidi.Run{{Text: "90 "}, {Text: "ןויצ", RightToLeft: true}},
			Direction: "rtl", X: 100, Y: 72, FontSize: 10,
		},
	}
	if d := cmp.Diff(want, got, approxFloats); d != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", d)
	}
}

func TestCompilePendingStrokeOnTop(t *testing.T) {
	stored := dot(1, 1)
	pending := document.NewPath("#00ff00", 3, []document.Point{{X: 5, Y: 5}, {X: 6, Y: 6}})

	got := CompileDrawCommands([]document.Annotation{stored}, 2, &pending)
	if len(got) != 2 {
		t.Fatalf("got %d commands, want 2", len(got))
	}
	last := got[1]
	if last.Stroke != "#00ff00" || last.StrokeWidth != 3 {
		t.Errorf("pending stroke = %+v", last)
	}
	if d := cmp.Diff([]PathCommand{{"M", 5.0, 5.0}, {"L", 6.0, 6.0}}, last.Path); d != "" {
		t.Errorf("pending stroke is rescaled (-want +got):\n%s", d)
	}
}

func TestDrawCommandsToJSON(t *testing.T) {
	cmds := CompileDrawCommands([]document.Annotation{dot(1, 2)}, 1, nil)
	s, err := DrawCommandsToJSON(cmds)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", s, err)
	}
	if len(decoded) != 1 || decoded[0]["op"] != "path" {
		t.Errorf("decoded = %v", decoded)
	}

	if got := CompileDrawCommands([]document.Annotation{dot(1, 2)}, 0, nil); got != nil {
		t.Errorf("invalid zoom compiled %d commands", len(got))
	}
}
