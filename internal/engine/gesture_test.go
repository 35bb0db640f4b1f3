package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfgrader/grader/internal/document"
)

type hookCounter struct {
	saves     int
	refreshes []int
}

func newLoadedEngine(t *testing.T, zoom float64) (*Engine, *hookCounter) {
	t.Helper()
	e := NewEngine(Options{Zoom: zoom, PenColor: "#ff0000", PenWidth: 2, TextSize: 16})
	h := &hookCounter{}
	e.SetSaveHook(func() { h.saves++ })
	e.SetRefreshHook(func(page int) { h.refreshes = append(h.refreshes, page) })

	e.AddDocument("a.pdf")
	seq, err := e.BeginLoad("a.pdf")
	if err != nil {
		t.Fatalf("BeginLoad: %v", err)
	}
	if !e.CompleteLoad(seq, []PageSize{{Width: 600, Height: 800}, {Width: 600, Height: 800}}) {
		t.Fatal("CompleteLoad rejected the current request")
	}
	return e, h
}

func press(x, y float64) PointerEvent {
	return PointerEvent{Button: ButtonLeft, View: document.Point{X: x, Y: y}, Screen: document.Point{X: x, Y: y}}
}

func TestPenStroke(t *testing.T) {
	e, h := newLoadedEngine(t, 2)
	e.SetTool(ToolPen)

	e.PointerDown(1, press(20, 40))
	if got := e.PointerMove(1, press(40, 40)); got.Kind != OutcomeRedraw {
		t.Errorf("move outcome = %v, want redraw", got.Kind)
	}
	if e.GestureState() != StateDrawing {
		t.Fatalf("state = %v, want drawing", e.GestureState())
	}
	cmds := e.Render(1)
	if len(cmds) != 1 || cmds[0].AnnotationID != "" {
		t.Fatalf("pending stroke not rendered: %+v", cmds)
	}
	if h.saves != 0 {
		t.Errorf("saved %d times before the stroke ended", h.saves)
	}

	e.PointerUp(1, press(40, 40))
	want := []document.Annotation{
		document.NewPath("#ff0000", 1, []document.Point{{X: 10, Y: 20}, {X: 20, Y: 20}}),
	}
	if d := cmp.Diff(want, e.Annotations(1), ignoreIDs); d != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", d)
	}
	if h.saves != 1 {
		t.Errorf("saves = %d, want 1", h.saves)
	}
	if undo, _ := e.HistoryDepth(1); undo != 1 {
		t.Errorf("undo depth = %d, want 1", undo)
	}
	if e.GestureState() != StateIdle {
		t.Errorf("state after up = %v, want idle", e.GestureState())
	}
}

func TestEraserOverlappingPathsSavesOnce(t *testing.T) {
	e, h := newLoadedEngine(t, 1)
	_ = e.store.Append("a.pdf", 1, dot(100, 100))
	_ = e.store.Append("a.pdf", 1, dot(102, 100))
	_ = e.store.Append("a.pdf", 1, dot(400, 400))
	e.SetTool(ToolEraser)

	if got := e.PointerDown(1, press(101, 100)); got.Kind != OutcomeRedraw {
		t.Errorf("down outcome = %v, want redraw", got.Kind)
	}
	if n := len(e.Annotations(1)); n != 1 {
		t.Fatalf("%d annotations left, want 1", n)
	}
	if h.saves != 1 || len(h.refreshes) != 1 {
		t.Errorf("saves = %d, refreshes = %d; want 1, 1", h.saves, len(h.refreshes))
	}

	if got := e.PointerMove(1, press(101, 100)); got.Kind != OutcomeNone {
		t.Errorf("move over nothing outcome = %v, want none", got.Kind)
	}
	e.PointerMove(1, press(400, 400))
	e.PointerUp(1, press(400, 400))
	if h.saves != 2 {
		t.Errorf("saves = %d, want 2", h.saves)
	}

	if undo, _ := e.HistoryDepth(1); undo != 1 {
		t.Fatalf("undo depth = %d, want 1 for the whole gesture", undo)
	}
	e.Undo(1)
	if n := len(e.Annotations(1)); n != 3 {
		t.Errorf("%d annotations after undo, want 3", n)
	}
}

func TestEraserMissLeavesHistory(t *testing.T) {
	e, h := newLoadedEngine(t, 1)
	_ = e.store.Append("a.pdf", 1, dot(100, 100))
	e.SetTool(ToolEraser)

	e.PointerDown(1, press(300, 300))
	e.PointerMove(1, press(310, 300))
	e.PointerUp(1, press(310, 300))

	if h.saves != 0 || len(h.refreshes) != 0 {
		t.Errorf("saves = %d, refreshes = %d; want 0, 0", h.saves, len(h.refreshes))
	}
	if undo, _ := e.HistoryDepth(1); undo != 0 {
		t.Errorf("undo depth = %d, want 0", undo)
	}
}

func TestDragMovesAfterThreshold(t *testing.T) {
	e, h := newLoadedEngine(t, 2)
	_ = e.store.Append("a.pdf", 1, document.NewText("ok", document.Point{X: 100, Y: 50}, 10, "#000000"))

	if got := e.PointerDown(1, press(205, 110)); got.Cursor != "move" {
		t.Errorf("down cursor = %q, want move", got.Cursor)
	}
	if e.GestureState() != StateDragging {
		t.Fatalf("state = %v, want dragging", e.GestureState())
	}

	e.PointerMove(1, press(206, 111))
	if undo, _ := e.HistoryDepth(1); undo != 0 {
		t.Fatalf("snapshot taken below the drag threshold")
	}

	e.PointerMove(1, press(225, 130))
	e.PointerMove(1, press(245, 150))
	e.PointerUp(1, press(245, 150))

	got := e.Annotations(1)[0].Anchor()
	if d := cmp.Diff(document.Point{X: 120, Y: 70}, got, approxFloats); d != "" {
		t.Errorf("anchor mismatch (-want +got):\n%s", d)
	}
	if undo, _ := e.HistoryDepth(1); undo != 1 {
		t.Errorf("undo depth = %d, want 1", undo)
	}
	if h.saves != 1 {
		t.Errorf("saves = %d, want 1", h.saves)
	}
}

func TestClickOnTextRequestsEdit(t *testing.T) {
	e, h := newLoadedEngine(t, 1)
	_ = e.store.Append("a.pdf", 1, document.NewText("ok", document.Point{X: 100, Y: 50}, 10, "#000000"))
	id := e.Annotations(1)[0].ID

	e.PointerDown(1, press(105, 55))
	e.PointerMove(1, press(106, 55))
	got := e.PointerUp(1, press(106, 55))

	want := Outcome{Kind: OutcomeEditText, AnnotationID: id, Anchor: document.Point{X: 100, Y: 50}, Text: "ok", Cursor: "grab"}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", d)
	}
	if h.saves != 0 {
		t.Errorf("saves = %d, want 0", h.saves)
	}
	if undo, _ := e.HistoryDepth(1); undo != 0 {
		t.Errorf("undo depth = %d, want 0", undo)
	}
}

func TestPanning(t *testing.T) {
	e, _ := newLoadedEngine(t, 1)

	e.PointerDown(1, press(10, 10))
	if e.GestureState() != StatePanning {
		t.Fatalf("cursor miss: state = %v, want panning", e.GestureState())
	}
	got := e.PointerMove(1, PointerEvent{Screen: document.Point{X: 40, Y: 0}})
	if d := cmp.Diff(Outcome{Kind: OutcomePan, Pan: document.Point{X: 30, Y: -10}, Cursor: "grabbing"}, got); d != "" {
		t.Errorf("pan outcome mismatch (-want +got):\n%s", d)
	}
	e.PointerUp(1, press(40, 0))

	e.SetTool(ToolPen)
	e.PointerDown(1, PointerEvent{Button: ButtonRight})
	if e.GestureState() != StatePanning {
		t.Errorf("right button: state = %v, want panning", e.GestureState())
	}
}

func TestPointerWithoutDocument(t *testing.T) {
	e := NewEngine(DefaultOptions())
	e.SetTool(ToolPen)
	if got := e.PointerDown(1, press(1, 1)); got.Kind != OutcomeNone {
		t.Errorf("outcome = %v, want none", got.Kind)
	}
	e.PointerUp(1, press(1, 1))
	if ids := e.store.DocumentIDs(); len(ids) != 0 {
		t.Errorf("store has documents %v", ids)
	}
}

func TestTextPlacementAndCommit(t *testing.T) {
	e, h := newLoadedEngine(t, 2)
	e.SetTool(ToolText)

	out := e.PointerDown(1, press(20, 40))
	if out.Kind != OutcomePlaceText {
		t.Fatalf("outcome = %v, want placeText", out.Kind)
	}
	if d := cmp.Diff(document.Point{X: 10, Y: 20}, out.Anchor); d != "" {
		t.Errorf("anchor mismatch (-want +got):\n%s", d)
	}
	e.PointerUp(1, press(20, 40))

	if _, ok := e.CommitText(1, out.Anchor, TextEdit{Text: "   \n "}); ok {
		t.Error("blank text committed")
	}
	if undo, _ := e.HistoryDepth(1); undo != 0 {
		t.Errorf("blank commit took a snapshot")
	}

	ann, ok := e.CommitText(1, out.Anchor, TextEdit{Text: "  good\r\nwork ", Size: 3, Color: "#0000ff"})
	if !ok {
		t.Fatal("CommitText failed")
	}
	want := document.NewText("good\nwork", document.Point{X: 10, Y: 20}, MinTextSize, "#0000ff")
	if d := cmp.Diff(want, ann, ignoreIDs); d != "" {
		t.Errorf("annotation mismatch (-want +got):\n%s", d)
	}
	if e.PenColor() != "#0000ff" {
		t.Errorf("pen color = %q, want the text color", e.PenColor())
	}
	if e.Tool() != ToolCursor {
		t.Errorf("tool = %v, want cursor after placing text", e.Tool())
	}
	if undo, _ := e.HistoryDepth(1); undo != 1 || h.saves != 1 {
		t.Errorf("undo depth %d, saves %d; want 1, 1", undo, h.saves)
	}
}

func TestUpdateAndDeleteText(t *testing.T) {
	e, _ := newLoadedEngine(t, 1)
	ann, _ := e.CommitText(1, document.Point{X: 5, Y: 5}, TextEdit{Text: "draft"})

	if e.UpdateText(1, ann.ID, TextEdit{Text: " "}) {
		t.Error("blank update succeeded")
	}
	if !e.UpdateText(1, ann.ID, TextEdit{Text: "final", Size: 20, Color: "#00ff00"}) {
		t.Fatal("UpdateText failed")
	}
	got := e.Annotations(1)[0]
	if got.Text != "final" || got.Size != 20 || got.Color != "#00ff00" || got.ID != ann.ID {
		t.Errorf("updated annotation = %+v", got)
	}

	if !e.DeleteAnnotation(1, ann.ID) {
		t.Fatal("DeleteAnnotation failed")
	}
	if e.DeleteAnnotation(1, ann.ID) {
		t.Error("deleting twice succeeded")
	}

	e.Undo(1)
	if got := e.Annotations(1); len(got) != 1 || got[0].Text != "final" {
		t.Errorf("after undo of delete: %+v", got)
	}
	e.Undo(1)
	if got := e.Annotations(1); len(got) != 1 || got[0].Text != "draft" {
		t.Errorf("after undo of update: %+v", got)
	}
}

func TestBankEntryPrefillsText(t *testing.T) {
	e, _ := newLoadedEngine(t, 1)
	e.AddToBank("See solution")
	if !e.UseBankEntry(0) {
		t.Fatal("UseBankEntry failed")
	}
	if e.Tool() != ToolText {
		t.Fatalf("tool = %v, want text", e.Tool())
	}
	if out := e.PointerDown(1, press(1, 1)); out.Text != "See solution" {
		t.Errorf("prefill = %q", out.Text)
	}
	if out := e.PointerDown(1, press(1, 1)); out.Text != "" {
		t.Errorf("prefill reused: %q", out.Text)
	}
}

func TestParseTool(t *testing.T) {
	for _, tool := range []Tool{ToolCursor, ToolPen, ToolText, ToolEraser} {
		got, ok := ParseTool(tool.String())
		if !ok || got != tool {
			t.Errorf("ParseTool(%q) = %v, %v", tool.String(), got, ok)
		}
	}
	if _, ok := ParseTool("lasso"); ok {
		t.Error("ParseTool accepted an unknown tool")
	}
}

func TestUndoDuringDragEndsGesture(t *testing.T) {
	e, _ := newLoadedEngine(t, 1)
	e.SetTool(ToolPen)
	e.PointerDown(1, press(100, 100))
	e.PointerUp(1, press(100, 100))

	e.SetTool(ToolCursor)
	e.PointerDown(1, press(100, 100))
	e.PointerMove(1, press(110, 100))
	if !e.Undo(1) {
		t.Fatal("Undo failed")
	}
	if e.GestureState() != StateIdle {
		t.Errorf("state after undo = %v, want idle", e.GestureState())
	}
	e.PointerMove(1, press(120, 100))
	e.PointerUp(1, press(120, 100))

	want := []document.Annotation{document.NewPath("#ff0000", 2, []document.Point{{X: 100, Y: 100}})}
	if d := cmp.Diff(want, e.Annotations(1), ignoreIDs); d != "" {
		t.Errorf("annotations changed after undo (-want +got):\n%s", d)
	}
	if undo, redo := e.HistoryDepth(1); undo != 1 || redo != 1 {
		t.Errorf("history depth = %d/%d, want 1/1", undo, redo)
	}

	if !e.Redo(1) {
		t.Fatal("Redo failed")
	}
	if got := e.Annotations(1)[0].Points[0]; got != (document.Point{X: 110, Y: 100}) {
		t.Errorf("redo restored %v, want the dragged point", got)
	}
}

func TestZoomStepDropsStroke(t *testing.T) {
	for _, zoom := range []func(*Engine) float64{(*Engine).ZoomIn, (*Engine).ZoomOut} {
		e, h := newLoadedEngine(t, 1)
		e.SetTool(ToolPen)
		e.PointerDown(1, press(100, 100))
		zoom(e)
		if e.GestureState() != StateIdle {
			t.Errorf("state after zoom step = %v, want idle", e.GestureState())
		}
		e.PointerUp(1, press(100, 100))
		if got := e.Annotations(1); len(got) != 0 {
			t.Errorf("stroke captured at the old zoom was stored: %+v", got)
		}
		if h.saves != 0 {
			t.Errorf("saves = %d, want 0", h.saves)
		}
	}
}

func TestTextSizeIsClamped(t *testing.T) {
	e, _ := newLoadedEngine(t, 1)
	e.SetTextSize(200)
	if got := e.TextSize(); got != MaxTextSize {
		t.Errorf("TextSize = %v, want %v", got, MaxTextSize)
	}

	tests := []struct {
		size, want float64
	}{
		{3, MinTextSize},
		{20, 20},
		{500, MaxTextSize},
	}
	for _, tt := range tests {
		ann, ok := e.CommitText(1, document.Point{X: 1, Y: 1}, TextEdit{Text: "x", Size: tt.size})
		if !ok {
			t.Fatalf("CommitText(size %v) failed", tt.size)
		}
		if ann.Size != tt.want {
			t.Errorf("size %v committed as %v, want %v", tt.size, ann.Size, tt.want)
		}
	}
}
