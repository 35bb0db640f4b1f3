package engine

import (
	"fmt"
	"strings"

	"github.com/pdfgrader/grader/internal/document"
)

// Font size bounds for text annotations.
const (
	MinTextSize = 6.0
	MaxTextSize = 72.0
)

func clampTextSize(size float64) float64 {
	return min(max(size, MinTextSize), MaxTextSize)
}

// dragThreshold is how far, in view pixels, the pointer must travel before
// a press on an annotation becomes a drag.
const dragThreshold = 2.0

type Tool int

const (
	ToolCursor Tool = iota
	ToolPen
	ToolText
	ToolEraser
)

var toolNames = [...]string{"cursor", "pen", "text", "eraser"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool maps a tool name from the toolbar to a Tool.
func ParseTool(name string) (Tool, bool) {
	for i, n := range toolNames {
		if n == name {
			return Tool(i), true
		}
	}
	return ToolCursor, false
}

// Button is a pointer button as numbered by DOM mouse events.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

type GestureState int

const (
	StateIdle GestureState = iota
	StateDrawing
	StateDragging
	StateErasing
	StatePanning
)

func (s GestureState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	case StateErasing:
		return "erasing"
	case StatePanning:
		return "panning"
	}
	return fmt.Sprintf("GestureState(%d)", int(s))
}

// PointerEvent is a pointer event on a page's annotation layer. View is in
// the layer's pixel space; Screen is in client coordinates and only used
// for panning.
type PointerEvent struct {
	Button Button
	View   document.Point
	Screen document.Point
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	// OutcomeRedraw asks the caller to redraw the page.
	OutcomeRedraw
	// OutcomePlaceText asks the caller to open a text editor for a new
	// annotation at Anchor.
	OutcomePlaceText
	// OutcomeEditText asks the caller to open a text editor on the
	// annotation AnnotationID.
	OutcomeEditText
	// OutcomePan carries a scroll delta in Pan.
	OutcomePan
)

var outcomeNames = [...]string{"none", "redraw", "placeText", "editText", "pan"}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
	return outcomeNames[k]
}

// MarshalText encodes the kind by name for the frontend.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome tells the caller what a pointer event requires of the UI.
type Outcome struct {
	Kind         OutcomeKind    `json:"kind"`
	Anchor       document.Point `json:"anchor"` // document space
	AnnotationID string         `json:"annotationId,omitempty"`
	Text         string         `json:"text,omitempty"` // editor prefill
	Pan          document.Point `json:"pan"`            // screen delta since the pan started
	Cursor       string         `json:"cursor,omitempty"`
}

type gesture struct {
	state       GestureState
	page        int
	snapshotted bool

	// Drawing: the stroke in view space.
	points []document.Point

	// Dragging
	dragIndex  int
	dragOrigin document.Point
	dragLast   document.Point
	dragMoved  bool

	// Panning
	panStart document.Point
}

// snapshot records the undo point for the gesture, once.
func (e *Engine) snapshot(page int) {
	if e.gesture.snapshotted {
		return
	}
	e.history.SnapshotBeforeEdit(e.docID, page)
	e.gesture.snapshotted = true
}

// GestureState returns the state of the gesture in progress.
func (e *Engine) GestureState() GestureState { return e.gesture.state }

// PointerDown starts a gesture on page, abandoning one whose release was
// never seen. Without an active document it does nothing.
func (e *Engine) PointerDown(page int, ev PointerEvent) Outcome {
	if e.docID == "" {
		return Outcome{}
	}
	e.gesture = gesture{page: page}

	if ev.Button == ButtonRight {
		return e.startPan(ev)
	}

	switch e.tool {
	case ToolCursor:
		if ev.Button == ButtonLeft {
			if i := HitTest(e.store.Page(e.docID, page), ev.View.X, ev.View.Y, e.zoom); i >= 0 {
				e.gesture.state = StateDragging
				e.gesture.dragIndex = i
				e.gesture.dragOrigin = ev.View
				e.gesture.dragLast = ev.View
				return Outcome{Cursor: "move"}
			}
		}
		return e.startPan(ev)

	case ToolPen:
		e.gesture.state = StateDrawing
		e.gesture.points = []document.Point{ev.View}
		return Outcome{Kind: OutcomeRedraw}

	case ToolText:
		anchor, ok := ToDocumentSpace(ev.View, e.zoom)
		if !ok {
			return Outcome{}
		}
		prefill := e.pendingBank
		e.pendingBank = ""
		return Outcome{Kind: OutcomePlaceText, Anchor: anchor, Text: prefill}

	case ToolEraser:
		e.gesture.state = StateErasing
		return e.erase(page, ev.View)
	}
	return Outcome{}
}

func (e *Engine) startPan(ev PointerEvent) Outcome {
	e.gesture.state = StatePanning
	e.gesture.panStart = ev.Screen
	return Outcome{Cursor: "grabbing"}
}

// PointerMove continues the gesture in progress. When idle with the cursor
// tool it reports the hover cursor.
func (e *Engine) PointerMove(page int, ev PointerEvent) Outcome {
	g := &e.gesture
	if g.state != StateIdle && g.page != page {
		return Outcome{}
	}

	switch g.state {
	case StateIdle:
		if e.tool == ToolCursor && e.docID != "" {
			if HitTest(e.store.Page(e.docID, page), ev.View.X, ev.View.Y, e.zoom) >= 0 {
				return Outcome{Cursor: "move"}
			}
			return Outcome{Cursor: "grab"}
		}

	case StateDrawing:
		g.points = append(g.points, ev.View)
		return Outcome{Kind: OutcomeRedraw}

	case StateErasing:
		return e.erase(page, ev.View)

	case StatePanning:
		return Outcome{Kind: OutcomePan, Pan: ev.Screen.Sub(g.panStart), Cursor: "grabbing"}

	case StateDragging:
		if !g.dragMoved {
			if ev.View.Dist(g.dragOrigin) <= dragThreshold {
				return Outcome{}
			}
			g.dragMoved = true
			e.snapshot(page)
		}
		delta, ok := ToDocumentSpace(ev.View.Sub(g.dragLast), e.zoom)
		if !ok {
			return Outcome{}
		}
		e.store.MutateInPlace(e.store.At(e.docID, page, g.dragIndex), delta)
		g.dragLast = ev.View
		return Outcome{Kind: OutcomeRedraw, Cursor: "move"}
	}
	return Outcome{}
}

// PointerUp ends the gesture in progress.
func (e *Engine) PointerUp(page int, ev PointerEvent) Outcome {
	g := e.gesture
	e.gesture = gesture{}
	if g.state != StateIdle && g.page != page {
		return Outcome{}
	}

	switch g.state {
	case StateDrawing:
		if err := e.appendStroke(page, g.points); err != nil {
			return Outcome{}
		}
		e.refresh(page)
		e.save()
		return Outcome{Kind: OutcomeRedraw}

	case StateDragging:
		ann := e.store.At(e.docID, page, g.dragIndex)
		if ann == nil {
			return Outcome{}
		}
		if !g.dragMoved {
			if ann.IsText() {
				return Outcome{Kind: OutcomeEditText, AnnotationID: ann.ID, Anchor: ann.Anchor(), Text: ann.Text, Cursor: "grab"}
			}
			return Outcome{Cursor: "grab"}
		}
		e.refresh(page)
		e.save()
		return Outcome{Kind: OutcomeRedraw, Cursor: "grab"}

	case StatePanning:
		return Outcome{Cursor: "grab"}
	}
	return Outcome{}
}

// CancelGesture abandons the gesture in progress. Edits already applied
// by a drag or an erase stay, and remain undoable.
func (e *Engine) CancelGesture() {
	e.gesture = gesture{}
}

func (e *Engine) appendStroke(page int, view []document.Point) error {
	width, ok := ScalarToDocument(e.penWidth, e.zoom)
	if !ok {
		return ErrInvalidZoom
	}
	points := make([]document.Point, 0, len(view))
	for _, p := range view {
		dp, _ := ToDocumentSpace(p, e.zoom)
		points = append(points, dp)
	}
	ann := document.NewPath(e.penColor, width, points)
	if err := ann.Validate(); err != nil {
		return err
	}
	e.snapshot(page)
	return e.store.Append(e.docID, page, ann)
}

// erase removes everything under the view point. The undo point is taken
// before the first removal of the gesture; refresh and save run once per
// call that removed something.
func (e *Engine) erase(page int, at document.Point) Outcome {
	anns := e.store.Page(e.docID, page)
	kept, removed := EraseAt(anns, at.X, at.Y, e.zoom)
	if removed == 0 {
		return Outcome{}
	}
	e.snapshot(page)
	e.store.Replace(e.docID, page, kept)
	e.refresh(page)
	e.save()
	return Outcome{Kind: OutcomeRedraw}
}

// TextEdit is the content of a closed text editor.
type TextEdit struct {
	Text  string
	Size  float64
	Color string
}

func (e *Engine) normalizeEdit(edit TextEdit) (TextEdit, bool) {
	edit.Text = strings.TrimSpace(strings.ReplaceAll(edit.Text, "\r\n", "\n"))
	if edit.Text == "" {
		return edit, false
	}
	if edit.Size <= 0 {
		edit.Size = e.textSize
	}
	edit.Size = clampTextSize(edit.Size)
	if edit.Color == "" {
		edit.Color = e.penColor
	}
	return edit, true
}

// CommitText adds a text annotation at a document-space anchor. Blank text
// is discarded without touching history. The text color becomes the new
// pen color.
func (e *Engine) CommitText(page int, anchor document.Point, edit TextEdit) (document.Annotation, bool) {
	if e.docID == "" {
		return document.Annotation{}, false
	}
	edit, ok := e.normalizeEdit(edit)
	if !ok {
		return document.Annotation{}, false
	}

	ann := document.NewText(edit.Text, anchor, edit.Size, edit.Color)
	e.history.SnapshotBeforeEdit(e.docID, page)
	if err := e.store.Append(e.docID, page, ann); err != nil {
		return document.Annotation{}, false
	}
	e.penColor = edit.Color
	e.tool = ToolCursor
	e.refresh(page)
	e.save()

	anns := e.store.Page(e.docID, page)
	return anns[len(anns)-1].Clone(), true
}

// UpdateText replaces the content of an existing text annotation. Blank
// text leaves it unchanged.
func (e *Engine) UpdateText(page int, id string, edit TextEdit) bool {
	i := e.store.IndexOf(e.docID, page, id)
	if i < 0 {
		return false
	}
	ann := e.store.At(e.docID, page, i)
	if !ann.IsText() {
		return false
	}
	edit, ok := e.normalizeEdit(edit)
	if !ok {
		return false
	}

	e.history.SnapshotBeforeEdit(e.docID, page)
	ann = e.store.At(e.docID, page, i)
	ann.Text, ann.Size, ann.Color = edit.Text, edit.Size, edit.Color
	e.penColor = edit.Color
	e.refresh(page)
	e.save()
	return true
}

// DeleteAnnotation removes an annotation by id.
func (e *Engine) DeleteAnnotation(page int, id string) bool {
	i := e.store.IndexOf(e.docID, page, id)
	if i < 0 {
		return false
	}
	e.history.SnapshotBeforeEdit(e.docID, page)
	e.store.RemoveAt(e.docID, page, i)
	e.refresh(page)
	e.save()
	return true
}
