package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfgrader/grader/internal/document"
)

var ErrInvalidColor = errors.New("invalid color")

// RGB is a color with channels in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// ParseColor converts "#rrggbb" to an RGB triplet.
func ParseColor(hex string) (RGB, error) {
	s, ok := strings.CutPrefix(hex, "#")
	if !ok || len(s) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return RGB{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// FontKind selects one of the two export fonts.
type FontKind string

const (
	FontLatin  FontKind = "latin"
	FontHebrew FontKind = "hebrew"
)

// LineOp is a straight segment in PDF page coordinates (origin bottom-left).
type LineOp struct {
	Start     document.Point `json:"start"`
	End       document.Point `json:"end"`
	Thickness float64        `json:"thickness"`
	Color     RGB            `json:"color"`
}

// TextOp draws one run of text with its baseline starting at (X, Y) in PDF
// page coordinates. Text is already in visual order, Hebrew runs included;
// the writer must draw it left to right without reordering. Writers whose
// text layout reorders right-to-left scripts (fontkit script direction in
// pdf-lib, for one) must have that layout disabled or place the glyphs
// themselves, or Hebrew comes out reversed twice.
type TextOp struct {
	Text  string   `json:"text"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Size  float64  `json:"size"`
	Font  FontKind `json:"font"`
	Color RGB      `json:"color"`
}

// Writer receives draw primitives page by page and produces the output
// document. The Renderer is its only producer.
type Writer interface {
	BeginPage(page int, height float64) error
	DrawLine(op LineOp) error
	DrawText(op TextOp) error
	Bytes() ([]byte, error)
}

// RecordedOp is one primitive as recorded by a Recorder.
type RecordedOp struct {
	Op   string  `json:"op"` // "line" or "text"
	Line *LineOp `json:"line,omitempty"`
	Text *TextOp `json:"text,omitempty"`
}

// RecordedPage holds the primitives of one page.
type RecordedPage struct {
	Page   int          `json:"page"`
	Height float64      `json:"height"`
	Ops    []RecordedOp `json:"ops"`
}

// Recorder is an in-memory Writer. Its bytes are the JSON list of recorded
// pages, which the browser replays into its PDF library. Replay must keep
// the visual order of TextOp runs; see TextOp.
type Recorder struct {
	Pages []RecordedPage
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) BeginPage(page int, height float64) error {
	r.Pages = append(r.Pages, RecordedPage{Page: page, Height: height, Ops: []RecordedOp{}})
	return nil
}

func (r *Recorder) current() (*RecordedPage, error) {
	if len(r.Pages) == 0 {
		return nil, errors.New("draw before BeginPage")
	}
	return &r.Pages[len(r.Pages)-1], nil
}

func (r *Recorder) DrawLine(op LineOp) error {
	p, err := r.current()
	if err != nil {
		return err
	}
	p.Ops = append(p.Ops, RecordedOp{Op: "line", Line: &op})
	return nil
}

func (r *Recorder) DrawText(op TextOp) error {
	p, err := r.current()
	if err != nil {
		return err
	}
	p.Ops = append(p.Ops, RecordedOp{Op: "text", Text: &op})
	return nil
}

func (r *Recorder) Bytes() ([]byte, error) {
	data, err := json.Marshal(r.Pages)
	if err != nil {
		return nil, fmt.Errorf("marshal recorded pages: %w", err)
	}
	return data, nil
}

// Lines returns every recorded line op, in order.
func (r *Recorder) Lines() []LineOp {
	var out []LineOp
	for _, p := range r.Pages {
		for _, op := range p.Ops {
			if op.Line != nil {
				out = append(out, *op.Line)
			}
		}
	}
	return out
}

// Texts returns every recorded text op, in order.
func (r *Recorder) Texts() []TextOp {
	var out []TextOp
	for _, p := range r.Pages {
		for _, op := range p.Ops {
			if op.Text != nil {
				out = append(out, *op.Text)
			}
		}
	}
	return out
}
