package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pdfgrader/grader/internal/bidi"
	"github.com/pdfgrader/grader/internal/document"
)

var ErrDocumentNotFound = errors.New("document not found")

// LineHeight is the text line advance as a multiple of the font size.
const LineHeight = 1.2

// PageSizer reports page heights of the source PDF in document units.
// Pages are 1-based.
type PageSizer interface {
	PageCount() int
	PageHeight(page int) (float64, error)
}

// PageHeights is a PageSizer over a fixed list of heights.
type PageHeights []float64

func (p PageHeights) PageCount() int { return len(p) }

func (p PageHeights) PageHeight(page int) (float64, error) {
	if page < 1 || page > len(p) {
		return 0, fmt.Errorf("page %d out of range [1, %d]", page, len(p))
	}
	return p[page-1], nil
}

// Summary is a block of text lines drawn on the first page, anchored at a
// document-space point.
type Summary struct {
	At    document.Point
	Lines []string
	Size  float64
	Color string
}

// Job describes one export.
type Job struct {
	DocumentID string
	Pages      document.PageAnnotations
	Sizes      PageSizer
	Summary    *Summary
}

// Renderer turns stored annotations into writer primitives.
type Renderer struct {
	fonts FontProvider
}

func NewRenderer(fonts FontProvider) *Renderer {
	return &Renderer{fonts: fonts}
}

type faces struct {
	hebrew Font
	latin  Font
}

func (f faces) pick(rtl bool) (Font, FontKind) {
	if rtl {
		return f.hebrew, FontHebrew
	}
	return f.latin, FontLatin
}

// Render draws every page of the job into w and returns the writer's bytes.
// Fonts are loaded before any primitive is written. Cancellation of ctx is
// checked between pages.
func (r *Renderer) Render(ctx context.Context, w Writer, job Job) ([]byte, error) {
	if job.Pages == nil {
		return nil, fmt.Errorf("export %q: %w", job.DocumentID, ErrDocumentNotFound)
	}
	if r.fonts == nil {
		return nil, ErrFontsUnavailable
	}
	hebrew, latin, err := r.fonts.LoadFonts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	if hebrew == nil || latin == nil {
		return nil, ErrFontsUnavailable
	}
	ff := faces{hebrew: hebrew, latin: latin}

	count := job.Sizes.PageCount()
	drawn := 0
	for page := 1; page <= count; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		height, err := job.Sizes.PageHeight(page)
		if err != nil {
			return nil, fmt.Errorf("page %d size: %w", page, err)
		}
		if err := w.BeginPage(page, height); err != nil {
			return nil, fmt.Errorf("begin page %d: %w", page, err)
		}

		for _, a := range job.Pages[page] {
			if err := drawAnnotation(w, ff, a, height); err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			drawn++
		}

		if page == 1 && job.Summary != nil {
			if err := drawSummary(w, ff, *job.Summary, height); err != nil {
				return nil, fmt.Errorf("summary: %w", err)
			}
		}
	}

	if orphans := pagesBeyond(job.Pages, count); len(orphans) > 0 {
		slog.Warn("annotations on pages missing from document", "document", job.DocumentID, "pages", orphans)
	}

	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	slog.Info("export complete", "document", job.DocumentID, "pages", count, "annotations", drawn)
	return data, nil
}

func drawAnnotation(w Writer, ff faces, a document.Annotation, height float64) error {
	color, err := ParseColor(a.Color)
	if err != nil {
		return err
	}
	switch a.Type {
	case document.AnnotationTypePath:
		return drawPath(w, a, color, height)
	case document.AnnotationTypeText:
		return drawText(w, ff, a.Text, a.X, a.Y, a.Size, color, height)
	}
	return nil
}

func drawPath(w Writer, a document.Annotation, color RGB, height float64) error {
	for i := 1; i < len(a.Points); i++ {
		p0, p1 := a.Points[i-1], a.Points[i]
		op := LineOp{
			Start:     document.Point{X: p0.X, Y: height - p0.Y},
			End:       document.Point{X: p1.X, Y: height - p1.Y},
			Thickness: a.Width,
			Color:     color,
		}
		if err := w.DrawLine(op); err != nil {
			return fmt.Errorf("draw line: %w", err)
		}
	}
	return nil
}

// drawText lays out text whose first line's top-left is (x, y) in document
// space. Lines with Hebrew end at x; other lines start at x.
func drawText(w Writer, ff faces, text string, x, y, size float64, color RGB, height float64) error {
	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		runs := bidi.ShapeForDisplay(line)
		baseline := height - y - size - float64(i)*size*LineHeight

		widths := make([]float64, len(runs))
		total := 0.0
		for j, run := range runs {
			f, _ := ff.pick(run.RightToLeft)
			widths[j] = f.WidthOfTextAtSize(run.Text, size)
			total += widths[j]
		}

		cursor := x
		if bidi.HasHebrew(line) {
			cursor = x - total
		}
		for j, run := range runs {
			_, kind := ff.pick(run.RightToLeft)
			op := TextOp{Text: run.Text, X: cursor, Y: baseline, Size: size, Font: kind, Color: color}
			if err := w.DrawText(op); err != nil {
				return fmt.Errorf("draw text: %w", err)
			}
			cursor += widths[j]
		}
	}
	return nil
}

func drawSummary(w Writer, ff faces, s Summary, height float64) error {
	if len(s.Lines) == 0 {
		return nil
	}
	colorHex := s.Color
	if colorHex == "" {
		colorHex = "#000000"
	}
	color, err := ParseColor(colorHex)
	if err != nil {
		return err
	}
	size := s.Size
	if size <= 0 {
		size = 14
	}
	return drawText(w, ff, strings.Join(s.Lines, "\n"), s.At.X, s.At.Y, size, color, height)
}

func pagesBeyond(pages document.PageAnnotations, count int) []int {
	var out []int
	for n, anns := range pages {
		if (n < 1 || n > count) && len(anns) > 0 {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
