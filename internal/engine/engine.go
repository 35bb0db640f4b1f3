package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pdfgrader/grader/internal/document"
	"github.com/pdfgrader/grader/internal/export"
	"github.com/pdfgrader/grader/internal/typeid"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoActiveDocument = errors.New("no active document")
	ErrUnknownQuestion  = errors.New("unknown rubric question")
	ErrInvalidScore     = errors.New("score must be a finite number")
)

// SaveFunc is called when annotation state changed and should be persisted.
type SaveFunc func()

// RefreshFunc is called when a page's annotation layer must be redrawn.
type RefreshFunc func(page int)

// Options are the engine defaults, normally taken from config.
type Options struct {
	Zoom     float64
	PenColor string
	PenWidth float64
	TextSize float64
}

// DefaultOptions returns the defaults of a fresh grading session.
func DefaultOptions() Options {
	return Options{Zoom: 1.5, PenColor: "#ff0000", PenWidth: 2, TextSize: 16}
}

// PageSize is a page's dimensions in document units.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Engine owns the annotation state of a grading session. It processes
// commands from the frontend and returns query results. It is driven from a
// single event loop and is not safe for concurrent use.
type Engine struct {
	store   *Store
	history *History

	// Documents
	documents []document.DocumentMeta
	restored  []document.DocumentMeta
	docID     string
	page      int
	sizes     []PageSize

	// Pending document load; only the latest request may complete.
	loadSeq    uint64
	loadDocID  string
	loadActive bool

	// View and tool state
	zoom     float64
	tool     Tool
	penColor string
	penWidth float64
	textSize float64
	gesture  gesture

	// Grading state
	rubric      document.Rubric
	scores      map[string]map[int]float64
	bank        []string
	pendingBank string

	onSave    SaveFunc
	onRefresh RefreshFunc
}

// NewEngine creates a new engine instance.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if !ValidZoom(opts.Zoom) {
		opts.Zoom = def.Zoom
	}
	if opts.PenColor == "" {
		opts.PenColor = def.PenColor
	}
	if opts.PenWidth <= 0 {
		opts.PenWidth = def.PenWidth
	}
	if opts.TextSize <= 0 {
		opts.TextSize = def.TextSize
	}

	store := NewStore()
	return &Engine{
		store:    store,
		history:  NewHistory(store),
		page:     1,
		zoom:     ClampZoom(opts.Zoom),
		tool:     ToolCursor,
		penColor: opts.PenColor,
		penWidth: opts.PenWidth,
		textSize: max(opts.TextSize, MinTextSize),
		rubric:   document.DefaultRubric(),
		scores:   make(map[string]map[int]float64),
	}
}

// SetSaveHook installs the persistence callback.
func (e *Engine) SetSaveHook(fn SaveFunc) { e.onSave = fn }

// SetRefreshHook installs the page redraw callback.
func (e *Engine) SetRefreshHook(fn RefreshFunc) { e.onRefresh = fn }

func (e *Engine) save() {
	if e.onSave != nil {
		e.onSave()
	}
}

func (e *Engine) refresh(page int) {
	if e.onRefresh != nil {
		e.onRefresh(page)
	}
}

// --- Documents ---

// AddDocument registers a PDF. Documents are keyed by file name; adding a
// name twice keeps the first entry.
func (e *Engine) AddDocument(name string) document.DocumentMeta {
	for _, d := range e.documents {
		if d.ID == name {
			return d
		}
	}
	meta := document.DocumentMeta{ID: name, Name: name}
	e.documents = append(e.documents, meta)
	return meta
}

// Documents lists registered documents in insertion order.
func (e *Engine) Documents() []document.DocumentMeta {
	return append([]document.DocumentMeta(nil), e.documents...)
}

func (e *Engine) hasDocument(docID string) bool {
	for _, d := range e.documents {
		if d.ID == docID {
			return true
		}
	}
	return false
}

// BeginLoad starts loading a document and returns the request id the
// caller must hand back to CompleteLoad or FailLoad. Starting a new load
// supersedes any load in flight.
func (e *Engine) BeginLoad(docID string) (uint64, error) {
	if !e.hasDocument(docID) {
		return 0, fmt.Errorf("load %q: %w", docID, ErrDocumentNotFound)
	}
	e.loadSeq++
	e.loadDocID = docID
	e.loadActive = true
	return e.loadSeq, nil
}

// CompleteLoad activates the document of request seq with the given page
// sizes. Results of superseded requests are discarded and reported false.
func (e *Engine) CompleteLoad(seq uint64, sizes []PageSize) bool {
	if !e.loadActive || seq != e.loadSeq {
		slog.Debug("discarding stale document load", "seq", seq, "current", e.loadSeq)
		return false
	}
	e.loadActive = false
	e.docID = e.loadDocID
	e.sizes = append([]PageSize(nil), sizes...)
	e.page = 1
	e.gesture = gesture{}
	slog.Info("document loaded", "document", e.docID, "pages", len(sizes))
	return true
}

// FailLoad ends request seq without changing the active document.
func (e *Engine) FailLoad(seq uint64, err error) bool {
	if !e.loadActive || seq != e.loadSeq {
		return false
	}
	e.loadActive = false
	slog.Warn("document load failed", "document", e.loadDocID, "error", err)
	return true
}

// ActiveDocument returns the id of the document being graded, or "".
func (e *Engine) ActiveDocument() string { return e.docID }

// PageCount returns the number of pages of the active document.
func (e *Engine) PageCount() int { return len(e.sizes) }

// PageSizes returns the page dimensions of the active document.
func (e *Engine) PageSizes() []PageSize { return append([]PageSize(nil), e.sizes...) }

// SetPageSize records a page's dimensions as reported by the page renderer.
func (e *Engine) SetPageSize(page int, size PageSize) bool {
	if page < 1 || page > len(e.sizes) || size.Width <= 0 || size.Height <= 0 {
		return false
	}
	e.sizes[page-1] = size
	return true
}

// Page returns the current 1-based page.
func (e *Engine) Page() int { return e.page }

// SetPage moves to another page of the active document.
func (e *Engine) SetPage(page int) bool {
	if page < 1 || page > len(e.sizes) {
		return false
	}
	e.page = page
	return true
}

// --- View and tools ---

func (e *Engine) Zoom() float64 { return e.zoom }

// SetZoom changes the view scale. Values below MinZoom are clamped.
func (e *Engine) SetZoom(z float64) error {
	if !ValidZoom(z) {
		return fmt.Errorf("set zoom %v: %w", z, ErrInvalidZoom)
	}
	e.setZoom(z)
	return nil
}

// setZoom installs a new scale. Points of a gesture in progress were
// captured at the old scale, so the gesture is dropped.
func (e *Engine) setZoom(z float64) {
	e.zoom = ClampZoom(z)
	e.gesture = gesture{}
}

func (e *Engine) ZoomIn() float64 {
	e.setZoom(e.zoom + ZoomStep)
	return e.zoom
}

func (e *Engine) ZoomOut() float64 {
	e.setZoom(e.zoom - ZoomStep)
	return e.zoom
}

func (e *Engine) Tool() Tool { return e.tool }

// SetTool switches the active tool and abandons any gesture in progress.
func (e *Engine) SetTool(t Tool) {
	e.tool = t
	e.gesture = gesture{}
}

func (e *Engine) PenColor() string { return e.penColor }

func (e *Engine) SetPenColor(c string) {
	if c != "" {
		e.penColor = c
	}
}

func (e *Engine) SetPenWidth(w float64) {
	if w > 0 {
		e.penWidth = w
	}
}

func (e *Engine) TextSize() float64 { return e.textSize }

func (e *Engine) SetTextSize(size float64) {
	if size > 0 {
		e.textSize = clampTextSize(size)
	}
}

// --- Annotations ---

// Annotations returns a copy of a page's annotations.
func (e *Engine) Annotations(page int) []document.Annotation {
	return document.CloneAll(e.store.Page(e.docID, page))
}

// Undo restores the page's previous state and ends any gesture in progress.
func (e *Engine) Undo(page int) bool {
	if _, ok := e.history.Undo(e.docID, page); !ok {
		return false
	}
	e.gesture = gesture{}
	e.refresh(page)
	e.save()
	return true
}

// Redo re-applies the page state undone last and ends any gesture in
// progress.
func (e *Engine) Redo(page int) bool {
	if _, ok := e.history.Redo(e.docID, page); !ok {
		return false
	}
	e.gesture = gesture{}
	e.refresh(page)
	e.save()
	return true
}

// HistoryDepth returns the undo and redo steps available for a page.
func (e *Engine) HistoryDepth(page int) (undo, redo int) {
	return e.history.Depth(e.docID, page)
}

// HitTest returns the topmost annotation under a view-space point.
func (e *Engine) HitTest(page int, x, y float64) (HitTestResult, bool) {
	anns := e.store.Page(e.docID, page)
	i := HitTest(anns, x, y, e.zoom)
	if i < 0 {
		return HitTestResult{Index: -1}, false
	}
	return HitTestResult{
		Index:        i,
		AnnotationID: anns[i].ID,
		Type:         string(anns[i].Type),
		Bounds:       Bounds(anns[i], e.zoom),
		X:            x,
		Y:            y,
	}, true
}

// Render returns the view draw commands of a page, including the pen
// stroke in progress on it.
func (e *Engine) Render(page int) []DrawCommand {
	var pending *document.Annotation
	if e.gesture.state == StateDrawing && e.gesture.page == page {
		p := document.NewPath(e.penColor, e.penWidth, e.gesture.points)
		pending = &p
	}
	return CompileDrawCommands(e.store.Page(e.docID, page), e.zoom, pending)
}

// RenderJSON returns Render's commands as JSON.
func (e *Engine) RenderJSON(page int) string {
	result, _ := DrawCommandsToJSON(e.Render(page))
	return result
}

// --- Grading ---

func (e *Engine) Rubric() document.Rubric { return e.rubric }

func (e *Engine) SetRubric(r document.Rubric) {
	e.rubric = r
	e.save()
}

// SetScore records the active document's score for a question. Scores above
// the question's maximum are kept; the UI flags them.
func (e *Engine) SetScore(questionID int, score float64) error {
	if e.docID == "" {
		return ErrNoActiveDocument
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return ErrInvalidScore
	}
	if !e.rubric.Has(questionID) {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}
	s, ok := e.scores[e.docID]
	if !ok {
		s = make(map[int]float64)
		e.scores[e.docID] = s
	}
	s[questionID] = score
	e.save()
	return nil
}

// ClearScore removes the active document's score for a question.
func (e *Engine) ClearScore(questionID int) {
	if s, ok := e.scores[e.docID]; ok {
		delete(s, questionID)
		e.save()
	}
}

// Scores returns a copy of a document's scores.
func (e *Engine) Scores(docID string) map[int]float64 {
	out := make(map[int]float64, len(e.scores[docID]))
	for q, v := range e.scores[docID] {
		out[q] = v
	}
	return out
}

// Total sums a document's scores.
func (e *Engine) Total(docID string) float64 {
	var total float64
	for _, v := range e.scores[docID] {
		total += v
	}
	return total
}

// AddToBank stores a reusable comment. Blank and duplicate texts are ignored.
func (e *Engine) AddToBank(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, b := range e.bank {
		if b == text {
			return false
		}
	}
	e.bank = append(e.bank, text)
	e.save()
	return true
}

// RemoveFromBank deletes the bank entry at index.
func (e *Engine) RemoveFromBank(index int) bool {
	if index < 0 || index >= len(e.bank) {
		return false
	}
	e.bank = append(e.bank[:index:index], e.bank[index+1:]...)
	e.save()
	return true
}

// Bank returns the comment bank.
func (e *Engine) Bank() []string { return append([]string(nil), e.bank...) }

// UseBankEntry selects a bank comment to prefill the next placed text and
// switches to the text tool.
func (e *Engine) UseBankEntry(index int) bool {
	if index < 0 || index >= len(e.bank) {
		return false
	}
	e.pendingBank = e.bank[index]
	e.SetTool(ToolText)
	return true
}

// --- Sessions ---

// MergeOptions carries the user's answers to the merge prompts.
type MergeOptions struct {
	// ReplaceRubric adopts the incoming rubric when it differs.
	ReplaceRubric bool
	// MergeBank unions the incoming comment bank into the current one.
	MergeBank bool
}

// Snapshot captures the whole grading session for persistence. Until the
// PDFs of a restored session are loaded again, its document list is kept.
func (e *Engine) Snapshot() document.Session {
	rubric := e.rubric
	scores := make(map[string]map[int]float64, len(e.scores))
	for id := range e.scores {
		scores[id] = e.Scores(id)
	}
	docs := e.Documents()
	if len(docs) == 0 {
		docs = e.PendingRestore()
	}
	return document.Session{
		Version:        document.SessionVersion,
		Rubric:         &rubric,
		Documents:      docs,
		Annotations:    e.store.Snapshot(),
		Scores:         scores,
		AnnotationBank: e.Bank(),
		AutosavedAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

// PendingRestore lists session documents whose PDFs are not loaded.
func (e *Engine) PendingRestore() []document.DocumentMeta {
	return document.MissingDocuments(e.restored, e.documents)
}

// ApplySession replaces the annotation and grading state with a saved
// session and returns the session's documents that are not loaded. History
// is reset.
func (e *Engine) ApplySession(s document.Session) []document.DocumentMeta {
	s = document.Normalize(s)
	if s.Rubric != nil {
		e.rubric = *s.Rubric
	}
	e.store.Load(s.Annotations)
	e.scores = make(map[string]map[int]float64, len(s.Scores))
	for id, qs := range s.Scores {
		m := make(map[int]float64, len(qs))
		for q, v := range qs {
			m[q] = v
		}
		e.scores[id] = m
	}
	e.bank = document.MergeBank(nil, s.AnnotationBank)
	e.restored = s.Documents
	e.history.Reset()
	e.gesture = gesture{}
	e.refresh(e.page)
	e.save()

	missing := e.PendingRestore()
	slog.Info("session applied", "documents", len(s.Documents), "missing", len(missing))
	return missing
}

// MergeSession folds a saved session into the current one. Annotations
// equal to an existing one are skipped and existing scores win. It returns
// the session's documents that are not loaded. History is reset.
func (e *Engine) MergeSession(s document.Session, opts MergeOptions) []document.DocumentMeta {
	s = document.Normalize(s)
	if s.Rubric != nil && opts.ReplaceRubric {
		e.rubric = *s.Rubric
	}
	if opts.MergeBank {
		e.bank = document.MergeBank(e.bank, s.AnnotationBank)
	}

	all := e.store.Snapshot()
	for docID, pages := range s.Annotations {
		existing, ok := all[docID]
		if !ok {
			existing = make(document.PageAnnotations)
			all[docID] = existing
		}
		for page, anns := range pages {
			existing[page] = document.MergeAnnotations(existing[page], anns)
		}
	}
	e.store.Load(all)

	for docID, qs := range s.Scores {
		cur, ok := e.scores[docID]
		if !ok {
			cur = make(map[int]float64, len(qs))
			e.scores[docID] = cur
		}
		for q, v := range qs {
			if _, set := cur[q]; !set {
				cur[q] = v
			}
		}
	}
	for _, d := range document.MissingDocuments(s.Documents, e.restored) {
		e.restored = append(e.restored, d)
	}
	e.history.Reset()
	e.gesture = gesture{}
	e.refresh(e.page)
	e.save()

	missing := document.MissingDocuments(s.Documents, e.documents)
	slog.Info("session merged", "documents", len(s.Documents), "missing", len(missing))
	return missing
}

// RubricDiffers reports whether a session carries a rubric different from
// the current one, i.e. whether a merge should ask about replacing it.
func (e *Engine) RubricDiffers(s document.Session) bool {
	return s.Rubric != nil && !e.rubric.Equal(*s.Rubric)
}

// --- Export ---

// ExportRequest configures Export. A nil Summary omits the grade block.
type ExportRequest struct {
	Fonts   export.FontProvider
	Writer  export.Writer
	Summary *document.Point
}

// Export renders the active document's annotations into req.Writer. With a
// summary point, the rubric scores are drawn on the first page there.
func (e *Engine) Export(ctx context.Context, req ExportRequest) ([]byte, error) {
	if e.docID == "" {
		return nil, ErrNoActiveDocument
	}
	pages, ok := e.store.Document(e.docID)
	if !ok {
		pages = document.PageAnnotations{}
	}
	heights := make(export.PageHeights, len(e.sizes))
	for i, s := range e.sizes {
		heights[i] = s.Height
	}

	job := export.Job{DocumentID: e.docID, Pages: pages, Sizes: heights}
	if req.Summary != nil {
		job.Summary = &export.Summary{
			At:    *req.Summary,
			Lines: e.rubric.SummaryLines(e.scores[e.docID]),
			Size:  e.textSize,
			Color: e.penColor,
		}
	}

	id := typeid.NewExportID()
	slog.Info("export started", "export", id, "document", e.docID)
	data, err := export.NewRenderer(req.Fonts).Render(ctx, req.Writer, job)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", id, err)
	}
	return data, nil
}
