package engine

import "github.com/pdfgrader/grader/internal/document"

type pageKey struct {
	docID string
	page  int
}

type historyEntry struct {
	undo [][]document.Annotation
	redo [][]document.Annotation
}

// History keeps per-page undo and redo stacks of deep snapshots of the
// store. Depth is unbounded.
type History struct {
	store   *Store
	entries map[pageKey]*historyEntry
}

// NewHistory creates a history over store.
func NewHistory(store *Store) *History {
	return &History{
		store:   store,
		entries: make(map[pageKey]*historyEntry),
	}
}

func (h *History) entry(docID string, page int) *historyEntry {
	key := pageKey{docID, page}
	e, ok := h.entries[key]
	if !ok {
		e = &historyEntry{}
		h.entries[key] = e
	}
	return e
}

// SnapshotBeforeEdit records the current page state as an undo point and
// drops the redo stack. Call it exactly once per gesture, before its first
// mutation.
func (h *History) SnapshotBeforeEdit(docID string, page int) {
	if docID == "" {
		return
	}
	e := h.entry(docID, page)
	e.undo = append(e.undo, document.CloneAll(h.store.Page(docID, page)))
	e.redo = nil
}

// Undo restores the previous page state. It reports false when there is
// nothing to undo.
func (h *History) Undo(docID string, page int) ([]document.Annotation, bool) {
	e, ok := h.entries[pageKey{docID, page}]
	if !ok || len(e.undo) == 0 {
		return nil, false
	}
	e.redo = append(e.redo, document.CloneAll(h.store.Page(docID, page)))

	prev := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	h.store.Replace(docID, page, prev)
	return prev, true
}

// Redo re-applies the state undone last. It reports false when there is
// nothing to redo.
func (h *History) Redo(docID string, page int) ([]document.Annotation, bool) {
	e, ok := h.entries[pageKey{docID, page}]
	if !ok || len(e.redo) == 0 {
		return nil, false
	}
	e.undo = append(e.undo, document.CloneAll(h.store.Page(docID, page)))

	next := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	h.store.Replace(docID, page, next)
	return next, true
}

// Depth returns the number of undo and redo steps available for a page.
func (h *History) Depth(docID string, page int) (undo, redo int) {
	e, ok := h.entries[pageKey{docID, page}]
	if !ok {
		return 0, 0
	}
	return len(e.undo), len(e.redo)
}

// Reset forgets all history, e.g. after a session replaces the store.
func (h *History) Reset() {
	h.entries = make(map[pageKey]*historyEntry)
}
