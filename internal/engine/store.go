package engine

import (
	"sort"

	"github.com/pdfgrader/grader/internal/document"
	"github.com/pdfgrader/grader/internal/typeid"
)

// Store holds the annotations of every open document, per page, in
// z-order. All values are in document space.
type Store struct {
	docs map[string]document.PageAnnotations
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]document.PageAnnotations)}
}

// Append adds ann on top of the page. Without an active document (empty
// docID) it does nothing. Invalid annotations, such as a path without
// points, are rejected.
func (s *Store) Append(docID string, page int, ann document.Annotation) error {
	if docID == "" {
		return nil
	}
	if err := ann.Validate(); err != nil {
		return err
	}
	if !typeid.IsAnnotationID(ann.ID) {
		ann.ID = typeid.NewAnnotationID()
	}

	pages, ok := s.docs[docID]
	if !ok {
		pages = make(document.PageAnnotations)
		s.docs[docID] = pages
	}
	pages[page] = append(pages[page], ann.Clone())
	return nil
}

// RemoveAt deletes the annotation at index. Out-of-range indexes are ignored.
func (s *Store) RemoveAt(docID string, page, index int) bool {
	anns := s.Page(docID, page)
	if index < 0 || index >= len(anns) {
		return false
	}
	s.docs[docID][page] = append(anns[:index:index], anns[index+1:]...)
	return true
}

// MutateInPlace translates ann by a document-space delta. The caller takes
// the history snapshot before the first mutation of a gesture.
func (s *Store) MutateInPlace(ann *document.Annotation, delta document.Point) {
	if ann == nil {
		return
	}
	ann.Translate(delta)
}

// Page returns the page's annotations. The slice is owned by the store and
// must not be modified; use At to get a mutable element.
func (s *Store) Page(docID string, page int) []document.Annotation {
	pages, ok := s.docs[docID]
	if !ok {
		return nil
	}
	return pages[page]
}

// At returns a pointer to the annotation at index, or nil.
func (s *Store) At(docID string, page, index int) *document.Annotation {
	anns := s.Page(docID, page)
	if index < 0 || index >= len(anns) {
		return nil
	}
	return &anns[index]
}

// IndexOf returns the index of the annotation with the given id, or -1.
func (s *Store) IndexOf(docID string, page int, id string) int {
	for i, a := range s.Page(docID, page) {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Replace installs anns as the page's list. Used by undo/redo and session
// loading.
func (s *Store) Replace(docID string, page int, anns []document.Annotation) {
	if docID == "" {
		return
	}
	pages, ok := s.docs[docID]
	if !ok {
		pages = make(document.PageAnnotations)
		s.docs[docID] = pages
	}
	pages[page] = anns
}

// Document returns a deep copy of all pages of a document.
func (s *Store) Document(docID string) (document.PageAnnotations, bool) {
	pages, ok := s.docs[docID]
	if !ok {
		return nil, false
	}
	out := make(document.PageAnnotations, len(pages))
	for n, anns := range pages {
		out[n] = document.CloneAll(anns)
	}
	return out, true
}

// DocumentIDs lists documents with stored annotations, sorted.
func (s *Store) DocumentIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot deep-copies the whole store for a session snapshot.
func (s *Store) Snapshot() map[string]document.PageAnnotations {
	out := make(map[string]document.PageAnnotations, len(s.docs))
	for id := range s.docs {
		out[id], _ = s.Document(id)
	}
	return out
}

// Load replaces the store contents. Annotations failing validation are
// dropped and missing ids are assigned.
func (s *Store) Load(all map[string]document.PageAnnotations) {
	s.docs = make(map[string]document.PageAnnotations, len(all))
	for docID, pages := range all {
		for page, anns := range pages {
			for _, a := range anns {
				_ = s.Append(docID, page, a)
			}
		}
	}
}
