package document

import (
	"fmt"
	"strings"
)

const SessionVersion = "1.0"

type Question struct {
	ID    int     `json:"id"`
	Label string  `json:"label"`
	Max   float64 `json:"max"`
}

type Rubric struct {
	Questions []Question `json:"questions"`
}

// DefaultRubric is the rubric a fresh session starts with.
func DefaultRubric() Rubric {
	return Rubric{
		Questions: []Question{
			{ID: 1, Label: "Q1", Max: 10},
			{ID: 2, Label: "Q2", Max: 10},
			{ID: 3, Label: "Q3", Max: 10},
		},
	}
}

// Has reports whether the rubric contains a question with the given id.
func (r Rubric) Has(id int) bool {
	for _, q := range r.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// MaxTotal sums the maximum points over all questions.
func (r Rubric) MaxTotal() float64 {
	var total float64
	for _, q := range r.Questions {
		total += q.Max
	}
	return total
}

// Equal compares rubrics question by question.
func (r Rubric) Equal(other Rubric) bool {
	if len(r.Questions) != len(other.Questions) {
		return false
	}
	for i, q := range r.Questions {
		o := other.Questions[i]
		if q.ID != o.ID || q.Label != o.Label || q.Max != o.Max {
			return false
		}
	}
	return true
}

// SummaryLines renders the grade summary block placed on exported PDFs:
// one "label: score" line per question, a blank line, then the total.
func (r Rubric) SummaryLines(scores map[int]float64) []string {
	lines := make([]string, 0, len(r.Questions)+2)
	var total float64
	for _, q := range r.Questions {
		s := scores[q.ID]
		total += s
		lines = append(lines, fmt.Sprintf("%s: %s", q.Label, formatScore(s)))
	}
	lines = append(lines, "", fmt.Sprintf("Total: %s / %s", formatScore(total), formatScore(r.MaxTotal())))
	return lines
}

func formatScore(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// DocumentMeta identifies a graded PDF. Sessions key documents by file
// name, so ID and Name are equal once a session has been normalized.
type DocumentMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the serializable snapshot handed to the persistence
// collaborator. All annotation values are in document space.
type Session struct {
	Version        string                     `json:"version"`
	Rubric         *Rubric                    `json:"rubric,omitempty"`
	Documents      []DocumentMeta             `json:"documents"`
	Annotations    map[string]PageAnnotations `json:"annotations"`
	Scores         map[string]map[int]float64 `json:"scores"`
	AnnotationBank []string                   `json:"annotationBank"`
	AutosavedAt    string                     `json:"autosavedAt,omitempty"`
}

// Normalize rekeys documents by file name and remaps the annotation and
// score tables accordingly. Older sessions used random document ids;
// re-association after reload relies on the exact file name.
func Normalize(s Session) Session {
	idMap := make(map[string]string)
	docs := make([]DocumentMeta, 0, len(s.Documents))
	for _, d := range s.Documents {
		if d.ID != "" && d.ID != d.Name {
			idMap[d.ID] = d.Name
		}
		docs = append(docs, DocumentMeta{ID: d.Name, Name: d.Name})
	}

	anns := make(map[string]PageAnnotations, len(s.Annotations))
	for id, pages := range s.Annotations {
		if mapped, ok := idMap[id]; ok {
			id = mapped
		}
		anns[id] = pages
	}

	scores := make(map[string]map[int]float64, len(s.Scores))
	for id, sc := range s.Scores {
		if mapped, ok := idMap[id]; ok {
			id = mapped
		}
		scores[id] = sc
	}

	bank := s.AnnotationBank
	if bank == nil {
		bank = []string{}
	}

	return Session{
		Version:        s.Version,
		Rubric:         s.Rubric,
		Documents:      docs,
		Annotations:    anns,
		Scores:         scores,
		AnnotationBank: bank,
		AutosavedAt:    s.AutosavedAt,
	}
}

// MergeAnnotations appends the incoming annotations that have no
// structurally equal counterpart in existing.
func MergeAnnotations(existing, incoming []Annotation) []Annotation {
	out := existing
	for _, in := range incoming {
		dup := false
		for _, ex := range out {
			if Equal(ex, in) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, in.Clone())
		}
	}
	return out
}

// MergeBank appends texts not already present, preserving order.
func MergeBank(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	out := existing
	for _, t := range incoming {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// MissingDocuments returns the documents of docs whose name is not in loaded.
func MissingDocuments(docs []DocumentMeta, loaded []DocumentMeta) []DocumentMeta {
	have := make(map[string]bool, len(loaded))
	for _, d := range loaded {
		have[d.Name] = true
	}
	var missing []DocumentMeta
	for _, d := range docs {
		if !have[d.Name] {
			missing = append(missing, d)
		}
	}
	return missing
}
