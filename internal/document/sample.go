package document

import (
	"time"

	"github.com/pdfgrader/grader/internal/typeid"
)

// NewSampleSession returns a session with a few marks on the first page of
// docName. The wasm playground loads it so the overlay has content before a
// real session is restored.
func NewSampleSession(docName string) *Session {
	now := time.Now().UTC().Format(time.RFC3339)
	rubric := DefaultRubric()

	check := Annotation{
		ID:    typeid.NewAnnotationID(),
		Type:  AnnotationTypePath,
		Color: "#ff0000",
		Width: 2,
		Points: []Point{
			{X: 60, Y: 120},
			{X: 70, Y: 132},
			{X: 92, Y: 100},
		},
	}
	note := Annotation{
		ID:    typeid.NewAnnotationID(),
		Type:  AnnotationTypeText,
		Color: "#1d4ed8",
		Text:  "Good start (see step 2)",
		X:     110,
		Y:     104,
		Size:  14,
	}
	hebrew := Annotation{
		ID:    typeid.NewAnnotationID(),
		Type:  AnnotationTypeText,
		Color: "#1d4ed8",
		Text:  "ציון: 8/10",
		X:     520,
		Y:     160,
		Size:  14,
	}

	return &Session{
		Version:   SessionVersion,
		Rubric:    &rubric,
		Documents: []DocumentMeta{{ID: docName, Name: docName}},
		Annotations: map[string]PageAnnotations{
			docName: {1: {check, note, hebrew}},
		},
		Scores: map[string]map[int]float64{
			docName: {1: 8},
		},
		AnnotationBank: []string{"Good start", "Missing units", "See feedback"},
		AutosavedAt:    now,
	}
}
