package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ann  Annotation
		want error
	}{
		{"path ok", NewPath("#ff0000", 2, []Point{{X: 1, Y: 2}}), nil},
		{"empty path", NewPath("#ff0000", 2, nil), ErrEmptyPath},
		{"text ok", NewText("hi", Point{X: 1, Y: 1}, 14, "#000000"), nil},
		{"text zero size", NewText("hi", Point{}, 0, "#000000"), ErrNonPositiveMeasure},
		{"unknown", Annotation{Type: "circle"}, ErrUnknownAnnotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ann.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	p := NewPath("#ff0000", 1, []Point{{X: 1, Y: 1}, {X: 2, Y: 3}})
	p.Translate(Point{X: 10, Y: -1})
	want := []Point{{X: 11, Y: 0}, {X: 12, Y: 2}}
	if diff := cmp.Diff(want, p.Points); diff != "" {
		t.Errorf("path points mismatch (-want +got):\n%s", diff)
	}

	txt := NewText("a", Point{X: 5, Y: 5}, 12, "#000000")
	txt.Translate(Point{X: 1, Y: 2})
	if txt.X != 6 || txt.Y != 7 {
		t.Errorf("text anchor = (%v, %v), want (6, 7)", txt.X, txt.Y)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := []Annotation{NewPath("#ff0000", 1, []Point{{X: 1, Y: 1}})}
	c := CloneAll(orig)
	c[0].Points[0].X = 99
	if orig[0].Points[0].X != 1 {
		t.Fatal("CloneAll shares point storage with its input")
	}
	if CloneAll(nil) == nil {
		t.Fatal("CloneAll(nil) must return an empty, non-nil slice")
	}
}

func TestEqualIgnoresIDAndSmallNoise(t *testing.T) {
	a := NewText("note", Point{X: 10, Y: 20}, 14, "#000000")
	b := a
	a.ID = "ann_1"
	b.ID = "ann_2"
	b.X += 0.0005
	if !Equal(a, b) {
		t.Error("annotations differing only by id and float noise should be equal")
	}
	b.Text = "other"
	if Equal(a, b) {
		t.Error("different text must not be equal")
	}
}

func TestAnnotationJSON(t *testing.T) {
	data := `[{"type":"path","color":"#ff0000","width":2,"points":[{"x":1,"y":2},{"x":3,"y":4}]},
		{"type":"text","color":"#000000","text":"שלום\nworld","x":50,"y":60,"size":14}]`

	var anns []Annotation
	if err := json.Unmarshal([]byte(data), &anns); err != nil {
		t.Fatal(err)
	}
	want := []Annotation{
		NewPath("#ff0000", 2, []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}),
		NewText("שלום\nworld", Point{X: 50, Y: 60}, 14, "#000000"),
	}
	if diff := cmp.Diff(want, anns); diff != "" {
		t.Errorf("decoded annotations mismatch (-want +got):\n%s", diff)
	}
}
