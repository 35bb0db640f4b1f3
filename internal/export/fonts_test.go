package export

import (
	"context"
	"errors"
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestSFNTFontWidthScalesWithSize(t *testing.T) {
	f, err := ParseFont(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}

	w10 := f.WidthOfTextAtSize("Total: 17.5", 10)
	w20 := f.WidthOfTextAtSize("Total: 17.5", 20)
	if w10 <= 0 {
		t.Fatalf("width at 10 = %v, want > 0", w10)
	}
	if math.Abs(w20-2*w10) > 1e-9 {
		t.Errorf("width at 20 = %v, want %v", w20, 2*w10)
	}
	if w := f.WidthOfTextAtSize("", 12); w != 0 {
		t.Errorf("empty width = %v, want 0", w)
	}
	if f.WidthOfTextAtSize("mm", 12) <= f.WidthOfTextAtSize("m", 12) {
		t.Error("width does not grow with text length")
	}
}

func TestSFNTFontsLoad(t *testing.T) {
	ctx := context.Background()

	if _, _, err := (SFNTFonts{}).LoadFonts(ctx); !errors.Is(err, ErrFontsUnavailable) {
		t.Errorf("missing hebrew font: got %v, want ErrFontsUnavailable", err)
	}
	if _, _, err := (SFNTFonts{Hebrew: []byte("not a font")}).LoadFonts(ctx); err == nil {
		t.Error("garbage hebrew font: got nil error")
	}

	hebrew, latin, err := SFNTFonts{Hebrew: goregular.TTF}.LoadFonts(ctx)
	if err != nil {
		t.Fatalf("LoadFonts: %v", err)
	}
	if hebrew == nil || latin == nil {
		t.Fatal("LoadFonts returned a nil font")
	}
}
