package export

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

var ErrFontsUnavailable = errors.New("export fonts unavailable")

// Font measures text for layout.
type Font interface {
	WidthOfTextAtSize(text string, size float64) float64
}

// FontProvider supplies the two export fonts. It must succeed before any
// primitive is written.
type FontProvider interface {
	LoadFonts(ctx context.Context) (hebrew, latin Font, err error)
}

// SFNTFont measures advance widths from a parsed TrueType/OpenType font.
type SFNTFont struct {
	f    *sfnt.Font
	upem float64
}

// ParseFont parses TrueType or OpenType font data.
func ParseFont(data []byte) (*SFNTFont, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &SFNTFont{f: f, upem: float64(f.UnitsPerEm())}, nil
}

// Name returns the font's full name, or "" if it has none.
func (s *SFNTFont) Name() string {
	var buf sfnt.Buffer
	name, err := s.f.Name(&buf, sfnt.NameIDFull)
	if err != nil {
		return ""
	}
	return name
}

// WidthOfTextAtSize sums glyph advances and kerning. Runes without a glyph
// measure as the font's .notdef glyph.
func (s *SFNTFont) WidthOfTextAtSize(text string, size float64) float64 {
	var buf sfnt.Buffer
	// Measuring at ppem == unitsPerEm yields advances in font units.
	ppem := fixed.I(int(s.upem))

	var total fixed.Int26_6
	var prev sfnt.GlyphIndex
	hasPrev := false
	for _, r := range text {
		idx, err := s.f.GlyphIndex(&buf, r)
		if err != nil {
			continue
		}
		if hasPrev {
			if k, err := s.f.Kern(&buf, prev, idx, ppem, font.HintingNone); err == nil {
				total += k
			}
		}
		adv, err := s.f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		total += adv
		prev, hasPrev = idx, true
	}
	return float64(total) / 64 / s.upem * size
}

// SFNTFonts provides export fonts from raw font files. Hebrew is required;
// Latin defaults to Go Regular.
type SFNTFonts struct {
	Hebrew []byte
	Latin  []byte
}

func (p SFNTFonts) LoadFonts(ctx context.Context) (Font, Font, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(p.Hebrew) == 0 {
		return nil, nil, fmt.Errorf("hebrew font: %w", ErrFontsUnavailable)
	}
	hebrew, err := ParseFont(p.Hebrew)
	if err != nil {
		return nil, nil, fmt.Errorf("hebrew font: %w", err)
	}

	latinData := p.Latin
	if len(latinData) == 0 {
		latinData = goregular.TTF
	}
	latin, err := ParseFont(latinData)
	if err != nil {
		return nil, nil, fmt.Errorf("latin font: %w", err)
	}
	return hebrew, latin, nil
}
