// Package bidi lays out mixed Hebrew/Latin text for renderers that draw
// glyphs strictly left to right.
//
// This is a scoped heuristic, not the Unicode bidirectional algorithm: a
// line containing Hebrew is treated as a right-to-left paragraph with one
// level of embedded left-to-right runs (Latin words and numbers). Nested
// embeddings, explicit directional controls and Arabic text are not handled.
package bidi

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// Run is a maximal piece of visually ordered text of one direction class.
type Run struct {
	Text        string `json:"text"`
	RightToLeft bool   `json:"rtl"`
}

const (
	hebrewFirst = 0x0590
	hebrewLast  = 0x05FF
)

// Hebrew is the Hebrew Unicode block, U+0590 to U+05FF.
var Hebrew = hebrewBlock()

func hebrewBlock() *unicode.RangeTable {
	runes := make([]rune, 0, hebrewLast-hebrewFirst+1)
	for r := rune(hebrewFirst); r <= hebrewLast; r++ {
		runes = append(runes, r)
	}
	return rangetable.New(runes...)
}

// IsHebrew reports whether r is in the Hebrew block.
func IsHebrew(r rune) bool {
	return unicode.Is(Hebrew, r)
}

// HasHebrew reports whether s contains any Hebrew-block rune. Such lines
// are laid out right to left.
func HasHebrew(s string) bool {
	return strings.IndexFunc(s, IsHebrew) >= 0
}

var mirror = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
}

func mirrored(r rune) rune {
	if m, ok := mirror[r]; ok {
		return m
	}
	return r
}

// ShapeForDisplay converts one logical-order line into visually ordered
// runs. A line without Hebrew is returned unchanged as a single
// left-to-right run. Callers split multi-line text first; see ShapeText.
func ShapeForDisplay(line string) []Run {
	if !HasHebrew(line) {
		return []Run{{Text: line}}
	}
	return splitRuns(Visual(line))
}

// ShapeText shapes every newline-separated line independently.
func ShapeText(text string) [][]Run {
	lines := strings.Split(text, "\n")
	out := make([][]Run, len(lines))
	for i, line := range lines {
		out[i] = ShapeForDisplay(line)
	}
	return out
}

// Visual returns line in visual (left-to-right drawing) order.
func Visual(line string) string {
	if !HasHebrew(line) {
		return line
	}

	tokens := tokenize(line)
	var b strings.Builder
	b.Grow(len(line))
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		rs := []rune(tok.text)
		if tok.kind.reversed() {
			for l, r := 0, len(rs)-1; l < r; l, r = l+1, r-1 {
				rs[l], rs[r] = rs[r], rs[l]
			}
		}
		for _, r := range rs {
			b.WriteRune(mirrored(r))
		}
	}
	return b.String()
}

// splitRuns cuts visual text into alternating Hebrew and non-Hebrew runs so
// each can be drawn with a matching font.
func splitRuns(visual string) []Run {
	var runs []Run
	start := 0
	rtl := false
	for i, r := range visual {
		h := IsHebrew(r)
		if i == 0 {
			rtl = h
			continue
		}
		if h != rtl {
			runs = append(runs, Run{Text: visual[start:i], RightToLeft: rtl})
			start = i
			rtl = h
		}
	}
	if start < len(visual) {
		runs = append(runs, Run{Text: visual[start:], RightToLeft: rtl})
	}
	return runs
}
