package bidi

import "unicode"

type tokenKind int

const (
	tokenNumeric tokenKind = iota // 12/20, 3.5, 10:30
	tokenHebrew
	tokenAlnum
	tokenSpace
	tokenOther
)

// reversed reports whether a token's characters are flipped when the line
// is laid out right to left. Numbers and Latin words stay readable.
func (k tokenKind) reversed() bool {
	return k != tokenNumeric && k != tokenAlnum
}

type token struct {
	kind tokenKind
	text string
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNumericSeparator(r rune) bool {
	switch r {
	case '.', ',', ':', '/', '-':
		return true
	}
	return false
}

func classOf(r rune) tokenKind {
	switch {
	case IsHebrew(r):
		return tokenHebrew
	case isAlnum(r):
		return tokenAlnum
	case unicode.IsSpace(r):
		return tokenSpace
	default:
		return tokenOther
	}
}

// tokenize splits a line into maximal tokens. At each position a numeric
// expression (digits with at least one separator-digits group) wins over
// the plain character classes.
func tokenize(line string) []token {
	rs := []rune(line)
	var tokens []token
	for i := 0; i < len(rs); {
		if n := numericLen(rs[i:]); n > 0 {
			tokens = append(tokens, token{kind: tokenNumeric, text: string(rs[i : i+n])})
			i += n
			continue
		}
		kind := classOf(rs[i])
		j := i + 1
		for j < len(rs) && classOf(rs[j]) == kind {
			j++
		}
		tokens = append(tokens, token{kind: kind, text: string(rs[i:j])})
		i = j
	}
	return tokens
}

// numericLen returns the length of a digit+(sep digit+)+ match at the start
// of rs, or 0.
func numericLen(rs []rune) int {
	i := 0
	for i < len(rs) && isDigit(rs[i]) {
		i++
	}
	if i == 0 {
		return 0
	}
	groups := 0
	for i+1 < len(rs) && isNumericSeparator(rs[i]) && isDigit(rs[i+1]) {
		i++
		for i < len(rs) && isDigit(rs[i]) {
			i++
		}
		groups++
	}
	if groups == 0 {
		return 0
	}
	return i
}
