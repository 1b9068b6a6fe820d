package parse

import "strings"

type lineKind uint8

const (
	blankLine lineKind = iota
	textLine
	sectionLine
	subsectionLine
)

// A logical line, after comments have been removed and escapes resolved.
type line struct {
	kind lineKind
	// 1-based line number in the source, not counting the line offset.
	num  int
	text string
	// For section and subsection lines, the text after the marker.
	rest      string
	commented bool
}

// Section markers, longest first.
var markers = []struct {
	prefix    string
	kind      lineKind
	commented bool
}{
	{"/--- ", subsectionLine, true},
	{"--- ", subsectionLine, false},
	{"/-- ", sectionLine, true},
	{"-- ", sectionLine, false},
}

func lex(code string) []line {
	raw := strings.Split(code, "\n")
	lines := make([]line, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSuffix(s, "\r")
		if isCommentLine(s) {
			continue
		}
		s = strings.ReplaceAll(cutComment(s), `\;;`, ";;")
		lines = append(lines, classify(i+1, s))
	}
	return lines
}

func classify(num int, s string) line {
	trimmed := strings.TrimLeft(s, " \t")
	if trimmed == "" {
		return line{kind: blankLine, num: num, text: s}
	}
	if trimmed[0] == '\\' && markerOf(trimmed[1:]) >= 0 {
		return line{kind: textLine, num: num, text: s[:len(s)-len(trimmed)] + trimmed[1:]}
	}
	if i := markerOf(trimmed); i >= 0 {
		m := markers[i]
		return line{kind: m.kind, num: num, text: s,
			rest: trimmed[len(m.prefix):], commented: m.commented}
	}
	return line{kind: textLine, num: num, text: s}
}

func markerOf(s string) int {
	for i, m := range markers {
		if strings.HasPrefix(s, m.prefix) {
			return i
		}
	}
	return -1
}

func isCommentLine(s string) bool {
	return strings.HasPrefix(strings.TrimLeft(s, " \t"), ";;")
}

// Cuts s at the first ";;" that is not preceded by a backslash, dropping the
// whitespace before it.
func cutComment(s string) string {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ';' && s[i+1] == ';' {
			if i > 0 && s[i-1] == '\\' {
				i++
				continue
			}
			return strings.TrimRight(s[:i], " \t")
		}
	}
	return s
}

// StripComments removes comment lines and inline comments from FTD source.
// Escapes are kept, so parsing the result yields the same tree as parsing
// src, except for line numbers.
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for _, s := range lines {
		if isCommentLine(strings.TrimSuffix(s, "\r")) {
			continue
		}
		kept = append(kept, cutComment(s))
	}
	return strings.Join(kept, "\n")
}
