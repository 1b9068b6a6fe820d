package merge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Style selects how conflicts are written by Merge3.
type Style uint8

const (
	// StyleMerge writes the two sides of a conflict.
	StyleMerge Style = iota
	// StyleDiff3 also writes the original text between them.
	StyleDiff3
)

// Conflict markers.
const (
	MarkerOurs     = "<<<<<<< ours"
	MarkerOriginal = "||||||| original"
	MarkerSep      = "======="
	MarkerTheirs   = ">>>>>>> theirs"
)

// A change of one side relative to the base: base lines [start, end) are
// replaced by lines.
type hunk struct {
	start, end int
	lines      []string
}

// Merge3 merges the changes that ours and theirs made to base, line by line.
// Changes that overlap or touch conflict, unless both sides made the same
// change; conflicts are written with markers in the given style. It returns
// the merged text and the number of conflicts.
func Merge3(base, ours, theirs string, style Style) (string, int) {
	b, o, t := splitLines(base), splitLines(ours), splitLines(theirs)
	oh, th := hunks(b, o), hunks(b, t)

	var out []string
	conflicts := 0
	pos := 0
	for len(oh) > 0 || len(th) > 0 {
		start, end := regionStart(oh, th)
		var ro, rt []hunk
		// Grow the region until no hunk of either side touches it.
		for grown := true; grown; {
			grown = false
			for len(oh) > 0 && oh[0].start <= end {
				ro, oh = append(ro, oh[0]), oh[1:]
				end, grown = max(end, ro[len(ro)-1].end), true
			}
			for len(th) > 0 && th[0].start <= end {
				rt, th = append(rt, th[0]), th[1:]
				end, grown = max(end, rt[len(rt)-1].end), true
			}
		}
		out = append(out, b[pos:start]...)
		pos = end
		switch {
		case len(rt) == 0:
			out = append(out, apply(b, start, end, ro)...)
		case len(ro) == 0:
			out = append(out, apply(b, start, end, rt)...)
		default:
			mine, yours := apply(b, start, end, ro), apply(b, start, end, rt)
			if equalLines(mine, yours) {
				out = append(out, mine...)
				continue
			}
			conflicts++
			out = append(out, MarkerOurs+"\n")
			out = append(out, terminated(mine)...)
			if style == StyleDiff3 {
				out = append(out, MarkerOriginal+"\n")
				out = append(out, terminated(b[start:end])...)
			}
			out = append(out, MarkerSep+"\n")
			out = append(out, terminated(yours)...)
			out = append(out, MarkerTheirs+"\n")
		}
	}
	out = append(out, b[pos:]...)
	return strings.Join(out, ""), conflicts
}

// Splits text into lines, each keeping its newline. Only the last line may
// lack one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func hunks(base, side []string) []hunk {
	m := difflib.NewMatcherWithJunk(base, side, false, nil)
	var hs []hunk
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		hs = append(hs, hunk{op.I1, op.I2, side[op.J1:op.J2]})
	}
	return hs
}

func regionStart(oh, th []hunk) (int, int) {
	switch {
	case len(oh) == 0:
		return th[0].start, th[0].start
	case len(th) == 0:
		return oh[0].start, oh[0].start
	}
	s := min(oh[0].start, th[0].start)
	return s, s
}

// Rewrites base lines [start, end) with the hunks of one side.
func apply(base []string, start, end int, hs []hunk) []string {
	var out []string
	pos := start
	for _, h := range hs {
		out = append(out, base[pos:h.start]...)
		out = append(out, h.lines...)
		pos = h.end
	}
	return append(out, base[pos:end]...)
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Makes sure the lines end with a newline, so that a marker after them
// starts a line of its own.
func terminated(lines []string) []string {
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines = append(lines[:n-1:n-1], lines[n-1]+"\n")
	}
	return lines
}
