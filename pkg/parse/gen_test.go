package parse

import (
	"math/rand"
	"strings"

	"github.com/leanovate/gopter"
)

// Generates section trees in the shape the parser produces, so that Emit
// followed by Parse gives back the same tree.
type treeGen struct {
	r *rand.Rand
}

func genSections() gopter.Gen {
	return func(params *gopter.GenParameters) *gopter.GenResult {
		g := treeGen{params.Rng}
		return gopter.NewGenResult(g.sections(0, g.r.Intn(4)), gopter.NoShrinker)
	}
}

var (
	sectionNames = []string{"ftd.text", "ftd.row", "ftd.column", "foo", "bar-baz", "$counter", "sum(a,b)"}
	kinds        = []string{"", "", "", "string", "integer", "string list", "optional ftd.color"}
	headerKeys   = []string{"id", "color", "padding", "role", "text", "$on-click$", "/hidden", "$x"}
	blockKeys    = []string{"left", "right"}
	conditions   = []string{"", "", "$x", "{ $dark-mode }", "a == 1"}
	words        = []string{"hello", "world", "1", "$x", "true", "x:y", "a;;b", "-- not-a-marker", "ü"}
	textLines    = []string{"hello world", "-- inside", "--- sub", "/-- c", "k: v", "if: x", "a ;; b", "$x"}
)

func (g treeGen) pick(xs []string) string { return xs[g.r.Intn(len(xs))] }

func (g treeGen) chance(n int) bool { return g.r.Intn(n) == 0 }

func (g treeGen) sections(depth, n int) []*Section {
	secs := make([]*Section, n)
	for i := range secs {
		secs[i] = g.section(depth)
	}
	return secs
}

func (g treeGen) section(depth int) *Section {
	s := &Section{Name: g.pick(sectionNames), Kind: g.pick(kinds), IsCommented: g.chance(6)}
	switch g.r.Intn(4) {
	case 0:
		s.Caption = g.phrase()
	case 1:
		c := *g.phrase() + "\n" + *g.phrase()
		s.Caption = &c
	}
	if g.chance(2) {
		s.Body = &Body{Value: g.text()}
	}
	// Inline headers come first, then block headers.
	for i := g.r.Intn(3); i > 0; i-- {
		s.Headers = append(s.Headers, g.inlineHeader())
	}
	for i := g.r.Intn(3); i > 0; i-- {
		s.Headers = append(s.Headers, g.blockHeader(depth))
	}
	if depth < 2 {
		s.Subsections = g.sections(depth+1, g.r.Intn(3))
	}
	return s
}

func (g treeGen) inlineHeader() *Header {
	h := &Header{Key: g.pick(headerKeys), Kind: g.pick(kinds), Condition: g.pick(conditions)}
	if g.chance(3) {
		h.Type = BlockRecord
		h.Caption = g.maybe(g.phrase)
		for i := 1 + g.r.Intn(2); i > 0; i-- {
			h.Fields = append(h.Fields, &Header{
				Type: KV, Key: strings.TrimPrefix(g.pick(headerKeys), "/"), Value: g.maybe(g.phrase)})
		}
		return h
	}
	h.Value = g.maybe(g.phrase)
	return h
}

func (g treeGen) blockHeader(depth int) *Header {
	h := &Header{Key: g.pick(headerKeys), Kind: g.pick(kinds), Condition: g.pick(conditions)}
	switch g.r.Intn(5) {
	case 0:
		h.Type, h.Value, h.Source = KV, g.phrase(), SourceCaption
	case 1:
		h.Type, h.Source = KV, SourceBody
		if g.chance(3) {
			break
		}
		t := g.text()
		h.Value = &t
	case 2:
		h.Type = BlockRecord
		h.Caption = g.maybe(g.phrase)
		for i := 1 + g.r.Intn(2); i > 0; i-- {
			key := g.pick(headerKeys)
			if key == "/hidden" {
				key = "hidden"
			}
			h.Fields = append(h.Fields, &Header{
				Type: KV, Key: key, Kind: g.pick(kinds), Condition: g.pick(conditions),
				Value: g.maybe(g.phrase)})
		}
		if g.chance(2) {
			h.Body = &Body{Value: g.text()}
		}
	default:
		h.Type, h.Key = SectionHeader, g.pick(blockKeys)
		if depth < 2 {
			h.Sections = g.sections(depth+1, g.r.Intn(3))
		}
	}
	return h
}

func (g treeGen) maybe(f func() *string) *string {
	if g.chance(3) {
		return nil
	}
	return f()
}

func (g treeGen) phrase() *string {
	ws := make([]string, 1+g.r.Intn(3))
	for i := range ws {
		ws[i] = g.pick(words)
	}
	s := strings.Join(ws, " ")
	return &s
}

// Returns normalized text: no blank lines at either end and no common
// indentation.
func (g treeGen) text() string {
	lines := []string{g.pick(textLines)}
	for i := g.r.Intn(4); i > 0; i-- {
		switch g.r.Intn(4) {
		case 0:
			lines = append(lines, "")
		case 1:
			lines = append(lines, "  "+g.pick(textLines))
		default:
			lines = append(lines, g.pick(textLines))
		}
	}
	for lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
