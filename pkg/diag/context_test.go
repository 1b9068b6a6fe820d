package diag

import (
	"strings"
	"testing"
)

var contextShowTests = []struct {
	Name    string
	Context *Context
	Indent  string

	WantShow string
	WantLine int
}{
	{
		Name:    "single-line culprit",
		Context: contextInParen("[test]", "-- foo: (bad)"),
		Indent:  "_",

		WantShow: "[test]:1:9: -- foo: <(bad)>",
		WantLine: 1,
	},
	{
		Name:    "multi-line culprit",
		Context: contextInParen("[test]", "-- foo:\nbar: (bad\nbad)\nmore"),
		Indent:  "_",

		WantShow: "[test]:2:6: bar: <(bad>\n_" + strings.Repeat(" ", 12) + "<bad)>",
		WantLine: 2,
	},
	{
		Name: "trailing newline in culprit is removed",
		//                             0123456789
		Context: NewContext("[test]", "-- foo:\n", Ranging{3, 8}),

		WantShow: "[test]:1:4: -- <foo:>",
		WantLine: 1,
	},
	{
		Name: "empty culprit",
		//                             0123456
		Context: NewContext("[test]", "-- foo", Ranging{3, 3}),

		WantShow: "[test]:1:4: -- <^>foo",
		WantLine: 1,
	},
	{
		Name:    "line offset",
		Context: &Context{Name: "[test]", Source: "a\nb", Ranging: Ranging{2, 3}, LineOffset: 10},

		WantShow: "[test]:12:1: <b>",
		WantLine: 12,
	},
	{
		Name:     "unknown culprit range",
		Context:  NewContext("[test]", "echo", Ranging{-1, -1}),
		WantShow: "[test], unknown position",
	},
	{
		Name:     "invalid culprit range",
		Context:  NewContext("[test]", "echo", Ranging{2, 1}),
		WantShow: "[test], invalid position 2-1",
	},
}

func TestContext(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	for _, test := range contextShowTests {
		t.Run(test.Name, func(t *testing.T) {
			if show := test.Context.Show(test.Indent); show != test.WantShow {
				t.Errorf("Show() -> %q, want %q", show, test.WantShow)
			}
			if line := test.Context.Line(); line != test.WantLine {
				t.Errorf("Line() -> %d, want %d", line, test.WantLine)
			}
		})
	}
}

func TestNewLineContext(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	c := NewLineContext("doc", "-- foo:\nbar baz\n", 2)
	if want := "doc:2:1: <bar baz>"; c.Show("") != want {
		t.Errorf("Show() -> %q, want %q", c.Show(""), want)
	}
}

func TestDisplayWidth(t *testing.T) {
	if w := displayWidth("ab你好"); w != 6 {
		t.Errorf("displayWidth -> %d, want 6", w)
	}
}
