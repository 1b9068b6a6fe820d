package eval

import (
	"sort"
	"strings"
	"sync"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/must"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

const ftdDoc = "ftd"

// The part of the ftd document that can be written in FTD.
const ftdSource = `
-- record image-src:
caption light:
string dark: $image-src.light

-- record color:
caption light:
string dark: $color.light

-- record color-scheme:
color text:
color background:
color border:
color accent:

-- record type:
caption integer size:
optional string weight:
string font-family: sans-serif
optional integer line-height:

-- record type-data:
type heading:
type copy:
type label:

-- or-type length:

-- integer px:
-- decimal percent:
-- string calc:
-- integer vh:
-- integer vw:
-- decimal em:
-- decimal rem:

-- end: length

-- or-type resizing:

-- constant string fill-container: fill-container
-- constant string hug-content: hug-content
-- constant string auto: auto
-- length fixed:

-- end: resizing

-- boolean $dark-mode: false

-- color-scheme default-colors:
text: #333333
text.dark: #eeeeee
background: #ffffff
background.dark: #18181b
border: #dddddd
border.dark: #3f3f46
accent: #2563eb
accent.dark: #60a5fa

-- type-data default-types:
heading: 32
heading.weight: bold
copy: 16
label: 14
label.weight: bold
`

var (
	builtinOnce sync.Once
	builtinBag  Bag
	builtinDoc  *docState
)

// Returns the bag holding the ftd document, and the document itself. Both
// are built on first use and never modified afterwards.
func builtins() (Bag, *docState) {
	builtinOnce.Do(func() {
		st := &state{bag: NewBag(), docs: make(map[string]*docState),
			foreign: make(map[string]any), processed: make(map[procKey]any)}
		src := parse.Source{Name: ftdDoc, Code: ftdSource}
		items := must.OK1(ast.Parse(src, parse.Config{}))
		d := st.newDoc(ftdDoc, src, parse.Config{}, items)
		st.root = ftdDoc
		st.push(d)
		if _, done := must.OK1(st.run()).(*Done); !done {
			panic("ftd document needs the host")
		}
		addPrimitives(st)
		builtinBag, builtinDoc = st.bag, d
	})
	return builtinBag, builtinDoc
}

func optionalOf(k vals.Kind) vals.KindData { return vals.KindData{Kind: vals.OptionalOf(k)} }

func addPrimitives(st *state) {
	var (
		resizing = optionalOf(vals.OrTypeOf("ftd#resizing"))
		length   = optionalOf(vals.OrTypeOf("ftd#length"))
		color    = optionalOf(vals.RecordOf("ftd#color"))
	)
	common := []*FieldDef{
		{Name: "width", Kind: resizing},
		{Name: "height", Kind: resizing},
		{Name: "padding", Kind: length},
		{Name: "margin", Kind: length},
		{Name: "color", Kind: color},
		{Name: "background", Kind: color},
		{Name: "colors", Kind: optionalOf(vals.RecordOf("ftd#color-scheme"))},
		{Name: "types", Kind: optionalOf(vals.RecordOf("ftd#type-data"))},
	}
	container := []*FieldDef{
		{Name: "children", Kind: vals.KindData{Kind: vals.ListOf(vals.UIKind)}},
		{Name: "spacing", Kind: length},
	}
	primitives := map[string][]*FieldDef{
		"row":    container,
		"column": container,
		"text": {
			{Name: "text", Kind: vals.KindData{Kind: vals.String, Caption: true, Body: true}},
			{Name: "role", Kind: optionalOf(vals.RecordOf("ftd#type"))},
		},
		"integer": {{Name: "value", Kind: vals.KindData{Kind: vals.Integer, Caption: true}}},
		"boolean": {{Name: "value", Kind: vals.KindData{Kind: vals.Boolean, Caption: true}}},
		"image":   {{Name: "src", Kind: vals.KindData{Kind: vals.RecordOf("ftd#image-src"), Caption: true}}},
	}
	for _, name := range []string{"row", "column", "text", "integer", "boolean", "image"} {
		args := append(append([]*FieldDef(nil), primitives[name]...), common...)
		st.bag = st.bag.Set(ftdDoc+"#"+name, &ComponentDef{Name: ftdDoc + "#" + name, Args: args, doc: ftdDoc})
	}

	one := "1"
	mut := func(k vals.Kind) *FieldDef {
		return &FieldDef{Name: "a", Kind: vals.KindData{Kind: k}, Mutable: true}
	}
	val := func(k vals.Kind) *FieldDef { return &FieldDef{Name: "v", Kind: vals.KindData{Kind: k}} }
	functions := map[string][]*FieldDef{
		"toggle": {mut(vals.Boolean)},
		"increment": {mut(vals.Integer), {Name: "by", Kind: vals.KindData{Kind: vals.Integer},
			Default: &ast.Value{Text: &one}}},
		"set-bool":    {mut(vals.Boolean), val(vals.Boolean)},
		"set-integer": {mut(vals.Integer), val(vals.Integer)},
		"set-string":  {mut(vals.String), val(vals.String)},
	}
	for _, name := range []string{"toggle", "increment", "set-bool", "set-integer", "set-string"} {
		st.bag = st.bag.Set(ftdDoc+"#"+name, &Function{Name: ftdDoc + "#" + name,
			Return: vals.KindData{Kind: vals.Void}, Params: functions[name], doc: ftdDoc})
	}
}

// BuiltinNames returns the names defined by the ftd document, written as a
// document refers to them, like "ftd.text".
func BuiltinNames() []string {
	bag, _ := builtins()
	var names []string
	for _, name := range bag.Names() {
		if doc, short, ok := strings.Cut(name, "#"); ok && doc == ftdDoc {
			names = append(names, ftdDoc+"."+short)
		}
	}
	sort.Strings(names)
	return names
}
