package eval

import (
	"fmt"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/expr"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

// The parts a value may be written with. A header value uses text; a block
// record uses text, body and fields; a section header uses sections; a
// whole section may use all of them.
type source struct {
	text     *string
	body     *string
	fields   []*parse.Header
	sections []*parse.Section
}

func sourceOf(v ast.Value) source {
	switch {
	case v.Header != nil:
		return headerSource(v.Header)
	case v.Section != nil:
		return sectionSource(v.Section)
	}
	return source{text: v.Text}
}

func headerSource(h *parse.Header) source {
	switch h.Type {
	case parse.BlockRecord:
		src := source{text: h.Caption, fields: h.Fields}
		if h.Body != nil {
			src.body = &h.Body.Value
		}
		return src
	case parse.SectionHeader:
		return source{sections: h.Sections}
	}
	return source{text: h.Value}
}

func sectionSource(s *parse.Section) source {
	src := source{text: s.Caption, fields: s.Headers, sections: s.Subsections}
	if s.Body != nil {
		src.body = &s.Body.Value
	}
	return src
}

func (s source) empty() bool {
	return s.text == nil && s.body == nil && len(s.fields) == 0 && len(s.sections) == 0
}

func (s source) textOnly() bool {
	return s.text != nil && s.body == nil && len(s.fields) == 0 && len(s.sections) == 0
}

// The text of a scalar: the caption, or else the body.
func (s source) scalar() (string, bool) {
	switch {
	case s.text != nil:
		return *s.text, true
	case s.body != nil:
		return *s.body, true
	}
	return "", false
}

// Text starting with "$", or wrapped in braces, is an expression.
func expression(text string) (string, bool) {
	t := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(t, "$"):
		return t, true
	case len(t) >= 2 && t[0] == '{' && t[len(t)-1] == '}':
		return t[1 : len(t)-1], true
	}
	return "", false
}

// A leading "\$" or "\{" is a literal "$" or "{".
func unescape(text string) string {
	if strings.HasPrefix(text, `\$`) || strings.HasPrefix(text, `\{`) {
		return text[1:]
	}
	return text
}

// Converts a value written in the frame's document to kind kd.
func (f *frame) convert(v ast.Value, kd vals.KindData) (any, error) {
	val, err := f.convertSource(sourceOf(v), kd.Kind)
	if err != nil && v.Line > 0 {
		return nil, f.d.wrap(v.Line, err)
	}
	return val, err
}

func (f *frame) convertSource(src source, k vals.Kind) (any, error) {
	if src.textOnly() {
		if code, ok := expression(*src.text); ok {
			return f.eval(code, k)
		}
	}
	switch k.Tag {
	case vals.OptionalTag:
		if src.empty() {
			return vals.Optional{Elem: *k.Elem}, nil
		}
		v, err := f.convertSource(src, *k.Elem)
		if err != nil {
			return nil, err
		}
		return vals.Optional{Elem: *k.Elem, Value: v}, nil
	case vals.ListTag:
		return f.list(src, *k.Elem)
	case vals.RecordTag:
		def, ok := f.st.bag.Get(k.Name)
		if rd, isRecord := def.(*RecordDef); ok && isRecord {
			return f.record(rd, src)
		}
		return nil, notFound{k.Name}
	case vals.OrTypeTag:
		def, ok := f.st.bag.Get(k.Name)
		if od, isOrType := def.(*OrTypeDef); ok && isOrType {
			return f.orType(od, src)
		}
		return nil, notFound{k.Name}
	case vals.UITag:
		if len(src.sections) != 1 {
			return nil, fmt.Errorf("a ui value needs exactly one section, found %d", len(src.sections))
		}
		return f.ui(src.sections[0])
	case vals.ModuleTag:
		text, ok := src.scalar()
		if !ok {
			return nil, fmt.Errorf("a module value needs a module name")
		}
		return f.module(strings.TrimSpace(text))
	case vals.VoidTag:
		return nil, nil
	}
	text, ok := src.scalar()
	if !ok {
		return nil, fmt.Errorf("a %s value is required", k)
	}
	return vals.FromText(unescape(text), k)
}

func (f *frame) eval(code string, k vals.Kind) (any, error) {
	n, err := expr.Parse(code)
	if err != nil {
		return nil, err
	}
	v, err := expr.Eval(n, f)
	if err != nil {
		return nil, err
	}
	return vals.Conform(v, k)
}

func (f *frame) list(src source, elem vals.Kind) (any, error) {
	items := []any{}
	for _, s := range src.sections {
		var v any
		var err error
		if elem.Tag == vals.UITag {
			v, err = f.ui(s)
		} else {
			v, err = f.convertSource(sectionSource(s), elem)
		}
		if err != nil {
			return nil, f.d.wrap(s.Line, err)
		}
		items = append(items, v)
	}
	return vals.List{Elem: elem, Items: items}, nil
}

func (f *frame) ui(s *parse.Section) (any, error) {
	ci, err := ast.Invocation(f.d.src, f.d.cfg, s)
	if err != nil {
		return nil, err
	}
	n, err := f.invoke(ci)
	if err != nil {
		return nil, err
	}
	return vals.UI{Node: n}, nil
}

func (f *frame) module(name string) (any, error) {
	id := ResolveModule(f.d.aliases, name)
	if _, ok := f.st.docs[id]; !ok {
		return nil, fmt.Errorf("module '%s' is not imported", name)
	}
	prefix := id + "#"
	var things []string
	for _, n := range f.st.bag.Names() {
		if strings.HasPrefix(n, prefix) {
			things = append(things, n[len(prefix):])
		}
	}
	return vals.Module{Name: id, Things: things}, nil
}

func (f *frame) record(def *RecordDef, src source) (any, error) {
	return f.fields(def.Name, shortName(def.Name), def.Fields, def.doc, src)
}

// Builds a record named name from src. Caption and body go to the fields
// declared with those markers. Missing fields get their defaults, which are
// evaluated in the defining document with the partial record in scope as
// short.
func (f *frame) fields(name, short string, defs []*FieldDef, doc string, src source) (*vals.Record, error) {
	values := make(map[string]any)
	marked := func(text *string, marker string, has func(vals.KindData) bool) error {
		if text == nil {
			return nil
		}
		for _, fd := range defs {
			if has(fd.Kind) {
				v, err := f.convertSource(source{text: text}, fd.Kind.Kind)
				values[fd.Name] = v
				return err
			}
		}
		return fmt.Errorf("record '%s' has no %s field", name, marker)
	}
	if err := marked(src.text, "caption", func(kd vals.KindData) bool { return kd.Caption }); err != nil {
		return nil, err
	}
	if err := marked(src.body, "body", func(kd vals.KindData) bool { return kd.Body }); err != nil {
		return nil, err
	}
	for _, h := range src.fields {
		key := strings.TrimPrefix(h.Key, "$")
		fd := findField(defs, key)
		if fd == nil {
			return nil, f.d.wrap(h.Line, fmt.Errorf("record '%s' has no field '%s'", name, key))
		}
		v, err := f.convertSource(headerSource(h), fd.Kind.Kind)
		if err != nil {
			return nil, f.d.wrap(h.Line, err)
		}
		values[key] = v
	}
	df := f.in(doc).with(map[string]any{short: argsValue{values: values}})
	rec := &vals.Record{Name: name}
	for _, fd := range defs {
		v, ok := values[fd.Name]
		if !ok {
			var err error
			v, ok, err = df.defaultValue(fd)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("record '%s' is missing field '%s'", name, fd.Name)
			}
			values[fd.Name] = v
		}
		rec.Fields = append(rec.Fields, &vals.Field{Name: fd.Name, Value: v})
	}
	return rec, nil
}

// Returns the value of a field that was not given. Optional fields default
// to null and lists to the empty list. The second return value is false
// when there is no default.
func (f *frame) defaultValue(fd *FieldDef) (any, bool, error) {
	k := fd.Kind.Kind
	switch {
	case fd.Default != nil:
		v, err := f.convert(*fd.Default, fd.Kind)
		return v, err == nil, err
	case k.IsOptional():
		return vals.Optional{Elem: *k.Elem}, true, nil
	case k.IsList():
		return vals.List{Elem: *k.Elem, Items: []any{}}, true, nil
	}
	return nil, false, nil
}

// An or-type value is written either as the name of a constant variant, or
// as a single field named after the variant, like "px: 10" or
// "rgb.r: 255".
func (f *frame) orType(def *OrTypeDef, src source) (any, error) {
	if src.textOnly() {
		name := strings.TrimSpace(*src.text)
		vd := def.Variant(name)
		if vd == nil {
			return nil, fmt.Errorf("or-type '%s' has no variant '%s'", def.Name, name)
		}
		if vd.Type != ast.ConstantVariant {
			return nil, fmt.Errorf("variant '%s' of or-type '%s' needs a value", name, def.Name)
		}
		return f.in(def.doc).constant(def, vd)
	}
	if len(src.fields) == 0 {
		return nil, fmt.Errorf("a %s value needs a variant", def.Name)
	}
	var variant string
	var rest []*parse.Header
	for _, h := range src.fields {
		head, key, _ := strings.Cut(h.Key, ".")
		if variant != "" && head != variant {
			return nil, fmt.Errorf("variants '%s' and '%s' of or-type '%s' given together",
				variant, head, def.Name)
		}
		variant = head
		cp := *h
		cp.Key = key
		rest = append(rest, &cp)
	}
	vd := def.Variant(variant)
	if vd == nil {
		return nil, fmt.Errorf("or-type '%s' has no variant '%s'", def.Name, variant)
	}
	switch vd.Type {
	case ast.RegularVariant:
		if len(rest) != 1 || rest[0].Key != "" {
			return nil, fmt.Errorf("variant '%s' of or-type '%s' takes one value", variant, def.Name)
		}
		v, err := f.convertSource(headerSource(rest[0]), vd.Kind.Kind)
		if err != nil {
			return nil, err
		}
		return vals.OrType{Name: def.Name, Variant: vd.Name, Value: v}, nil
	case ast.RecordVariant:
		vsrc := source{fields: rest}
		if len(rest) == 1 && rest[0].Key == "" {
			vsrc = headerSource(rest[0])
		}
		rec, err := f.fields(def.Name+"."+vd.Name, vd.Name, vd.Fields, def.doc, vsrc)
		if err != nil {
			return nil, err
		}
		return vals.OrType{Name: def.Name, Variant: vd.Name, Value: rec}, nil
	}
	return nil, fmt.Errorf("variant '%s' of or-type '%s' is a constant", variant, def.Name)
}

func (f *frame) constant(def *OrTypeDef, vd *VariantDef) (any, error) {
	var v any
	if vd.Value != nil {
		var err error
		if v, err = f.convert(*vd.Value, vd.Kind); err != nil {
			return nil, err
		}
	}
	return vals.OrType{Name: def.Name, Variant: vd.Name, Value: v}, nil
}

// Returns the part of a qualified name after "#".
func shortName(full string) string {
	return full[strings.IndexByte(full, '#')+1:]
}
