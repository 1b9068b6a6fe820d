package eval

import (
	"fmt"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/expr"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// A frame is where a value is resolved: a document, the local scopes of
// enclosing components and loops, and the line being interpreted. It
// implements expr.Env.
type frame struct {
	st   *state
	d    *docState
	sc   *scope
	line int
	// Depth of component expansion.
	depth int
}

func (f *frame) with(names map[string]any) *frame {
	cp := *f
	cp.sc = f.sc.with(names)
	return &cp
}

// Returns a frame for code written in another document, such as the body
// of a component or a default value. Local scopes do not carry over.
func (f *frame) in(doc string) *frame {
	return &frame{st: f.st, d: f.st.doc(doc), line: f.line, depth: f.depth}
}

// Qualifies a name written in the frame's document. Names made visible by
// "exposing" take precedence over the document's own.
func (f *frame) qualify(name string) string {
	name = strings.TrimPrefix(name, "$")
	head, rest, hasRest := strings.Cut(name, ".")
	if target, ok := f.d.exposed[head]; ok {
		if hasRest {
			return target + "." + rest
		}
		return target
	}
	return ResolveName(f.d.id, f.d.aliases, name)
}

// Finds the thing a qualified name refers to, following exports. The
// remaining path after the thing's name is returned too.
func (f *frame) thing(full string) (Thing, string, error) {
	for i := 0; i < maxExports; i++ {
		doc, path := splitQualified(full)
		name, rest := path, ""
		for {
			if t, ok := f.st.bag.Get(doc + "#" + name); ok {
				e, isExport := t.(*Export)
				if !isExport {
					return t, rest, nil
				}
				full = e.Target
				if rest != "" {
					full += "." + rest
				}
				break
			}
			j := strings.LastIndexByte(name, '.')
			if j < 0 {
				return nil, "", notFound{full}
			}
			name, rest = name[:j], joinPath(name[j+1:], rest)
		}
	}
	return nil, "", fmt.Errorf("too many exports resolving '%s'", full)
}

const maxExports = 32

func joinPath(a, b string) string {
	if b == "" {
		return a
	}
	return a + "." + b
}

// Lookup implements expr.Env.
func (f *frame) Lookup(name string) (any, error) {
	name = strings.TrimPrefix(name, "$")
	head, rest, _ := strings.Cut(name, ".")
	if head == "inherited" {
		return f.inherited(rest)
	}
	if v, ok := f.sc.get(head); ok {
		if m, ok := vals.Unwrap(v).(vals.Module); ok && rest != "" {
			return f.value(m.Name + "#" + rest)
		}
		return index(v, rest)
	}
	return f.value(f.qualify(name))
}

// Resolves inherited.colors and inherited.types. Components pass their
// colors and types properties down; without one, the defaults of ftd apply.
func (f *frame) inherited(path string) (any, error) {
	head, rest, _ := strings.Cut(path, ".")
	if v, ok := f.sc.get("inherited"); ok {
		if x, ok := v.(map[string]any)[head]; ok {
			return index(x, rest)
		}
	}
	switch head {
	case "colors":
		return f.value(joinPath(ftdDoc+"#default-colors", rest))
	case "types":
		return f.value(joinPath(ftdDoc+"#default-types", rest))
	}
	return nil, notFound{"inherited." + path}
}

// Returns the value of a qualified name.
func (f *frame) value(full string) (any, error) {
	doc, path := splitQualified(full)
	if f.st.isForeign(doc, path) {
		if v, ok := f.st.foreign[full]; ok {
			return v, nil
		}
		logger.Printf("%s needs foreign variable %s", f.d.id, full)
		return nil, suspend(&NeedsForeignVariable{Module: doc, Name: path, Caller: f.d.id,
			suspended: suspended{st: f.st}})
	}
	t, rest, err := f.thing(full)
	if err != nil {
		return nil, err
	}
	switch t := t.(type) {
	case *Variable:
		v, err := f.current(t)
		if err != nil {
			return nil, err
		}
		if m, ok := vals.Unwrap(v).(vals.Module); ok && rest != "" {
			return f.value(m.Name + "#" + rest)
		}
		return index(v, rest)
	case *OrTypeDef:
		if vd := t.Variant(rest); vd != nil && vd.Type == ast.ConstantVariant {
			return f.in(t.doc).constant(t, vd)
		}
	case *Function:
		if t.Expr == nil {
			return nil, fmt.Errorf("function '%s' can only be used in events", t.Name)
		}
		return nil, fmt.Errorf("function '%s' must be called", t.Name)
	}
	return nil, fmt.Errorf("'%s' is not a value", full)
}

// Returns the value of a variable, applying its conditional values. The last
// condition that holds wins.
func (f *frame) current(v *Variable) (any, error) {
	value := v.Value
	if len(v.Conditions) == 0 {
		return value, nil
	}
	vf := f.in(v.doc)
	for _, c := range v.Conditions {
		ok, err := expr.EvalBool(c.Condition, vf)
		if err != nil {
			return nil, err
		}
		if ok {
			value = c.Value
		}
	}
	return value, nil
}

// Call implements expr.Env.
func (f *frame) Call(name string, args []expr.CallArg) (any, error) {
	fn, err := f.function(name)
	if err != nil {
		return nil, err
	}
	if fn.Expr == nil {
		return nil, fmt.Errorf("function '%s' can only be used in events", fn.Name)
	}
	bound, err := bindArgs(fn, args)
	if err != nil {
		return nil, err
	}
	ff := f.in(fn.doc)
	names := make(map[string]any, len(fn.Params))
	for _, p := range fn.Params {
		v, ok := bound[p.Name]
		if !ok {
			if v, ok, err = ff.defaultValue(p); err != nil {
				return nil, err
			} else if !ok {
				return nil, fmt.Errorf("missing argument '%s' for function '%s'", p.Name, fn.Name)
			}
		}
		if names[p.Name], err = vals.Conform(v, p.Kind.Kind); err != nil {
			return nil, err
		}
	}
	ret, err := expr.Eval(fn.Expr, ff.with(names))
	if err != nil {
		return nil, err
	}
	return vals.Conform(ret, fn.Return.Kind)
}

func (f *frame) function(name string) (*Function, error) {
	t, rest, err := f.thing(f.qualify(name))
	if err != nil {
		return nil, err
	}
	fn, ok := t.(*Function)
	if !ok || rest != "" {
		return nil, fmt.Errorf("'%s' is not a function", strings.TrimPrefix(name, "$"))
	}
	return fn, nil
}

// Matches call arguments to parameters, by name or else by position.
func bindArgs(fn *Function, args []expr.CallArg) (map[string]any, error) {
	bound := make(map[string]any, len(args))
	pos := 0
	for _, a := range args {
		name := strings.TrimPrefix(a.Name, "$")
		if name == "" {
			if pos >= len(fn.Params) {
				return nil, fmt.Errorf("too many arguments for function '%s'", fn.Name)
			}
			name = fn.Params[pos].Name
			pos++
		} else if findField(fn.Params, name) == nil {
			return nil, fmt.Errorf("function '%s' has no parameter '%s'", fn.Name, name)
		}
		bound[name] = a.Value
	}
	return bound, nil
}

// Resolves a kind written in the frame's document.
func (f *frame) kind(s string) (vals.KindData, error) {
	return vals.ParseKindData(s, func(name string) (vals.Kind, error) {
		full := f.qualify(name)
		if full == ftdDoc+"#ui" {
			return vals.UIKind, nil
		}
		t, rest, err := f.thing(full)
		if err != nil {
			return vals.Kind{}, err
		}
		if rest == "" {
			switch t := t.(type) {
			case *RecordDef:
				return vals.RecordOf(t.Name), nil
			case *OrTypeDef:
				return vals.OrTypeOf(t.Name), nil
			}
		}
		return vals.Kind{}, fmt.Errorf("'%s' is not a type", name)
	})
}
