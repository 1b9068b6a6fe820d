package eval

import (
	"fmt"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/expr"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

const maxExpansionDepth = 64

func (f *frame) component(name string) (*ComponentDef, error) {
	t, rest, err := f.thing(f.qualify(name))
	if err != nil {
		return nil, err
	}
	c, ok := t.(*ComponentDef)
	if !ok || rest != "" {
		return nil, fmt.Errorf("'%s' is not a component", name)
	}
	return c, nil
}

// Resolves a component invocation.
func (f *frame) invoke(ci *ast.ComponentInvocation) (*vals.Node, error) {
	if f.depth > maxExpansionDepth {
		return nil, fmt.Errorf("components nested deeper than %d levels", maxExpansionDepth)
	}
	def, err := f.component(ci.Name)
	if err != nil {
		return nil, f.d.wrap(ci.Line, err)
	}
	if ci.Loop == nil {
		n, err := f.instance(ci, def)
		return n, f.d.wrap(ci.Line, err)
	}
	n, err := f.loop(ci, def)
	return n, f.d.wrap(ci.Line, err)
}

// A looped invocation resolves to a node holding one instance per element
// of the list, each with the element and its index in scope.
func (f *frame) loop(ci *ast.ComponentInvocation, def *ComponentDef) (*vals.Node, error) {
	l := ci.Loop
	on, err := expr.Parse(l.On)
	if err != nil {
		return nil, err
	}
	v, err := expr.Eval(on, f)
	if err != nil {
		return nil, err
	}
	n := &vals.Node{Name: def.Name, ID: ci.ID, Line: ci.Line,
		Loop: &vals.Loop{On: f.loopSubject(l.On), Alias: l.Alias, Counter: l.Counter}}
	var items []any
	switch list := vals.Unwrap(v).(type) {
	case vals.List:
		items = list.Items
	case nil:
	default:
		return nil, fmt.Errorf("cannot loop over %s", vals.Repr(v))
	}
	for i, item := range items {
		names := map[string]any{l.Alias: item}
		if l.Counter != "" {
			names[l.Counter] = i
		}
		in, err := f.with(names).instance(ci, def)
		if err != nil {
			return nil, err
		}
		n.Instances = append(n.Instances, in)
	}
	return n, nil
}

// Qualifies the list a loop iterates over when it is a plain reference.
func (f *frame) loopSubject(on string) string {
	name := strings.TrimPrefix(on, "$")
	if !strings.HasPrefix(on, "$") || strings.ContainsAny(name, " ()+*/,;!<>=") {
		return on
	}
	if _, ok := f.sc.get(strings.SplitN(name, ".", 2)[0]); ok {
		return name
	}
	return f.qualify(name)
}

func (f *frame) instance(ci *ast.ComponentInvocation, def *ComponentDef) (*vals.Node, error) {
	n := &vals.Node{Name: def.Name, ID: ci.ID, Line: ci.Line,
		Properties: make(map[string]any)}
	if ci.Condition != "" {
		c, err := expr.Parse(ci.Condition)
		if err != nil {
			return nil, err
		}
		ok, err := expr.EvalBool(c, f)
		if err != nil {
			return nil, err
		}
		n.Condition = &vals.Condition{Expression: ci.Condition, Value: ok}
	}
	if err := f.properties(ci, def, n); err != nil {
		return nil, err
	}

	// colors and types flow down to everything below this node.
	cf := &frame{st: f.st, d: f.d, sc: f.sc, line: f.line, depth: f.depth + 1}
	if inh := inheritedFrom(n.Properties, f.sc); inh != nil {
		cf = cf.with(map[string]any{"inherited": inh})
	}
	var children []any
	for _, child := range ci.Children {
		c, err := cf.invoke(child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
		children = append(children, vals.UI{Node: c})
	}
	if arg := def.Arg("children"); arg != nil && len(children) > 0 {
		n.Properties["children"] = vals.List{Elem: vals.UIKind, Items: children}
	}

	for _, ev := range ci.Events {
		e, err := f.event(ev)
		if err != nil {
			return nil, f.d.wrap(ev.Line, err)
		}
		n.Events = append(n.Events, e)
	}

	if !def.IsPrimitive() {
		bf := f.in(def.doc)
		bf.depth = cf.depth
		bf.sc = (*scope)(nil).with(map[string]any{
			shortName(def.Name): argsValue{values: n.Properties, refs: n.Refs}})
		if inh, ok := cf.sc.get("inherited"); ok {
			bf = bf.with(map[string]any{"inherited": inh})
		}
		body, err := bf.invoke(def.Body)
		if err != nil {
			return nil, err
		}
		n.Expanded = body
	}
	return n, nil
}

// Matches the properties of an invocation to the arguments of the
// component: by key, or by the caption and body markers of the argument.
// Of several properties for one argument, the last one whose condition
// holds wins.
func (f *frame) properties(ci *ast.ComponentInvocation, def *ComponentDef, n *vals.Node) error {
	used := make([]bool, len(ci.Properties))
	for _, arg := range def.Args {
		set := false
		for i, p := range ci.Properties {
			if !matches(p, arg) {
				continue
			}
			used[i] = true
			if p.Condition != "" {
				c, err := expr.Parse(p.Condition)
				if err != nil {
					return f.d.wrap(p.Line, err)
				}
				ok, err := expr.EvalBool(c, f)
				if err != nil {
					return f.d.wrap(p.Line, err)
				}
				if !ok {
					continue
				}
			}
			v, err := f.convert(p.Value, arg.Kind)
			if err != nil {
				return err
			}
			if p.Mutable {
				ref, err := f.mutableRef(p, arg)
				if err != nil {
					return f.d.wrap(p.Line, err)
				}
				if n.Refs == nil {
					n.Refs = make(map[string]string)
				}
				n.Refs[arg.Name] = ref
			}
			n.Properties[arg.Name] = v
			set = true
		}
		if set || arg.Name == "children" && len(ci.Children) > 0 {
			continue
		}
		v, ok, err := f.in(def.doc).with(map[string]any{
			shortName(def.Name): argsValue{values: n.Properties}}).defaultValue(arg)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("component '%s' is missing argument '%s'", def.Name, arg.Name)
		}
		n.Properties[arg.Name] = v
	}
	for i, p := range ci.Properties {
		if used[i] || f.st.cfg.AllowUnknownArgs {
			continue
		}
		switch p.Source {
		case ast.FromCaption, ast.FromBody:
			return f.d.wrap(p.Line, fmt.Errorf("component '%s' takes no %s", def.Name, p.Source))
		}
		return f.d.wrap(p.Line, fmt.Errorf("component '%s' has no argument '%s'", def.Name, p.Key))
	}
	return nil
}

func matches(p *ast.Property, arg *FieldDef) bool {
	switch p.Source {
	case ast.FromCaption:
		return arg.Kind.Caption
	case ast.FromBody:
		return arg.Kind.Body
	}
	return p.Key == arg.Name
}

// A "$key: $var" property binds a mutable argument to a mutable variable.
func (f *frame) mutableRef(p *ast.Property, arg *FieldDef) (string, error) {
	if !arg.Mutable {
		return "", fmt.Errorf("argument '%s' is not mutable", arg.Name)
	}
	text, _ := p.Value.String()
	ref, ok := f.ref(strings.TrimSpace(text))
	if !ok {
		return "", fmt.Errorf("argument '%s' needs a mutable variable, got '%s'", arg.Name, text)
	}
	return ref, nil
}

// Resolves a reference to a mutable variable, following mutable arguments
// of enclosing components.
func (f *frame) ref(text string) (string, bool) {
	if !strings.HasPrefix(text, "$") {
		return "", false
	}
	name := text[1:]
	head, rest, _ := strings.Cut(name, ".")
	if v, ok := f.sc.get(head); ok {
		args, isArgs := v.(argsValue)
		if !isArgs {
			return "", false
		}
		ref, ok := args.refs[rest]
		return ref, ok
	}
	full := f.qualify(name)
	return full, f.st.mutable(full)
}

func inheritedFrom(props map[string]any, sc *scope) map[string]any {
	var inh map[string]any
	for _, key := range []string{"colors", "types"} {
		v, ok := props[key]
		if !ok || vals.Unwrap(v) == nil {
			continue
		}
		if inh == nil {
			inh = make(map[string]any)
			if parent, ok := sc.get("inherited"); ok {
				for k, pv := range parent.(map[string]any) {
					inh[k] = pv
				}
			}
		}
		inh[key] = vals.Unwrap(v)
	}
	return inh
}

// Validates an event action, which must call a function, and resolves its
// arguments. Arguments written as references to mutable variables are kept
// as references.
func (f *frame) event(ev *ast.Event) (*vals.Event, error) {
	n, err := expr.Parse(ev.Action)
	if err != nil {
		return nil, err
	}
	call, ok := n.(*expr.Call)
	if !ok {
		return nil, fmt.Errorf("event action '%s' is not a function call", ev.Action)
	}
	fn, err := f.function(call.Func)
	if err != nil {
		return nil, err
	}
	e := &vals.Event{Name: ev.Name, Action: ev.Action, Function: fn.Name}
	given := make(map[string]bool)
	for i, a := range call.Args {
		name := strings.TrimPrefix(a.Name, "$")
		if name == "" {
			if i >= len(fn.Params) {
				return nil, fmt.Errorf("too many arguments for function '%s'", fn.Name)
			}
			name = fn.Params[i].Name
		}
		p := findField(fn.Params, name)
		if p == nil {
			return nil, fmt.Errorf("function '%s' has no parameter '%s'", fn.Name, name)
		}
		given[name] = true
		arg := &vals.EventArg{Name: name}
		if r, isRef := a.Value.(*expr.Ref); isRef {
			if ref, ok := f.ref("$" + strings.TrimPrefix(r.Name, "$")); ok {
				arg.Ref = ref
			}
		}
		if p.Mutable && arg.Ref == "" {
			return nil, fmt.Errorf("argument '%s' of '%s' must be a mutable variable", name, fn.Name)
		}
		v, err := expr.Eval(a.Value, f)
		if err != nil {
			return nil, err
		}
		if v, err = vals.Conform(v, p.Kind.Kind); err != nil {
			return nil, err
		}
		if arg.Ref == "" {
			arg.Value = v
		}
		e.Args = append(e.Args, arg)
	}
	for _, p := range fn.Params {
		if !given[p.Name] && p.Default == nil && !p.Kind.Kind.IsOptional() {
			return nil, fmt.Errorf("missing argument '%s' for function '%s'", p.Name, fn.Name)
		}
	}
	return e, nil
}
