package eval

import (
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/expr"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// Adds a thing defined by document d. Things are registered before their
// parts are resolved, so records and components may refer to themselves.
func (st *state) define(d *docState, name string, line int, t Thing) error {
	full := d.id + "#" + name
	if _, exists := st.bag.Get(full); exists {
		return newError[ErrorTag](d, line, nil, "'%s' is already defined", name)
	}
	st.bag = st.bag.Set(full, t)
	return nil
}

func (st *state) fieldDefs(f *frame, fields []*ast.Field) ([]*FieldDef, error) {
	defs := make([]*FieldDef, len(fields))
	for i, fd := range fields {
		kd, err := f.kind(fd.Kind)
		if err != nil {
			return nil, f.d.wrap(fd.Line, err)
		}
		defs[i] = &FieldDef{Name: fd.Name, Kind: kd, Mutable: fd.Mutable, Default: fd.Default}
	}
	return defs, nil
}

func (st *state) record(d *docState, r *ast.Record) error {
	def := &RecordDef{Name: d.id + "#" + r.Name, Line: r.Line, doc: d.id}
	if err := st.define(d, r.Name, r.Line, def); err != nil {
		return err
	}
	fields, err := st.fieldDefs(st.frame(d, r.Line), r.Fields)
	def.Fields = fields
	return err
}

func (st *state) orType(d *docState, o *ast.OrType) error {
	def := &OrTypeDef{Name: d.id + "#" + o.Name, Line: o.Line, doc: d.id}
	if err := st.define(d, o.Name, o.Line, def); err != nil {
		return err
	}
	f := st.frame(d, o.Line)
	for _, v := range o.Variants {
		vd := &VariantDef{Name: v.Name, Type: v.Type, Value: v.Value}
		switch {
		case v.Type == ast.RecordVariant:
			fields, err := st.fieldDefs(f, v.Fields)
			if err != nil {
				return err
			}
			vd.Fields = fields
		case v.Kind != "":
			kd, err := f.kind(v.Kind)
			if err != nil {
				return d.wrap(v.Line, err)
			}
			vd.Kind = kd
		case v.Value != nil:
			vd.Kind = vals.KindData{Kind: vals.String}
		default:
			vd.Kind = vals.KindData{Kind: vals.Void}
		}
		def.Variants = append(def.Variants, vd)
	}
	return nil
}

func (st *state) function(d *docState, fn *ast.Function) error {
	f := st.frame(d, fn.Line)
	ret, err := f.kind(fn.ReturnKind)
	if err != nil {
		return err
	}
	params, err := st.fieldDefs(f, fn.Params)
	if err != nil {
		return err
	}
	n, err := expr.Parse(fn.Body)
	if err != nil {
		return d.wrap(fn.BodyLine, err)
	}
	return st.define(d, fn.Name, fn.Line, &Function{Name: d.id + "#" + fn.Name,
		Return: ret, Params: params, Source: fn.Body, Expr: n, Line: fn.Line, doc: d.id})
}

func (st *state) componentDef(d *docState, c *ast.ComponentDefinition) error {
	def := &ComponentDef{Name: d.id + "#" + c.Name, Body: c.Definition, Line: c.Line, doc: d.id}
	if err := st.define(d, c.Name, c.Line, def); err != nil {
		return err
	}
	args, err := st.fieldDefs(st.frame(d, c.Line), c.Args)
	def.Args = args
	return err
}

// A variable is added only once its value and all its conditional values
// are resolved, since resolving them may suspend.
func (st *state) variable(d *docState, v *ast.VariableDefinition) error {
	f := st.frame(d, v.Line)
	kd, err := f.kind(v.Kind)
	if err != nil {
		return err
	}
	var value any
	if v.Processor != "" {
		value, err = f.processor(v, kd)
	} else {
		value, err = f.convert(v.Value, kd)
	}
	if err != nil {
		return err
	}
	conds := make([]*CondValue, len(v.Conditions))
	for i, c := range v.Conditions {
		n, err := expr.Parse(c.Condition)
		if err != nil {
			return d.wrap(c.Line, err)
		}
		cv, err := f.convert(c.Value, kd)
		if err != nil {
			return err
		}
		conds[i] = &CondValue{Source: c.Condition, Condition: n, Value: cv}
	}
	return st.define(d, v.Name, v.Line, &Variable{Name: d.id + "#" + v.Name, Kind: kd,
		Mutable: v.Mutable, Value: value, Conditions: conds,
		AlwaysInclude: v.AlwaysInclude, Line: v.Line, doc: d.id})
}

// Runs the processor named in a variable definition. The host is asked
// once per definition; the answer is kept for when the item runs again.
func (f *frame) processor(v *ast.VariableDefinition, kd vals.KindData) (any, error) {
	module, name := splitQualified(f.qualify(v.Processor))
	if !f.st.declaresProcessor(module, name) {
		return nil, fmt.Errorf("unknown processor '%s'", v.Processor)
	}
	if value, ok := f.st.processed[procKey{f.d.id, v.Line}]; ok {
		return vals.Conform(value, kd.Kind)
	}
	logger.Printf("%s needs processor %s#%s", f.d.id, module, name)
	return nil, suspend(&NeedsProcessor{Module: module, Name: name, Doc: f.d.id, Item: v,
		suspended: suspended{st: f.st}})
}

func (st *state) declaresProcessor(module, name string) bool {
	if d, ok := st.docs[module]; ok {
		for _, fn := range d.foreignFns {
			if fn == name {
				return true
			}
		}
	}
	return IsProcessor(name)
}

// Processors are the processor names every host is expected to know.
var Processors = []string{
	"http", "toc", "sitemap", "full-sitemap", "request-data",
	"document-readers", "document-writers", "user-group-by-id",
	"get-identities", "document-id", "package-tree", "fetch-file",
	"sql-query", "sql-execute", "sql-batch", "package-query", "pg",
	"current-language", "current-url", "translation-info",
	"figma-typo-token", "figma-cs-token", "figma-cs-token-old",
}

// IsProcessor reports whether name is one of Processors.
func IsProcessor(name string) bool {
	for _, p := range Processors {
		if p == name {
			return true
		}
	}
	return false
}

// Assigns to a mutable variable.
func (st *state) assign(d *docState, a *ast.VariableInvocation) error {
	f := st.frame(d, a.Line)
	if a.Condition != "" {
		n, err := expr.Parse(a.Condition)
		if err != nil {
			return err
		}
		if ok, err := expr.EvalBool(n, f); err != nil || !ok {
			return err
		}
	}
	full := f.qualify(a.Name)
	t, rest, err := f.thing(full)
	if err != nil {
		return err
	}
	v, ok := t.(*Variable)
	switch {
	case !ok:
		return fmt.Errorf("'%s' is not a variable", a.Name)
	case rest != "":
		return fmt.Errorf("cannot assign to '%s', only to whole variables", a.Name)
	case !v.Mutable:
		return fmt.Errorf("variable '%s' is not mutable", a.Name)
	}
	var value any
	if a.Processor != "" {
		value, err = f.processor(&ast.VariableDefinition{Name: a.Name, Kind: v.Kind.String(),
			Processor: a.Processor, Line: a.Line}, v.Kind)
	} else {
		value, err = f.convert(a.Value, v.Kind)
	}
	if err != nil {
		return err
	}
	cp := *v
	cp.Value = value
	st.bag = st.bag.Set(v.Name, &cp)
	return nil
}

// Reports whether a qualified name is a mutable variable.
func (st *state) mutable(full string) bool {
	t, rest, err := (&frame{st: st}).thing(full)
	if err != nil || rest != "" {
		return false
	}
	v, ok := t.(*Variable)
	return ok && v.Mutable
}
