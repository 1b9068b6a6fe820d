package eval

import (
	"github.com/xiaq/persistent/hash"
	"github.com/xiaq/persistent/hashmap"
	"github.com/xiaq/persistent/vector"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/expr"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// Thing is a named definition in a Bag. It is one of *RecordDef, *OrTypeDef,
// *Variable, *Function, *ComponentDef and *Export.
type Thing interface {
	// Doc returns the id of the document that defines the thing.
	Doc() string
}

// RecordDef is a record definition.
type RecordDef struct {
	Name   string
	Fields []*FieldDef
	Line   int
	doc    string
}

// FieldDef is a typed name: a record field, a function parameter or a
// component argument.
type FieldDef struct {
	Name    string
	Kind    vals.KindData
	Mutable bool
	Default *ast.Value
}

// OrTypeDef is an or-type definition.
type OrTypeDef struct {
	Name     string
	Variants []*VariantDef
	Line     int
	doc      string
}

// VariantDef is a variant of an or-type.
type VariantDef struct {
	Name   string
	Type   ast.VariantType
	Kind   vals.KindData
	Fields []*FieldDef
	Value  *ast.Value
}

// Variable is a variable definition together with its current value.
type Variable struct {
	Name    string
	Kind    vals.KindData
	Mutable bool
	Value   any
	// Conditions are evaluated in order each time the variable is read; the
	// last one that holds overrides Value.
	Conditions    []*CondValue
	AlwaysInclude bool
	Line          int
	doc           string
}

// CondValue is a conditional value of a Variable.
type CondValue struct {
	Source    string
	Condition expr.Node
	Value     any
}

// Function is a function definition. Built-in functions have no
// expression and can only be used as event actions.
type Function struct {
	Name   string
	Return vals.KindData
	Params []*FieldDef
	Source string
	Expr   expr.Node
	Line   int
	doc    string
}

// ComponentDef is a component definition. Primitive components have no
// body.
type ComponentDef struct {
	Name string
	Args []*FieldDef
	Body *ast.ComponentInvocation
	Line int
	doc  string
}

// Export makes a thing of another document visible under a new name.
type Export struct {
	Target string
	doc    string
}

func (r *RecordDef) Doc() string    { return r.doc }
func (o *OrTypeDef) Doc() string    { return o.doc }
func (v *Variable) Doc() string     { return v.doc }
func (f *Function) Doc() string     { return f.doc }
func (c *ComponentDef) Doc() string { return c.doc }
func (e *Export) Doc() string       { return e.doc }

// IsPrimitive reports whether the component is implemented by the renderer
// rather than by a body.
func (c *ComponentDef) IsPrimitive() bool { return c.Body == nil }

// Arg returns the argument with the given name.
func (c *ComponentDef) Arg(name string) *FieldDef { return findField(c.Args, name) }

// Field returns the field with the given name.
func (r *RecordDef) Field(name string) *FieldDef { return findField(r.Fields, name) }

// Variant returns the variant with the given name.
func (o *OrTypeDef) Variant(name string) *VariantDef {
	for _, v := range o.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func findField(fields []*FieldDef, name string) *FieldDef {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Bag maps fully qualified names to things. It is an immutable value: Set
// returns a new Bag sharing structure with the old one, so the built-in bag
// can be shared by every interpreter.
type Bag struct {
	m     hashmap.Map
	names vector.Vector
}

func equalString(a, b any) bool { return a.(string) == b.(string) }

func hashString(a any) uint32 { return hash.String(a.(string)) }

// NewBag returns an empty Bag.
func NewBag() Bag {
	return Bag{hashmap.New(equalString, hashString), vector.Empty}
}

// Get returns the thing with the given qualified name.
func (b Bag) Get(name string) (Thing, bool) {
	v, ok := b.m.Index(name)
	if !ok {
		return nil, false
	}
	return v.(Thing), true
}

// Set returns a Bag where name is bound to t.
func (b Bag) Set(name string, t Thing) Bag {
	names := b.names
	if _, exists := b.m.Index(name); !exists {
		names = names.Cons(name)
	}
	return Bag{b.m.Assoc(name, t), names}
}

// Len returns the number of things.
func (b Bag) Len() int { return b.m.Len() }

// Names returns all names in the order they were first defined.
func (b Bag) Names() []string {
	names := make([]string, 0, b.names.Len())
	for it := b.names.Iterator(); it.HasElem(); it.Next() {
		names = append(names, it.Elem().(string))
	}
	return names
}
