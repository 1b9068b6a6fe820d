// Package ast classifies the sections of a parse tree into the definitions
// and invocations of an FTD document.
//
// Classification is purely syntactic. Names are kept as written, kinds are
// kept as their source text and values are left unresolved; the interpreter
// in package eval gives them meaning.
package ast

import (
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

// Item is one classified top-level section. It is one of *Import, *Record,
// *OrType, *Function, *ComponentDefinition, *VariableDefinition,
// *VariableInvocation and *ComponentInvocation.
type Item interface {
	// Position returns the line of the section the item was built from.
	Position() int
}

// Import is an "-- import:" section.
type Import struct {
	Module   string
	Alias    string
	Exposing []string
	Export   []string
	Line     int
}

// Record is a "-- record <name>:" section.
type Record struct {
	Name   string
	Fields []*Field
	Line   int
}

// Field is a typed name with an optional default value. It is used for
// record fields, function parameters and component arguments.
type Field struct {
	Name string
	// Kind is the kind as written, including source markers like "caption".
	Kind    string
	Mutable bool
	Default *Value
	Line    int
}

// OrType is a "-- or-type <name>:" section.
type OrType struct {
	Name     string
	Variants []*Variant
	Line     int
}

// VariantType distinguishes the variants of an or-type.
type VariantType uint8

const (
	// RegularVariant carries a payload of a given kind, like "-- integer px:".
	RegularVariant VariantType = iota
	// RecordVariant carries a record, like "-- record rgb:".
	RecordVariant
	// ConstantVariant has a fixed value, like
	// "-- constant string fill-container: fill-container". A variant with no
	// kind at all is a constant without a value.
	ConstantVariant
)

// Variant is one variant of an or-type.
type Variant struct {
	Name   string
	Type   VariantType
	Kind   string
	Fields []*Field
	Value  *Value
	Line   int
}

// Function is a "-- <kind> <name>(<params>):" section. The body of the
// section is the expression.
type Function struct {
	Name       string
	ReturnKind string
	Params     []*Field
	Body       string
	BodyLine   int
	Line       int
}

// ComponentDefinition is a "-- component <name>:" section.
type ComponentDefinition struct {
	Name       string
	Args       []*Field
	Definition *ComponentInvocation
	Line       int
}

// VariableDefinition is a "-- <kind> <name>:" section.
type VariableDefinition struct {
	Name    string
	Kind    string
	Mutable bool
	// Value is the section itself with the special headers removed.
	Value         Value
	Conditions    []*ConditionalValue
	Processor     string
	AlwaysInclude bool
	Line          int
}

// ConditionalValue overrides the value of a variable when Condition holds.
type ConditionalValue struct {
	Condition string
	Value     Value
	Line      int
}

// VariableInvocation is a "-- $<name>:" section, which assigns to a mutable
// variable.
type VariableInvocation struct {
	Name      string
	Value     Value
	Condition string
	Processor string
	Line      int
}

// ComponentInvocation is any other section.
type ComponentInvocation struct {
	Name       string
	Properties []*Property
	Condition  string
	Loop       *Loop
	Events     []*Event
	ID         string
	Children   []*ComponentInvocation
	Line       int
}

// PropertySource records where a property was written.
type PropertySource uint8

const (
	FromHeader PropertySource = iota
	FromCaption
	FromBody
)

func (s PropertySource) String() string {
	switch s {
	case FromCaption:
		return "caption"
	case FromBody:
		return "body"
	}
	return "header"
}

// Property is an argument passed to a component. Caption and body properties
// have an empty Key; the interpreter matches them to arguments by their
// source markers.
type Property struct {
	Key       string
	Source    PropertySource
	Value     Value
	Condition string
	// Mutable is set when the key was written with a "$" prefix.
	Mutable bool
	Line    int
}

// Loop describes "for: $x, $i in $list".
type Loop struct {
	// On is the expression of the list, like "$list".
	On      string
	Alias   string
	Counter string
	Line    int
}

// Event is a "$on-<name>$: <action>" header.
type Event struct {
	Name   string
	Action string
	Line   int
}

// Value is a value as written in source. Exactly one of Text, Header and
// Section is meaningful, except that a nil Text with no Header and no
// Section is a null value.
type Value struct {
	Text *string
	// Header is a BlockRecord or SectionHeader header.
	Header *parse.Header
	// Section is used by variable definitions and invocations, whose whole
	// section is the value.
	Section *parse.Section
	Line    int
}

// IsNull reports whether v carries nothing.
func (v Value) IsNull() bool { return v.Text == nil && v.Header == nil && v.Section == nil }

// String returns the text of a Text value, the caption of a BlockRecord and
// the caption or body of a Section.
func (v Value) String() (string, bool) {
	switch {
	case v.Text != nil:
		return *v.Text, true
	case v.Header != nil:
		return v.Header.StringValue()
	case v.Section != nil:
		return v.Section.CaptionOrBody()
	}
	return "", false
}

func (i *Import) Position() int              { return i.Line }
func (r *Record) Position() int              { return r.Line }
func (o *OrType) Position() int              { return o.Line }
func (f *Function) Position() int            { return f.Line }
func (c *ComponentDefinition) Position() int { return c.Line }
func (v *VariableDefinition) Position() int  { return v.Line }
func (v *VariableInvocation) Position() int  { return v.Line }
func (c *ComponentInvocation) Position() int { return c.Line }
