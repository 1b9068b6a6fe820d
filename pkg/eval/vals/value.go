// Package vals contains the kinds and values of FTD, and the resolved
// document tree.
//
// Values are represented by plain Go values where possible: string for
// string, int for integer, float64 for decimal and bool for boolean. The
// remaining kinds have their own types in this package: Optional, List,
// *Record, OrType, UI and Module.
package vals

// Optional is a value of an optional kind. A nil Value means null.
type Optional struct {
	Elem  Kind `json:"kind" yaml:"kind"`
	Value any  `json:"value" yaml:"value"`
}

// IsNull reports whether the optional is null.
func (o Optional) IsNull() bool { return o.Value == nil }

// List is a value of a list kind.
type List struct {
	Elem  Kind  `json:"kind" yaml:"kind"`
	Items []any `json:"items" yaml:"items"`
}

// Record is a value of a record kind. Fields are kept in declaration order.
type Record struct {
	Name   string   `json:"record" yaml:"record"`
	Fields []*Field `json:"fields" yaml:"fields"`
}

// Field is a field of a Record.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// OrType is a value of an or-type: a variant plus its payload.
type OrType struct {
	Name    string `json:"or-type" yaml:"or-type"`
	Variant string `json:"variant" yaml:"variant"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// UI is a value of kind ui: a resolved component invocation.
type UI struct {
	Node *Node `json:"ui" yaml:"ui"`
}

// Module is a value of kind module. Things lists the names the module
// defines.
type Module struct {
	Name   string   `json:"module" yaml:"module"`
	Things []string `json:"things,omitempty" yaml:"things,omitempty"`
}

// KindOf returns the kind of a value. The kind of nil is void.
func KindOf(v any) Kind {
	switch v := v.(type) {
	case string:
		return String
	case int:
		return Integer
	case float64:
		return Decimal
	case bool:
		return Boolean
	case Optional:
		return OptionalOf(v.Elem)
	case List:
		return ListOf(v.Elem)
	case *Record:
		return RecordOf(v.Name)
	case OrType:
		return OrTypeOf(v.Name)
	case UI:
		return UIKind
	case Module:
		return ModKind
	}
	return Void
}

// Unwrap returns the payload of an Optional, and v itself otherwise.
func Unwrap(v any) any {
	if o, ok := v.(Optional); ok {
		return o.Value
	}
	return v
}
