package vals

import (
	"fmt"
	"strings"
)

// Tag identifies the shape of a Kind.
type Tag uint8

// Possible values of Tag.
const (
	StringTag Tag = iota
	IntegerTag
	DecimalTag
	BooleanTag
	VoidTag
	ObjectTag
	UITag
	RecordTag
	OrTypeTag
	ListTag
	OptionalTag
	ModuleTag
)

var tagNames = [...]string{
	StringTag: "string", IntegerTag: "integer", DecimalTag: "decimal",
	BooleanTag: "boolean", VoidTag: "void", ObjectTag: "object", UITag: "ui",
	RecordTag: "record", OrTypeTag: "or-type", ListTag: "list",
	OptionalTag: "optional", ModuleTag: "module",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// Kind is a type in the FTD type system.
type Kind struct {
	Tag Tag
	// Name is the fully qualified name of a record or an or-type.
	Name string
	// Elem is the element kind of a list or an optional.
	Elem *Kind
}

// Kinds of primitive values.
var (
	String  = Kind{Tag: StringTag}
	Integer = Kind{Tag: IntegerTag}
	Decimal = Kind{Tag: DecimalTag}
	Boolean = Kind{Tag: BooleanTag}
	Void    = Kind{Tag: VoidTag}
	Object  = Kind{Tag: ObjectTag}
	UIKind  = Kind{Tag: UITag}
	ModKind = Kind{Tag: ModuleTag}
)

// ListOf returns the kind of lists of k.
func ListOf(k Kind) Kind { return Kind{Tag: ListTag, Elem: &k} }

// OptionalOf returns the kind of optional k. Optional kinds do not nest.
func OptionalOf(k Kind) Kind {
	if k.Tag == OptionalTag {
		return k
	}
	return Kind{Tag: OptionalTag, Elem: &k}
}

// RecordOf returns the kind of the record with the given qualified name.
func RecordOf(name string) Kind { return Kind{Tag: RecordTag, Name: name} }

// OrTypeOf returns the kind of the or-type with the given qualified name.
func OrTypeOf(name string) Kind { return Kind{Tag: OrTypeTag, Name: name} }

// Inner strips one level of optional.
func (k Kind) Inner() Kind {
	if k.Tag == OptionalTag {
		return *k.Elem
	}
	return k
}

// IsOptional reports whether k is an optional kind.
func (k Kind) IsOptional() bool { return k.Tag == OptionalTag }

// IsList reports whether k is a list kind.
func (k Kind) IsList() bool { return k.Tag == ListTag }

// Equal reports whether two kinds are the same.
func (k Kind) Equal(o Kind) bool {
	if k.Tag != o.Tag || k.Name != o.Name {
		return false
	}
	if k.Elem == nil || o.Elem == nil {
		return k.Elem == o.Elem
	}
	return k.Elem.Equal(*o.Elem)
}

// String returns the kind as it is written in FTD.
func (k Kind) String() string {
	switch k.Tag {
	case RecordTag, OrTypeTag:
		return k.Name
	case ListTag:
		return k.Elem.String() + " list"
	case OptionalTag:
		return "optional " + k.Elem.String()
	}
	return k.Tag.String()
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// KindData is a Kind decorated with where a value may come from.
type KindData struct {
	Kind Kind
	// Caption is set for "caption" kinds, which may take their value from
	// the caption of an invocation.
	Caption bool
	// Body is set for "body" kinds, which may take their value from the
	// body of an invocation.
	Body bool
}

func (kd KindData) String() string {
	var prefix string
	switch {
	case kd.Caption && kd.Body:
		prefix = "caption or body "
	case kd.Caption:
		prefix = "caption "
	case kd.Body:
		prefix = "body "
	}
	return prefix + kd.Kind.String()
}

// ResolveFunc resolves the name of a record or an or-type written in a kind.
type ResolveFunc func(name string) (Kind, error)

// ParseKindData parses a kind as written in FTD, like "caption string",
// "optional integer list" or "ftd.color". A bare "caption", "body" or
// "caption or body" means a string.
func ParseKindData(s string, resolve ResolveFunc) (KindData, error) {
	var kd KindData
	fields := strings.Fields(s)
	switch {
	case len(fields) >= 3 && fields[0] == "caption" && fields[1] == "or" && fields[2] == "body":
		kd.Caption, kd.Body = true, true
		fields = fields[3:]
	case len(fields) >= 1 && fields[0] == "caption":
		kd.Caption = true
		fields = fields[1:]
	case len(fields) >= 1 && fields[0] == "body":
		kd.Body = true
		fields = fields[1:]
	}
	if len(fields) == 0 {
		if kd.Caption || kd.Body {
			kd.Kind = String
			return kd, nil
		}
		return kd, fmt.Errorf("empty kind")
	}
	optional := fields[0] == "optional"
	if optional {
		fields = fields[1:]
	}
	list := len(fields) > 0 && fields[len(fields)-1] == "list"
	if list {
		fields = fields[:len(fields)-1]
	}
	if len(fields) != 1 {
		return kd, fmt.Errorf("invalid kind %q", s)
	}
	k, err := baseKind(fields[0], resolve)
	if err != nil {
		return kd, err
	}
	if list {
		k = ListOf(k)
	}
	if optional {
		k = OptionalOf(k)
	}
	kd.Kind = k
	return kd, nil
}

func baseKind(name string, resolve ResolveFunc) (Kind, error) {
	switch name {
	case "string":
		return String, nil
	case "integer":
		return Integer, nil
	case "decimal":
		return Decimal, nil
	case "boolean":
		return Boolean, nil
	case "void":
		return Void, nil
	case "object":
		return Object, nil
	case "ui":
		return UIKind, nil
	case "children":
		return ListOf(UIKind), nil
	case "module":
		return ModKind, nil
	}
	if resolve == nil {
		return Kind{}, fmt.Errorf("unknown kind %q", name)
	}
	return resolve(name)
}
