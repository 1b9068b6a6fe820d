package vals

import (
	"fmt"
	"strconv"
	"strings"
)

// WrongType is returned when a value does not have the expected kind.
type WrongType struct {
	Want Kind
	// Got is a description of the offending value.
	Got string
}

func (err WrongType) Error() string {
	return fmt.Sprintf("wrong type: need %s, got %s", err.Want, err.Got)
}

func wrongType(want Kind, v any) error {
	return WrongType{Want: want, Got: KindOf(v).String() + " " + Repr(v)}
}

// FromText converts the text of a literal to a value of a scalar kind. An
// optional kind converts the text to its element kind.
func FromText(text string, k Kind) (any, error) {
	switch k.Tag {
	case OptionalTag:
		v, err := FromText(text, *k.Elem)
		if err != nil {
			return nil, err
		}
		return Optional{Elem: *k.Elem, Value: v}, nil
	case StringTag, ObjectTag:
		return text, nil
	case IntegerTag:
		i, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, WrongType{Want: k, Got: strconv.Quote(text)}
		}
		return i, nil
	case DecimalTag:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, WrongType{Want: k, Got: strconv.Quote(text)}
		}
		return f, nil
	case BooleanTag:
		switch strings.TrimSpace(text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, WrongType{Want: k, Got: strconv.Quote(text)}
	}
	return nil, fmt.Errorf("a %s value cannot be written as text", k)
}

// Conform checks that v can be used where a value of kind k is expected,
// and returns it in the representation of k: an integer becomes a decimal
// where a decimal is expected, and values of optional kinds are wrapped in
// Optional. Null is only accepted by optional kinds.
func Conform(v any, k Kind) (any, error) {
	if k.Tag == OptionalTag {
		inner := Unwrap(v)
		if inner == nil {
			return Optional{Elem: *k.Elem}, nil
		}
		c, err := Conform(inner, *k.Elem)
		if err != nil {
			return nil, err
		}
		return Optional{Elem: *k.Elem, Value: c}, nil
	}
	v = Unwrap(v)
	if v == nil {
		if k.Tag == VoidTag {
			return nil, nil
		}
		return nil, WrongType{Want: k, Got: "null"}
	}
	switch k.Tag {
	case ObjectTag:
		return v, nil
	case DecimalTag:
		if i, ok := v.(int); ok {
			return float64(i), nil
		}
	case ListTag:
		l, ok := v.(List)
		if !ok {
			break
		}
		items := make([]any, len(l.Items))
		for i, item := range l.Items {
			c, err := Conform(item, *k.Elem)
			if err != nil {
				return nil, err
			}
			items[i] = c
		}
		return List{Elem: *k.Elem, Items: items}, nil
	}
	if KindOf(v).Equal(k) {
		return v, nil
	}
	return nil, wrongType(k, v)
}
