package vals

import (
	"fmt"
	"strconv"
	"strings"
)

// Repr returns a representation of a value for error messages and
// debugging. Strings are quoted; other values are written close to how FTD
// writes them.
func Repr(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatDecimal(v)
	case bool:
		return strconv.FormatBool(v)
	case Optional:
		return Repr(v.Value)
	case List:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(Repr(item))
		}
		sb.WriteByte(']')
		return sb.String()
	case *Record:
		var sb strings.Builder
		sb.WriteString(v.Name + "{")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name + ": " + Repr(f.Value))
		}
		sb.WriteByte('}')
		return sb.String()
	case OrType:
		if v.Value == nil {
			return v.Name + "." + v.Variant
		}
		return v.Name + "." + v.Variant + "(" + Repr(v.Value) + ")"
	case UI:
		return "<ui " + v.Node.Name + ">"
	case Module:
		return "<module " + v.Name + ">"
	}
	return fmt.Sprintf("<unknown %v>", v)
}
