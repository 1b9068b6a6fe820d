package vals

import (
	"math"
	"strconv"
	"strings"
)

// ToString converts a value to the text that is shown when the value is
// used as text, like in the caption of ftd.text. Null is the empty string.
func ToString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatDecimal(v)
	case bool:
		return strconv.FormatBool(v)
	case Optional:
		return ToString(v.Value)
	case OrType:
		if v.Value != nil {
			return ToString(v.Value)
		}
		return v.Variant
	}
	return Repr(v)
}

// Decimals always have a point, so that 2.0 does not read as an integer.
func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return s + ".0"
	}
	return s
}
