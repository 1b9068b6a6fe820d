package vals

import "reflect"

// Equal returns whether two values are equal. Optionals compare by their
// payload, and an integer equals a decimal with the same value.
func Equal(x, y any) bool {
	x, y = Unwrap(x), Unwrap(y)
	switch x := x.(type) {
	case nil:
		return y == nil
	case int:
		switch y := y.(type) {
		case int:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := y.(type) {
		case int:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	case string:
		return x == y
	case bool:
		return x == y
	case List:
		yy, ok := y.(List)
		if !ok || len(x.Items) != len(yy.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], yy.Items[i]) {
				return false
			}
		}
		return true
	case *Record:
		yy, ok := y.(*Record)
		if !ok || x.Name != yy.Name || len(x.Fields) != len(yy.Fields) {
			return false
		}
		for i, f := range x.Fields {
			if f.Name != yy.Fields[i].Name || !Equal(f.Value, yy.Fields[i].Value) {
				return false
			}
		}
		return true
	case OrType:
		yy, ok := y.(OrType)
		return ok && x.Name == yy.Name && x.Variant == yy.Variant && Equal(x.Value, yy.Value)
	}
	return reflect.DeepEqual(x, y)
}
