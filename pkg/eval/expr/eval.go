package expr

import (
	"fmt"
	"math"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// Env supplies references and user-defined functions to Eval. Errors
// returned by Env are passed through Eval unchanged.
type Env interface {
	Lookup(name string) (any, error)
	Call(name string, args []CallArg) (any, error)
}

// CallArg is an evaluated argument of a call. Ref is the referenced name
// when the argument was written as a plain reference.
type CallArg struct {
	Name  string
	Value any
	Ref   string
}

// Eval evaluates n.
func Eval(n Node, env Env) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Ref:
		return env.Lookup(n.Name)
	case *Unary:
		x, err := Eval(n.X, env)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, vals.Unwrap(x))
	case *Binary:
		return binary(n, env)
	case *Call:
		args := make([]CallArg, len(n.Args))
		for i, a := range n.Args {
			v, err := Eval(a.Value, env)
			if err != nil {
				return nil, err
			}
			args[i] = CallArg{Name: a.Name, Value: v}
			if ref, ok := a.Value.(*Ref); ok {
				args[i].Ref = ref.Name
			}
		}
		if f, ok := builtins[n.Func]; ok {
			return f(args)
		}
		return env.Call(n.Func, args)
	case *Tuple:
		items := make([]any, len(n.Items))
		for i, item := range n.Items {
			v, err := Eval(item, env)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return vals.List{Elem: commonKind(items), Items: items}, nil
	case *Seq:
		var last any
		for _, item := range n.Items {
			v, err := Eval(item, env)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, &Error{Message: fmt.Sprintf("unknown node %T", n), Pos: -1}
}

// EvalBool evaluates n as a condition. Null is false; any other non-boolean
// value is an error.
func EvalBool(n Node, env Env) (bool, error) {
	v, err := Eval(n, env)
	if err != nil {
		return false, err
	}
	return truth(v)
}

func truth(v any) (bool, error) {
	switch v := vals.Unwrap(v).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, errorf("expected a boolean, got %s", vals.Repr(v))
	}
}

func errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: -1}
}

func commonKind(items []any) vals.Kind {
	if len(items) == 0 {
		return vals.Object
	}
	k := vals.KindOf(items[0])
	for _, item := range items[1:] {
		if !vals.KindOf(item).Equal(k) {
			return vals.Object
		}
	}
	return k
}

func unary(op string, x any) (any, error) {
	switch op {
	case "!":
		b, ok := x.(bool)
		if !ok {
			return nil, errorf("cannot apply ! to %s", vals.Repr(x))
		}
		return !b, nil
	case "-":
		switch x := x.(type) {
		case int:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, errorf("cannot negate %s", vals.Repr(x))
	}
	return nil, errorf("unknown operator %s", op)
}

func binary(n *Binary, env Env) (any, error) {
	x, err := Eval(n.X, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "&&", "||":
		l, err := truth(x)
		if err != nil {
			return nil, err
		}
		if l == (n.Op == "||") {
			return l, nil
		}
		y, err := Eval(n.Y, env)
		if err != nil {
			return nil, err
		}
		return truth(y)
	}
	y, err := Eval(n.Y, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "==":
		return vals.Equal(x, y), nil
	case "!=":
		return !vals.Equal(x, y), nil
	case "<", "<=", ">", ">=":
		return compare(n.Op, vals.Unwrap(x), vals.Unwrap(y))
	}
	return arith(n.Op, vals.Unwrap(x), vals.Unwrap(y))
}

func compare(op string, x, y any) (bool, error) {
	var c int
	if xs, ok := x.(string); ok {
		ys, ok := y.(string)
		if !ok {
			return false, errorf("cannot compare %s with %s", vals.Repr(x), vals.Repr(y))
		}
		c = cmpOrdered(xs, ys)
	} else {
		xf, ok1 := toFloat(x)
		yf, ok2 := toFloat(y)
		if !ok1 || !ok2 {
			return false, errorf("cannot compare %s with %s", vals.Repr(x), vals.Repr(y))
		}
		c = cmpOrdered(xf, yf)
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func cmpOrdered[T int | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func arith(op string, x, y any) (any, error) {
	if op == "+" {
		_, xs := x.(string)
		_, ys := y.(string)
		if xs || ys {
			return vals.ToString(x) + vals.ToString(y), nil
		}
	}
	xi, xInt := x.(int)
	yi, yInt := y.(int)
	if xInt && yInt && op != "^" {
		switch op {
		case "+":
			return xi + yi, nil
		case "-":
			return xi - yi, nil
		case "*":
			return xi * yi, nil
		case "/", "%":
			if yi == 0 {
				return nil, errorf("division by zero")
			}
			if op == "/" {
				return xi / yi, nil
			}
			return xi % yi, nil
		}
	}
	xf, ok1 := toFloat(x)
	yf, ok2 := toFloat(y)
	if !ok1 || !ok2 {
		return nil, errorf("cannot apply %s to %s and %s", op, vals.Repr(x), vals.Repr(y))
	}
	switch op {
	case "+":
		return xf + yf, nil
	case "-":
		return xf - yf, nil
	case "*":
		return xf * yf, nil
	case "/":
		if yf == 0 {
			return nil, errorf("division by zero")
		}
		return xf / yf, nil
	case "%":
		if yf == 0 {
			return nil, errorf("division by zero")
		}
		return math.Mod(xf, yf), nil
	case "^":
		return math.Pow(xf, yf), nil
	}
	return nil, errorf("unknown operator %s", op)
}
