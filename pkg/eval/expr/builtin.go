package expr

import (
	"math"
	"unicode/utf8"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

var builtins = map[string]func([]CallArg) (any, error){
	"isempty": isEmpty,
	"len":     length,
	"min":     func(args []CallArg) (any, error) { return extreme("min", args, -1) },
	"max":     func(args []CallArg) (any, error) { return extreme("max", args, 1) },
	"abs": unaryMath("abs", func(i int) int {
		if i < 0 {
			return -i
		}
		return i
	}, math.Abs),
	"floor": rounding("floor", math.Floor),
	"ceil":  rounding("ceil", math.Ceil),
	"round": rounding("round", math.Round),
}

// IsBuiltin reports whether name is a built-in function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func oneArg(name string, args []CallArg) (any, error) {
	if len(args) != 1 {
		return nil, errorf("%s takes 1 argument, got %d", name, len(args))
	}
	return vals.Unwrap(args[0].Value), nil
}

func isEmpty(args []CallArg) (any, error) {
	v, err := oneArg("isempty", args)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil:
		return true, nil
	case string:
		return v == "", nil
	case vals.List:
		return len(v.Items) == 0, nil
	}
	return false, nil
}

func length(args []CallArg) (any, error) {
	v, err := oneArg("len", args)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case vals.List:
		return len(v.Items), nil
	case nil:
		return 0, nil
	}
	return nil, errorf("len of %s", vals.Repr(v))
}

// Takes either several numbers or one list of numbers. The result is an
// integer if every candidate is an integer.
func extreme(name string, args []CallArg, sign float64) (any, error) {
	var values []any
	if len(args) == 1 {
		if l, ok := vals.Unwrap(args[0].Value).(vals.List); ok {
			values = l.Items
		}
	}
	if values == nil {
		for _, a := range args {
			values = append(values, vals.Unwrap(a.Value))
		}
	}
	if len(values) == 0 {
		return nil, errorf("%s of nothing", name)
	}
	best := values[0]
	bestF, ok := toFloat(best)
	if !ok {
		return nil, errorf("%s of %s", name, vals.Repr(best))
	}
	for _, v := range values[1:] {
		f, ok := toFloat(v)
		if !ok {
			return nil, errorf("%s of %s", name, vals.Repr(v))
		}
		if (f-bestF)*sign > 0 {
			best, bestF = v, f
		}
	}
	for _, v := range values {
		if _, isInt := v.(int); !isInt {
			return bestF, nil
		}
	}
	return best, nil
}

func unaryMath(name string, fi func(int) int, ff func(float64) float64) func([]CallArg) (any, error) {
	return func(args []CallArg) (any, error) {
		v, err := oneArg(name, args)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case int:
			return fi(v), nil
		case float64:
			return ff(v), nil
		}
		return nil, errorf("%s of %s", name, vals.Repr(v))
	}
}

// Rounding functions return integers.
func rounding(name string, f func(float64) float64) func([]CallArg) (any, error) {
	return func(args []CallArg) (any, error) {
		v, err := oneArg(name, args)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case int:
			return v, nil
		case float64:
			return int(f(v)), nil
		}
		return nil, errorf("%s of %s", name, vals.Repr(v))
	}
}
