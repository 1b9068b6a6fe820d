package expr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

var errNotFound = errors.New("not found")

type testEnv map[string]any

func (e testEnv) Lookup(name string) (any, error) {
	if v, ok := e[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%s: %w", name, errNotFound)
}

// Supports one function, sum, which adds its arguments.
func (e testEnv) Call(name string, args []CallArg) (any, error) {
	if name != "sum" {
		return nil, fmt.Errorf("%s: %w", name, errNotFound)
	}
	total := 0
	for _, a := range args {
		total += a.Value.(int)
	}
	return total, nil
}

var env = testEnv{
	"x":             2,
	"ftd.dark-mode": true,
	"name":          "fastn",
	"empty":         vals.List{Elem: vals.Integer},
	"nums":          vals.List{Elem: vals.Integer, Items: []any{3, 1, 2}},
	"maybe":         vals.Optional{Elem: vals.String},
	"some":          vals.Optional{Elem: vals.Integer, Value: 5},
}

func eval(src string) (any, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Eval(n, env)
}

func TestEval(t *testing.T) {
	tt.Test(t, tt.Fn("eval", eval), tt.Table{
		// Literals
		tt.Args("1").Rets(1, nil),
		tt.Args("1.5").Rets(1.5, nil),
		tt.Args(`"a\tb"`).Rets("a\tb", nil),
		tt.Args(`'raw\n'`).Rets(`raw\n`, nil),
		tt.Args("true").Rets(true, nil),
		tt.Args("null").Rets(nil, nil),

		// Precedence and associativity
		tt.Args("1 + 2 * 3").Rets(7, nil),
		tt.Args("(1 + 2) * 3").Rets(9, nil),
		tt.Args("{ 1 + 2 } * 3").Rets(9, nil),
		tt.Args("2 ^ 3 ^ 2").Rets(512.0, nil),
		tt.Args("-2 ^ 2").Rets(-4.0, nil),
		tt.Args("10 - 4 - 3").Rets(3, nil),
		tt.Args("7 / 2").Rets(3, nil),
		tt.Args("7.0 / 2").Rets(3.5, nil),
		tt.Args("7 % 4").Rets(3, nil),
		tt.Args("!false && 1 < 2").Rets(true, nil),
		tt.Args("false || 1 == 1.0").Rets(true, nil),

		// References
		tt.Args("$x * 10").Rets(20, nil),
		tt.Args("ftd.dark-mode").Rets(true, nil),
		tt.Args("!$ftd.dark-mode").Rets(false, nil),
		tt.Args("$x-1").Rets(1, nil),
		tt.Args(`$name + "-" + $x`).Rets("fastn-2", nil),
		tt.Args("$some + 1").Rets(6, nil),
		tt.Args("$maybe == null").Rets(true, nil),

		// Tuples and sequences
		tt.Args("1, 2").Rets(vals.List{Elem: vals.Integer, Items: []any{1, 2}}, nil),
		tt.Args(`1, "a"`).Rets(vals.List{Elem: vals.Object, Items: []any{1, "a"}}, nil),
		tt.Args("1; 2").Rets(2, nil),

		// Calls
		tt.Args("len($name)").Rets(5, nil),
		tt.Args("len($nums)").Rets(3, nil),
		tt.Args("isempty($empty)").Rets(true, nil),
		tt.Args("isempty($maybe)").Rets(true, nil),
		tt.Args("isempty($name)").Rets(false, nil),
		tt.Args("min($nums)").Rets(1, nil),
		tt.Args("max(1, 2.5, 2)").Rets(2.5, nil),
		tt.Args("abs(-3)").Rets(3, nil),
		tt.Args("floor(2.7)").Rets(2, nil),
		tt.Args("ceil(2.1)").Rets(3, nil),
		tt.Args("round(2.5)").Rets(3, nil),
		tt.Args("$sum(a = 1, b = $x)").Rets(3, nil),
		tt.Args("sum(1, 2, 3)").Rets(6, nil),

		// Errors
		tt.Args("1 / 0").Rets(nil, tt.ErrorWithMessage("division by zero")),
		tt.Args(`"a" - 1`).Rets(nil, tt.ErrorWithMessage(`cannot apply - to "a" and 1`)),
		tt.Args("1 < 2 < 3").Rets(nil,
			tt.ErrorWithMessage("comparison operators cannot be chained at position 6")),
		tt.Args("1 +").Rets(nil, tt.ErrorWithMessage("unexpected end of expression at position 3")),
		tt.Args("(1").Rets(nil, tt.ErrorWithMessage(`expected ")", found end of expression at position 2`)),
		tt.Args("").Rets(nil, tt.ErrorWithMessage("empty expression at position 0")),
		tt.Args(`"open`).Rets(nil, tt.ErrorWithMessage("unterminated string at position 0")),
		tt.Args("1 @ 2").Rets(nil, tt.ErrorWithMessage(`unexpected character '@' at position 2`)),
		tt.Args("!1").Rets(nil, tt.ErrorWithMessage("cannot apply ! to 1")),
		tt.Args("len(1, 2)").Rets(nil, tt.ErrorWithMessage("len takes 1 argument, got 2")),
	})
}

func TestEval_PassesEnvErrors(t *testing.T) {
	_, err := eval("1 + $missing")
	if !errors.Is(err, errNotFound) {
		t.Errorf("got %v, want an error wrapping errNotFound", err)
	}
}

func TestEval_ShortCircuits(t *testing.T) {
	for _, src := range []string{"false && $missing", "true || $missing"} {
		if _, err := eval(src); err != nil {
			t.Errorf("%s: got error %v", src, err)
		}
	}
}

func TestEvalBool(t *testing.T) {
	tt.Test(t, tt.Fn("EvalBool", func(src string) (bool, error) {
		n, err := Parse(src)
		if err != nil {
			return false, err
		}
		return EvalBool(n, env)
	}), tt.Table{
		tt.Args("$ftd.dark-mode").Rets(true, nil),
		tt.Args("$maybe").Rets(false, nil),
		tt.Args("$x").Rets(false, tt.ErrorWithMessage("expected a boolean, got 2")),
	})
}

func TestParse_Tree(t *testing.T) {
	n, err := Parse("$ftd.toggle($a = $show, 1)")
	if err != nil {
		t.Fatal(err)
	}
	want := &Call{Func: "ftd.toggle", Args: []Arg{
		{Name: "a", Value: &Ref{"show"}},
		{Value: &Literal{1}},
	}}
	if diff := cmp.Diff(want, n); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRefs(t *testing.T) {
	n, err := Parse("$a + f($b, c = $c) * -$d")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, Refs(n)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestEval_CallArgRefs(t *testing.T) {
	var got []CallArg
	n, _ := Parse("$f($x, 1)")
	Eval(n, captureEnv{testEnv: env, args: &got})
	if len(got) != 2 || got[0].Ref != "x" || got[1].Ref != "" {
		t.Errorf("got %+v", got)
	}
}

type captureEnv struct {
	testEnv
	args *[]CallArg
}

func (e captureEnv) Call(name string, args []CallArg) (any, error) {
	*e.args = args
	return nil, nil
}
