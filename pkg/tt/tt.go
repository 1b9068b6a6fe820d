// Package tt supports table-driven tests with little boilerplate.
//
// A typical use of this package looks like this:
//
//	// Function being tested
//	func neg(i int) int { return -i }
//
//	func TestNeg(t *testing.T) {
//		tt.Test(t, neg,
//			// Unnamed test case
//			tt.Args(1).Rets(-1),
//			// Named test case
//			tt.It("returns 0 for 0").Args(0).Rets(0),
//		)
//	}
package tt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Case is a test case. It is created with [Args] or [It], and offers setters
// that augment and return itself; those calls can be chained like
// It("...").Args(...).Rets(...).
type Case struct {
	desc         string
	args         []any
	retsMatchers [][]any
}

// Table is a list of test cases. It exists so that older code can pass a
// slice of cases to [Test].
type Table []*Case

// It returns a new Case with the given description.
func It(desc string) *Case {
	return &Case{desc: desc}
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Args sets the arguments of the Case and returns itself.
func (c *Case) Args(args ...any) *Case {
	c.args = args
	return c
}

// Rets modifies the test case so that it requires the return values to match
// the given values. It returns the receiver. The arguments may implement the
// [Matcher] interface, in which case its Match method is called with the
// actual return value. Otherwise, [cmp.Equal] is used to determine matches.
func (c *Case) Rets(matchers ...any) *Case {
	c.retsMatchers = append(c.retsMatchers, matchers)
	return c
}

// FnDescriptor describes a function to test.
type FnDescriptor struct {
	name    string
	body    any
	argsFmt string
	retsFmt string
}

// Fn makes a new FnDescriptor with the given name and function body.
func Fn(name string, body any) *FnDescriptor {
	return &FnDescriptor{name: name, body: body}
}

// ArgsFmt sets the string for formatting arguments in test error messages,
// and returns fn itself.
func (fn *FnDescriptor) ArgsFmt(s string) *FnDescriptor {
	fn.argsFmt = s
	return fn
}

// RetsFmt sets the string for formatting return values in test error
// messages, and returns fn itself.
func (fn *FnDescriptor) RetsFmt(s string) *FnDescriptor {
	fn.retsFmt = s
	return fn
}

// T is the interface for accessing testing.T.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test tests a function against test cases. The fn argument is either a
// *FnDescriptor or a function value, in which case the name shown in error
// messages is derived from its type. The cases argument is a mix of *Case
// and Table values.
func Test(t T, fn any, cases ...any) {
	t.Helper()
	desc, ok := fn.(*FnDescriptor)
	if !ok {
		desc = &FnDescriptor{name: reflect.TypeOf(fn).String(), body: fn}
	}
	for _, c := range flatten(cases) {
		rets := call(desc.body, c.args)
		for _, retsMatcher := range c.retsMatchers {
			if match(retsMatcher, rets) {
				continue
			}
			var args string
			if desc.argsFmt == "" {
				args = sprintCommaDelimited(c.args...)
			} else {
				args = fmt.Sprintf(desc.argsFmt, c.args...)
			}
			var diff string
			if desc.retsFmt == "" {
				diff = cmp.Diff(retsMatcher, rets, cmp.Exporter(func(reflect.Type) bool { return true }))
			} else {
				diff = "-" + fmt.Sprintf(desc.retsFmt, retsMatcher...) +
					"\n+" + fmt.Sprintf(desc.retsFmt, rets...)
			}
			if c.desc == "" {
				t.Errorf("%s(%s) returns (-want +got):\n%s", desc.name, args, diff)
			} else {
				t.Errorf("%s (%s(%s)) returns (-want +got):\n%s", c.desc, desc.name, args, diff)
			}
		}
	}
}

func flatten(cases []any) []*Case {
	var flat []*Case
	for _, c := range cases {
		switch c := c.(type) {
		case *Case:
			flat = append(flat, c)
		case Table:
			flat = append(flat, c...)
		default:
			panic(fmt.Sprintf("tt.Test: bad case type %T", c))
		}
	}
	return flat
}

// RetValue is an empty interface used in the [Matcher] interface.
type RetValue any

// Matcher wraps the Match method.
type Matcher interface {
	// Match reports whether a return value is considered a match. The
	// argument is of type RetValue so that it cannot be implemented
	// accidentally.
	Match(RetValue) bool
}

// Any is a Matcher that matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(RetValue) bool { return true }

// ErrorWithMessage returns a Matcher that matches a non-nil error whose
// message contains the given text.
func ErrorWithMessage(text string) Matcher { return errorMatcher{text} }

type errorMatcher struct{ text string }

func (m errorMatcher) Match(v RetValue) bool {
	err, ok := v.(error)
	return ok && err != nil && strings.Contains(err.Error(), m.text)
}

func match(matchers, actual []any) bool {
	for i, matcher := range matchers {
		if m, ok := matcher.(Matcher); ok {
			if !m.Match(actual[i]) {
				return false
			}
		} else if !cmp.Equal(matcher, actual[i], cmp.Exporter(func(reflect.Type) bool { return true })) {
			return false
		}
	}
	return true
}

func sprintCommaDelimited(args ...any) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, arg)
	}
	return sb.String()
}

func call(fn any, args []any) []any {
	fnType := reflect.TypeOf(fn)
	argsReflect := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) returns a zero Value; use a zero value of
			// the parameter type instead.
			var t reflect.Type
			if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
				t = fnType.In(fnType.NumIn() - 1).Elem()
			} else {
				t = fnType.In(i)
			}
			argsReflect[i] = reflect.Zero(t)
		} else {
			argsReflect[i] = reflect.ValueOf(arg)
		}
	}
	retsReflect := reflect.ValueOf(fn).Call(argsReflect)
	rets := make([]any, len(retsReflect))
	for i, retReflect := range retsReflect {
		rets[i] = retReflect.Interface()
	}
	return rets
}
