package tt

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// recordT implements the T interface and records the errors.
type recordT []string

func (t *recordT) Helper() {}

func (t *recordT) Errorf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func add(x, y int) int { return x + y }

func divmod(x, y int) (int, int) { return x / y, x % y }

func check(s string) error {
	if s == "" {
		return errors.New("empty input")
	}
	return nil
}

func TestPass(t *testing.T) {
	var rt recordT
	Test(&rt, Fn("divmod", divmod),
		Args(7, 2).Rets(3, 1),
		It("ignores a Matcher").Args(9, 4).Rets(Any, 1),
		Table{Args(1, 1).Rets(1, 0)},
	)
	if len(rt) > 0 {
		t.Errorf("Test errors when test should pass: %v", rt)
	}
}

func TestFail_DefaultFmt(t *testing.T) {
	var rt recordT
	Test(&rt, Fn("add", add), Args(1, 10).Rets(12))
	assertOneError(t, rt, "add(1, 10) returns (-want +got):\n")
}

func TestFail_NamedCase(t *testing.T) {
	var rt recordT
	Test(&rt, Fn("add", add), It("adds").Args(1, 10).Rets(12))
	assertOneError(t, rt, "adds (add(1, 10)) returns (-want +got):\n")
}

func TestFail_CustomFmt(t *testing.T) {
	var rt recordT
	Test(&rt,
		Fn("divmod", divmod).ArgsFmt("x = %d, y = %d").RetsFmt("(q = %d, r = %d)"),
		Args(7, 2).Rets(3, 2),
	)
	assertOneError(t, rt,
		"divmod(x = 7, y = 2) returns (-want +got):\n-(q = 3, r = 2)\n+(q = 3, r = 1)")
}

func TestFnValueAndErrorMatcher(t *testing.T) {
	var rt recordT
	Test(&rt, check,
		Args("").Rets(ErrorWithMessage("empty")),
		Args("x").Rets(nil),
	)
	if len(rt) > 0 {
		t.Errorf("Test errors when test should pass: %v", rt)
	}
}

func assertOneError(t *testing.T, rt recordT, wantPrefix string) {
	t.Helper()
	switch len(rt) {
	case 0:
		t.Errorf("Test didn't error when it should have done so")
	case 1:
		if !strings.HasPrefix(rt[0], wantPrefix) {
			t.Errorf("Test wrote message:\nwant: %q...\ngot:  %q", wantPrefix, rt[0])
		}
	default:
		t.Errorf("Test wrote too many error messages: %v", rt)
	}
}
