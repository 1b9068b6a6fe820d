package testutil

import (
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

func TestDedent(t *testing.T) {
	tt.Test(t, tt.Fn("Dedent", Dedent),
		tt.It("removes nothing without a common margin").
			Args(" \n  foo\n bar").Rets("\n foo\nbar"),
		tt.It("removes the initial newline").
			Args(`
			a
			 b
			c`).Rets("a\n b\nc"),
		tt.It("keeps a trailing newline").
			Args(`
			a
			c
			`).Rets("a\nc\n"),
		tt.It("removes as much whitespace as is common").
			Args(`
				a
			b`).Rets("\ta\nb"),
	)
}
