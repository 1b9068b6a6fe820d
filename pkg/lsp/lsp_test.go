package lsp

import (
	"testing"

	. "github.com/fastn-stack/fastn-sub010/pkg/prog/progtest"
)

func TestProgram(t *testing.T) {
	Test(t, &Program{},
		ThatFastn().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
		// The server stops when the client closes its end.
		ThatFastn("-lsp").WithStdin(""),
	)
}
