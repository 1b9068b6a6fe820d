package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type showerError struct{}

func (showerError) Error() string { return "error" }

func (showerError) Show(_ string) string { return "show" }

var showErrorTests = []struct {
	name    string
	err     error
	wantBuf string
}{
	{"A Shower error", showerError{}, "show\n"},
	{"A wrapped Shower error", fmt.Errorf("x: %w", showerError{}), "show\n"},
	{"A errors.New error", errors.New("ERROR"), "\033[31;1mERROR\033[m\n"},
}

func TestShowError(t *testing.T) {
	for _, test := range showErrorTests {
		t.Run(test.name, func(t *testing.T) {
			sb := &strings.Builder{}
			ShowError(sb, test.err)
			if sb.String() != test.wantBuf {
				t.Errorf("Wrote %q, want %q", sb.String(), test.wantBuf)
			}
		})
	}
}

func TestPlain(t *testing.T) {
	setMessageMarkers(t, messageStart, messageEnd)
	setCulpritMarkers(t, culpritStart, culpritEnd)
	Plain()
	sb := &strings.Builder{}
	Complainf(sb, "bad %d", 1)
	if sb.String() != "bad 1\n" {
		t.Errorf("Wrote %q, want %q", sb.String(), "bad 1\n")
	}
}
