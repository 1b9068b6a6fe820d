package diag

import (
	"errors"
	"fmt"
	"io"
)

// Shower is implemented by errors that can show themselves with context.
type Shower interface {
	// Show returns a description for the terminal. Lines after the first
	// start with indent.
	Show(indent string) string
}

// ShowError shows an error. It uses the Show method if the error, or an error
// it wraps, implements Shower, and uses Complain to print the error message
// otherwise.
func ShowError(w io.Writer, err error) {
	var shower Shower
	if errors.As(err, &shower) {
		fmt.Fprintln(w, shower.Show(""))
	} else {
		Complain(w, err.Error())
	}
}

// Complain prints a message to w in bold and red, adding a trailing newline.
func Complain(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s%s%s\n", messageStart, msg, messageEnd)
}

// Complainf is like Complain, but accepts a format string and arguments.
func Complainf(w io.Writer, format string, args ...any) {
	Complain(w, fmt.Sprintf(format, args...))
}

// Plain turns off ANSI styling in all messages and excerpts shown by this
// package. It is used when the output is not a terminal.
func Plain() {
	messageStart, messageEnd = "", ""
	culpritStart, culpritEnd = "", ""
}
