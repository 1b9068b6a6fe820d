package parse

import (
	"testing"
)

func FuzzParse(f *testing.F) {
	f.Add("-- foo: bar\n")
	f.Add("-- foo:\nstyle: bold\nstyle.weight: 700\n")
	f.Add("-- ftd.row:\n\n-- ftd.row.left:\n\n-- ftd.text: a\n\n-- end: ftd.row.left\n")
	f.Add("-- a:\n--- b: 1\n\n\\-- c ;; d\n")
	f.Fuzz(func(t *testing.T, code string) {
		secs, err := Parse(Source{Name: "fuzz", Code: code}, Config{})
		if err != nil {
			return
		}
		// Emitting any accepted tree must not panic either.
		Emit(secs)
	})
}
