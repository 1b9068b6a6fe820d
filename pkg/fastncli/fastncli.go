// Package fastncli implements the commands of the fastn program that work
// on FTD documents and on the store of package files and CRs.
package fastncli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/fastn-stack/fastn-sub010/pkg/diag"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

var logger = logutil.GetLogger("[fastncli] ")

// Program runs the commands of this package.
var Program = prog.Commands(
	&parseCommand{}, &interpretCommand{},
	&fileCommand{}, &crCommand{}, &mergeCommand{})

// Shows every error in err on w, with source excerpts when an error has
// them. Styling is used only on terminals.
func showErrors(w *os.File, err error) {
	if !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd()) {
		diag.Plain()
	}
	for _, e := range multierr.Errors(err) {
		diag.ShowError(w, e)
	}
}

// Writes v in the given format.
func writeData(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return prog.BadUsage(fmt.Sprintf("unknown format %q, want json or yaml", format))
}

// Reads the named file, or stdin for "-".
func readInput(stdin *os.File, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func parseCRNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, prog.BadUsage(fmt.Sprintf("bad CR number %q", s))
	}
	return n, nil
}
