// Command fastn parses and interprets FTD documents, manages the change
// requests of a package, and serves the FTD language server.
package main

import (
	"os"

	"github.com/fastn-stack/fastn-sub010/pkg/buildinfo"
	"github.com/fastn-stack/fastn-sub010/pkg/fastncli"
	"github.com/fastn-stack/fastn-sub010/pkg/lsp"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(&buildinfo.Program{}, &lsp.Program{}, fastncli.Program)))
}
