// Package lsp implements a language server for FTD.
package lsp

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/host"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

var logger = logutil.GetLogger("[lsp] ")

// Program is the LSP subprogram.
type Program struct {
	run bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.run, "lsp", false, "run language server instead of a command")
}

func (p *Program) Run(fds [3]*os.File, _ []string) error {
	if !p.run {
		return prog.ErrNextProgram
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newServer(packageFS())
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(transport{fds[0], fds[1]}, jsonrpc2.VSCodeObjectCodec{}),
		handler(s))
	<-conn.DisconnectNotify()
	return nil
}

// Returns the package in the working directory, or nil when there is none.
// Without a package, only the ftd document is available to imports.
func packageFS() *packageRoot {
	osfs := afero.NewOsFs()
	if ok, _ := afero.Exists(osfs, host.ConfigFile); !ok {
		return nil
	}
	cfg, err := host.LoadConfig(osfs, host.ConfigFile)
	if err != nil {
		logger.Println("not serving the package:", err)
		return nil
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		logger.Println("not serving the package:", err)
		return nil
	}
	return &packageRoot{dir: root, fs: host.NewFS(osfs, cfg)}
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
