package fastncli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/host"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

type interpretCommand struct {
	root, config, url string
	format            *string
}

func (*interpretCommand) Name() string { return "interpret" }

func (*interpretCommand) Summary() string {
	return "interpret a document of a package and print its resolved tree"
}

func (c *interpretCommand) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVar(&c.root, "root", ".", "the package directory")
	fs.StringVar(&c.config, "config", "", "the package configuration; defaults to fastn.yaml in -root")
	fs.StringVar(&c.url, "url", "", "the URL the current-url processor answers with")
	c.format = fs.Format()
}

type interpreted struct {
	Name string       `json:"name" yaml:"name"`
	Tree []*vals.Node `json:"tree" yaml:"tree"`
}

func (c *interpretCommand) Run(fds [3]*os.File, args []string) error {
	if len(args) != 1 {
		return prog.BadUsage("interpret needs exactly one file")
	}
	h, err := loadPackage(c.root, c.config)
	if err != nil {
		return err
	}
	h.URL = c.url

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	doc, err := h.Interpret(ctx, filepath.ToSlash(args[0]))
	if err != nil {
		showErrors(fds[2], err)
		return prog.Exit(1)
	}
	stats := h.Cache().Stats()
	logger.Printf("interpreted %s; parse cache hits %d, misses %d", doc.Name, stats.Hits, stats.Misses)
	return writeData(fds[1], *c.format, interpreted{doc.Name, doc.Tree})
}

// Opens the package in root. A missing configuration file leaves every
// setting at its default.
func loadPackage(root, config string) (*host.FS, error) {
	fsys := afero.NewOsFs()
	if config == "" {
		config = filepath.Join(root, host.ConfigFile)
	}
	cfg, err := host.LoadConfig(fsys, config)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return host.NewFS(fsys, cfg), nil
}
