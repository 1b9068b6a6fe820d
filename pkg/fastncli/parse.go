package fastncli

import (
	"fmt"
	"os"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

type parseCommand struct {
	emit, check bool
	format      *string
}

func (*parseCommand) Name() string { return "parse" }

func (*parseCommand) Summary() string {
	return "parse FTD files and print their section trees"
}

func (c *parseCommand) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&c.emit, "emit", false, "print the files in canonical form instead")
	fs.BoolVar(&c.check, "check", false, "also classify the sections and report what cannot be classified")
	c.format = fs.Format()
}

type parsed struct {
	File     string           `json:"file" yaml:"file"`
	Sections []*parse.Section `json:"sections" yaml:"sections"`
	err      error
}

func (c *parseCommand) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 {
		return prog.BadUsage("parse needs at least one file; use - for stdin")
	}
	results := iter.Map(args, func(file *string) parsed {
		return c.parse(fds[0], *file)
	})

	var errs error
	var ok []parsed
	for _, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, r.err)
			continue
		}
		ok = append(ok, r)
	}
	if err := c.write(fds[1], ok, len(args) > 1); err != nil {
		return err
	}
	if errs != nil {
		showErrors(fds[2], errs)
		return prog.Exit(1)
	}
	return nil
}

func (c *parseCommand) parse(stdin *os.File, file string) parsed {
	content, err := readInput(stdin, file)
	if err != nil {
		return parsed{File: file, err: err}
	}
	src := parse.Source{Name: file, Code: string(content)}
	sections, err := parse.Parse(src, parse.Config{})
	if err == nil && c.check {
		_, err = ast.FromSections(src, parse.Config{}, sections)
	}
	logger.Printf("parsed %s: %d sections", file, len(sections))
	return parsed{File: file, Sections: sections, err: err}
}

func (c *parseCommand) write(out *os.File, results []parsed, several bool) error {
	if c.emit {
		for _, r := range results {
			if several {
				fmt.Fprintf(out, "%s:\n", r.File)
			}
			fmt.Fprint(out, parse.Emit(r.Sections))
		}
		return nil
	}
	if several {
		return writeData(out, *c.format, results)
	}
	if len(results) == 1 {
		return writeData(out, *c.format, results[0].Sections)
	}
	return nil
}
