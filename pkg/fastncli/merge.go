package fastncli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/merge"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
)

type mergeCommand struct {
	db, format  *string
	file, style string
	apply       bool
}

func (*mergeCommand) Name() string { return "merge" }

func (*mergeCommand) Summary() string {
	return "merge a CR into main (<n> main), or main into a CR (main <n>)"
}

func (c *mergeCommand) RegisterFlags(fs *prog.FlagSet) {
	c.db, c.format = fs.DB(), fs.Format()
	fs.StringVar(&c.file, "file", "", "merge only this package file")
	fs.BoolVar(&c.apply, "apply", false, "apply the plan when it has no conflicts")
	fs.StringVar(&c.style, "style", "merge", "conflict markers, merge or diff3")
}

func (c *mergeCommand) Run(fds [3]*os.File, args []string) error {
	if len(args) != 2 {
		return prog.BadUsage("merge needs a source and a destination")
	}
	var style merge.Style
	switch c.style {
	case "merge":
		style = merge.StyleMerge
	case "diff3":
		style = merge.StyleDiff3
	default:
		return prog.BadUsage(fmt.Sprintf("unknown style %q, want merge or diff3", c.style))
	}
	var run func(context.Context, merge.Store, int, merge.Options) (*cr.Plan, error)
	var number string
	switch {
	case args[1] == "main" && args[0] != "main":
		run, number = merge.CRIntoMain, args[0]
	case args[0] == "main" && args[1] != "main":
		run, number = merge.MainIntoCR, args[1]
	default:
		return prog.BadUsage("one of source and destination must be main and the other a CR number")
	}
	n, err := parseCRNumber(number)
	if err != nil {
		return err
	}

	st, err := openStore(*c.db)
	if err != nil {
		return err
	}
	defer st.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	plan, err := run(ctx, st, n, merge.Options{File: c.file, Apply: c.apply, Style: style})
	if err != nil {
		return err
	}
	if err := writeData(fds[1], *c.format, plan); err != nil {
		return err
	}
	if !plan.Clean() {
		return prog.Exit(1)
	}
	return nil
}
