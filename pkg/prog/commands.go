package prog

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Command is a subprogram selected by the first argument, like "parse" in
// "fastn parse index.ftd". The flags of a command follow its name.
type Command interface {
	Name() string
	// Summary is a one-line description shown in the usage.
	Summary() string
	RegisterFlags(fs *FlagSet)
	Run(fds [3]*os.File, args []string) error
}

// Commands returns a Program that runs one of the given commands. Without
// arguments, it returns ErrNextProgram; with an unknown command name, it
// fails with a bad usage error.
func Commands(cmds ...Command) Program { return commands(cmds) }

type commands []Command

func (cs commands) RegisterFlags(fs *FlagSet) {
	var sb strings.Builder
	for _, c := range cs {
		fmt.Fprintf(&sb, "  %-10s %s\n", c.Name(), c.Summary())
	}
	fs.commands += sb.String()
}

func (cs commands) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 {
		return ErrNextProgram
	}
	for _, c := range cs {
		if c.Name() != args[0] {
			continue
		}
		fs := &FlagSet{FlagSet: flag.NewFlagSet(c.Name(), flag.ContinueOnError)}
		fs.SetOutput(io.Discard)
		c.RegisterFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				commandUsage(fds[1], c, fs)
				return nil
			}
			fmt.Fprintln(fds[2], err)
			commandUsage(fds[2], c, fs)
			return Exit(2)
		}
		return c.Run(fds, fs.Args())
	}
	return BadUsage("unknown command: " + args[0])
}

func commandUsage(out io.Writer, c Command, fs *FlagSet) {
	fmt.Fprintf(out, "Usage: fastn %s [flags] [args]\n%s\n", c.Name(), c.Summary())
	fs.SetOutput(out)
	fs.PrintDefaults()
}
