// Package prog provides the entry point to fastn. The subprograms live in
// other packages: the language server in pkg/lsp, version information in
// pkg/buildinfo, and the commands working on documents and CRs in
// pkg/fastncli.
package prog

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
)

// Flags common to all subprograms.
type flags struct {
	log, cpuProfile string
	help            bool
}

func newFlagSet(f *flags) *FlagSet {
	fs := &FlagSet{FlagSet: flag.NewFlagSet("fastn", flag.ContinueOnError)}
	// Error and usage will be printed explicitly.
	fs.SetOutput(io.Discard)

	fs.StringVar(&f.log, "log", "", "a file to write debug log to")
	fs.StringVar(&f.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.BoolVar(&f.help, "help", false, "show usage help and quit")
	return fs
}

func usage(out io.Writer, fs *FlagSet) {
	fmt.Fprintln(out, "Usage: fastn [flags] <command> [command flags] [args]")
	if fs.commands != "" {
		fmt.Fprintln(out, "Commands:")
		fmt.Fprint(out, fs.commands)
	}
	fmt.Fprintln(out, "Supported flags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// Run parses command-line flags and runs the first applicable subprogram. It
// returns the exit status of the program.
func Run(fds [3]*os.File, args []string, p Program) int {
	f := &flags{}
	fs := newFlagSet(f)
	p.RegisterFlags(fs)

	err := fs.Parse(args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			// (*flag.FlagSet).Parse returns ErrHelp when -h or -help was
			// requested but *not* defined. fastn defines -help, but not -h; so
			// this means that -h has been requested. Handle this by printing
			// the same message as an undefined flag.
			fmt.Fprintln(fds[2], "flag provided but not defined: -h")
		} else {
			fmt.Fprintln(fds[2], err)
		}
		usage(fds[2], fs)
		return 2
	}

	if f.cpuProfile != "" {
		f, err := os.Create(f.cpuProfile)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot create CPU profile:", err)
			fmt.Fprintln(fds[2], "Continuing without CPU profiling.")
		} else {
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}
	}

	if f.log != "" {
		err = logutil.SetOutputFile(f.log)
		if err != nil {
			fmt.Fprintln(fds[2], err)
		}
	}

	if f.help {
		usage(fds[1], fs)
		return 0
	}

	err = p.Run(fds, fs.Args())
	if err == nil {
		return 0
	}
	if err == ErrNextProgram {
		err = errNoSuitableSubprogram
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(fds[2], msg)
	}
	var bu badUsageError
	var ex exitError
	switch {
	case errors.As(err, &bu):
		usage(fds[2], fs)
	case errors.As(err, &ex):
		return ex.exit
	}
	return 2
}

// Composite returns a Program made up from other programs. It runs the
// first program that does not return ErrNextProgram.
func Composite(programs ...Program) Program {
	return composite(programs)
}

type composite []Program

func (cp composite) RegisterFlags(f *FlagSet) {
	for _, p := range cp {
		p.RegisterFlags(f)
	}
}

func (cp composite) Run(fds [3]*os.File, args []string) error {
	for _, p := range cp {
		err := p.Run(fds, args)
		if err != ErrNextProgram {
			return err
		}
	}
	// If we have reached here, all subprograms have returned ErrNextProgram
	return ErrNextProgram
}

// ErrNextProgram is a special error that may be returned by Program.Run that
// is part of a Composite program, indicating that the next program should be
// tried.
var ErrNextProgram = errors.New("next program")

var errNoSuitableSubprogram = errors.New("internal error: no suitable subprogram")

// BadUsage returns a special error that may be returned by Program.Run. It
// causes the main function to print out a message, the usage information and
// exit with 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns a special error that may be returned by Program.Run. It causes
// the main function to exit with the given code without printing any error
// messages. Exit(0) returns nil.
func Exit(exit int) error {
	if exit == 0 {
		return nil
	}
	return exitError{exit}
}

type exitError struct{ exit int }

func (e exitError) Error() string { return "" }

// Program represents a subprogram.
type Program interface {
	RegisterFlags(fs *FlagSet)
	// Run runs the subprogram.
	Run(fds [3]*os.File, args []string) error
}
