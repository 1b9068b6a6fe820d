package prog_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
	. "github.com/fastn-stack/fastn-sub010/pkg/prog"
	"github.com/fastn-stack/fastn-sub010/pkg/prog/progtest"
	"github.com/fastn-stack/fastn-sub010/pkg/testutil"
)

var (
	Test      = progtest.Test
	ThatFastn = progtest.ThatFastn
)

func TestCommonFlagHandling(t *testing.T) {
	dir := testutil.TempDir(t)
	cpuprof := dir + "/cpuprof"

	Test(t, testProgram{},
		ThatFastn("-bad-flag").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -bad-flag\nUsage:"),
		// -h is treated as a bad flag
		ThatFastn("-h").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -h\nUsage:"),

		ThatFastn("-help").
			WritesStdoutContaining("Usage: fastn [flags] <command>"),

		ThatFastn("-cpuprofile", cpuprof).DoesNothing(),
		ThatFastn("-cpuprofile", "/a/bad/path").
			WritesStderrContaining("Warning: cannot create CPU profile:"),
	)

	// Check for the effect of -cpuprofile. There isn't much to test beyond a
	// sanity check that the profile file now exists.
	_, err := os.Stat(cpuprof)
	if err != nil {
		t.Errorf("CPU profile file does not exist: %v", err)
	}
}

func TestLogFlag(t *testing.T) {
	log := testutil.TempDir(t) + "/log"
	t.Cleanup(func() { logutil.SetOutputFile("") })
	Test(t, testProgram{}, ThatFastn("-log", log).DoesNothing())
	if _, err := os.Stat(log); err != nil {
		t.Errorf("log file does not exist: %v", err)
	}
}

func TestSharedFlags(t *testing.T) {
	Test(t, &flagsProgram{},
		ThatFastn("-json", "-format", "yaml", "-db", "x.db").WritesStdout("true yaml x.db"),
		ThatFastn().WritesStdout("false json "),
	)
}

func TestNoSuitableSubprogram(t *testing.T) {
	Test(t, testProgram{nextProgram: true},
		ThatFastn().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite(t *testing.T) {
	Test(t,
		Composite(testProgram{nextProgram: true}, testProgram{writeOut: "program 2"}),
		ThatFastn().WritesStdout("program 2"),
	)
}

func TestComposite_NoSuitableSubprogram(t *testing.T) {
	Test(t,
		Composite(testProgram{nextProgram: true}, testProgram{nextProgram: true}),
		ThatFastn().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite_PreferEarlierSubprogram(t *testing.T) {
	Test(t,
		Composite(
			testProgram{writeOut: "program 1"}, testProgram{writeOut: "program 2"}),
		ThatFastn().WritesStdout("program 1"),
	)
}

func TestCommands(t *testing.T) {
	p := Composite(Commands(
		testCommand{name: "parse", out: "parsed"},
		testCommand{name: "interpret", out: "interpreted"},
	), testProgram{writeOut: "fallback"})
	Test(t, p,
		ThatFastn("parse").WritesStdout("parsed"),
		ThatFastn("interpret", "-v", "a.ftd").WritesStdout("interpreted a.ftd"),
		ThatFastn().WritesStdout("fallback"),
		ThatFastn("merge").ExitsWith(2).WritesStderrContaining("unknown command: merge\nUsage:"),
		ThatFastn("parse", "-bad").ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -bad\nUsage: fastn parse"),
		ThatFastn("parse", "-h").WritesStdoutContaining("Usage: fastn parse [flags] [args]\ntest command"),
		ThatFastn("-help").WritesStdoutContaining("Commands:\n  parse      test command\n"),
	)
}

func TestBadUsageError(t *testing.T) {
	Test(t,
		testProgram{returnErr: BadUsage("lorem ipsum")},
		ThatFastn().ExitsWith(2).WritesStderrContaining("lorem ipsum\n"),
	)
}

func TestExitError(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(3)},
		ThatFastn().ExitsWith(3),
	)
}

func TestExitError_0(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(0)},
		ThatFastn().ExitsWith(0),
	)
}

type testProgram struct {
	nextProgram bool
	writeOut    string
	returnErr   error
}

func (p testProgram) RegisterFlags(*FlagSet) {}

func (p testProgram) Run(fds [3]*os.File, args []string) error {
	if p.nextProgram {
		return ErrNextProgram
	}
	fds[1].WriteString(p.writeOut)
	return p.returnErr
}

type flagsProgram struct {
	json   *bool
	format *string
	db     *string
}

func (p *flagsProgram) RegisterFlags(fs *FlagSet) {
	p.json, p.format, p.db = fs.JSON(), fs.Format(), fs.DB()
	// Asking again returns the same flag.
	fs.JSON()
}

func (p *flagsProgram) Run(fds [3]*os.File, args []string) error {
	fmt.Fprintf(fds[1], "%v %s %s", *p.json, *p.format, *p.db)
	return nil
}

type testCommand struct {
	name, out string
	verbose   bool
}

func (c testCommand) Name() string    { return c.name }
func (c testCommand) Summary() string { return "test command" }

func (c testCommand) RegisterFlags(fs *FlagSet) {
	fs.Bool("v", false, "verbose")
}

func (c testCommand) Run(fds [3]*os.File, args []string) error {
	out := c.out
	for _, arg := range args {
		out += " " + arg
	}
	fds[1].WriteString(out)
	return nil
}
