package fastncli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/host"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
	"github.com/fastn-stack/fastn-sub010/pkg/store"
)

// Opens the store at db, or the one named in fastn.yaml of the working
// directory.
func openStore(db string) (store.DBStore, error) {
	if db == "" {
		cfg, err := host.LoadConfig(afero.NewOsFs(), host.ConfigFile)
		if err != nil {
			return nil, err
		}
		db = cfg.DB
	}
	logger.Println("opening store", db)
	return store.NewStore(db)
}

// A command with subcommands working on the store, like "fastn cr show 1".
type storeCommand struct {
	db     *string
	format *string
}

func (c *storeCommand) registerFlags(fs *prog.FlagSet) {
	c.db, c.format = fs.DB(), fs.Format()
}

type subcommand struct {
	usage string
	nargs int
	run   func(fds [3]*os.File, st store.DBStore, args []string) error
}

func (c *storeCommand) dispatch(fds [3]*os.File, args []string, subs map[string]subcommand) error {
	if len(args) == 0 {
		return prog.BadUsage("missing subcommand")
	}
	sub, ok := subs[args[0]]
	if !ok {
		return prog.BadUsage("unknown subcommand: " + args[0])
	}
	if len(args)-1 < sub.nargs {
		return prog.BadUsage("usage: " + args[0] + " " + sub.usage)
	}
	st, err := openStore(*c.db)
	if err != nil {
		return err
	}
	defer st.Close()
	return sub.run(fds, st, args[1:])
}

type fileCommand struct{ storeCommand }

func (*fileCommand) Name() string { return "file" }

func (*fileCommand) Summary() string {
	return "write, delete and show package files in the store"
}

func (c *fileCommand) RegisterFlags(fs *prog.FlagSet) { c.registerFlags(fs) }

func (c *fileCommand) Run(fds [3]*os.File, args []string) error {
	return c.dispatch(fds, args, map[string]subcommand{
		"write":    {"<path> [<source>|-]", 1, c.write},
		"delete":   {"<path>", 1, c.delete},
		"show":     {"<path> [<version>]", 1, c.show},
		"versions": {"<path>", 1, c.versions},
		"list":     {"", 0, c.list},
	})
}

func (c *fileCommand) write(fds [3]*os.File, st store.DBStore, args []string) error {
	source := "-"
	if len(args) > 1 {
		source = args[1]
	}
	content, err := readInput(fds[0], source)
	if err != nil {
		return err
	}
	v, err := st.Write(cr.Clean(args[0]), content)
	if err != nil {
		return err
	}
	fmt.Fprintf(fds[1], "%s: version %d\n", cr.Clean(args[0]), v)
	return nil
}

func (c *fileCommand) delete(fds [3]*os.File, st store.DBStore, args []string) error {
	v, err := st.Delete(cr.Clean(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(fds[1], "%s: deleted at version %d\n", cr.Clean(args[0]), v)
	return nil
}

func (c *fileCommand) show(fds [3]*os.File, st store.DBStore, args []string) error {
	path := cr.Clean(args[0])
	var content []byte
	var err error
	if len(args) > 1 {
		v, verr := strconv.Atoi(args[1])
		if verr != nil {
			return prog.BadUsage(fmt.Sprintf("bad version %q", args[1]))
		}
		content, err = st.History(path, v)
	} else {
		content, _, err = st.Latest(path)
	}
	if err != nil {
		return err
	}
	_, err = fds[1].Write(content)
	return err
}

func (c *fileCommand) versions(fds [3]*os.File, st store.DBStore, args []string) error {
	vs, err := st.Versions(cr.Clean(args[0]))
	if err != nil {
		return err
	}
	return writeData(fds[1], *c.format, vs)
}

func (c *fileCommand) list(fds [3]*os.File, st store.DBStore, _ []string) error {
	m, err := st.Manifest()
	if err != nil {
		return err
	}
	return writeData(fds[1], *c.format, m.Main())
}
