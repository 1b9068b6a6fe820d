package fastncli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/prog"
	"github.com/fastn-stack/fastn-sub010/pkg/store"
)

type crCommand struct{ storeCommand }

func (*crCommand) Name() string { return "cr" }

func (*crCommand) Summary() string {
	return "create change requests and edit files in them"
}

func (c *crCommand) RegisterFlags(fs *prog.FlagSet) { c.registerFlags(fs) }

func (c *crCommand) Run(fds [3]*os.File, args []string) error {
	return c.dispatch(fds, args, map[string]subcommand{
		"create": {"<title> [<description>]", 1, c.create},
		"edit":   {"<n> <file> [<source>|-]", 2, c.edit},
		"delete": {"<n> <file>", 2, c.delete},
		"show":   {"<n>", 1, c.show},
		"list":   {"", 0, c.list},
	})
}

func (c *crCommand) create(fds [3]*os.File, st store.DBStore, args []string) error {
	n, err := st.CreateCR(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(fds[1], n)
	return nil
}

func (c *crCommand) edit(fds [3]*os.File, st store.DBStore, args []string) error {
	n, err := parseCRNumber(args[0])
	if err != nil {
		return err
	}
	source := "-"
	if len(args) > 2 {
		source = args[2]
	}
	content, err := readInput(fds[0], source)
	if err != nil {
		return err
	}
	return st.EditInCR(n, args[1], content)
}

func (c *crCommand) delete(fds [3]*os.File, st store.DBStore, args []string) error {
	n, err := parseCRNumber(args[0])
	if err != nil {
		return err
	}
	return st.DeleteInCR(n, args[1])
}

// What "cr show" prints.
type crSummary struct {
	cr.About `yaml:",inline"`
	Files    []string   `json:"files" yaml:"files"`
	Deleted  []cr.Entry `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

func (c *crCommand) show(fds [3]*os.File, st store.DBStore, args []string) error {
	n, err := parseCRNumber(args[0])
	if err != nil {
		return err
	}
	about, err := st.CRAbout(n)
	if err != nil {
		return err
	}
	deleted, err := st.Deleted(n)
	if err != nil {
		return err
	}
	m, err := st.Manifest()
	if err != nil {
		return err
	}
	files, _ := m.OfCR(n).Split()
	summary := crSummary{About: about, Files: []string{}, Deleted: deleted}
	for _, path := range files.Paths() {
		if files[path].Deleted || cr.IsDocument(n, path) {
			continue
		}
		file, err := cr.FileName(n, path)
		if err != nil {
			return err
		}
		summary.Files = append(summary.Files, file)
	}
	return writeData(fds[1], *c.format, summary)
}

func (c *crCommand) list(fds [3]*os.File, st store.DBStore, _ []string) error {
	ns, err := st.CRs()
	if err != nil {
		return err
	}
	abouts := []cr.About{}
	for _, n := range ns {
		about, err := st.CRAbout(n)
		if err != nil {
			return err
		}
		abouts = append(abouts, about)
	}
	return writeData(fds[1], *c.format, abouts)
}
