package eval

import (
	"errors"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

// A document being interpreted.
type docState struct {
	id    string
	src   parse.Source
	cfg   parse.Config
	items []ast.Item
	// Index of the next item to interpret.
	next int
	// Import aliases to document ids.
	aliases map[string]string
	// Names made visible with "exposing", to qualified names.
	exposed     map[string]string
	foreignVars []string
	foreignFns  []string
}

// The whole interpretation. Documents are interpreted depth first: an import
// of a document that has not been loaded suspends the importing item, and
// once the host supplies the document it is pushed on the stack and
// interpreted to the end before the importing item runs again.
type state struct {
	cfg   Config
	root  string
	bag   Bag
	docs  map[string]*docState
	stack []*docState
	tree  []*vals.Node
	// Values supplied by the host.
	foreign   map[string]any
	processed map[procKey]any
}

func newState(cfg Config) *state {
	bag, ftd := builtins()
	return &state{
		cfg:       cfg,
		bag:       bag,
		docs:      map[string]*docState{ftd.id: ftd},
		foreign:   make(map[string]any),
		processed: make(map[procKey]any),
	}
}

func (st *state) newDoc(id string, src parse.Source, cfg parse.Config, items []ast.Item) *docState {
	aliases := map[string]string{ftdDoc: ftdDoc}
	for alias, target := range st.cfg.Aliases {
		aliases[alias] = target
	}
	return &docState{id: id, src: src, cfg: cfg, items: items,
		aliases: aliases, exposed: make(map[string]string)}
}

func (st *state) push(d *docState) {
	st.docs[d.id] = d
	st.stack = append(st.stack, d)
}

func (st *state) active(id string) bool {
	for _, d := range st.stack {
		if d.id == id {
			return true
		}
	}
	return false
}

// Describes the import cycle that ends by importing id again.
func (st *state) cycle(id string) string {
	var ids []string
	for _, d := range st.stack {
		if d.id == id || len(ids) > 0 {
			ids = append(ids, d.id)
		}
	}
	return strings.Join(append(ids, id), " -> ")
}

// Interprets items until the host is needed or every document is done.
func (st *state) run() (Step, error) {
	for len(st.stack) > 0 {
		d := st.stack[len(st.stack)-1]
		if d.next >= len(d.items) {
			st.stack = st.stack[:len(st.stack)-1]
			continue
		}
		item := d.items[d.next]
		err := d.wrap(item.Position(), st.item(d, item))
		if err != nil {
			var susp *suspension
			if errors.As(err, &susp) {
				return susp.step, nil
			}
			return nil, err
		}
		d.next++
	}
	return &Done{&Document{Name: st.root, Tree: st.tree, st: st}}, nil
}

func (st *state) addImported(module string, doc ImportedDocument) error {
	name := doc.Path
	if name == "" {
		name = module
	}
	src := parse.Source{Name: name, Code: doc.Source}
	cfg := parse.Config{LineOffset: doc.LineOffset}
	items, err := st.cfg.parse(src, cfg)
	if err != nil {
		return err
	}
	d := st.newDoc(module, src, cfg, items)
	d.foreignVars = doc.ForeignVariables
	d.foreignFns = doc.ForeignFunctions
	logger.Printf("loaded %s from %s, %d items", module, name, len(items))
	st.push(d)
	return nil
}

func (st *state) item(d *docState, item ast.Item) error {
	switch item := item.(type) {
	case *ast.Import:
		return st.importItem(d, item)
	case *ast.Record:
		return st.record(d, item)
	case *ast.OrType:
		return st.orType(d, item)
	case *ast.Function:
		return st.function(d, item)
	case *ast.ComponentDefinition:
		return st.componentDef(d, item)
	case *ast.VariableDefinition:
		return st.variable(d, item)
	case *ast.VariableInvocation:
		return st.assign(d, item)
	case *ast.ComponentInvocation:
		// Only the root document renders.
		if d.id != st.root {
			return nil
		}
		n, err := st.frame(d, item.Line).invoke(item)
		if err != nil {
			return err
		}
		st.tree = append(st.tree, n)
	}
	return nil
}

func (st *state) importItem(d *docState, imp *ast.Import) error {
	module := ResolveModule(d.aliases, imp.Module)
	if st.active(module) {
		return newError[CircularImportTag](d, imp.Line, nil, "circular import: %s", st.cycle(module))
	}
	if _, ok := st.docs[module]; !ok {
		caller := d.id
		if strings.HasPrefix(module, "inherited-") {
			caller = st.root
		}
		logger.Printf("%s imports %s", caller, module)
		return suspend(&NeedsImport{Module: module, Caller: caller, suspended: suspended{st: st}})
	}
	for _, name := range append(imp.Exposing, imp.Export...) {
		if _, ok := st.bag.Get(module + "#" + name); !ok && !st.isForeign(module, name) {
			return notFound{module + "#" + name}
		}
	}
	d.aliases[imp.Alias] = module
	for _, name := range imp.Exposing {
		d.exposed[name] = module + "#" + name
	}
	for _, name := range imp.Export {
		st.bag = st.bag.Set(d.id+"#"+name, &Export{Target: module + "#" + name, doc: d.id})
	}
	return nil
}

// Reports whether the host supplies the value of module#path.
func (st *state) isForeign(module, path string) bool {
	if d, ok := st.docs[module]; ok {
		for _, name := range d.foreignVars {
			if path == name || strings.HasPrefix(path, name+".") {
				return true
			}
		}
	}
	switch {
	case strings.HasSuffix(module, "/assets") && strings.HasPrefix(path, "files."):
		return true
	case module == "fastn/time" && path == "now-str":
		return true
	}
	return strings.Contains(module, "/-/")
}

// Returns the document with the given id. Documents are only missing for
// things made up in Go, which never need one for anything but errors.
func (st *state) doc(id string) *docState {
	if d, ok := st.docs[id]; ok {
		return d
	}
	return st.newDoc(id, parse.Source{Name: id}, parse.Config{}, nil)
}

func (st *state) frame(d *docState, line int) *frame {
	return &frame{st: st, d: d, line: line}
}
