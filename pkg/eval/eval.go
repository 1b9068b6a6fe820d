// Package eval implements the FTD interpreter.
//
// The interpreter is a state machine driven by its host. [Interpret] starts
// interpreting a document and returns a [Step]. When the interpreter needs
// something only the host can supply, such as the source of an imported
// document, the step describes the request and the host continues by calling
// its Resume method. Interpretation ends with a [*Done] step carrying the
// resolved [Document].
//
// The interpreter does no I/O of its own and never blocks. Between two steps
// all the work is synchronous, so the same inputs always produce the same
// steps.
package eval

import (
	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

var logger = logutil.GetLogger("[eval] ")

// Config keeps configuration options of an interpretation.
type Config struct {
	// Aliases is the initial alias map of every document, mapping import
	// aliases to document ids. The alias "ftd" is always present.
	Aliases map[string]string
	// LineOffset is added to the line numbers of the root document.
	LineOffset int
	// AllowUnknownArgs makes invocations with properties that the component
	// does not declare legal; such properties are dropped.
	AllowUnknownArgs bool
	// Parse parses documents into items. It defaults to ast.Parse; hosts
	// set it to share parsed documents between interpretations.
	Parse func(parse.Source, parse.Config) ([]ast.Item, error)
}

func (cfg *Config) parse(src parse.Source, pcfg parse.Config) ([]ast.Item, error) {
	if cfg.Parse != nil {
		return cfg.Parse(src, pcfg)
	}
	return ast.Parse(src, pcfg)
}

// Interpret starts interpreting the document with the given id and source.
// Parse errors of the root document are returned directly.
func Interpret(name, source string, cfg Config) (Step, error) {
	src := parse.Source{Name: name, Code: source}
	pcfg := parse.Config{LineOffset: cfg.LineOffset}
	items, err := cfg.parse(src, pcfg)
	if err != nil {
		return nil, err
	}
	st := newState(cfg)
	st.push(st.newDoc(name, src, pcfg, items))
	st.root = name
	return st.run()
}
