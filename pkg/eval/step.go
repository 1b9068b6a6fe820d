package eval

import (
	"errors"
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
)

// Step is the result of advancing the interpreter. It is one of
// *NeedsImport, *NeedsForeignVariable, *NeedsProcessor and *Done. Every
// step except Done must be resumed exactly once for interpretation to
// continue; abandoning a step cancels the interpretation.
type Step interface {
	step()
}

// ErrResumed is returned when a step is resumed more than once.
var ErrResumed = errors.New("step already resumed")

type suspended struct {
	st   *state
	used bool
}

func (s *suspended) take() (*state, error) {
	if s.used {
		return nil, ErrResumed
	}
	s.used = true
	return s.st, nil
}

// NeedsImport asks the host for the document of Module.
type NeedsImport struct {
	Module string
	// Caller is the document whose import is being resolved. For modules
	// starting with "inherited-" it is the root document.
	Caller string
	suspended
}

// ImportedDocument is the host's answer to NeedsImport.
type ImportedDocument struct {
	Source string
	// Path is used in error messages. It defaults to the module name.
	Path string
	// ForeignVariables are names whose values the host supplies through
	// NeedsForeignVariable, like "files" for an assets module.
	ForeignVariables []string
	// ForeignFunctions are processors the host runs through
	// NeedsProcessor.
	ForeignFunctions []string
	LineOffset       int
}

// Resume continues with the imported document.
func (s *NeedsImport) Resume(doc ImportedDocument) (Step, error) {
	st, err := s.take()
	if err != nil {
		return nil, err
	}
	if err := st.addImported(s.Module, doc); err != nil {
		return nil, err
	}
	return st.run()
}

// NeedsForeignVariable asks the host for the value of Module#Name.
type NeedsForeignVariable struct {
	Module string
	Name   string
	Caller string
	suspended
}

// Resume continues with the value of the variable.
func (s *NeedsForeignVariable) Resume(v any) (Step, error) {
	st, err := s.take()
	if err != nil {
		return nil, err
	}
	st.foreign[s.Module+"#"+s.Name] = v
	return st.run()
}

// NeedsProcessor asks the host to run the processor Module#Name for the
// variable definition Item.
type NeedsProcessor struct {
	Module string
	Name   string
	// Doc is the id of the document containing Item.
	Doc  string
	Item *ast.VariableDefinition
	suspended
}

// Resume continues with the value the processor produced.
func (s *NeedsProcessor) Resume(v any) (Step, error) {
	st, err := s.take()
	if err != nil {
		return nil, err
	}
	st.processed[procKey{s.Doc, s.Item.Line}] = v
	return st.run()
}

// Fail ends the interpretation with a processor error wrapping err.
func (s *NeedsProcessor) Fail(err error) error {
	st, terr := s.take()
	if terr != nil {
		return terr
	}
	d := st.docs[s.Doc]
	return newError[ProcessorTag](d, s.Item.Line, err, "%s#%s: %v", s.Module, s.Name, err)
}

// Done carries the interpreted document.
type Done struct {
	Document *Document
}

func (*NeedsImport) step()          {}
func (*NeedsForeignVariable) step() {}
func (*NeedsProcessor) step()       {}
func (*Done) step()                 {}

type procKey struct {
	doc  string
	line int
}

// A suspension travels as an error from the place that needs something to
// the interpreter loop, which turns it into a Step.
type suspension struct {
	step Step
}

func (s *suspension) Error() string { return fmt.Sprintf("suspended on %T", s.step) }

func suspend(st Step) error { return &suspension{st} }
