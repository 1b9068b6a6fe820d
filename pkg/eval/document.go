package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// Document is the result of interpreting a document.
type Document struct {
	Name string       `json:"name" yaml:"name"`
	Tree []*vals.Node `json:"tree" yaml:"tree"`
	st   *state
}

// Lookup returns the thing with the given name, written as it would be in
// the document. Exports are followed.
func (d *Document) Lookup(name string) (Thing, bool) {
	f := d.st.frame(d.st.doc(d.Name), 0)
	t, rest, err := f.thing(f.qualify(name))
	if err != nil || rest != "" {
		return nil, false
	}
	return t, true
}

// Names returns the names the document defines, in definition order.
func (d *Document) Names() []string {
	prefix := d.Name + "#"
	var names []string
	for _, name := range d.st.bag.Names() {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name[len(prefix):])
		}
	}
	return names
}

// Bag returns the symbol bag at the end of the interpretation.
func (d *Document) Bag() Bag { return d.st.bag }

// Value returns the current value of a variable, or of a field of one,
// written as it would be in the document.
func (d *Document) Value(name string) (any, error) {
	f := d.st.frame(d.st.doc(d.Name), 0)
	v, err := f.Lookup(name)
	var susp *suspension
	if errors.As(err, &susp) {
		return nil, fmt.Errorf("'%s' needs a value from the host", name)
	}
	return v, err
}
