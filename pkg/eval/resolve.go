package eval

import (
	"strconv"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// ResolveName returns the fully qualified name of a name written in
// document doc, where aliases maps import aliases to document ids:
//
//   - A name containing "#" is already qualified.
//   - For "m.rest", if m is an alias, the result is aliases[m]#rest.
//   - Otherwise the name belongs to doc.
//
// A leading "$" is ignored.
func ResolveName(doc string, aliases map[string]string, name string) string {
	name = strings.TrimPrefix(name, "$")
	if strings.Contains(name, "#") {
		return name
	}
	if head, rest, ok := strings.Cut(name, "."); ok {
		if target, ok := aliases[head]; ok {
			return target + "#" + rest
		}
	}
	return doc + "#" + name
}

// ResolveModule expands the first segment of a module path through aliases.
// The first segment ends at the first "/" or ".".
func ResolveModule(aliases map[string]string, module string) string {
	i := strings.IndexAny(module, "/.")
	head, rest := module, ""
	if i >= 0 {
		head, rest = module[:i], module[i:]
	}
	if target, ok := aliases[head]; ok {
		return target + rest
	}
	return module
}

// Splits a qualified name into the document id and the dotted path.
func splitQualified(name string) (string, string) {
	doc, path, _ := strings.Cut(name, "#")
	return doc, path
}

// A scope holds names that shadow the document's things: component
// arguments, loop aliases and counters, and function parameters.
type scope struct {
	names  map[string]any
	parent *scope
}

func (s *scope) get(name string) (any, bool) {
	for ; s != nil; s = s.parent {
		if v, ok := s.names[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) with(names map[string]any) *scope {
	return &scope{names: names, parent: s}
}

// argsValue is how the arguments of a component are stored in a scope,
// under the component's name. refs keeps the variables bound to mutable
// arguments.
type argsValue struct {
	values map[string]any
	refs   map[string]string
}

// Descends into v along a dotted path.
func index(v any, path string) (any, error) {
	if path == "" {
		return v, nil
	}
	head, rest, _ := strings.Cut(path, ".")
	switch vv := vals.Unwrap(v).(type) {
	case *vals.Record:
		f, ok := vv.Get(head)
		if !ok {
			return nil, notFound{vv.Name + "." + head}
		}
		return index(f, rest)
	case argsValue:
		f, ok := vv.values[head]
		if !ok {
			return nil, notFound{head}
		}
		return index(f, rest)
	case vals.List:
		i, err := strconv.Atoi(head)
		if err != nil || i < 0 || i >= len(vv.Items) {
			return nil, notFound{path}
		}
		return index(vv.Items[i], rest)
	case vals.OrType:
		if head == vv.Variant {
			return index(vv.Value, rest)
		}
		return index(vv.Value, path)
	case nil:
		return nil, nil
	}
	return nil, notFound{path}
}
