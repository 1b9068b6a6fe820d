package host

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/eval"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

type processor func(h *FS, ctx context.Context, req *eval.NeedsProcessor) (any, error)

var processors = map[string]processor{
	"document-id":      (*FS).documentID,
	"current-language": (*FS).currentLanguage,
	"current-url":      (*FS).currentURL,
	"fetch-file":       (*FS).fetchFile,
	"toc":              (*FS).toc,
	"package-tree":     (*FS).packageTree,
}

// Processor implements Resolver.
func (h *FS) Processor(ctx context.Context, req *eval.NeedsProcessor) (any, error) {
	logger.Printf("%s:%d runs processor %s", req.Doc, req.Item.Line, req.Name)
	p, ok := processors[req.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProcessorNotFound, req.Name)
	}
	return p(h, ctx, req)
}

// Returns the URL path of a document: "/" for the package itself, and
// "/<path>/" for the others.
func (h *FS) urlOf(doc string) string {
	rel, ok := strings.CutPrefix(doc, h.cfg.Package+"/")
	if !ok || rel == "" {
		return "/"
	}
	return "/" + rel + "/"
}

func (h *FS) documentID(_ context.Context, req *eval.NeedsProcessor) (any, error) {
	return h.urlOf(req.Doc), nil
}

func (h *FS) currentLanguage(context.Context, *eval.NeedsProcessor) (any, error) {
	return h.cfg.Language, nil
}

func (h *FS) currentURL(_ context.Context, req *eval.NeedsProcessor) (any, error) {
	if h.URL != "" {
		return h.URL, nil
	}
	return h.urlOf(req.Doc), nil
}

// The file is named by the "file" header, relative to the package root.
func (h *FS) fetchFile(_ context.Context, req *eval.NeedsProcessor) (any, error) {
	name, ok := headerValue(req.Item.Value.Section, "file")
	if !ok {
		return nil, fmt.Errorf("fetch-file needs a file header")
	}
	data, err := afero.ReadFile(h.fs, path.Clean(strings.TrimPrefix(name, "/")))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func headerValue(s *parse.Section, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	if hd := s.Header(key); hd != nil {
		v, ok := hd.StringValue()
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	return "", false
}

var (
	tocItem     = vals.RecordOf(FastnModule + "#toc-item")
	packageItem = vals.RecordOf(FastnModule + "#package-item")
)

func item(kind vals.Kind, name, url string, children []any) *vals.Record {
	u := vals.Optional{Elem: vals.String}
	if url != "" {
		u.Value = url
	}
	if children == nil {
		children = []any{}
	}
	field := "title"
	if kind.Equal(packageItem) {
		field = "name"
	}
	return &vals.Record{Name: kind.Name, Fields: []*vals.Field{
		{Name: field, Value: name},
		{Name: "url", Value: u},
		{Name: "children", Value: vals.List{Elem: kind, Items: children}},
	}}
}

// The body of a toc variable is an indented list:
//
//	-- fastn.toc-item list toc:
//	$processor$: toc
//
//	- Home: /
//	  - Install: /install/
//	- About
func (h *FS) toc(_ context.Context, req *eval.NeedsProcessor) (any, error) {
	s := req.Item.Value.Section
	if s == nil || s.Body == nil {
		return vals.List{Elem: tocItem, Items: []any{}}, nil
	}
	items, err := parseTOC(s.Body.Value)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", s.Body.Line, err)
	}
	return vals.List{Elem: tocItem, Items: items}, nil
}

type tocEntry struct {
	indent     int
	title, url string
	children   []*tocEntry
}

func parseTOC(text string) ([]any, error) {
	root := &tocEntry{indent: -1}
	stack := []*tocEntry{root}
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" {
			continue
		}
		rest, ok := strings.CutPrefix(trimmed, "- ")
		if !ok {
			return nil, fmt.Errorf("toc line %d must start with '- ': %q", i+1, line)
		}
		e := &tocEntry{indent: len(line) - len(trimmed)}
		e.title, e.url, _ = strings.Cut(rest, ":")
		e.title, e.url = strings.TrimSpace(e.title), strings.TrimSpace(e.url)
		for stack[len(stack)-1].indent >= e.indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, e)
		stack = append(stack, e)
	}
	return tocItems(root.children), nil
}

func tocItems(entries []*tocEntry) []any {
	items := make([]any, len(entries))
	for i, e := range entries {
		items[i] = item(tocItem, e.title, e.url, tocItems(e.children))
	}
	return items
}

// Lists the documents of the package as a tree of directories. A directory
// has a URL when it has an index document.
func (h *FS) packageTree(ctx context.Context, _ *eval.NeedsProcessor) (any, error) {
	items, _, err := h.tree(ctx, ".")
	if err != nil {
		return nil, err
	}
	return vals.List{Elem: packageItem, Items: items}, nil
}

func (h *FS) tree(ctx context.Context, dir string) (items []any, hasIndex bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	infos, err := afero.ReadDir(h.fs, dir)
	if err != nil {
		return nil, false, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	for _, info := range infos {
		name := info.Name()
		p := path.Join(dir, name)
		switch {
		case strings.HasPrefix(name, ".") || name == "-":
			// Hidden files, dependencies and CRs.
		case info.IsDir():
			children, index, err := h.tree(ctx, p)
			if err != nil {
				return nil, false, err
			}
			url := ""
			if index {
				url = h.urlOf(h.DocumentID(p))
			}
			if index || len(children) > 0 {
				items = append(items, item(packageItem, name, url, children))
			}
		case name == "index.ftd":
			hasIndex = true
		case strings.HasSuffix(name, ".ftd"):
			items = append(items, item(packageItem, name, h.urlOf(h.DocumentID(p)), nil))
		}
	}
	return items, hasIndex, nil
}
