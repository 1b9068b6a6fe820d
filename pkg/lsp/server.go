package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/diag"
	"github.com/fastn-stack/fastn-sub010/pkg/eval"
	"github.com/fastn-stack/fastn-sub010/pkg/host"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// The package a server checks imports against.
type packageRoot struct {
	dir string
	fs  *host.FS
}

type server struct {
	pkg     *packageRoot
	content map[lsp.DocumentURI]string
	// Diagnostics are computed in the background; the package resolver is
	// not safe for concurrent use.
	diagMu sync.Mutex
}

func newServer(pkg *packageRoot) *server {
	return &server{pkg: pkg, content: make(map[lsp.DocumentURI]string)}
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/hover":      s.hover,
		"textDocument/completion": s.completion,

		"textDocument/didClose": s.didClose,
		// Required by spec.
		"initialized": noop,
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			CompletionProvider: &lsp.CompletionOptions{},
			HoverProvider:      true,
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.content[uri] = content
	go s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// ContentChanges includes full text since the server is only advertised to
	// support that; see the initialize method.
	uri, content := params.TextDocument.URI, params.ContentChanges[0].Text
	s.content[uri] = content
	go s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	delete(s.content, params.TextDocument.URI)
	return nil, nil
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	content := s.content[params.TextDocument.URI]
	items, _ := ast.Parse(parse.Source{Name: string(params.TextDocument.URI), Code: content}, parse.Config{})
	item := itemAt(items, params.Position.Line+1)
	if item == nil {
		return lsp.Hover{}, nil
	}
	rg := lspRangeFromRange(content, diag.LineRanging(content, item.Position()))
	return lsp.Hover{
		Contents: []lsp.MarkedString{{Language: "ftd", Value: describe(item)}},
		Range:    &rg,
	}, nil
}

// Returns the last item starting at or before the given 1-based line.
func itemAt(items []ast.Item, line int) ast.Item {
	var found ast.Item
	for _, item := range items {
		if item.Position() > line {
			break
		}
		found = item
	}
	return found
}

func describe(item ast.Item) string {
	switch item := item.(type) {
	case *ast.Import:
		if item.Alias != "" {
			return "import " + item.Module + " as " + item.Alias
		}
		return "import " + item.Module
	case *ast.Record:
		return "record " + item.Name + fields(item.Fields)
	case *ast.OrType:
		var sb strings.Builder
		sb.WriteString("or-type " + item.Name)
		for _, v := range item.Variants {
			sb.WriteString("\n  " + v.Name)
		}
		return sb.String()
	case *ast.Function:
		params := make([]string, len(item.Params))
		for i, p := range item.Params {
			params[i] = p.Kind + " " + p.Name
		}
		return fmt.Sprintf("%s %s(%s)", item.ReturnKind, item.Name, strings.Join(params, ", "))
	case *ast.ComponentDefinition:
		return "component " + item.Name + fields(item.Args)
	case *ast.VariableDefinition:
		name := item.Name
		if item.Mutable {
			name = "$" + name
		}
		if item.Processor != "" {
			return fmt.Sprintf("%s %s (from %s)", item.Kind, name, item.Processor)
		}
		return item.Kind + " " + name
	case *ast.VariableInvocation:
		return "update of $" + item.Name
	case *ast.ComponentInvocation:
		return "invocation of " + item.Name
	}
	return ""
}

func fields(fs []*ast.Field) string {
	var sb strings.Builder
	for _, f := range fs {
		sb.WriteString("\n  " + f.Kind + " " + f.Name)
	}
	return sb.String()
}

func (s *server) completion(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	dot := lspPositionToIdx(content, params.Position)
	from := dot
	for from > 0 && isNameByte(content[from-1]) {
		from--
	}
	prefix := strings.TrimPrefix(content[from:dot], "$")
	replace := lspRangeFromRange(content, diag.Ranging{From: dot - len(prefix), To: dot})

	items, _ := ast.Parse(parse.Source{Name: string(params.TextDocument.URI), Code: content}, parse.Config{})
	candidates := append(builtinCandidates(), documentCandidates(items)...)
	lspItems := []lsp.CompletionItem{}
	for _, c := range candidates {
		if !strings.HasPrefix(c.Label, prefix) {
			continue
		}
		c.TextEdit = &lsp.TextEdit{Range: replace, NewText: c.Label}
		lspItems = append(lspItems, c)
	}
	return lspItems, nil
}

func isNameByte(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9' ||
		b == '-' || b == '_' || b == '.' || b == '$'
}

var (
	builtinOnce  sync.Once
	builtinItems []lsp.CompletionItem
)

func builtinCandidates() []lsp.CompletionItem {
	builtinOnce.Do(func() {
		step, err := eval.Interpret("lsp", "", eval.Config{})
		done, ok := step.(*eval.Done)
		if err != nil || !ok {
			return
		}
		for _, name := range eval.BuiltinNames() {
			t, _ := done.Document.Lookup(name)
			builtinItems = append(builtinItems,
				lsp.CompletionItem{Label: name, Kind: thingKind(t), Detail: "ftd"})
		}
	})
	return append([]lsp.CompletionItem(nil), builtinItems...)
}

func thingKind(t eval.Thing) lsp.CompletionItemKind {
	switch t.(type) {
	case *eval.ComponentDef:
		return lsp.CIKClass
	case *eval.RecordDef:
		return lsp.CIKStruct
	case *eval.OrTypeDef:
		return lsp.CIKEnum
	case *eval.Function:
		return lsp.CIKFunction
	}
	return lsp.CIKVariable
}

func documentCandidates(items []ast.Item) []lsp.CompletionItem {
	var cs []lsp.CompletionItem
	add := func(name string, kind lsp.CompletionItemKind) {
		cs = append(cs, lsp.CompletionItem{Label: name, Kind: kind})
	}
	for _, item := range items {
		switch item := item.(type) {
		case *ast.Import:
			alias := item.Alias
			if alias == "" {
				alias = item.Module[strings.LastIndexByte(item.Module, '/')+1:]
			}
			add(alias, lsp.CIKModule)
		case *ast.Record:
			add(item.Name, lsp.CIKStruct)
		case *ast.OrType:
			add(item.Name, lsp.CIKEnum)
		case *ast.Function:
			add(item.Name, lsp.CIKFunction)
		case *ast.ComponentDefinition:
			add(item.Name, lsp.CIKClass)
		case *ast.VariableDefinition:
			add(item.Name, lsp.CIKVariable)
		}
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Label < cs[j].Label })
	return cs
}

func (s *server) publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: s.diagnostics(ctx, uri, content)})
}

// Interpretation stops silently when it needs a value only a running host
// can supply.
var errStop = errors.New("needs the host")

type importError struct {
	module string
	err    error
}

func (e importError) Error() string { return e.module + ": " + e.err.Error() }
func (e importError) Unwrap() error { return e.err }

// Answers imports from the package, if there is one, and stops at
// everything else.
type resolver struct{ pkg *packageRoot }

func (r resolver) Import(ctx context.Context, module, caller string) (eval.ImportedDocument, error) {
	if r.pkg == nil {
		return eval.ImportedDocument{}, errStop
	}
	doc, err := r.pkg.fs.Import(ctx, module, caller)
	if err != nil {
		return doc, importError{module, err}
	}
	return doc, nil
}

func (resolver) ForeignVariable(context.Context, string, string, string) (any, error) {
	return nil, errStop
}

func (resolver) Processor(context.Context, *eval.NeedsProcessor) (any, error) {
	return nil, errStop
}

func (s *server) docID(uri lsp.DocumentURI) string {
	if s.pkg != nil {
		p := strings.TrimPrefix(string(uri), "file://")
		if rel, err := filepath.Rel(s.pkg.dir, p); err == nil && !strings.HasPrefix(rel, "..") {
			return s.pkg.fs.DocumentID(filepath.ToSlash(rel))
		}
	}
	return string(uri)
}

func (s *server) diagnostics(ctx context.Context, uri lsp.DocumentURI, content string) []lsp.Diagnostic {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()

	name := s.docID(uri)
	cfg := eval.Config{}
	if s.pkg != nil {
		cfg = s.pkg.fs.EvalConfig()
	}
	step, err := eval.Interpret(name, content, cfg)
	if entries := parse.UnpackErrors(err); len(entries) > 0 {
		diags := make([]lsp.Diagnostic, len(entries))
		for i, err := range entries {
			diags[i] = lsp.Diagnostic{
				Range:    lspRangeFromRange(content, err),
				Severity: lsp.Error,
				Source:   "parse",
				Message:  err.Message,
			}
		}
		return diags
	}
	// The root document may fail before its first suspension.
	if err == nil {
		_, err = host.Run(ctx, step, resolver{s.pkg})
	}
	if err == nil || errors.Is(err, errStop) {
		return []lsp.Diagnostic{}
	}
	logger.Printf("%s: %v", name, err)
	var ie importError
	if errors.As(err, &ie) {
		items, _ := ast.Parse(parse.Source{Name: name, Code: content}, parse.Config{})
		aliases := map[string]string{"ftd": "ftd"}
		for alias, target := range cfg.Aliases {
			aliases[alias] = target
		}
		for _, item := range items {
			imp, ok := item.(*ast.Import)
			if !ok {
				continue
			}
			module := eval.ResolveModule(aliases, imp.Module)
			aliases[imp.Alias] = module
			if module == ie.module {
				return []lsp.Diagnostic{{
					Range:    lspRangeFromRange(content, diag.LineRanging(content, imp.Line)),
					Severity: lsp.Error,
					Source:   "interpret",
					Message:  ie.err.Error(),
				}}
			}
		}
		return []lsp.Diagnostic{}
	}
	if dctx, msg, ok := errorContext(err); ok && dctx.Name == name {
		return []lsp.Diagnostic{{
			Range:    lspRangeFromRange(content, dctx.Ranging),
			Severity: lsp.Error,
			Source:   "interpret",
			Message:  msg,
		}}
	}
	return []lsp.Diagnostic{}
}

// Finds the context of an interpreter error.
func errorContext(err error) (diag.Context, string, bool) {
	for _, as := range []func(error) (diag.Context, string, bool){
		contextAs[eval.NotFoundTag], contextAs[eval.TypeMismatchTag],
		contextAs[eval.CircularImportTag], contextAs[eval.ProcessorTag],
		contextAs[eval.ErrorTag],
	} {
		if ctx, msg, ok := as(err); ok {
			return ctx, msg, true
		}
	}
	return diag.Context{}, "", false
}

func contextAs[T diag.ErrorTag](err error) (diag.Context, string, bool) {
	var e *diag.Error[T]
	if errors.As(err, &e) {
		return e.Context, e.Message, true
	}
	return diag.Context{}, "", false
}

func lspRangeFromRange(s string, r diag.Ranger) lsp.Range {
	rg := r.Range()
	if rg.From < 0 {
		return lsp.Range{}
	}
	return lsp.Range{
		Start: lspPositionFromIdx(s, rg.From),
		End:   lspPositionFromIdx(s, rg.To),
	}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	lastCR := false

	for i, r := range s {
		if !f(i, p) {
			return
		}
		switch {
		case r == '\r':
			p.Line++
			p.Character = 0
		case r == '\n':
			if lastCR {
				// Ignore \n if it's part of a \r\n sequence
			} else {
				p.Line++
				p.Character = 0
			}
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
		lastCR = r == '\r'
	}
	f(len(s), p)
}
