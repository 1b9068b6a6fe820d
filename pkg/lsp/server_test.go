package lsp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/host"
	"github.com/fastn-stack/fastn-sub010/pkg/testutil"
	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

const uri = lsp.DocumentURI("file:///x/a.ftd")

func lines(diags []lsp.Diagnostic) []int {
	ls := make([]int, len(diags))
	for i, d := range diags {
		ls[i] = d.Range.Start.Line
	}
	return ls
}

func sources(diags []lsp.Diagnostic) []string {
	ss := make([]string, len(diags))
	for i, d := range diags {
		ss[i] = d.Source
	}
	return ss
}

func TestDiagnostics(t *testing.T) {
	s := newServer(nil)
	diag := func(code string) []lsp.Diagnostic {
		return s.diagnostics(context.Background(), uri, code)
	}
	tt.Test(t, tt.Fn("lines", func(code string) []int { return lines(diag(code)) }), tt.Table{
		tt.Args("-- ftd.text: hello\n").Rets([]int{}),
		tt.Args("-- ftd.text: hello\n\n-- end: ftd.row\n").Rets([]int{2}),
		tt.Args("-- integer x: 1\n-- ftd.text: $missing\n").Rets([]int{1}),
		tt.Args("-- integer x: hello\n").Rets([]int{0}),
		// Stops silently without a package.
		tt.Args("-- import: example.com/lib\n-- ftd.text: $lib.x\n").Rets([]int{}),
		tt.Args("-- string x:\n$processor$: toc\n").Rets([]int{}),
	})

	if got := sources(diag("hello\n")); !cmp.Equal(got, []string{"parse"}) {
		t.Errorf("got sources %v, want [parse]", got)
	}
	if got := sources(diag("-- ftd.text: $missing\n")); !cmp.Equal(got, []string{"interpret"}) {
		t.Errorf("got sources %v, want [interpret]", got)
	}
}

func setupPackage(t *testing.T) *packageRoot {
	root := testutil.TempDirWith(t, testutil.Dir{
		"fastn.yaml": "package: example.com\naliases:\n  ex: example.com\n",
		"lib.ftd":    "-- string greeting: hello\n",
		"bad.ftd":    "-- integer n: hello\n",
	})
	fsys := afero.NewOsFs()
	cfg, err := host.LoadConfig(fsys, filepath.Join(root, host.ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Root = root
	return &packageRoot{dir: root, fs: host.NewFS(fsys, cfg)}
}

func TestDiagnostics_Package(t *testing.T) {
	pkg := setupPackage(t)
	s := newServer(pkg)
	docURI := lsp.DocumentURI("file://" + filepath.Join(pkg.dir, "index.ftd"))
	diag := func(code string) []lsp.Diagnostic {
		return s.diagnostics(context.Background(), docURI, code)
	}

	if got := diag("-- import: example.com/lib\n-- ftd.text: $lib.greeting\n"); len(got) != 0 {
		t.Errorf("got diagnostics %v, want none", got)
	}
	got := diag("-- ftd.text: hi\n\n-- import: example.com/nope\n")
	if !cmp.Equal(lines(got), []int{2}) {
		t.Errorf("got diagnostics %v, want one on line 2", got)
	}
	got = diag("-- ftd.text: hi\n\n-- import: ex/nope\n")
	if !cmp.Equal(lines(got), []int{2}) {
		t.Errorf("got diagnostics %v, want one on line 2 for an aliased import", got)
	}
	got = diag("-- import: example.com/lib\n\n-- integer n: $lib.greeting\n")
	if !cmp.Equal(lines(got), []int{2}) || !cmp.Equal(sources(got), []string{"interpret"}) {
		t.Errorf("got diagnostics %v, want one from the interpreter on line 2", got)
	}
	// Errors in imported documents are not shown in the importing one.
	if got := diag("-- import: example.com/bad\n"); len(got) != 0 {
		t.Errorf("got diagnostics %v, want none", got)
	}
}

func TestDocID(t *testing.T) {
	pkg := setupPackage(t)
	s := newServer(pkg)
	tt.Test(t, tt.Fn("docID", s.docID), tt.Table{
		tt.Args(lsp.DocumentURI("file://" + filepath.Join(pkg.dir, "index.ftd"))).Rets("example.com"),
		tt.Args(lsp.DocumentURI("file://" + filepath.Join(pkg.dir, "docs", "intro.ftd"))).Rets("example.com/docs/intro"),
		tt.Args(lsp.DocumentURI("file:///elsewhere/a.ftd")).Rets("file:///elsewhere/a.ftd"),
	})
}

func call(t *testing.T, m method, params any) any {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	result, err := m(context.Background(), nil, raw)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

var hoverSource = `-- record person:
caption name:
integer age: 0

-- person list $people:

-- component card:
person p:

-- ftd.text: $card.p.name

-- end: card
`

func TestHover(t *testing.T) {
	s := newServer(nil)
	s.content[uri] = hoverSource
	hover := func(line int) string {
		h := call(t, s.hover, lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     lsp.Position{Line: line}}).(lsp.Hover)
		if len(h.Contents) == 0 {
			return ""
		}
		return h.Contents[0].Value
	}
	tt.Test(t, tt.Fn("hover", hover), tt.Table{
		tt.Args(0).Rets("record person\n  caption name\n  integer age"),
		tt.Args(2).Rets("record person\n  caption name\n  integer age"),
		tt.Args(4).Rets("person list $people"),
		tt.Args(7).Rets("component card\n  person p"),
	})
}

func TestHover_Empty(t *testing.T) {
	s := newServer(nil)
	s.content[uri] = "\n\n-- integer x: 1\n"
	h := call(t, s.hover, lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri}}).(lsp.Hover)
	if len(h.Contents) != 0 {
		t.Errorf("got hover %v, want none", h.Contents)
	}
}

func labels(items []lsp.CompletionItem) []string {
	ls := make([]string, len(items))
	for i, item := range items {
		ls[i] = item.Label
	}
	return ls
}

func TestCompletion(t *testing.T) {
	s := newServer(nil)
	content := "-- integer count: 1\n-- record color-pair:\nstring a:\n\n-- ftd.text: $co"
	s.content[uri] = content
	items := call(t, s.completion, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     lsp.Position{Line: 4, Character: 16}}}).([]lsp.CompletionItem)

	if diff := cmp.Diff([]string{"color-pair", "count"}, labels(items)); diff != "" {
		t.Errorf("completion labels (-want +got):\n%s", diff)
	}
	wantRange := lsp.Range{
		Start: lsp.Position{Line: 4, Character: 14},
		End:   lsp.Position{Line: 4, Character: 16}}
	for _, item := range items {
		if item.TextEdit == nil || item.TextEdit.Range != wantRange {
			t.Errorf("item %s replaces %v, want %v", item.Label, item.TextEdit, wantRange)
		}
	}
}

func TestCompletion_Builtins(t *testing.T) {
	s := newServer(nil)
	s.content[uri] = "-- ftd.te"
	items := call(t, s.completion, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     lsp.Position{Line: 0, Character: 9}}}).([]lsp.CompletionItem)
	if diff := cmp.Diff([]string{"ftd.text"}, labels(items)); diff != "" {
		t.Errorf("completion labels (-want +got):\n%s", diff)
	}
	if items[0].Kind != lsp.CIKClass {
		t.Errorf("got kind %v, want class", items[0].Kind)
	}
}

func TestDidCloseAndChange(t *testing.T) {
	s := newServer(nil)
	call(t, s.didClose, lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri}})
	if _, err := s.didChange(context.Background(), nil, json.RawMessage(`{}`)); err != errInvalidParams {
		t.Errorf("got err %v, want errInvalidParams", err)
	}
}

func TestPositions(t *testing.T) {
	s := "ab\r\ncd\n\U0001F600e"
	tt.Test(t, tt.Fn("lspPositionFromIdx", lspPositionFromIdx), tt.Table{
		tt.Args(s, 0).Rets(lsp.Position{}),
		tt.Args(s, 4).Rets(lsp.Position{Line: 1}),
		tt.Args(s, 7).Rets(lsp.Position{Line: 2}),
		tt.Args(s, 11).Rets(lsp.Position{Line: 2, Character: 2}),
	})
	tt.Test(t, tt.Fn("lspPositionToIdx", lspPositionToIdx), tt.Table{
		tt.Args(s, lsp.Position{Line: 1, Character: 1}).Rets(5),
		tt.Args(s, lsp.Position{Line: 2, Character: 2}).Rets(11),
		tt.Args(s, lsp.Position{Line: 9}).Rets(len(s)),
	})
}
