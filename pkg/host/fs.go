package host

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/fastn-stack/fastn-sub010/pkg/assets"
	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/cache"
	"github.com/fastn-stack/fastn-sub010/pkg/eval"
)

// Modules that every package can import.
const (
	FastnModule      = "fastn"
	TimeModule       = "fastn/time"
	ProcessorsModule = "fastn/processors"
	inheritedPrefix  = "inherited-"
	packagesDir      = ".packages"
)

// The fastn module defines the records that processors produce.
const fastnSource = `
-- record toc-item:
caption title:
optional string url:
toc-item list children:

-- record package-item:
caption name:
optional string url:
package-item list children:
`

// FS resolves the requests of the interpreter from the directory of a
// package. Dependencies live in the .packages directory, one directory per
// package.
type FS struct {
	fs     afero.Fs
	cfg    *Config
	cache  *cache.Cache[[]ast.Item]
	assets map[string]*assets.Resolver
	// Now is the clock of fastn/time#now-str.
	Now func() time.Time
	// URL is the answer of the current-url processor. It defaults to the URL
	// of the document being interpreted.
	URL string
}

// NewFS creates a resolver for the package described by cfg. Paths in fsys
// are relative to cfg.Root.
func NewFS(fsys afero.Fs, cfg *Config) *FS {
	if cfg.Root != "" && cfg.Root != "." {
		fsys = afero.NewBasePathFs(fsys, cfg.Root)
	}
	return &FS{fs: fsys, cfg: cfg, cache: cache.New[[]ast.Item](cfg.CacheSize),
		assets: make(map[string]*assets.Resolver), Now: time.Now}
}

// Cache returns the parse cache shared by all interpretations of the FS.
func (h *FS) Cache() *cache.Cache[[]ast.Item] { return h.cache }

// EvalConfig returns the interpreter configuration, with parsing going
// through the cache.
func (h *FS) EvalConfig() eval.Config {
	cfg := h.cfg.EvalConfig()
	cfg.Parse = cache.Parser(h.cache)
	return cfg
}

// Interpret interprets a document of the package, given by its path
// relative to the package root.
func (h *FS) Interpret(ctx context.Context, file string) (*eval.Document, error) {
	src, err := afero.ReadFile(h.fs, file)
	if err != nil {
		return nil, err
	}
	return Interpret(ctx, h.DocumentID(file), string(src), h, h.EvalConfig())
}

// DocumentID returns the id of a document of the package: the package name
// followed by the path without the .ftd extension. Index documents are
// named after their directory.
func (h *FS) DocumentID(file string) string {
	p := strings.TrimSuffix(path.Clean(strings.TrimPrefix(file, "/")), ".ftd")
	if p == "index" || p == "." {
		return h.cfg.Package
	}
	p = strings.TrimSuffix(p, "/index")
	if p == "" {
		return h.cfg.Package
	}
	return h.cfg.Package + "/" + p
}

// Import implements Resolver.
func (h *FS) Import(ctx context.Context, module, caller string) (eval.ImportedDocument, error) {
	logger.Printf("%s imports %s", caller, module)
	module = strings.TrimPrefix(module, inheritedPrefix)
	switch module {
	case FastnModule:
		return eval.ImportedDocument{Source: fastnSource, Path: FastnModule}, nil
	case TimeModule:
		return eval.ImportedDocument{Path: TimeModule, ForeignVariables: []string{"now-str"}}, nil
	case ProcessorsModule:
		return eval.ImportedDocument{Path: ProcessorsModule, ForeignFunctions: eval.Processors}, nil
	}
	if pkg, ok := strings.CutSuffix(module, "/assets"); ok {
		return h.assetsOf(pkg).Document(), nil
	}
	dir, rel := h.locate(module)
	for _, file := range candidates(dir, rel) {
		src, err := afero.ReadFile(h.fs, file)
		if err == nil {
			return eval.ImportedDocument{Source: string(src), Path: file}, nil
		}
	}
	return eval.ImportedDocument{}, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
}

// Returns the directory of the package a module belongs to, and the path of
// the module within it.
func (h *FS) locate(module string) (dir, rel string) {
	if module == h.cfg.Package {
		return "", ""
	}
	if rel, ok := strings.CutPrefix(module, h.cfg.Package+"/"); ok {
		return "", rel
	}
	return packagesDir, module
}

func candidates(dir, rel string) []string {
	if rel == "" {
		return []string{path.Join(dir, "index.ftd")}
	}
	return []string{path.Join(dir, rel+".ftd"), path.Join(dir, rel, "index.ftd")}
}

func (h *FS) assetsOf(pkg string) *assets.Resolver {
	if r, ok := h.assets[pkg]; ok {
		return r
	}
	dir := ""
	if pkg != h.cfg.Package {
		dir = path.Join(packagesDir, pkg)
	}
	r := &assets.Resolver{Package: pkg, BaseURL: h.cfg.BaseURL, Exists: func(p string) bool {
		ok, _ := afero.Exists(h.fs, path.Join(dir, p))
		return ok
	}}
	h.assets[pkg] = r
	return r
}

// ForeignVariable implements Resolver.
func (h *FS) ForeignVariable(ctx context.Context, module, name, caller string) (any, error) {
	logger.Printf("%s needs %s#%s", caller, module, name)
	module = strings.TrimPrefix(module, inheritedPrefix)
	if module == TimeModule && name == "now-str" {
		return h.Now().Format(time.RFC3339), nil
	}
	if pkg, ok := strings.CutSuffix(module, "/assets"); ok {
		return h.assetsOf(pkg).Resolve(name)
	}
	return nil, fmt.Errorf("%w: %s#%s", ErrVariableNotFound, module, name)
}
