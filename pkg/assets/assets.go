// Package assets resolves the "files" foreign variable of assets modules.
//
// An FTD document refers to a file of a package as
// $assets.files.<path>, where the dots of the path stand for both the
// directory separators and the dot of the extension: files.images.logo.png
// is images/logo.png. Images resolve to an ftd#image-src record holding a
// light and a dark URL; other files resolve to their URL.
package assets

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/fastn-stack/fastn-sub010/pkg/eval"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// Variable is the name of the foreign variable of assets modules.
const Variable = "files"

// ErrNotFound is returned for references to files that do not exist.
var ErrNotFound = errors.New("asset not found")

const moduleSuffix = ":type=module"

// Resolver resolves references to the files of one package.
type Resolver struct {
	// Package is the name of the package, like "fastn.com".
	Package string
	// BaseURL is prepended to every URL. Without one, URLs are relative.
	BaseURL string
	// Exists reports whether a slash-separated path exists in the package.
	// When nil, every file exists.
	Exists func(path string) bool
}

// Module returns the id of the assets module of the package.
func (r *Resolver) Module() string { return r.Package + "/assets" }

// Document returns the document the host supplies for the assets module.
func (r *Resolver) Document() eval.ImportedDocument {
	return eval.ImportedDocument{Path: r.Module(), ForeignVariables: []string{Variable}}
}

// Resolve returns the value of a path of the files variable, like
// "files.images.logo.png". A trailing ".light" or ".dark" on an image
// selects one of its URLs.
func (r *Resolver) Resolve(name string) (any, error) {
	rel, ok := strings.CutPrefix(name, Variable+".")
	if !ok {
		return nil, fmt.Errorf("%w: %s#%s", ErrNotFound, r.Module(), name)
	}
	rel = strings.TrimSuffix(rel, moduleSuffix)

	mode := ""
	for _, m := range []string{"light", "dark"} {
		if stem, ok := strings.CutSuffix(rel, "."+m); ok && isImage(stem) {
			rel, mode = stem, m
			break
		}
	}

	stem, ext, ok := cutExt(rel)
	if !ok {
		return nil, fmt.Errorf("%w: %s#%s", ErrNotFound, r.Module(), name)
	}
	stem = strings.ReplaceAll(stem, ".", "/")
	path := stem + "." + ext
	if !r.exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if !isImage(rel) {
		return r.url(path), nil
	}

	light := r.url(path)
	dark := light
	if !strings.HasSuffix(stem, "-dark") && r.exists(stem+"-dark."+ext) {
		dark = r.url(stem + "-dark." + ext)
	}
	switch mode {
	case "light":
		return light, nil
	case "dark":
		return dark, nil
	}
	return &vals.Record{Name: "ftd#image-src", Fields: []*vals.Field{
		{Name: "light", Value: light}, {Name: "dark", Value: dark}}}, nil
}

func (r *Resolver) exists(path string) bool { return r.Exists == nil || r.Exists(path) }

func (r *Resolver) url(path string) string {
	u := "-/" + r.Package + "/" + path
	if r.BaseURL != "" {
		u = strings.TrimSuffix(r.BaseURL, "/") + "/" + u
	}
	return u
}

func cutExt(rel string) (stem, ext string, ok bool) {
	i := strings.LastIndexByte(rel, '.')
	if i <= 0 || i == len(rel)-1 {
		return "", "", false
	}
	return rel[:i], rel[i+1:], true
}

func isImage(rel string) bool {
	_, ext, ok := cutExt(rel)
	return ok && strings.HasPrefix(mime.TypeByExtension("."+ext), "image/")
}
