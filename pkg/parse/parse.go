// Package parse implements the FTD parser.
//
// FTD source is line oriented. A document is a sequence of sections, each
// introduced by a line starting with "-- ". A section line has the form
//
//	-- [kind ]name: [caption]
//
// and is followed by inline headers ("key: value" lines), a blank line, and
// then either free body text or block headers ("-- name.key:" lines).
// Sections nest with "--- " subsections or with explicit "-- end: name"
// markers.
//
// The parser produces a tree of [Section] values that keeps every header in
// source order; it assigns no meaning to header keys beyond the few that
// shape the tree ("caption", "body" and the "-- end:" marker). Classifying
// sections into definitions and invocations is the job of package ast.
package parse

import (
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/diag"
)

// Source describes a piece of FTD source code.
type Source struct {
	// Name of the document, used in error messages. It is typically the
	// document id, like "foo/index".
	Name string
	// The FTD source.
	Code string
}

// Config keeps configuration options when parsing.
type Config struct {
	// LineOffset is added to every line number, both in the tree and in
	// errors. It is used when the source is a fragment of a larger file.
	LineOffset int
}

// Parse parses the given source. The returned error always has type *Error
// if it is not nil.
func Parse(src Source, cfg Config) ([]*Section, error) {
	p := &parser{
		name:   src.Name,
		src:    src.Code,
		offset: cfg.LineOffset,
		lines:  lex(src.Code),
	}
	sections, err := p.parseSections("", line{})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// Error is a parse error.
type Error = diag.Error[ErrorTag]

// ErrorTag parameterizes [diag.Error] to define [Error].
type ErrorTag struct{}

func (ErrorTag) ErrorTag() string { return "parse error" }

// UnpackErrors returns the constituent parse errors if the given error
// contains one or more parse errors. Otherwise it returns nil.
func UnpackErrors(e error) []*Error {
	if errs := diag.UnpackErrors[ErrorTag](e); len(errs) > 0 {
		return errs
	}
	return nil
}

func (p *parser) errorf(l line, format string, args ...any) error {
	ctx := diag.NewLineContext(p.name, p.src, l.num)
	ctx.LineOffset = p.offset
	return &Error{Message: fmt.Sprintf(format, args...), Context: *ctx}
}
