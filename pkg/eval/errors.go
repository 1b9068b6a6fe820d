package eval

import (
	"errors"
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/diag"
	"github.com/fastn-stack/fastn-sub010/pkg/eval/vals"
)

// NotFoundTag tags errors for names that could not be resolved.
type NotFoundTag struct{}

// TypeMismatchTag tags errors for values whose kind does not match the
// expected kind.
type TypeMismatchTag struct{}

// CircularImportTag tags errors for import cycles.
type CircularImportTag struct{}

// ProcessorTag tags errors returned by processors.
type ProcessorTag struct{}

// ErrorTag tags all other interpreter errors.
type ErrorTag struct{}

func (NotFoundTag) ErrorTag() string       { return "not found" }
func (TypeMismatchTag) ErrorTag() string   { return "type mismatch" }
func (CircularImportTag) ErrorTag() string { return "circular import" }
func (ProcessorTag) ErrorTag() string      { return "processor error" }
func (ErrorTag) ErrorTag() string          { return "interpreter error" }

type (
	// NotFoundError is returned when a name cannot be resolved.
	NotFoundError = diag.Error[NotFoundTag]
	// TypeMismatchError is returned when a value has the wrong kind.
	TypeMismatchError = diag.Error[TypeMismatchTag]
	// CircularImportError is returned when a document imports itself,
	// directly or not.
	CircularImportError = diag.Error[CircularImportTag]
	// ProcessorError wraps an error returned by a processor.
	ProcessorError = diag.Error[ProcessorTag]
	// Error is any other interpreter error.
	Error = diag.Error[ErrorTag]
)

// Errors without a position are created inside value resolution and get
// their context when they reach the item being interpreted.
type notFound struct{ name string }

func (e notFound) Error() string { return fmt.Sprintf("'%s' not found", e.name) }

func newError[T diag.ErrorTag](d *docState, line int, cause error, format string, args ...any) *diag.Error[T] {
	ctx := diag.NewLineContext(d.src.Name, d.src.Code, line-d.cfg.LineOffset)
	ctx.LineOffset = d.cfg.LineOffset
	return &diag.Error[T]{Message: fmt.Sprintf(format, args...), Context: *ctx, Cause: cause}
}

// Gives an error from value resolution the context of the line it happened
// on. Errors that already have a context, and suspensions, pass through.
func (d *docState) wrap(line int, err error) error {
	var (
		susp *suspension
		r    diag.Ranger
		nf   notFound
		wt   vals.WrongType
	)
	switch {
	case err == nil || errors.As(err, &susp) || errors.As(err, &r):
		return err
	case errors.As(err, &nf):
		return newError[NotFoundTag](d, line, err, "%s", err)
	case errors.As(err, &wt):
		return newError[TypeMismatchTag](d, line, err, "%s", err)
	}
	return newError[ErrorTag](d, line, err, "%s", err)
}
