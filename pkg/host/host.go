// Package host drives the FTD interpreter, answering its requests for
// imported documents, foreign variables and processor results.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/eval"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
)

var logger = logutil.GetLogger("[host] ")

// Errors returned by resolvers.
var (
	ErrModuleNotFound    = errors.New("module not found")
	ErrVariableNotFound  = errors.New("foreign variable not found")
	ErrProcessorNotFound = errors.New("processor not supported")
)

// Resolver answers the requests of the interpreter.
type Resolver interface {
	// Import returns the document of a module imported by caller.
	Import(ctx context.Context, module, caller string) (eval.ImportedDocument, error)
	// ForeignVariable returns the value of module#name.
	ForeignVariable(ctx context.Context, module, name, caller string) (any, error)
	// Processor runs the processor a variable definition asks for.
	Processor(ctx context.Context, req *eval.NeedsProcessor) (any, error)
}

// Run resumes steps until the interpretation is done. It stops early when
// ctx is canceled or when the resolver fails. Processor failures are
// reported as processor errors of the interpreter.
func Run(ctx context.Context, step eval.Step, r Resolver) (*eval.Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch s := step.(type) {
		case *eval.Done:
			return s.Document, nil
		case *eval.NeedsImport:
			doc, ierr := r.Import(ctx, s.Module, s.Caller)
			if ierr != nil {
				return nil, fmt.Errorf("import %s from %s: %w", s.Module, s.Caller, ierr)
			}
			step, err = s.Resume(doc)
		case *eval.NeedsForeignVariable:
			v, verr := r.ForeignVariable(ctx, s.Module, s.Name, s.Caller)
			if verr != nil {
				return nil, fmt.Errorf("%s#%s in %s: %w", s.Module, s.Name, s.Caller, verr)
			}
			step, err = s.Resume(v)
		case *eval.NeedsProcessor:
			v, perr := r.Processor(ctx, s)
			if perr != nil {
				return nil, s.Fail(perr)
			}
			step, err = s.Resume(v)
		default:
			return nil, fmt.Errorf("unknown step %T", step)
		}
		if err != nil {
			return nil, err
		}
	}
}

// Interpret interprets a document to the end.
func Interpret(ctx context.Context, name, source string, r Resolver, cfg eval.Config) (*eval.Document, error) {
	step, err := eval.Interpret(name, source, cfg)
	if err != nil {
		return nil, err
	}
	return Run(ctx, step, r)
}
