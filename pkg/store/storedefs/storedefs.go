// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// does not need to depend on the concrete implementation.
package storedefs

import (
	"errors"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
)

// ErrNotFound is returned when a file, or a version of it, does not exist.
// Errors for missing versions also wrap cr.ErrMissingHistory.
var ErrNotFound = errors.New("not found")

// Store is an interface satisfied by the storage service. It keeps every
// version of every file of a package, the main line and CRs alike, and the
// manifest of their latest states.
type Store interface {
	Write(path string, content []byte) (int, error)
	Delete(path string) (int, error)
	Latest(path string) ([]byte, int, error)
	History(path string, version int) ([]byte, error)
	Manifest() (cr.Manifest, error)

	CreateCR(title, description string) (int, error)
	CRs() ([]int, error)
	CRAbout(n int) (cr.About, error)
	EditInCR(n int, file string, content []byte) error
	DeleteInCR(n int, file string) error
	Tracking(n int, file string) ([]cr.Entry, error)
	Deleted(n int) ([]cr.Entry, error)

	Apply(plan *cr.Plan) error
	Close() error
}
