// Package merge implements the merging of change requests (CRs) with the
// main line of a package, and the three-way text merge it relies on.
//
// A merge compares the manifest of the destination, the manifest of the CR
// and the CR's track files, and classifies every file the CR touches. The
// result is a [cr.Plan]; merge never applies a plan that has conflicts.
package merge

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
)

var logger = logutil.GetLogger("[merge] ")

// ErrBinary is returned by MergeBytes when one of the inputs is not UTF-8
// text.
var ErrBinary = errors.New("cannot merge binary content")

// Store is what merging needs from storage. History returns the content of
// a version of a file, and an error wrapping cr.ErrMissingHistory if there
// is no such version. Manifest returns the latest state of every path,
// including deleted ones.
type Store interface {
	History(path string, version int) ([]byte, error)
	Manifest() (cr.Manifest, error)
	Apply(plan *cr.Plan) error
}

// Options controls a merge.
type Options struct {
	// If not empty, only this package file is merged.
	File string
	// Apply the plan to the store if it has no conflicts.
	Apply bool
	// Style of conflict markers written into conflicted content.
	Style Style
}

// MergeBytes is Merge3 on raw content. It fails with ErrBinary if any of
// the inputs is not valid UTF-8.
func MergeBytes(base, ours, theirs []byte, style Style) ([]byte, int, error) {
	if !utf8.Valid(base) || !utf8.Valid(ours) || !utf8.Valid(theirs) {
		return nil, 0, ErrBinary
	}
	merged, conflicts := Merge3(string(base), string(ours), string(theirs), style)
	return []byte(merged), conflicts, nil
}

// A merge in progress.
type merger struct {
	st     Store
	n      int
	opts   Options
	remote cr.Manifest
	files  cr.Manifest
	tracks cr.Manifest
	plan   *cr.Plan
}

func newMerger(st Store, n int, opts Options) (*merger, error) {
	m, err := st.Manifest()
	if err != nil {
		return nil, err
	}
	files, tracks := m.OfCR(n).Split()
	if opts.File != "" {
		opts.File = cr.Clean(opts.File)
	}
	return &merger{st: st, n: n, opts: opts, remote: m.Main(),
		files: files, tracks: tracks, plan: &cr.Plan{}}, nil
}

func (m *merger) wanted(file string) bool { return m.opts.File == "" || m.opts.File == file }

func (m *merger) emit(fs cr.FileStatus) {
	logger.Printf("CR %d: %s", m.n, fs)
	if fs.Status.Kind == cr.NoConflict {
		m.plan.Statuses = append(m.plan.Statuses, fs)
	} else {
		m.plan.Conflicts = append(m.plan.Conflicts, fs)
	}
}

func conflict(kind cr.StatusKind, remote int) cr.Status {
	return cr.Status{Kind: kind, RemoteVersion: remote}
}

// Returns the track entry recording which main version the CR copy at path
// was taken from.
func (m *merger) track(path, file string) (cr.Entry, []cr.Entry, bool, error) {
	tp := cr.TrackPath(path)
	te, ok := m.tracks[tp]
	if !ok || te.Deleted {
		return cr.Entry{}, nil, false, nil
	}
	content, err := m.st.History(tp, te.Version)
	if err != nil {
		return cr.Entry{}, nil, false, err
	}
	entries, err := cr.ParseTrack(tp, string(content))
	if err != nil {
		return cr.Entry{}, nil, false, err
	}
	e, ok := cr.Find(entries, file)
	return e, entries, ok, nil
}

func (m *merger) deleted(path string) ([]cr.Entry, error) {
	content, err := m.st.History(path, m.files[path].Version)
	if err != nil {
		return nil, err
	}
	return cr.ParseDeleted(m.n, string(content))
}

func sameContent(a, b []byte) bool { return sha256.Sum256(a) == sha256.Sum256(b) }

func (m *merger) finish() (*cr.Plan, error) {
	if !m.opts.Apply || !m.plan.Clean() {
		return m.plan, nil
	}
	if err := m.st.Apply(m.plan); err != nil {
		return m.plan, fmt.Errorf("apply merge of CR %d: %w", m.n, err)
	}
	m.plan.Applied = true
	return m.plan, nil
}
