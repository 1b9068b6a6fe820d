package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
)

// CRIntoMain merges CR n into the main line. Files the CR adds are added,
// files it edits are merged with the edits made to main since the CR copy
// was taken, and files it deletes are deleted. When the plan is clean, its
// Cleanup removes the CR's files and, unless a single file is merged,
// closes the CR.
func CRIntoMain(ctx context.Context, st Store, n int, opts Options) (*cr.Plan, error) {
	m, err := newMerger(st, n, opts)
	if err != nil {
		return nil, err
	}
	about, ok := m.files[cr.AboutPath(n)]
	if !ok || about.Deleted {
		return nil, fmt.Errorf("%w: CR %d", cr.ErrCRAboutNotFound, n)
	}
	for _, path := range m.files.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.files[path].Deleted {
			continue
		}
		switch {
		case path == cr.DeletedPath(n):
			err = m.deletionsIntoMain(path)
		case cr.IsDocument(n, path):
			continue
		default:
			err = m.fileIntoMain(path)
		}
		if err != nil {
			return nil, err
		}
	}
	sortStatuses(m.plan.Statuses)
	if m.plan.Clean() {
		if err := m.cleanup(); err != nil {
			return nil, err
		}
	}
	return m.finish()
}

func (m *merger) deletionsIntoMain(path string) error {
	entries, err := m.deleted(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !m.wanted(e.File) {
			continue
		}
		remote, ok := m.remote[e.File]
		switch {
		case !ok:
			return fmt.Errorf("%w: '%s' is deleted in CR %d but does not exist", cr.ErrMissingHistory, e.File, m.n)
		case remote.Deleted:
		case remote.Version == e.Version:
			m.emit(cr.FileStatus{Op: cr.Delete, Path: e.File, Version: e.Version})
		default:
			m.emit(cr.FileStatus{Op: cr.Delete, Path: e.File, Version: e.Version,
				Status: conflict(cr.CloneDeletedRemoteEdited, remote.Version)})
		}
	}
	return nil
}

func (m *merger) fileIntoMain(path string) error {
	file, err := cr.FileName(m.n, path)
	if err != nil || !m.wanted(file) {
		return err
	}
	ours, err := m.st.History(path, m.files[path].Version)
	if err != nil {
		return err
	}
	remote, ok := m.remote[file]
	if !ok {
		m.emit(cr.FileStatus{Op: cr.Add, Path: file, Content: ours})
		return nil
	}
	base, _, tracked, err := m.track(path, file)
	if err != nil {
		return err
	}
	if !tracked {
		// Created in the CR while main created a file of the same name.
		if remote.Deleted {
			m.emit(cr.FileStatus{Op: cr.Add, Path: file, Content: ours})
			return nil
		}
		theirs, err := m.st.History(file, remote.Version)
		if err != nil {
			return err
		}
		if !sameContent(ours, theirs) {
			m.emit(cr.FileStatus{Op: cr.Add, Path: file, Content: ours,
				Status: conflict(cr.CloneAddedRemoteAdded, remote.Version)})
		}
		return nil
	}
	if remote.Deleted {
		if base.Version != remote.Version {
			m.emit(cr.FileStatus{Op: cr.Update, Path: file, Content: ours, Version: base.Version,
				Status: conflict(cr.CloneEditedRemoteDeleted, remote.Version)})
		}
		return nil
	}
	original, err := m.st.History(file, base.Version)
	if err != nil {
		return err
	}
	if bytes.Equal(ours, original) {
		return nil
	}
	if base.Version == remote.Version {
		m.emit(cr.FileStatus{Op: cr.Update, Path: file, Content: ours, Version: base.Version})
		return nil
	}
	theirs, err := m.st.History(file, remote.Version)
	if err != nil {
		return err
	}
	m.emit(m.merge3(file, base.Version, remote.Version, original, ours, theirs))
	return nil
}

// Merges one file and returns its status. A conflicted text merge keeps the
// markers in the content; a binary file keeps the content of ours.
func (m *merger) merge3(path string, base, remote int, original, ours, theirs []byte) cr.FileStatus {
	merged, conflicts, err := MergeBytes(original, ours, theirs, m.opts.Style)
	switch {
	case errors.Is(err, ErrBinary):
		return cr.FileStatus{Op: cr.Update, Path: path, Content: ours, Version: base,
			Status: conflict(cr.Conflict, remote)}
	case conflicts > 0:
		return cr.FileStatus{Op: cr.Update, Path: path, Content: merged, Version: base,
			Status: conflict(cr.Conflict, remote)}
	}
	return cr.FileStatus{Op: cr.Update, Path: path, Content: merged, Version: base}
}

// Removes what a merged CR leaves behind: its files and track files, and
// with no file filter, its deleted-files index. The about document stays
// and is marked closed.
func (m *merger) cleanup() error {
	var only map[string]bool
	if m.opts.File != "" {
		p := cr.FilePath(m.n, m.opts.File)
		only = map[string]bool{p: true, cr.TrackPath(p): true}
	}
	add := func(manifest cr.Manifest) {
		for _, path := range manifest.Paths() {
			e := manifest[path]
			if e.Deleted || path == cr.AboutPath(m.n) || only != nil && !only[path] {
				continue
			}
			m.plan.Cleanup = append(m.plan.Cleanup, cr.FileStatus{Op: cr.Delete, Path: path, Version: e.Version})
		}
	}
	add(m.files)
	add(m.tracks)
	if only != nil {
		return nil
	}
	path := cr.AboutPath(m.n)
	version := m.files[path].Version
	content, err := m.st.History(path, version)
	if err != nil {
		return err
	}
	about, err := cr.ParseAbout(m.n, string(content))
	if err != nil {
		return err
	}
	about.Open = false
	m.plan.Cleanup = append(m.plan.Cleanup, cr.FileStatus{Op: cr.Update, Path: path,
		Content: []byte(cr.FormatAbout(about)), Version: version})
	return nil
}

// MainIntoCR brings the changes made to main since CR n was started into the
// CR. CR copies are merged with the current main version and their track
// entries moved forward; copies identical to main are dropped; deletions of
// files that main has deleted too are removed from the deleted-files index.
func MainIntoCR(ctx context.Context, st Store, n int, opts Options) (*cr.Plan, error) {
	m, err := newMerger(st, n, opts)
	if err != nil {
		return nil, err
	}
	for _, path := range m.files.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.files[path].Deleted {
			continue
		}
		switch {
		case path == cr.DeletedPath(n):
			err = m.deletionsIntoCR(path)
		case cr.IsDocument(n, path):
			continue
		default:
			err = m.fileIntoCR(path)
		}
		if err != nil {
			return nil, err
		}
	}
	sortStatuses(m.plan.Statuses)
	return m.finish()
}

func (m *merger) deletionsIntoCR(path string) error {
	entries, err := m.deleted(path)
	if err != nil {
		return err
	}
	kept, changed := entries, false
	for _, e := range entries {
		if !m.wanted(e.File) {
			continue
		}
		remote, ok := m.remote[e.File]
		switch {
		case !ok || remote.Deleted:
			kept, changed = cr.Remove(kept, e.File), true
		case remote.Version != e.Version:
			m.emit(cr.FileStatus{Op: cr.Delete, Path: e.File, Version: e.Version,
				Status: conflict(cr.CloneDeletedRemoteEdited, remote.Version)})
		}
	}
	if changed {
		m.emit(cr.FileStatus{Op: cr.Update, Path: path,
			Content: []byte(cr.FormatDeleted(kept)), Version: m.files[path].Version})
	}
	return nil
}

func (m *merger) fileIntoCR(path string) error {
	file, err := cr.FileName(m.n, path)
	if err != nil || !m.wanted(file) {
		return err
	}
	remote, ok := m.remote[file]
	if !ok {
		return nil
	}
	version := m.files[path].Version
	ours, err := m.st.History(path, version)
	if err != nil {
		return err
	}
	base, entries, tracked, err := m.track(path, file)
	if err != nil {
		return err
	}
	if !tracked {
		if remote.Deleted {
			return nil
		}
		theirs, err := m.st.History(file, remote.Version)
		if err != nil {
			return err
		}
		if sameContent(ours, theirs) {
			m.emit(cr.FileStatus{Op: cr.Delete, Path: path, Version: version})
		} else {
			m.emit(cr.FileStatus{Op: cr.Add, Path: file, Content: ours,
				Status: conflict(cr.CloneAddedRemoteAdded, remote.Version)})
		}
		return nil
	}
	if remote.Deleted {
		if base.Version != remote.Version {
			m.emit(cr.FileStatus{Op: cr.Update, Path: file, Content: ours, Version: base.Version,
				Status: conflict(cr.CloneEditedRemoteDeleted, remote.Version)})
		}
		return nil
	}
	if base.Version == remote.Version {
		return nil
	}
	original, err := m.st.History(file, base.Version)
	if err != nil {
		return err
	}
	theirs, err := m.st.History(file, remote.Version)
	if err != nil {
		return err
	}
	fs := m.merge3(file, base.Version, remote.Version, original, ours, theirs)
	if fs.Status.Kind != cr.NoConflict {
		m.emit(fs)
		return nil
	}
	m.emit(cr.FileStatus{Op: cr.Update, Path: path, Content: fs.Content, Version: version})
	tp := cr.TrackPath(path)
	m.emit(cr.FileStatus{Op: cr.Update, Path: tp, Version: m.tracks[tp].Version,
		Content: []byte(cr.FormatTrack(cr.Put(entries, cr.Entry{File: file, Version: remote.Version})))})
	return nil
}

func sortStatuses(s []cr.FileStatus) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Path < s[j].Path })
}
