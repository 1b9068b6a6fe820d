package merge

import (
	"fmt"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
)

// An in-memory Store.
type memStore struct {
	history  map[string]map[int][]byte
	manifest cr.Manifest
	applied  int
}

func newMemStore() *memStore {
	return &memStore{history: make(map[string]map[int][]byte), manifest: make(cr.Manifest)}
}

func (s *memStore) History(path string, version int) ([]byte, error) {
	content, ok := s.history[path][version]
	if !ok {
		return nil, fmt.Errorf("%w: %s version %d", cr.ErrMissingHistory, path, version)
	}
	return content, nil
}

func (s *memStore) Manifest() (cr.Manifest, error) {
	m := make(cr.Manifest, len(s.manifest))
	for p, e := range s.manifest {
		m[p] = e
	}
	return m, nil
}

func (s *memStore) Apply(plan *cr.Plan) error {
	s.applied++
	for _, c := range plan.Changes() {
		if c.Op == cr.Delete {
			s.del(c.Path)
		} else {
			s.write(c.Path, string(c.Content))
		}
	}
	return nil
}

func (s *memStore) write(path, content string) int {
	v := s.manifest[path].Version + 1
	if s.history[path] == nil {
		s.history[path] = make(map[int][]byte)
	}
	s.history[path][v] = []byte(content)
	s.manifest[path] = cr.FileEdit{Version: v}
	return v
}

func (s *memStore) del(path string) {
	s.manifest[path] = cr.FileEdit{Version: s.manifest[path].Version + 1, Deleted: true}
}

func (s *memStore) latest(path string) string {
	e := s.manifest[path]
	if e.Deleted {
		return ""
	}
	return string(s.history[path][e.Version])
}

func (s *memStore) createCR(n int, title string) {
	s.write(cr.AboutPath(n), cr.FormatAbout(cr.About{Number: n, Title: title, Open: true}))
}

// Writes the CR n copy of file. The first time a file of main is edited in
// the CR, the version it was taken from is tracked.
func (s *memStore) editInCR(n int, file, content string) {
	path := cr.FilePath(n, file)
	if _, copied := s.manifest[path]; !copied {
		if e, ok := s.manifest[file]; ok && !e.Deleted {
			s.write(cr.TrackPath(path), cr.FormatTrack([]cr.Entry{{File: file, Version: e.Version}}))
		}
	}
	s.write(path, content)
}

func (s *memStore) deleteInCR(n int, file string) {
	path := cr.DeletedPath(n)
	var entries []cr.Entry
	if content := s.latest(path); content != "" {
		entries, _ = cr.ParseDeleted(n, content)
	}
	entries = cr.Put(entries, cr.Entry{File: file, Version: s.manifest[file].Version})
	s.write(path, cr.FormatDeleted(entries))
}
