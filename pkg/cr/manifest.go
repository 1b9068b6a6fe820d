package cr

import (
	"sort"
	"strings"
)

// FileEdit is the latest state of a file in a manifest.
type FileEdit struct {
	Version int  `json:"version" yaml:"version"`
	Deleted bool `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Manifest maps paths to their latest state.
type Manifest map[string]FileEdit

// Paths returns the paths of the manifest in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Split partitions the manifest into file entries and track entries.
func (m Manifest) Split() (files, tracks Manifest) {
	files, tracks = make(Manifest), make(Manifest)
	for p, e := range m {
		if IsTrack(p) {
			tracks[p] = e
		} else {
			files[p] = e
		}
	}
	return files, tracks
}

// Main returns the entries of the manifest that are package files, leaving
// out everything that belongs to CRs.
func (m Manifest) Main() Manifest {
	main := make(Manifest)
	for p, e := range m {
		if !IsCR(p) {
			main[p] = e
		}
	}
	return main
}

// OfCR returns the entries of the manifest that belong to CR n: its files,
// its documents and their track files.
func (m Manifest) OfCR(n int) Manifest {
	dir := Path(n) + "/"
	sub := make(Manifest)
	for p, e := range m {
		if strings.HasPrefix(p, dir) || strings.HasPrefix(p, TracksDir+"/"+dir) {
			sub[p] = e
		}
	}
	return sub
}
