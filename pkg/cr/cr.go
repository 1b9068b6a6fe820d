// Package cr contains the data model of change requests (CRs): where a CR
// keeps its files, the manifests that record file versions, the documents
// a CR is described by, and the sync plans produced by merging.
//
// All paths are slash-separated and relative to the package root. A CR
// numbered n keeps its copies of package files under "-/<n>/"; its
// documents live under "-/<n>/-/". Track files, which record the main
// version a CR copy was taken from, live under ".tracks/".
package cr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sentinel errors.
var (
	// ErrMissingHistory is returned when a version of a file that a CR or a
	// track file refers to cannot be found.
	ErrMissingHistory = errors.New("missing history")
	// ErrCRAboutNotFound is returned when a CR has no about document.
	ErrCRAboutNotFound = errors.New("cr about document not found")
)

// TracksDir is the directory holding all track files.
const TracksDir = ".tracks"

// Path returns the directory of CR n.
func Path(n int) string { return "-/" + strconv.Itoa(n) }

// FilePath returns the path of the CR n copy of a package file.
func FilePath(n int, file string) string { return Path(n) + "/" + Clean(file) }

// AboutPath returns the path of the about document of CR n.
func AboutPath(n int) string { return Path(n) + "/-/about.ftd" }

// DeletedPath returns the path of the deleted-files index of CR n.
func DeletedPath(n int) string { return Path(n) + "/-/deleted.ftd" }

// TrackPath returns the path of the track file of a file.
func TrackPath(file string) string { return TracksDir + "/" + Clean(file) + ".track" }

// IsTrack reports whether path is a track file.
func IsTrack(path string) bool { return strings.HasPrefix(path, TracksDir+"/") }

// IsCR reports whether path belongs to some CR, either as a CR file or as
// the track file of one.
func IsCR(path string) bool {
	return strings.HasPrefix(path, "-/") || strings.HasPrefix(path, TracksDir+"/-/")
}

// IsDocument reports whether path is one of the documents of CR n rather
// than a copy of a package file.
func IsDocument(n int, path string) bool {
	return strings.HasPrefix(path, Path(n)+"/-/")
}

// FileName returns the package file that a path under CR n is a copy of.
func FileName(n int, path string) (string, error) {
	prefix := Path(n) + "/"
	path = strings.Trim(path, "/")
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return "", fmt.Errorf("'%s' is not a file of CR %d", path, n)
	}
	return path[len(prefix):], nil
}

// Number returns the number of the CR that path belongs to.
func Number(path string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(path, "/"), "-/")
	if !ok {
		return 0, false
	}
	head, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(head)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Clean normalizes a file path: it is NFC-normalized and has no leading or
// trailing slashes. Paths are normalized before they are used as keys, so
// that the same name typed on different systems is the same file.
func Clean(path string) string {
	return strings.Trim(norm.NFC.String(path), "/")
}
