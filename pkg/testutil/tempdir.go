package testutil

import (
	"os"
	"path/filepath"

	"github.com/fastn-stack/fastn-sub010/pkg/must"
)

// TempDir creates a temporary directory for testing that will be removed
// after the test finishes. The returned path has all symlinks resolved.
func TempDir(c Cleanuper) string {
	dir, err := os.MkdirTemp("", "fastntest")
	if err != nil {
		panic(err)
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			println("failed to remove temp dir", dir)
		}
	})
	return dir
}

// Dir describes the layout of a directory. The keys are file names and the
// values are either a string, the content of a regular file, or a nested
// Dir.
type Dir map[string]any

// ApplyDir creates the files and directories described by dir under root.
func ApplyDir(root string, dir Dir) {
	for name, item := range dir {
		path := filepath.Join(root, name)
		switch item := item.(type) {
		case string:
			must.WriteFile(path, item)
		case Dir:
			if err := os.MkdirAll(path, 0o700); err != nil {
				panic(err)
			}
			ApplyDir(path, item)
		default:
			panic("testutil.ApplyDir: file must be a string or a Dir")
		}
	}
}

// TempDirWith is TempDir followed by ApplyDir.
func TempDirWith(c Cleanuper, dir Dir) string {
	root := TempDir(c)
	ApplyDir(root, dir)
	return root
}
