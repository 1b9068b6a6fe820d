package store

import (
	"path/filepath"

	"github.com/fastn-stack/fastn-sub010/pkg/testutil"
)

// MustGetTempStore returns a Store backed by a database in a temporary
// directory. The Store is closed and the directory removed when c cleans up.
func MustGetTempStore(c testutil.Cleanuper) DBStore {
	st, err := NewStore(filepath.Join(testutil.TempDir(c), "fastn.db"))
	if err != nil {
		panic("failed to create store: " + err.Error())
	}
	// Cleanups run in reverse order, so the store is closed before its
	// directory goes.
	c.Cleanup(func() { st.Close() })
	return st
}
