// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"errors"
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/store/storedefs"
)

func matchErr(e1, e2 error) bool {
	return (e1 == nil && e2 == nil) || (e1 != nil && e2 != nil && e1.Error() == e2.Error())
}

func mustWrite(t *testing.T, s storedefs.Store, path, content string) int {
	t.Helper()
	v, err := s.Write(path, []byte(content))
	if err != nil {
		t.Fatalf("Write(%q) -> error %v", path, err)
	}
	return v
}

func wantNotFound(t *testing.T, what string, err error) {
	t.Helper()
	if !errors.Is(err, storedefs.ErrNotFound) {
		t.Errorf("%s -> error %v, want ErrNotFound", what, err)
	}
}
