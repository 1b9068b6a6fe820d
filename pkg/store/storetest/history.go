package storetest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/store/storedefs"
)

// TestHistory tests the file history functionality of a Store.
func TestHistory(t *testing.T, s storedefs.Store) {
	if v := mustWrite(t, s, "index.ftd", "-- ftd.text: one"); v != 1 {
		t.Errorf("first Write -> version %d, want 1", v)
	}
	if v := mustWrite(t, s, "/index.ftd", "-- ftd.text: two"); v != 2 {
		t.Errorf("second Write -> version %d, want 2", v)
	}
	mustWrite(t, s, "a/b.ftd", "-- ftd.text: b")

	content, v, err := s.Latest("index.ftd")
	if string(content) != "-- ftd.text: two" || v != 2 || err != nil {
		t.Errorf(`Latest("index.ftd") -> (%q, %d, %v), want ("-- ftd.text: two", 2, nil)`,
			content, v, err)
	}
	content, err = s.History("index.ftd", 1)
	if string(content) != "-- ftd.text: one" || err != nil {
		t.Errorf(`History("index.ftd", 1) -> (%q, %v)`, content, err)
	}

	_, err = s.History("index.ftd", 3)
	wantNotFound(t, "History of a missing version", err)
	if !errors.Is(err, cr.ErrMissingHistory) {
		t.Errorf("History of a missing version -> error %v, want ErrMissingHistory", err)
	}
	_, _, err = s.Latest("missing.ftd")
	wantNotFound(t, "Latest of a missing file", err)

	if v, err := s.Delete("a/b.ftd"); v != 2 || err != nil {
		t.Errorf(`Delete("a/b.ftd") -> (%d, %v), want (2, nil)`, v, err)
	}
	_, _, err = s.Latest("a/b.ftd")
	wantNotFound(t, "Latest of a deleted file", err)
	_, err = s.Delete("a/b.ftd")
	wantNotFound(t, "Delete of a deleted file", err)
	if content, err := s.History("a/b.ftd", 1); string(content) != "-- ftd.text: b" || err != nil {
		t.Errorf("History of a deleted file -> (%q, %v)", content, err)
	}

	m, err := s.Manifest()
	if err != nil {
		t.Fatalf("Manifest() -> error %v", err)
	}
	wantManifest := cr.Manifest{
		"index.ftd": {Version: 2},
		"a/b.ftd":   {Version: 2, Deleted: true},
	}
	if diff := cmp.Diff(wantManifest, m); diff != "" {
		t.Errorf("Manifest() (-want +got):\n%s", diff)
	}

	// A write after a deletion brings the file back.
	if v := mustWrite(t, s, "a/b.ftd", "-- ftd.text: back"); v != 3 {
		t.Errorf("Write after Delete -> version %d, want 3", v)
	}
}

// TestApply tests applying sync plans to a Store.
func TestApply(t *testing.T, s storedefs.Store) {
	mustWrite(t, s, "a.ftd", "a")
	mustWrite(t, s, "b.ftd", "b")

	conflicted := &cr.Plan{Conflicts: []cr.FileStatus{
		{Op: cr.Update, Path: "a.ftd", Status: cr.Status{Kind: cr.Conflict}}}}
	if err := s.Apply(conflicted); err == nil {
		t.Errorf("Apply of a plan with conflicts -> no error")
	}

	plan := &cr.Plan{
		Statuses: []cr.FileStatus{
			{Op: cr.Update, Path: "a.ftd", Content: []byte("a2")},
			{Op: cr.Add, Path: "c.ftd", Content: []byte("c")},
		},
		Cleanup: []cr.FileStatus{{Op: cr.Delete, Path: "b.ftd"}},
	}
	if err := s.Apply(plan); err != nil {
		t.Fatalf("Apply -> error %v", err)
	}
	m, _ := s.Manifest()
	want := cr.Manifest{
		"a.ftd": {Version: 2},
		"b.ftd": {Version: 2, Deleted: true},
		"c.ftd": {Version: 1},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Manifest() after Apply (-want +got):\n%s", diff)
	}

	// A failing change rolls back the whole plan.
	bad := &cr.Plan{Statuses: []cr.FileStatus{
		{Op: cr.Update, Path: "a.ftd", Content: []byte("a3")},
		{Op: cr.Delete, Path: "missing.ftd"},
	}}
	err := s.Apply(bad)
	wantNotFound(t, "Apply deleting a missing file", err)
	if content, v, _ := s.Latest("a.ftd"); string(content) != "a2" || v != 2 {
		t.Errorf("Latest after a failed Apply -> (%q, %d), want (\"a2\", 2)", content, v)
	}
}
