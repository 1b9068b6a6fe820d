package storetest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	"github.com/fastn-stack/fastn-sub010/pkg/store/storedefs"
)

// TestCR tests the CR functionality of a Store.
func TestCR(t *testing.T, s storedefs.Store) {
	mustWrite(t, s, "index.ftd", "v1")
	mustWrite(t, s, "index.ftd", "v2")
	mustWrite(t, s, "old.ftd", "old")

	n1, err := s.CreateCR("Fix typo", "A longer description.")
	if n1 != 1 || err != nil {
		t.Errorf("CreateCR -> (%d, %v), want (1, nil)", n1, err)
	}
	n2, _ := s.CreateCR("Another", "")
	if n2 != 2 {
		t.Errorf("second CreateCR -> %d, want 2", n2)
	}
	ns, err := s.CRs()
	if !cmp.Equal(ns, []int{1, 2}) || err != nil {
		t.Errorf("CRs() -> (%v, %v), want ([1 2], nil)", ns, err)
	}

	about, err := s.CRAbout(1)
	wantAbout := cr.About{Number: 1, Title: "Fix typo", Description: "A longer description.", Open: true}
	if about != wantAbout || err != nil {
		t.Errorf("CRAbout(1) -> (%v, %v), want (%v, nil)", about, err, wantAbout)
	}
	_, err = s.CRAbout(9)
	if !errors.Is(err, cr.ErrCRAboutNotFound) {
		t.Errorf("CRAbout(9) -> error %v, want ErrCRAboutNotFound", err)
	}

	// Editing a main file tracks the version it was copied from, once.
	if err := s.EditInCR(1, "index.ftd", []byte("cr edit")); err != nil {
		t.Fatalf("EditInCR -> error %v", err)
	}
	mustWrite(t, s, "index.ftd", "v3")
	if err := s.EditInCR(1, "index.ftd", []byte("cr edit 2")); err != nil {
		t.Fatalf("EditInCR -> error %v", err)
	}
	entries, err := s.Tracking(1, "index.ftd")
	if diff := cmp.Diff([]cr.Entry{{File: "index.ftd", Version: 2}}, entries); diff != "" || err != nil {
		t.Errorf("Tracking(1, index.ftd) -> error %v, diff (-want +got):\n%s", err, diff)
	}
	content, v, _ := s.Latest(cr.FilePath(1, "index.ftd"))
	if string(content) != "cr edit 2" || v != 2 {
		t.Errorf("Latest of CR copy -> (%q, %d)", content, v)
	}

	// A file new in the CR has no track file.
	if err := s.EditInCR(1, "new.ftd", []byte("new")); err != nil {
		t.Fatalf("EditInCR -> error %v", err)
	}
	_, err = s.Tracking(1, "new.ftd")
	wantNotFound(t, "Tracking of a new file", err)

	if err := s.DeleteInCR(1, "old.ftd"); err != nil {
		t.Fatalf("DeleteInCR -> error %v", err)
	}
	err = s.DeleteInCR(1, "missing.ftd")
	wantNotFound(t, "DeleteInCR of a missing file", err)
	deleted, err := s.Deleted(1)
	if diff := cmp.Diff([]cr.Entry{{File: "old.ftd", Version: 1}}, deleted); diff != "" || err != nil {
		t.Errorf("Deleted(1) -> error %v, diff (-want +got):\n%s", err, diff)
	}
	if deleted, err := s.Deleted(2); len(deleted) != 0 || err != nil {
		t.Errorf("Deleted(2) -> (%v, %v), want (nil, nil)", deleted, err)
	}

	// Closed CRs can no longer be edited.
	closed := cr.FormatAbout(cr.About{Number: 2, Title: "Another"})
	mustWrite(t, s, cr.AboutPath(2), closed)
	if err := s.EditInCR(2, "index.ftd", []byte("x")); err == nil {
		t.Errorf("EditInCR of a closed CR -> no error")
	}
	if !matchErr(s.DeleteInCR(3, "index.ftd"), s.EditInCR(3, "index.ftd", nil)) {
		t.Errorf("DeleteInCR and EditInCR of a missing CR fail differently")
	}
}
