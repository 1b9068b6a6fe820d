package cr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

func TestPaths(t *testing.T) {
	tt.Test(t, tt.Fn("FilePath", FilePath), tt.Table{
		tt.Args(2, "a.ftd").Rets("-/2/a.ftd"),
		tt.Args(2, "/docs/b.ftd/").Rets("-/2/docs/b.ftd"),
	})
	tt.Test(t, tt.Fn("TrackPath", TrackPath), tt.Table{
		tt.Args("-/2/a.ftd").Rets(".tracks/-/2/a.ftd.track"),
	})
	tt.Test(t, tt.Fn("FileName", FileName), tt.Table{
		tt.Args(2, "-/2/a.ftd").Rets("a.ftd", nil),
		tt.Args(2, "/-/2/docs/b.ftd").Rets("docs/b.ftd", nil),
		tt.Args(2, "-/3/a.ftd").Rets("", tt.Any),
		tt.Args(2, "-/2").Rets("", tt.Any),
	})
	tt.Test(t, tt.Fn("Number", Number), tt.Table{
		tt.Args("-/12/a.ftd").Rets(12, true),
		tt.Args("/-/1/").Rets(1, true),
		tt.Args("-/x/a.ftd").Rets(0, false),
		tt.Args("a.ftd").Rets(0, false),
	})
	if AboutPath(4) != "-/4/-/about.ftd" || DeletedPath(4) != "-/4/-/deleted.ftd" {
		t.Errorf("bad document paths %q %q", AboutPath(4), DeletedPath(4))
	}
}

func TestClean_NormalizesToNFC(t *testing.T) {
	// "é" written as "e" followed by a combining acute accent.
	if got := Clean("/cafe\u0301.ftd"); got != "caf\u00e9.ftd" {
		t.Errorf("Clean gave %q", got)
	}
}

func TestManifest(t *testing.T) {
	m := Manifest{
		"a.ftd":                   {Version: 3},
		"b.ftd":                   {Version: 1, Deleted: true},
		"-/1/a.ftd":               {Version: 1},
		"-/1/-/about.ftd":         {Version: 1},
		".tracks/-/1/a.ftd.track": {Version: 1},
		"-/10/c.ftd":              {Version: 2},
	}
	if diff := cmp.Diff([]string{"a.ftd", "b.ftd"}, m.Main().Paths()); diff != "" {
		t.Errorf("Main (-want +got):\n%s", diff)
	}
	want := []string{"-/1/-/about.ftd", "-/1/a.ftd", ".tracks/-/1/a.ftd.track"}
	if diff := cmp.Diff(want, m.OfCR(1).Paths()); diff != "" {
		t.Errorf("OfCR (-want +got):\n%s", diff)
	}
	files, tracks := m.OfCR(1).Split()
	if len(files) != 2 || len(tracks) != 1 {
		t.Errorf("Split gave %v and %v", files, tracks)
	}
}

func TestAbout(t *testing.T) {
	for _, a := range []About{
		{Number: 1, Title: "Fix typo", Open: true},
		{Number: 1, Title: "Rework", Description: "Line one\n-- not a section\n;; not a comment", Open: false},
	} {
		got, err := ParseAbout(1, FormatAbout(a))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	}
	wantAbout := "-- import: fastn\n\n-- fastn.cr-about: Closed\nopen: false\n"
	if got := FormatAbout(About{Title: "Closed"}); got != wantAbout {
		t.Errorf("FormatAbout gave %q, want %q", got, wantAbout)
	}
	if _, err := ParseAbout(1, "-- import: fastn\n"); !errors.Is(err, ErrCRAboutNotFound) {
		t.Errorf("got %v, want ErrCRAboutNotFound", err)
	}
	if _, err := ParseAbout(1, "-- fastn.cr-about: x\nopen: maybe\n"); err == nil {
		t.Errorf("no error for a bad open header")
	}
}

func TestEntries(t *testing.T) {
	entries := []Entry{{"b.ftd", 2}, {"a.ftd", 3}}
	content := FormatDeleted(entries)
	want := "-- import: fastn\n\n-- fastn.cr-deleted: a.ftd\nversion: 3\n\n-- fastn.cr-deleted: b.ftd\nversion: 2\n"
	if content != want {
		t.Errorf("FormatDeleted gave %q, want %q", content, want)
	}
	got, err := ParseDeleted(1, content)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Entry{{"a.ftd", 3}, {"b.ftd", 2}}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	track, err := ParseTrack("t", FormatTrack([]Entry{{"a.ftd", 1}}))
	if err != nil || len(track) != 1 || track[0] != (Entry{"a.ftd", 1}) {
		t.Errorf("ParseTrack gave %v, %v", track, err)
	}
	if got, err := ParseTrack("t", ""); got != nil || err != nil {
		t.Errorf("empty track file gave %v, %v", got, err)
	}
	for _, bad := range []string{
		"-- fastn.track: a.ftd\n",
		"-- fastn.track: a.ftd\nversion: x\n",
		"-- fastn.track:\nversion: 1\n",
	} {
		if _, err := ParseTrack("t", bad); err == nil {
			t.Errorf("no error for %q", bad)
		}
	}

	e := Put(entries, Entry{"a.ftd", 5})
	if got, _ := Find(e, "a.ftd"); got.Version != 5 || len(e) != 2 {
		t.Errorf("Put gave %v", e)
	}
	if e := Remove(entries, "a.ftd"); len(e) != 1 || e[0].File != "b.ftd" {
		t.Errorf("Remove gave %v", e)
	}
}

func TestStatusString(t *testing.T) {
	fs := FileStatus{Op: Delete, Path: "a.ftd", Version: 3,
		Status: Status{Kind: CloneDeletedRemoteEdited, RemoteVersion: 4}}
	if got := fs.String(); got != "delete a.ftd: clone-deleted-remote-edited(4)" {
		t.Errorf("got %q", got)
	}
	if got := (Status{}).String(); got != "no-conflict" {
		t.Errorf("got %q", got)
	}
}
