package merge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
)

const fiveLines = "1\n2\n3\n4\n5\n"

var ctx = context.Background()

func TestCRIntoMain_MergesEditsOfDifferentLines(t *testing.T) {
	s := newMemStore()
	s.write("a.ftd", fiveLines)
	s.createCR(1, "Edit a")
	s.editInCR(1, "a.ftd", "one\n2\n3\n4\n5\n")
	s.write("a.ftd", "1\n2\n3\n4\nfive\n")

	plan, err := CRIntoMain(ctx, s, 1, Options{Apply: true})
	require.NoError(t, err)

	assert.Empty(t, plan.Conflicts)
	require.Len(t, plan.Statuses, 1)
	assert.Equal(t, cr.FileStatus{Op: cr.Update, Path: "a.ftd",
		Content: []byte("one\n2\n3\n4\nfive\n"), Version: 1}, plan.Statuses[0])
	assert.True(t, plan.Applied)
	assert.Equal(t, "one\n2\n3\n4\nfive\n", s.latest("a.ftd"))

	// The CR copy and its track file are gone, and the CR is closed.
	assert.True(t, s.manifest["-/1/a.ftd"].Deleted)
	assert.True(t, s.manifest[".tracks/-/1/a.ftd.track"].Deleted)
	about, err := cr.ParseAbout(1, s.latest(cr.AboutPath(1)))
	require.NoError(t, err)
	assert.False(t, about.Open)
	assert.Equal(t, "Edit a", about.Title)
}

func TestCRIntoMain_ReportsDeletedEdited(t *testing.T) {
	s := newMemStore()
	for i := 0; i < 3; i++ {
		s.write("a.ftd", fiveLines)
	}
	s.createCR(1, "Delete a")
	s.deleteInCR(1, "a.ftd")
	s.write("a.ftd", "changed\n")
	before, _ := s.Manifest()

	plan, err := CRIntoMain(ctx, s, 1, Options{Apply: true})
	require.NoError(t, err)

	assert.Equal(t, []cr.FileStatus{{Op: cr.Delete, Path: "a.ftd", Version: 3,
		Status: cr.Status{Kind: cr.CloneDeletedRemoteEdited, RemoteVersion: 4}}}, plan.Conflicts)
	assert.Empty(t, plan.Statuses)
	assert.Empty(t, plan.Cleanup)
	assert.False(t, plan.Applied)
	after, _ := s.Manifest()
	assert.Equal(t, before, after)
	assert.Zero(t, s.applied)
}

func TestCRIntoMain_ConflictingEditsAreNotApplied(t *testing.T) {
	s := newMemStore()
	s.write("a.ftd", fiveLines)
	s.write("b.ftd", "b\n")
	s.createCR(1, "Edit")
	s.editInCR(1, "a.ftd", "1\n2\nours\n4\n5\n")
	s.editInCR(1, "b.ftd", "b2\n")
	s.write("a.ftd", "1\n2\ntheirs\n4\n5\n")

	plan, err := CRIntoMain(ctx, s, 1, Options{Apply: true})
	require.NoError(t, err)

	require.Len(t, plan.Conflicts, 1)
	c := plan.Conflicts[0]
	assert.Equal(t, "a.ftd", c.Path)
	assert.Equal(t, cr.Status{Kind: cr.Conflict, RemoteVersion: 2}, c.Status)
	assert.Contains(t, string(c.Content), MarkerOurs)
	for _, fs := range plan.Statuses {
		assert.NotEqual(t, "a.ftd", fs.Path)
	}
	assert.False(t, plan.Applied)
	assert.Equal(t, "b\n", s.latest("b.ftd"))
}

func TestCRIntoMain_Cases(t *testing.T) {
	s := newMemStore()
	s.write("same.ftd", "x\n")
	s.write("other.ftd", "main\n")
	s.write("gone.ftd", fiveLines)
	s.write("up-to-date.ftd", "u\n")
	s.write("untouched.ftd", "t\n")
	s.createCR(1, "Many")
	s.editInCR(1, "new.ftd", "new\n")
	s.editInCR(1, "up-to-date.ftd", "u2\n")
	s.editInCR(1, "untouched.ftd", "t\n")
	s.editInCR(1, "gone.ftd", "edited\n")
	s.del("gone.ftd")
	// Created in the CR before main created the same file.
	s.write(cr.FilePath(1, "same.ftd"), "x\n")
	s.write(cr.FilePath(1, "other.ftd"), "cr\n")

	plan, err := CRIntoMain(ctx, s, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, []cr.FileStatus{
		{Op: cr.Add, Path: "new.ftd", Content: []byte("new\n")},
		{Op: cr.Update, Path: "up-to-date.ftd", Content: []byte("u2\n"), Version: 1},
	}, plan.Statuses)
	assert.Equal(t, []cr.FileStatus{
		{Op: cr.Update, Path: "gone.ftd", Content: []byte("edited\n"), Version: 1,
			Status: cr.Status{Kind: cr.CloneEditedRemoteDeleted, RemoteVersion: 2}},
		{Op: cr.Add, Path: "other.ftd", Content: []byte("cr\n"),
			Status: cr.Status{Kind: cr.CloneAddedRemoteAdded, RemoteVersion: 1}},
	}, plan.Conflicts)
	assert.False(t, plan.Applied)
}

func TestCRIntoMain_FileFilter(t *testing.T) {
	s := newMemStore()
	s.write("a.ftd", "a\n")
	s.write("b.ftd", "b\n")
	s.createCR(1, "Two")
	s.editInCR(1, "a.ftd", "a2\n")
	s.editInCR(1, "b.ftd", "b2\n")

	plan, err := CRIntoMain(ctx, s, 1, Options{File: "b.ftd", Apply: true})
	require.NoError(t, err)

	require.Len(t, plan.Statuses, 1)
	assert.Equal(t, "b.ftd", plan.Statuses[0].Path)
	var cleaned []string
	for _, c := range plan.Cleanup {
		cleaned = append(cleaned, c.Path)
	}
	assert.Equal(t, []string{"-/1/b.ftd", ".tracks/-/1/b.ftd.track"}, cleaned)
	assert.Equal(t, "a\n", s.latest("a.ftd"))
	assert.Equal(t, "b2\n", s.latest("b.ftd"))
	about, _ := cr.ParseAbout(1, s.latest(cr.AboutPath(1)))
	assert.True(t, about.Open)
}

func TestCRIntoMain_Errors(t *testing.T) {
	s := newMemStore()
	_, err := CRIntoMain(ctx, s, 7, Options{})
	assert.True(t, errors.Is(err, cr.ErrCRAboutNotFound), "got %v", err)

	s.createCR(1, "Bad")
	s.write(cr.DeletedPath(1), cr.FormatDeleted([]cr.Entry{{File: "nowhere.ftd", Version: 1}}))
	_, err = CRIntoMain(ctx, s, 1, Options{})
	assert.True(t, errors.Is(err, cr.ErrMissingHistory), "got %v", err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	s2 := newMemStore()
	s2.createCR(1, "x")
	_, err = CRIntoMain(canceled, s2, 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCRIntoMain_Binary(t *testing.T) {
	s := newMemStore()
	s.write("logo.png", "\xff\x00v1")
	s.createCR(1, "Logo")
	s.editInCR(1, "logo.png", "\xff\x00cr")
	s.write("logo.png", "\xff\x00v2")

	plan, err := CRIntoMain(ctx, s, 1, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, cr.Status{Kind: cr.Conflict, RemoteVersion: 2}, plan.Conflicts[0].Status)
	assert.Equal(t, []byte("\xff\x00cr"), plan.Conflicts[0].Content)
}

func TestMainIntoCR(t *testing.T) {
	s := newMemStore()
	s.write("a.ftd", fiveLines)
	s.write("dup.ftd", "same\n")
	s.write("del.ftd", "d\n")
	s.createCR(1, "Sync")
	s.editInCR(1, "a.ftd", "one\n2\n3\n4\n5\n")
	s.write(cr.FilePath(1, "dup.ftd"), "same\n")
	s.deleteInCR(1, "del.ftd")
	s.write("a.ftd", "1\n2\n3\n4\nfive\n")
	s.del("del.ftd")

	plan, err := MainIntoCR(ctx, s, 1, Options{Apply: true})
	require.NoError(t, err)
	assert.Empty(t, plan.Conflicts)
	assert.True(t, plan.Applied)
	assert.Empty(t, plan.Cleanup)

	assert.Equal(t, "one\n2\n3\n4\nfive\n", s.latest("-/1/a.ftd"))
	track, err := cr.ParseTrack("t", s.latest(".tracks/-/1/a.ftd.track"))
	require.NoError(t, err)
	assert.Equal(t, []cr.Entry{{File: "a.ftd", Version: 2}}, track)
	assert.True(t, s.manifest["-/1/dup.ftd"].Deleted)
	deleted, err := cr.ParseDeleted(1, s.latest(cr.DeletedPath(1)))
	require.NoError(t, err)
	assert.Empty(t, deleted)

	// Main is not touched, and merging again finds nothing to do.
	assert.Equal(t, "1\n2\n3\n4\nfive\n", s.latest("a.ftd"))
	again, err := MainIntoCR(ctx, s, 1, Options{})
	require.NoError(t, err)
	assert.Empty(t, again.Statuses)
	assert.Empty(t, again.Conflicts)
}

func TestMainIntoCR_Conflicts(t *testing.T) {
	s := newMemStore()
	s.write("a.ftd", fiveLines)
	s.write("b.ftd", "b\n")
	s.write("c.ftd", "c\n")
	s.createCR(1, "Sync")
	s.editInCR(1, "a.ftd", "1\n2\nours\n4\n5\n")
	s.editInCR(1, "b.ftd", "b2\n")
	s.deleteInCR(1, "c.ftd")
	s.write("a.ftd", "1\n2\ntheirs\n4\n5\n")
	s.del("b.ftd")
	s.write("c.ftd", "c2\n")

	plan, err := MainIntoCR(ctx, s, 1, Options{Apply: true})
	require.NoError(t, err)
	var got []string
	for _, c := range plan.Conflicts {
		got = append(got, c.String())
	}
	assert.ElementsMatch(t, []string{
		"update a.ftd: conflict(2)",
		"update b.ftd: clone-edited-remote-deleted(2)",
		"delete c.ftd: clone-deleted-remote-edited(2)",
	}, got)
	assert.False(t, plan.Applied)
}
