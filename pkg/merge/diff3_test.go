package merge

import (
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

func TestMerge3(t *testing.T) {
	base := "1\n2\n3\n4\n5\n"
	tt.Test(t, tt.Fn("Merge3", Merge3), tt.Table{
		tt.Args(base, base, base, StyleMerge).Rets(base, 0),
		tt.Args(base, "one\n2\n3\n4\n5\n", base, StyleMerge).Rets("one\n2\n3\n4\n5\n", 0),
		tt.Args(base, base, "1\n2\n3\n4\nfive\n", StyleMerge).Rets("1\n2\n3\n4\nfive\n", 0),
		tt.Args(base, "one\n2\n3\n4\n5\n", "1\n2\n3\n4\nfive\n", StyleMerge).
			Rets("one\n2\n3\n4\nfive\n", 0),
		// The same change on both sides.
		tt.Args(base, "1\n2\nthree\n4\n5\n", "1\n2\nthree\n4\n5\n", StyleMerge).
			Rets("1\n2\nthree\n4\n5\n", 0),
		// Insertions and deletions.
		tt.Args(base, "0\n1\n2\n3\n4\n5\n", "1\n2\n3\n5\n", StyleMerge).Rets("0\n1\n2\n3\n5\n", 0),
		tt.Args("", "a\n", "", StyleMerge).Rets("a\n", 0),
		tt.Args(base, "1\n2\n3\n4\n5", base, StyleMerge).Rets("1\n2\n3\n4\n5", 0),

		tt.Args(base, "1\n2\nours\n4\n5\n", "1\n2\ntheirs\n4\n5\n", StyleMerge).Rets(
			"1\n2\n"+
				"<<<<<<< ours\nours\n=======\ntheirs\n>>>>>>> theirs\n"+
				"4\n5\n", 1),
		tt.Args(base, "1\n2\nours\n4\n5\n", "1\n2\ntheirs\n4\n5\n", StyleDiff3).Rets(
			"1\n2\n"+
				"<<<<<<< ours\nours\n||||||| original\n3\n=======\ntheirs\n>>>>>>> theirs\n"+
				"4\n5\n", 1),
		// Edits of adjacent lines touch and conflict.
		tt.Args(base, "1\ntwo\n3\n4\n5\n", "1\n2\nthree\n4\n5\n", StyleMerge).Rets(
			"1\n"+
				"<<<<<<< ours\ntwo\n3\n=======\n2\nthree\n>>>>>>> theirs\n"+
				"4\n5\n", 1),
		// A missing final newline is added before a marker.
		tt.Args("a", "b", "c", StyleMerge).Rets(
			"<<<<<<< ours\nb\n=======\nc\n>>>>>>> theirs\n", 1),
		// Two separate conflicts.
		tt.Args(base, "x\n2\n3\n4\ny\n", "p\n2\n3\n4\nq\n", StyleMerge).Rets(
			"<<<<<<< ours\nx\n=======\np\n>>>>>>> theirs\n"+
				"2\n3\n4\n"+
				"<<<<<<< ours\ny\n=======\nq\n>>>>>>> theirs\n", 2),
	})
}

func TestMergeBytes_Binary(t *testing.T) {
	bin := []byte{0xff, 0xfe, 0x00}
	if _, _, err := MergeBytes([]byte("a"), bin, []byte("a"), StyleMerge); err != ErrBinary {
		t.Errorf("got %v, want ErrBinary", err)
	}
	got, n, err := MergeBytes([]byte("a\n"), []byte("b\n"), []byte("a\n"), StyleMerge)
	if err != nil || n != 0 || string(got) != "b\n" {
		t.Errorf("got %q, %d, %v", got, n, err)
	}
}
