package fastncli

import (
	"path/filepath"
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/prog/progtest"
	"github.com/fastn-stack/fastn-sub010/pkg/testutil"
)

var (
	Test      = progtest.Test
	ThatFastn = progtest.ThatFastn
)

func TestParse(t *testing.T) {
	dir := testutil.TempDirWith(t, testutil.Dir{
		"good.ftd":  "-- ftd.text: hello\n",
		"bad.ftd":   "hello\n",
		"empty.ftd": "-- or-type empty:\n",
	})
	good, bad, empty := filepath.Join(dir, "good.ftd"), filepath.Join(dir, "bad.ftd"), filepath.Join(dir, "empty.ftd")

	Test(t, Program,
		ThatFastn("parse", good).
			WritesStdoutContaining(`"name": "ftd.text"`),
		ThatFastn("parse", "-format", "yaml", good).
			WritesStdoutContaining("caption: hello"),
		ThatFastn("parse", "-emit", good).
			WritesStdoutContaining("-- ftd.text: hello"),
		ThatFastn("parse", "-emit", "-").
			WithStdin("-- ftd.text: from stdin\n").
			WritesStdoutContaining("-- ftd.text: from stdin"),
		ThatFastn("parse", bad).
			ExitsWith(1).
			WritesStderrContaining("Parse error: expected a section, found 'hello'"),
		ThatFastn("parse", good, bad).
			ExitsWith(1).
			WritesStdoutContaining(`"file": "`+good+`"`).
			WritesStderrContaining("expected a section"),
		// Classification errors are only reported with -check.
		ThatFastn("parse", "-emit", empty).
			WritesStdoutContaining("-- or-type empty:"),
		ThatFastn("parse", "-check", empty).
			ExitsWith(1).
			WritesStderrContaining("or-type 'empty' has no variants"),
		ThatFastn("parse", "-format", "toml", good).
			ExitsWith(2).
			WritesStderrContaining(`unknown format "toml"`),
		ThatFastn("parse").
			ExitsWith(2).
			WritesStderrContaining("parse needs at least one file"),
	)
}

func TestInterpret(t *testing.T) {
	dir := testutil.TempDirWith(t, testutil.Dir{
		"fastn.yaml": "package: example.com\n",
		"index.ftd":  "-- import: example.com/lib\n\n-- ftd.text: $lib.greeting\n",
		"lib.ftd":    "-- string greeting: hello\n",
		"bad.ftd":    "-- integer n: hello\n",
		"other.yaml": "package: other.com\n",
	})

	Test(t, Program,
		ThatFastn("interpret", "-root", dir, "index.ftd").
			WritesStdoutContaining(`"text": "hello"`),
		ThatFastn("interpret", "-root", dir, "-format", "yaml", "index.ftd").
			WritesStdoutContaining("name: example.com"),
		ThatFastn("interpret", "-root", dir, "-config", filepath.Join(dir, "other.yaml"), "lib.ftd").
			WritesStdoutContaining(`"name": "other.com/lib"`),
		ThatFastn("interpret", "-root", dir, "bad.ftd").
			ExitsWith(1).
			WritesStderrContaining("Type mismatch: wrong type"),
		ThatFastn("interpret", "-root", dir, "missing.ftd").
			ExitsWith(1).
			WritesStderrContaining("missing.ftd"),
		ThatFastn("interpret", "-root", dir).
			ExitsWith(2).
			WritesStderrContaining("interpret needs exactly one file"),
	)
}

const fiveLines = "1\n2\n3\n4\n5\n"

func TestMerge_CRIntoMain(t *testing.T) {
	db := filepath.Join(testutil.TempDir(t), "store.db")

	Test(t, Program,
		ThatFastn("file", "-db", db, "write", "a.ftd").
			WithStdin(fiveLines).
			WritesStdout("a.ftd: version 1\n"),
		ThatFastn("cr", "-db", db, "create", "Edit a").
			WritesStdout("1\n"),
		ThatFastn("cr", "-db", db, "edit", "1", "a.ftd").
			WithStdin("one\n2\n3\n4\n5\n"),
		ThatFastn("file", "-db", db, "write", "a.ftd", "-").
			WithStdin("1\n2\n3\n4\nfive\n").
			WritesStdout("a.ftd: version 2\n"),
		ThatFastn("cr", "-db", db, "show", "1").
			WritesStdoutContaining(`"files": [
    "a.ftd"
  ]`),

		// Without -apply, only the plan is shown.
		ThatFastn("merge", "-db", db, "1", "main").
			WritesStdoutContaining(`"applied": false`),
		ThatFastn("file", "-db", db, "show", "a.ftd").
			WritesStdout("1\n2\n3\n4\nfive\n"),

		ThatFastn("merge", "-db", db, "-apply", "1", "main").
			WritesStdoutContaining(`"applied": true`),
		ThatFastn("file", "-db", db, "show", "a.ftd").
			WritesStdout("one\n2\n3\n4\nfive\n"),
		ThatFastn("file", "-db", db, "show", "a.ftd", "1").
			WritesStdout(fiveLines),
		ThatFastn("file", "-db", db, "versions", "a.ftd").
			WritesStdout("[\n  1,\n  2,\n  3\n]\n"),
		ThatFastn("cr", "-db", db, "show", "1").
			WritesStdoutContaining(`"open": false`),
		ThatFastn("cr", "-db", db, "-format", "yaml", "list").
			WritesStdoutContaining("title: Edit a"),
	)
}

func TestMerge_Conflict(t *testing.T) {
	db := filepath.Join(testutil.TempDir(t), "store.db")

	Test(t, Program,
		ThatFastn("file", "-db", db, "write", "a.ftd").WithStdin(fiveLines).
			WritesStdout("a.ftd: version 1\n"),
		ThatFastn("cr", "-db", db, "create", "Edit a").WritesStdout("1\n"),
		ThatFastn("cr", "-db", db, "edit", "1", "a.ftd").WithStdin("one\n2\n3\n4\n5\n"),
		ThatFastn("file", "-db", db, "write", "a.ftd").WithStdin("uno\n2\n3\n4\n5\n").
			WritesStdout("a.ftd: version 2\n"),

		ThatFastn("merge", "-db", db, "-apply", "1", "main").
			ExitsWith(1).
			WritesStdoutContaining(`"kind": "conflict"`),
		ThatFastn("file", "-db", db, "show", "a.ftd").
			WritesStdout("uno\n2\n3\n4\n5\n"),
	)
}

func TestMerge_MainIntoCR(t *testing.T) {
	db := filepath.Join(testutil.TempDir(t), "store.db")

	Test(t, Program,
		ThatFastn("file", "-db", db, "write", "a.ftd").WithStdin(fiveLines).
			WritesStdout("a.ftd: version 1\n"),
		ThatFastn("cr", "-db", db, "create", "Edit a", "and more").WritesStdout("1\n"),
		ThatFastn("cr", "-db", db, "edit", "1", "a.ftd").WithStdin("one\n2\n3\n4\n5\n"),
		ThatFastn("file", "-db", db, "write", "a.ftd").WithStdin("1\n2\n3\n4\nfive\n").
			WritesStdout("a.ftd: version 2\n"),

		ThatFastn("merge", "-db", db, "-apply", "main", "1").
			WritesStdoutContaining(`"applied": true`),
		ThatFastn("file", "-db", db, "show", "-/1/a.ftd").
			WritesStdout("one\n2\n3\n4\nfive\n"),
		// main is untouched.
		ThatFastn("file", "-db", db, "show", "a.ftd").
			WritesStdout("1\n2\n3\n4\nfive\n"),
		ThatFastn("cr", "-db", db, "show", "1").
			WritesStdoutContaining(`"description": "and more"`),
	)
}

func TestStoreCommands_Errors(t *testing.T) {
	db := filepath.Join(testutil.TempDir(t), "store.db")

	Test(t, Program,
		ThatFastn("merge", "-db", db, "1", "2").
			ExitsWith(2).
			WritesStderrContaining("one of source and destination must be main"),
		ThatFastn("merge", "-db", db, "-style", "fancy", "1", "main").
			ExitsWith(2).
			WritesStderrContaining(`unknown style "fancy"`),
		ThatFastn("merge", "-db", db, "x", "main").
			ExitsWith(2).
			WritesStderrContaining(`bad CR number "x"`),
		ThatFastn("cr", "-db", db, "bogus").
			ExitsWith(2).
			WritesStderrContaining("unknown subcommand: bogus"),
		ThatFastn("cr", "-db", db, "edit", "1").
			ExitsWith(2).
			WritesStderrContaining("usage: edit <n> <file> [<source>|-]"),
		ThatFastn("cr", "-db", db).
			ExitsWith(2).
			WritesStderrContaining("missing subcommand"),
		ThatFastn("cr", "-db", db, "show", "7").
			ExitsWith(2).
			WritesStderrContaining("cr about document not found"),
		ThatFastn("file", "-db", db, "delete", "nope.ftd").
			ExitsWith(2).
			WritesStderrContaining("not found"),
	)
}
