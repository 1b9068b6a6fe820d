package buildinfo

import (
	"fmt"
	"runtime/debug"
	"testing"

	. "github.com/fastn-stack/fastn-sub010/pkg/prog/progtest"
	"github.com/fastn-stack/fastn-sub010/pkg/tt"
)

func TestProgram(t *testing.T) {
	Test(t, &Program{},
		ThatFastn("-version").WritesStdout(Value.Version+"\n"),
		ThatFastn("-version", "-json").WritesStdout(mustToJSON(Value.Version)+"\n"),

		ThatFastn("-buildinfo").WritesStdout(
			fmt.Sprintf("Version: %v\nGo version: %v\n", Value.Version, Value.GoVersion)),
		ThatFastn("-buildinfo", "-json").WritesStdout(mustToJSON(Value)+"\n"),
		// -buildinfo wins over -version.
		ThatFastn("-version", "-buildinfo", "-json").WritesStdout(mustToJSON(Value)+"\n"),

		ThatFastn().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func settings(kv ...string) *debug.BuildInfo {
	bi := &debug.BuildInfo{}
	for i := 0; i < len(kv); i += 2 {
		bi.Settings = append(bi.Settings, debug.BuildSetting{Key: kv[i], Value: kv[i+1]})
	}
	return bi
}

func TestDevVersion(t *testing.T) {
	version := func(override string, bi *debug.BuildInfo) string {
		return devVersion("1.2.0", override, func() (*debug.BuildInfo, bool) { return bi, bi != nil })
	}
	tt.Test(t, tt.Fn("devVersion", version), tt.Table{
		tt.Args("", (*debug.BuildInfo)(nil)).Rets("1.2.0-dev.unknown"),
		tt.Args("", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}).
			Rets("1.2.0-dev.unknown"),
		tt.Args("", &debug.BuildInfo{Main: debug.Module{Version: "v1.2.0-rc.1"}}).
			Rets("1.2.0-rc.1"),
		tt.Args("", settings(
			"vcs.revision", "abcdef0123456789",
			"vcs.time", "2024-05-06T07:08:09Z",
			"vcs.modified", "false")).
			Rets("1.2.0-dev.0.20240506070809-abcdef012345"),
		tt.Args("", settings(
			"vcs.revision", "abcdef0123456789",
			"vcs.time", "2024-05-06T07:08:09Z",
			"vcs.modified", "true")).
			Rets("1.2.0-dev.0.20240506070809-abcdef012345-dirty"),
		tt.Args("", settings("vcs.revision", "abc", "vcs.time", "yesterday")).
			Rets("1.2.0-dev.unknown"),
		tt.Args("", settings("vcs.time", "2024-05-06T07:08:09Z")).
			Rets("1.2.0-dev.unknown"),
		tt.Args("20240506070809-abcdef012345", (*debug.BuildInfo)(nil)).
			Rets("1.2.0-dev.0.20240506070809-abcdef012345"),
	})
}
