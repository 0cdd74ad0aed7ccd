package version

import (
	"strings"
	"testing"
)

func TestFullIncludesVersionAndCommit(t *testing.T) {
	prevVersion, prevCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = prevVersion, prevCommit })

	Version, Commit = "9.9.9", "abc123"
	got := Full()
	if !strings.HasPrefix(got, "flowcache 9.9.9 (abc123") {
		t.Fatalf("unexpected version string %q", got)
	}
	if Via() != "1.1 flowcache/9.9.9" {
		t.Fatalf("unexpected Via value %q", Via())
	}
}
