package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()
	assert.True(t, strings.HasPrefix(info, "firestore-import "), info)
	assert.Contains(t, info, runtime.Version())
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", Short())
}

func TestFields(t *testing.T) {
	m := Fields()
	for _, key := range []string{"version", "git_commit", "build_date", "go_version", "os", "arch"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, runtime.Version(), m["go_version"])
}

func TestFromBuildInfo(t *testing.T) {
	stamped := &debug.BuildInfo{
		Main:     debug.Module{Path: "github.com/HerbHall/firestore-import", Version: "v1.2.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	}
	tests := []struct {
		name        string
		bi          *debug.BuildInfo
		version     string
		commit      string
		wantVersion string
		wantCommit  string
	}{
		{name: "no build info", version: "dev", commit: "unknown", wantVersion: "dev", wantCommit: "unknown"},
		{name: "module version", bi: stamped, version: "dev", commit: "unknown", wantVersion: "v1.2.0", wantCommit: "abc123"},
		{name: "ldflags win", bi: stamped, version: "1.0.0", commit: "deadbeef", wantVersion: "1.0.0", wantCommit: "deadbeef"},
		{
			name:        "devel build",
			bi:          &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			version:     "dev",
			commit:      "unknown",
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := fromBuildInfo(tt.bi, tt.version, tt.commit)
			assert.Equal(t, tt.wantVersion, v)
			assert.Equal(t, tt.wantCommit, c)
		})
	}
}
