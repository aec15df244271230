package versioncmd

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoker.run/internal/version"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args     []string
		expected []string
		excluded []string
	}{
		"short": {
			expected: []string{"smoker ", runtime.Version()},
			excluded: []string{"Kind"},
		},
		"embedded": {
			args:     []string{"--embedded"},
			expected: []string{"smoker ", "Kind", "path"},
		},
		"embedded plain": {
			args:     []string{"--embedded", "--plain"},
			expected: []string{"smoker.run/cmd/smoker/versioncmd"},
			excluded: []string{"Kind"},
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCmd()
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}
			cmd.SetOut(stdout)
			cmd.SetErr(stderr)
			cmd.SetArgs(append([]string{}, tc.args...))

			require.NoError(t, cmd.Execute())
			require.Empty(t, stderr.String())
			for _, e := range tc.expected {
				assert.Contains(t, stdout.String(), e)
			}
			for _, e := range tc.excluded {
				assert.NotContains(t, stdout.String(), e)
			}
		})
	}
}

func TestBuildInfoTable(t *testing.T) {
	t.Parallel()

	info := version.Info{BuildInfo: &debug.BuildInfo{
		Path: "smoker.run/cmd/smoker",
		Main: debug.Module{Path: "smoker.run", Version: "v1.2.0"},
		Deps: []*debug.Module{
			{Path: "github.com/spf13/cobra", Version: "v1.7.0"},
			{
				Path: "github.com/gobwas/glob", Version: "v0.2.3",
				Replace: &debug.Module{Path: "../glob", Version: "v0.0.0"},
			},
		},
		Settings: []debug.BuildSetting{{Key: "GOOS", Value: "linux"}},
	}}

	tbl := buildInfoTable(info)
	assert.Equal(t, [][]string{
		{"path", "smoker.run/cmd/smoker", ""},
		{"mod", "smoker.run", "v1.2.0"},
		{"dep", "github.com/spf13/cobra", "v1.7.0"},
		{"dep", "github.com/gobwas/glob", "v0.2.3 => ../glob v0.0.0"},
		{"build", "GOOS", "linux"},
	}, tbl.Rows())
}
