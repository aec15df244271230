package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoker.run/internal/smoketypes"
)

func writePkg(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644))
}

// monorepo lays out a root with three workspaces, one of them private and
// one excluded by a negated pattern.
func monorepo(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writePkg(t, root, `{"name":"root","private":true,"workspaces":["packages/*","!packages/excluded"]}`)
	writePkg(t, filepath.Join(root, "packages", "a"), `{"name":"a","version":"1.0.0"}`)
	writePkg(t, filepath.Join(root, "packages", "b"), `{"name":"@scope/b","version":"1.0.0"}`)
	writePkg(t, filepath.Join(root, "packages", "internal"), `{"name":"internal","private":true}`)
	writePkg(t, filepath.Join(root, "packages", "excluded"), `{"name":"excluded"}`)
	writePkg(t, filepath.Join(root, "packages", "a", "node_modules", "dep"), `{"name":"dep"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", "no-manifest"), 0o755))
	return root
}

func names(wss []smoketypes.WorkspaceInfo) []string {
	out := make([]string, len(wss))
	for i := range wss {
		out[i] = wss[i].PkgName
	}
	return out
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts     []DiscoverOption
		expected []string
		err      error
	}{
		"root only": {
			expected: []string{"root"},
		},
		"all skips private": {
			opts:     []DiscoverOption{WithAll(true)},
			expected: []string{"a", "@scope/b"},
		},
		"all with root": {
			opts:     []DiscoverOption{WithAll(true), WithIncludeRoot(true)},
			expected: []string{"root", "a", "@scope/b"},
		},
		"select by name and path": {
			opts:     []DiscoverOption{WithWorkspaces{"@scope/b", "packages/internal"}},
			expected: []string{"@scope/b", "internal"},
		},
		"excluded pattern": {
			opts: []DiscoverOption{WithWorkspaces{"excluded"}},
			err:  ErrUnknownWorkspace,
		},
		"unknown": {
			opts: []DiscoverOption{WithWorkspaces{"nope"}},
			err:  ErrUnknownWorkspace,
		},
	}

	root := monorepo(t)
	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := append([]DiscoverOption{WithLog{Log: testr.New(t)}}, tc.opts...)
			wss, err := Discover(context.Background(), root, opts...)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, names(wss))
		})
	}
}

func TestDiscover_Fields(t *testing.T) {
	t.Parallel()

	root := monorepo(t)
	wss, err := Discover(context.Background(), root, WithWorkspaces{"a"}, WithIncludeRoot(true))
	require.NoError(t, err)
	require.Len(t, wss, 2)

	assert.True(t, wss[0].IsRoot)
	assert.True(t, wss[0].Private)
	assert.Equal(t, root, wss[0].LocalPath)

	assert.False(t, wss[1].IsRoot)
	assert.Equal(t, filepath.Join(root, "packages", "a"), wss[1].LocalPath)
	assert.Equal(t, "1.0.0", wss[1].PkgJSON.Version)
}

func TestDiscover_AllPrivate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePkg(t, root, `{"name":"root","private":true,"workspaces":{"packages":["pkgs/*"]}}`)
	writePkg(t, filepath.Join(root, "pkgs", "x"), `{"name":"x","private":true}`)

	_, err := Discover(context.Background(), root, WithAll(true))
	require.ErrorIs(t, err, smoketypes.ErrNoWorkspaces)
}

func TestDiscover_NoPackageJSON(t *testing.T) {
	t.Parallel()

	_, err := Discover(context.Background(), t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}
