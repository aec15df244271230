package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRuleSetting_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data     string
		expected RuleSetting
		err      bool
	}{
		"severity": {
			data:     `"warn"`,
			expected: RuleSetting{Severity: smoketypes.SeverityWarn},
		},
		"pair": {
			data: `["error", {"glob": false}]`,
			expected: RuleSetting{
				Severity: smoketypes.SeverityError,
				Options:  rules.Options{"glob": false},
			},
		},
		"severity only pair": {
			data:     `["off"]`,
			expected: RuleSetting{Severity: smoketypes.SeverityOff},
		},
		"object": {
			data: `{"severity": "warn", "opts": {"files": ["*.log"]}}`,
			expected: RuleSetting{
				Severity: smoketypes.SeverityWarn,
				Options:  rules.Options{"files": []any{"*.log"}},
			},
		},
		"disabled": {
			data:     `false`,
			expected: RuleSetting{Severity: smoketypes.SeverityOff},
		},
		"enabled": {
			data:     `true`,
			expected: RuleSetting{},
		},
		"empty pair": {
			data: `[]`,
			err:  true,
		},
		"long pair": {
			data: `["warn", {}, {}]`,
			err:  true,
		},
		"number": {
			data: `42`,
			err:  true,
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var s RuleSetting
			err := s.UnmarshalJSON([]byte(tc.data))
			if tc.err {
				require.ErrorIs(t, err, ErrInvalidRuleSetting)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "smoker.config.yaml", `
pkgManagers: [npm@9, yarn@1]
scripts: [test]
bail: true
rules:
  no-banned-files: warn
  no-missing-exports: [error, {glob: false}]
expressionRules:
- id: has-license
  expression: has(pkg.license)
plugins: [plugins/house.yaml]
reporters: [console, json]
`)

	f, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, p, f.Path)
	assert.Equal(t, []string{"npm@9", "yarn@1"}, f.PkgManagers)
	assert.Equal(t, ptr.To(true), f.Bail)
	assert.Equal(t, smoketypes.SeverityWarn, f.Rules["no-banned-files"].Severity)
	assert.Equal(t, rules.Options{"glob": false}, f.Rules["no-missing-exports"].Options)
	require.Len(t, f.ExpressionRules, 1)
	assert.Equal(t, []string{filepath.Join(dir, "plugins", "house.yaml")}, f.PluginPaths())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content  string
		contains string
	}{
		"unknown field": {
			content:  "pkgManager: [npm]",
			contains: "unknown field",
		},
		"invalid pkg manager": {
			content:  "pkgManagers: [npm@>=abc]",
			contains: "pkgManagers[0]",
		},
		"invalid severity": {
			content:  "rules: {no-banned-files: loud}",
			contains: "rules[no-banned-files].severity",
		},
		"all and workspaces": {
			content:  "{all: true, workspaces: [a]}",
			contains: "workspaces",
		},
		"expression rule without expression": {
			content:  "expressionRules: [{id: x}]",
			contains: "expressionRules[0].expression",
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := writeFile(t, t.TempDir(), ".smokerrc.yaml", tc.content)
			_, err := Load(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	t.Run("search order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, dir, "smoker.config.json", `{"scripts": ["json"]}`)
		writeFile(t, dir, ".smokerrc.yaml", `scripts: [yaml]`)

		f, err := LoadDir(dir, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"yaml"}, f.Scripts)
	})

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, dir, "smoker.config.yaml", `scripts: [found]`)
		p := writeFile(t, dir, "custom.yaml", `scripts: [explicit]`)

		f, err := LoadDir(dir, p)
		require.NoError(t, err)
		assert.Equal(t, []string{"explicit"}, f.Scripts)
	})

	t.Run("no file", func(t *testing.T) {
		t.Parallel()

		f, err := LoadDir(t.TempDir(), "")
		require.NoError(t, err)
		assert.Equal(t, &File{}, f)
	})

	t.Run("missing explicit path", func(t *testing.T) {
		t.Parallel()

		_, err := LoadDir(t.TempDir(), "/does/not/exist.yaml")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		file      *File
		overrides Overrides
		check     func(t *testing.T, s Settings)
		err       bool
	}{
		"defaults": {
			check: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, DefaultPkgManagers, s.PkgManagers)
				assert.Equal(t, DefaultReporters, s.Reporters)
				assert.True(t, s.Lint)
				assert.False(t, s.Bail)
				assert.Nil(t, s.RuleConfigs)
			},
		},
		"file values": {
			file: &File{
				PkgManagers: []string{"pnpm@8"},
				Lint:        ptr.To(false),
				Rules:       map[string]RuleSetting{"no-banned-files": {Severity: smoketypes.SeverityOff}},
			},
			check: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, []string{"pnpm@8"}, s.PkgManagers)
				assert.False(t, s.Lint)
				assert.Equal(t, map[string]rules.Config{
					"no-banned-files": {Severity: smoketypes.SeverityOff},
				}, s.RuleConfigs)
			},
		},
		"overrides win": {
			file: &File{
				PkgManagers: []string{"pnpm@8"},
				Scripts:     []string{"test"},
				Bail:        ptr.To(false),
				Add:         []string{"typescript"},
				JSONFile:    "file.json",
			},
			overrides: Overrides{
				PkgManagers: []string{"yarn@1"},
				Bail:        ptr.To(true),
				Add:         []string{"tslib"},
				JSONFile:    "flag.json",
			},
			check: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, []string{"yarn@1"}, s.PkgManagers)
				assert.Equal(t, []string{"test"}, s.Scripts)
				assert.True(t, s.Bail)
				assert.Equal(t, []string{"typescript", "tslib"}, s.Add)
				assert.Equal(t, "flag.json", s.JSONFile)
			},
		},
		"all conflicts with workspaces": {
			file:      &File{Workspaces: []string{"a"}},
			overrides: Overrides{All: ptr.To(true)},
			err:       true,
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := Resolve(tc.file, tc.overrides)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, s)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "smoker.config.json", `{"pkgManagers": ["pnpm@8"], "lint": false}`)

	s, err := LoadSettings(dir, "", Overrides{Scripts: []string{"test"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pnpm@8"}, s.PkgManagers)
	assert.Equal(t, []string{"test"}, s.Scripts)
	assert.False(t, s.Lint)
}
