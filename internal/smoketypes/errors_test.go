package smoketypes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("boom")

func TestErrors_Unwrap(t *testing.T) {
	t.Parallel()

	pm := PkgManagerSpec{Name: "npm", Requested: "8"}
	ws := WorkspaceInfo{PkgName: "foo"}

	for name, err := range map[string]error{
		"pack":      &PackError{PkgManager: pm, Workspace: ws, Err: errTest},
		"packParse": &PackParseError{PkgManager: pm, Workspace: ws, Err: errTest},
		"install":   &InstallError{PkgManager: pm, Err: errTest},
		"script":    &ScriptError{Err: errTest},
		"rule":      &RuleError{RuleID: "r", Err: errTest},
		"reify":     &ReifyError{Plugin: "p", Err: errTest},
		"lifecycle": &LifecycleError{Component: "npm", Stage: "setup", Err: errTest},
	} {
		err := err
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, err, errTest)
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestPackError_Message(t *testing.T) {
	t.Parallel()

	err := &PackError{
		PkgManager: PkgManagerSpec{Name: "npm", Version: "8.19.4"},
		Workspace:  WorkspaceInfo{PkgName: "foo"},
		Result:     &ExecResult{ExitCode: 2},
	}
	assert.Equal(t, "npm@8.19.4 failed to pack foo (exit code 2)", err.Error())
}

func TestLintFailedError_Readable(t *testing.T) {
	t.Parallel()

	err := &LintFailedError{Issues: []Issue{
		{RuleID: "a", PkgName: "foo", Message: "first"},
		{RuleID: "b", PkgName: "foo", Message: "second", FilePath: "index.js"},
	}}
	assert.Equal(t,
		"2 lint issue(s):\n- [a] foo: first\n- [b] foo: second (index.js)",
		err.Error())
}

func TestScriptsFailedError(t *testing.T) {
	t.Parallel()

	m := RunScriptManifest{Script: "build", PkgName: "foo", PkgManager: PkgManagerSpec{Name: "npm", Requested: "8"}}
	err := &ScriptsFailedError{Failed: []RunScriptResult{{
		Manifest: m,
		Status:   ScriptStatusFailed,
		Error:    &ScriptFailedError{Manifest: m, ExitCode: 1},
	}}}
	assert.Contains(t, err.Error(), `1 script(s) failed:`)
	assert.Contains(t, err.Error(), `- script "build" in foo failed with exit code 1 (npm@8)`)
}

func TestReadPackageJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PackageJSONFilename), []byte(`{
  "name": "foo",
  "version": "1.0.0",
  "bin": {"foo": "bin/foo.js"},
  "scripts": {"build": "tsc"},
  "workspaces": {"packages": ["packages/*"]},
  "custom": true
}`), 0o600))

	pkg, err := ReadPackageJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, "foo", pkg.Name)
	assert.True(t, pkg.HasScript("build"))
	assert.False(t, pkg.HasScript("test"))
	assert.Equal(t, []string{"packages/*"}, pkg.WorkspacePatterns())
	assert.Equal(t, []string{"bin/foo.js"}, pkg.BinPaths())
	assert.Equal(t, true, pkg.Raw["custom"])

	_, err = ReadPackageJSON(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestNewInstallPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("tmp", "node_modules", "@scope", "pkg"), NewInstallPath("tmp", "@scope/pkg"))
}
