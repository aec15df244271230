package pkgmanager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoker.run/internal/executor"
	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/testutil"
)

// fakeBinaries answers "--version" with the given system versions and
// corepack resolutions with corepackVersion.
func fakeBinaries(system map[string]string, corepackVersion string, fn func(req executor.Request) (smoketypes.ExecResult, error)) *testutil.FakeExecutor {
	return &testutil.FakeExecutor{Fn: func(req executor.Request) (smoketypes.ExecResult, error) {
		if len(req.Args) > 0 && req.Args[len(req.Args)-1] == "--version" {
			if req.Command == "corepack" {
				return smoketypes.ExecResult{Stdout: corepackVersion + "\n"}, nil
			}
			v, ok := system[req.Command]
			if !ok {
				return smoketypes.ExecResult{}, executor.ErrNotFound
			}
			return smoketypes.ExecResult{Stdout: v + "\n"}, nil
		}
		if fn != nil {
			return fn(req)
		}
		return smoketypes.ExecResult{}, nil
	}}
}

func setup(t *testing.T, spec string, exec *testutil.FakeExecutor) *pkgmanager.Binary {
	t.Helper()

	s, err := smoketypes.ParsePkgManagerSpec(spec)
	require.NoError(t, err)
	b := pkgmanager.NewBinary(s,
		pkgmanager.WithExecutor{Executor: exec},
		pkgmanager.WithLog{Log: testr.New(t)},
		pkgmanager.WithTempRoot(t.TempDir()),
	)
	require.NoError(t, b.Setup(context.Background()))
	return b
}

func TestBinary_Setup(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		spec     string
		system   map[string]string
		corepack string
		key      string
		isSystem bool
	}{
		"system satisfies range": {
			spec: "npm@8", system: map[string]string{"npm": "8.19.4"},
			key: "npm@8.19.4", isSystem: true,
		},
		"system outside range": {
			spec: "npm@7", system: map[string]string{"npm": "8.19.4"}, corepack: "7.24.2",
			key: "npm@7.24.2",
		},
		"tag goes through corepack": {
			spec: "yarn@latest", system: map[string]string{"yarn": "1.22.19"}, corepack: "4.0.1",
			key: "yarn@4.0.1",
		},
		"system tag": {
			spec: "pnpm@system", system: map[string]string{"pnpm": "8.6.0"},
			key: "pnpm@8.6.0", isSystem: true,
		},
		"not installed": {
			spec: "pnpm@8", corepack: "8.15.1",
			key: "pnpm@8.15.1",
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := setup(t, tc.spec, fakeBinaries(tc.system, tc.corepack, nil))
			assert.Equal(t, tc.key, b.Spec().Key())
			assert.Equal(t, tc.isSystem, b.Spec().IsSystem)

			dir := b.TempDir()
			assert.FileExists(t, filepath.Join(dir, "package.json"))
			require.NoError(t, b.Teardown(context.Background()))
			assert.NoDirExists(t, dir)
		})
	}
}

func TestBinary_SetupSystemMissing(t *testing.T) {
	t.Parallel()

	spec, err := smoketypes.ParsePkgManagerSpec("npm@system")
	require.NoError(t, err)
	b := pkgmanager.NewBinary(spec, pkgmanager.WithExecutor{Executor: fakeBinaries(nil, "", nil)})
	require.Error(t, b.Setup(context.Background()))
}

func TestBinary_Pack(t *testing.T) {
	t.Parallel()

	ws := testutil.Workspace("@scope/fixture")
	ws.PkgJSON.Version = "1.2.3"

	tests := map[string]struct {
		spec    string
		system  map[string]string
		stdout  string
		args    []string
		tarball string
	}{
		"npm": {
			spec: "npm@9", system: map[string]string{"npm": "9.8.1"},
			stdout:  "> prepack\n[{\"name\":\"@scope/fixture\",\"filename\":\"scope-fixture-1.2.3.tgz\"}]",
			args:    []string{"pack", "--json", "--pack-destination"},
			tarball: "scope-fixture-1.2.3.tgz",
		},
		"yarn classic": {
			spec: "yarn@1", system: map[string]string{"yarn": "1.22.19"},
			args:    []string{"pack", "--filename"},
			tarball: "scope-fixture-1.2.3.tgz",
		},
		"yarn berry": {
			spec: "yarn@3", system: map[string]string{"yarn": "3.6.0"},
			args:    []string{"pack", "--out"},
			tarball: "scope-fixture-1.2.3.tgz",
		},
		"pnpm": {
			spec: "pnpm@8", system: map[string]string{"pnpm": "8.6.0"},
			stdout:  "package: @scope/fixture@1.2.3\nscope-fixture-1.2.3.tgz\n",
			args:    []string{"pack", "--pack-destination"},
			tarball: "scope-fixture-1.2.3.tgz",
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := fakeBinaries(tc.system, "", func(executor.Request) (smoketypes.ExecResult, error) {
				return smoketypes.ExecResult{Stdout: tc.stdout}, nil
			})
			b := setup(t, tc.spec, exec)

			m, err := b.Pack(context.Background(), pkgmanager.PackRequest{Workspace: ws})
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(b.TempDir(), tc.tarball), m.PkgSpec)
			assert.Equal(t, b.TempDir(), m.Cwd)
			assert.Equal(t, filepath.Join(b.TempDir(), "node_modules", "@scope", "fixture"), m.InstallPath)
			assert.Equal(t, b.Spec(), m.PkgManager)

			reqs := exec.Requests()
			last := reqs[len(reqs)-1]
			assert.Equal(t, ws.LocalPath, last.Cwd)
			assert.Equal(t, tc.args, last.Args[:len(tc.args)])
		})
	}
}

func TestBinary_PackErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	tests := map[string]struct {
		res      smoketypes.ExecResult
		err      error
		parseErr bool
	}{
		"exec error": {err: errBoom},
		"exit code":  {res: smoketypes.ExecResult{ExitCode: 1}},
		"bad output": {res: smoketypes.ExecResult{Stdout: "not json"}, parseErr: true},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := fakeBinaries(map[string]string{"npm": "9.8.1"}, "", func(executor.Request) (smoketypes.ExecResult, error) {
				return tc.res, tc.err
			})
			b := setup(t, "npm@9", exec)

			_, err := b.Pack(context.Background(), pkgmanager.PackRequest{Workspace: testutil.Workspace("a")})
			if tc.parseErr {
				var parseErr *smoketypes.PackParseError
				require.ErrorAs(t, err, &parseErr)
				return
			}
			var packErr *smoketypes.PackError
			require.ErrorAs(t, err, &packErr)
			if tc.err != nil {
				assert.ErrorIs(t, err, errBoom)
			}
		})
	}
}

func TestBinary_Install(t *testing.T) {
	t.Parallel()

	exec := fakeBinaries(map[string]string{"yarn": "1.22.19"}, "", nil)
	b := setup(t, "yarn@1", exec)

	a := testutil.Workspace("a")
	manifests := []smoketypes.InstallManifest{
		{PkgManager: b.Spec(), Workspace: a, PkgName: "a", PkgSpec: "/tmp/a-1.0.0.tgz", Cwd: b.TempDir()},
		{PkgManager: b.Spec(), Workspace: a, PkgName: "lodash", PkgSpec: "lodash@4", Cwd: b.TempDir(), IsAdditional: true},
	}
	res, err := b.Install(context.Background(), manifests)
	require.NoError(t, err)
	assert.Equal(t, manifests, res.Manifests)
	assert.Equal(t, "yarn add --no-lockfile --non-interactive --ignore-engines /tmp/a-1.0.0.tgz lodash@4",
		res.RawResult.CommandLine())
	assert.Equal(t, b.TempDir(), res.RawResult.Cwd)

	// nothing to install, nothing spawned
	n := len(exec.Requests())
	_, err = b.Install(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, exec.Requests(), n)
}

func TestBinary_InstallFailed(t *testing.T) {
	t.Parallel()

	exec := fakeBinaries(map[string]string{"npm": "9.8.1"}, "", func(executor.Request) (smoketypes.ExecResult, error) {
		return smoketypes.ExecResult{ExitCode: 1, Stderr: "ERR!"}, nil
	})
	b := setup(t, "npm@9", exec)

	_, err := b.Install(context.Background(), []smoketypes.InstallManifest{{PkgName: "a", PkgSpec: "a.tgz"}})
	var installErr *smoketypes.InstallError
	require.ErrorAs(t, err, &installErr)
	assert.Contains(t, err.Error(), "exit code 1")
}

func TestBinary_RunScript(t *testing.T) {
	t.Parallel()

	ws := testutil.Workspace("a")
	ws.PkgJSON.Scripts = map[string]string{"build": "tsc", "test": "exit 1"}

	exec := fakeBinaries(nil, "8.19.4", func(req executor.Request) (smoketypes.ExecResult, error) {
		if strings.Contains(strings.Join(req.Args, " "), "run test") {
			return smoketypes.ExecResult{ExitCode: 1, Stderr: "failing"}, nil
		}
		if strings.Contains(strings.Join(req.Args, " "), "run lint") {
			return smoketypes.ExecResult{}, errors.New("spawn failed")
		}
		return smoketypes.ExecResult{}, nil
	})
	// not on PATH, runs through corepack
	b := setup(t, "npm@8", exec)

	manifest := func(script string) smoketypes.RunScriptManifest {
		return smoketypes.RunScriptManifest{PkgManager: b.Spec(), Workspace: ws, Script: script, PkgName: "a", Cwd: "/x"}
	}

	ctx := context.Background()
	res, err := b.RunScript(ctx, manifest("build"))
	require.NoError(t, err)
	assert.Equal(t, smoketypes.ScriptStatusOk, res.Status)
	assert.Equal(t, "corepack npm@8.19.4 run build", res.RawResult.CommandLine())
	assert.Equal(t, "/x", res.RawResult.Cwd)

	res, err = b.RunScript(ctx, manifest("test"))
	require.NoError(t, err)
	assert.Equal(t, smoketypes.ScriptStatusFailed, res.Status)
	var failed *smoketypes.ScriptFailedError
	require.ErrorAs(t, res.Error, &failed)
	assert.Equal(t, 1, failed.ExitCode)

	res, err = b.RunScript(ctx, manifest("missing"))
	require.NoError(t, err)
	assert.Equal(t, smoketypes.ScriptStatusSkipped, res.Status)
	assert.Equal(t, pkgmanager.SkipReasonNoScript, res.SkipReason)

	ws.PkgJSON.Scripts["lint"] = "eslint"
	_, err = b.RunScript(ctx, manifest("lint"))
	var scriptErr *smoketypes.ScriptError
	require.ErrorAs(t, err, &scriptErr)
}

func TestBinary_NotSetUp(t *testing.T) {
	t.Parallel()

	b := pkgmanager.NewBinary(smoketypes.PkgManagerSpec{Name: "npm", Requested: "8"})
	_, err := b.Pack(context.Background(), pkgmanager.PackRequest{Workspace: testutil.Workspace("a")})
	require.ErrorIs(t, err, pkgmanager.ErrNotSetUp)
	require.NoError(t, b.Teardown(context.Background()))
}

func TestBinary_Linger(t *testing.T) {
	t.Parallel()

	spec, err := smoketypes.ParsePkgManagerSpec("npm@8")
	require.NoError(t, err)
	b := pkgmanager.NewBinary(spec,
		pkgmanager.WithExecutor{Executor: fakeBinaries(map[string]string{"npm": "8.1.0"}, "", nil)},
		pkgmanager.WithTempRoot(t.TempDir()),
		pkgmanager.WithLinger(true),
	)
	ctx := context.Background()
	require.NoError(t, b.Setup(ctx))
	require.NoError(t, b.Teardown(ctx))
	_, err = os.Stat(b.TempDir())
	require.NoError(t, err)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	pms, err := pkgmanager.Create(pkgmanager.Builtin(), []string{"npm@8", "yarn@1", "npm@8"})
	require.NoError(t, err)
	require.Len(t, pms, 2)
	assert.Equal(t, "npm@8", pms[0].Spec().Key())

	_, err = pkgmanager.Create(pkgmanager.Builtin(), []string{"bun@1"})
	var unknown *smoketypes.UnknownPkgManagerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"npm", "pnpm", "yarn"}, unknown.Available)

	_, err = pkgmanager.Create(pkgmanager.Builtin(), []string{"npm@>=abc"})
	require.ErrorIs(t, err, smoketypes.ErrInvalidPkgManagerSpec)
}
