package testutil

import (
	"context"
	"path/filepath"
	"sync"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
)

// FakePkgManager is an in-memory pkgmanager.PkgManager. Unset funcs
// succeed: Pack returns a manifest below Dir, Install echoes its manifests
// and RunScript reports ok.
type FakePkgManager struct {
	SpecValue smoketypes.PkgManagerSpec
	// Dir is the fake install directory. Defaults to /tmp/<key>.
	Dir string

	PackFn      func(ctx context.Context, req pkgmanager.PackRequest) (smoketypes.InstallManifest, error)
	InstallFn   func(ctx context.Context, manifests []smoketypes.InstallManifest) (smoketypes.InstallResult, error)
	RunScriptFn func(ctx context.Context, m smoketypes.RunScriptManifest) (smoketypes.RunScriptResult, error)
	SetupFn     func(ctx context.Context) error
	TeardownFn  func(ctx context.Context) error

	mu      sync.Mutex
	calls   map[string]int
	scripts []string
}

var _ pkgmanager.PkgManager = (*FakePkgManager)(nil)

// NewFakePkgManager parses spec (e.g. "npm@8") and returns a fake resolved to it.
func NewFakePkgManager(spec string) *FakePkgManager {
	s, err := smoketypes.ParsePkgManagerSpec(spec)
	if err != nil {
		panic(err)
	}
	return &FakePkgManager{SpecValue: s}
}

func (f *FakePkgManager) Spec() smoketypes.PkgManagerSpec {
	return f.SpecValue
}

func (f *FakePkgManager) TempDir() string {
	if f.Dir != "" {
		return f.Dir
	}
	return filepath.Join("/tmp", f.SpecValue.Key())
}

func (f *FakePkgManager) Pack(ctx context.Context, req pkgmanager.PackRequest) (smoketypes.InstallManifest, error) {
	f.record("Pack")
	if f.PackFn != nil {
		return f.PackFn(ctx, req)
	}
	return f.Manifest(req.Workspace), nil
}

// Manifest returns the manifest the default Pack produces for ws.
func (f *FakePkgManager) Manifest(ws smoketypes.WorkspaceInfo) smoketypes.InstallManifest {
	cwd := f.TempDir()
	return smoketypes.InstallManifest{
		PkgManager:  f.SpecValue,
		Workspace:   ws,
		PkgName:     ws.PkgName,
		PkgSpec:     filepath.Join(cwd, ws.PkgName+".tgz"),
		Cwd:         cwd,
		InstallPath: smoketypes.NewInstallPath(cwd, ws.PkgName),
	}
}

func (f *FakePkgManager) Install(
	ctx context.Context, manifests []smoketypes.InstallManifest,
) (smoketypes.InstallResult, error) {
	f.record("Install")
	if f.InstallFn != nil {
		return f.InstallFn(ctx, manifests)
	}
	return smoketypes.InstallResult{
		PkgManager: f.SpecValue,
		Manifests:  manifests,
		RawResult:  smoketypes.ExecResult{Command: f.SpecValue.Name, Args: []string{"install"}},
	}, nil
}

func (f *FakePkgManager) RunScript(
	ctx context.Context, m smoketypes.RunScriptManifest,
) (smoketypes.RunScriptResult, error) {
	f.record("RunScript")
	f.mu.Lock()
	f.scripts = append(f.scripts, m.Script)
	f.mu.Unlock()

	if f.RunScriptFn != nil {
		return f.RunScriptFn(ctx, m)
	}
	return smoketypes.RunScriptResult{
		Manifest:  m,
		Status:    smoketypes.ScriptStatusOk,
		RawResult: &smoketypes.ExecResult{Command: f.SpecValue.Name, Args: []string{"run", m.Script}, Cwd: m.Cwd},
	}, nil
}

func (f *FakePkgManager) Setup(ctx context.Context) error {
	f.record("Setup")
	if f.SetupFn != nil {
		return f.SetupFn(ctx)
	}
	return nil
}

func (f *FakePkgManager) Teardown(ctx context.Context) error {
	f.record("Teardown")
	if f.TeardownFn != nil {
		return f.TeardownFn(ctx)
	}
	return nil
}

// Calls returns how often the named method was called.
func (f *FakePkgManager) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Scripts returns the scripts RunScript was called with, in call order.
func (f *FakePkgManager) Scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

func (f *FakePkgManager) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
}

// Workspace returns a WorkspaceInfo for a package named name.
func Workspace(name string) smoketypes.WorkspaceInfo {
	return smoketypes.WorkspaceInfo{
		LocalPath: filepath.Join("/src", name),
		PkgName:   name,
		PkgJSON:   smoketypes.PackageJSON{Name: name, Scripts: map[string]string{}},
	}
}
