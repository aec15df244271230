package pkgmanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"smoker.run/internal/executor"
	"smoker.run/internal/smoketypes"
)

// SkipReasonNoScript is reported for scripts the package does not define.
const SkipReasonNoScript = "script not found in package.json"

// SystemTag requests the binary found on PATH whatever its version.
const SystemTag = "system"

var ErrNotSetUp = errors.New("package manager is not set up")

// Binary drives a real package manager executable. The system binary is
// used when it satisfies the requested range, otherwise corepack provides
// the requested version.
type Binary struct {
	cfg BinaryConfig

	mux     sync.RWMutex
	spec    smoketypes.PkgManagerSpec
	dialect dialect
	tmpDir  string
}

type BinaryConfig struct {
	Executor executor.Executor
	Log      logr.Logger
	// TempRoot is the parent of the work directory, os.TempDir() when empty.
	TempRoot string
	// Linger keeps the work directory after teardown.
	Linger bool
}

func (c *BinaryConfig) Option(opts ...BinaryOption) {
	for _, opt := range opts {
		opt.ConfigureBinary(c)
	}
}

func (c *BinaryConfig) Default() {
	if c.Log.GetSink() == nil {
		c.Log = logr.Discard()
	}
	if c.Executor == nil {
		c.Executor = executor.NewExec(executor.WithLog{Log: c.Log})
	}
}

type BinaryOption interface {
	ConfigureBinary(*BinaryConfig)
}

// NewBinary returns a package manager for spec. Call Setup before use.
func NewBinary(spec smoketypes.PkgManagerSpec, opts ...BinaryOption) *Binary {
	var cfg BinaryConfig

	cfg.Option(opts...)
	cfg.Default()
	cfg.Log = cfg.Log.WithName(spec.Name)

	return &Binary{cfg: cfg, spec: spec}
}

func (b *Binary) Spec() smoketypes.PkgManagerSpec {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.spec
}

func (b *Binary) TempDir() string {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.tmpDir
}

// Setup resolves the concrete version and creates the work directory.
func (b *Binary) Setup(ctx context.Context) error {
	spec, err := b.resolve(ctx)
	if err != nil {
		return err
	}
	d, err := dialectFor(spec)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(b.cfg.TempRoot, "smoker-"+spec.Name+"-")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	// yarn and pnpm refuse to add packages outside of a project
	manifest := []byte(`{"name":"smoker-install","version":"0.0.0","private":true}` + "\n")
	if err := os.WriteFile(filepath.Join(dir, smoketypes.PackageJSONFilename), manifest, 0o644); err != nil {
		return fmt.Errorf("writing work directory package.json: %w", err)
	}

	b.mux.Lock()
	defer b.mux.Unlock()
	b.spec, b.dialect, b.tmpDir = spec, d, dir
	b.cfg.Log.Info("set up", "pkgManager", spec.String(), "dir", dir)
	return nil
}

// Teardown removes the work directory unless Linger is set.
func (b *Binary) Teardown(_ context.Context) error {
	dir := b.TempDir()
	if dir == "" || b.cfg.Linger {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing work directory: %w", err)
	}
	return nil
}

func (b *Binary) resolve(ctx context.Context) (smoketypes.PkgManagerSpec, error) {
	spec := b.Spec()

	res, err := b.cfg.Executor.Exec(ctx, executor.Request{Command: spec.Name, Args: []string{"--version"}})
	if err == nil && !res.Failed() {
		version := strings.TrimSpace(res.Stdout)
		if spec.Requested == SystemTag || (!spec.IsTag() && spec.Satisfies(version)) {
			return spec.Resolved(version, true), nil
		}
	}
	if spec.Requested == SystemTag {
		return spec, fmt.Errorf("no usable %s on PATH", spec.Name)
	}

	res, err = b.cfg.Executor.Exec(ctx, executor.Request{
		Command: "corepack", Args: []string{spec.Name + "@" + spec.Requested, "--version"},
	})
	if err != nil {
		return spec, fmt.Errorf("resolving %s with corepack: %w", spec, err)
	}
	if res.Failed() {
		return spec, fmt.Errorf("resolving %s with corepack: exit code %d: %s",
			spec, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return spec.Resolved(strings.TrimSpace(res.Stdout), false), nil
}

func dialectFor(spec smoketypes.PkgManagerSpec) (dialect, error) {
	switch spec.Name {
	case "npm":
		return npmDialect{}, nil
	case "pnpm":
		return pnpmDialect{}, nil
	case "yarn":
		if spec.Major() == 1 {
			return yarnClassicDialect{}, nil
		}
		return yarnBerryDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported package manager %q", spec.Name)
}

// request builds the process request running the resolved binary.
func (b *Binary) request(args []string, cwd string) executor.Request {
	b.mux.RLock()
	defer b.mux.RUnlock()

	req := executor.Request{Command: b.spec.Name, Args: args, Cwd: cwd}
	if !b.spec.IsSystem {
		req.Command = "corepack"
		req.Args = append([]string{b.spec.Name + "@" + b.spec.Version}, args...)
	}
	if b.dialect != nil {
		req.Env = b.dialect.env()
	}
	return req
}

func (b *Binary) current() (smoketypes.PkgManagerSpec, dialect, string) {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.spec, b.dialect, b.tmpDir
}

func (b *Binary) Pack(ctx context.Context, req PackRequest) (smoketypes.InstallManifest, error) {
	spec, d, tmpDir := b.current()
	ws := req.Workspace
	if d == nil {
		return smoketypes.InstallManifest{}, &smoketypes.PackError{PkgManager: spec, Workspace: ws, Err: ErrNotSetUp}
	}
	dest := req.Dest
	if dest == "" {
		dest = tmpDir
	}

	execReq := b.request(d.packArgs(dest, ws), ws.LocalPath)
	res, err := b.cfg.Executor.Exec(ctx, execReq)
	if err != nil {
		return smoketypes.InstallManifest{}, &smoketypes.PackError{PkgManager: spec, Workspace: ws, Result: &res, Err: err}
	}
	if res.Failed() {
		return smoketypes.InstallManifest{}, &smoketypes.PackError{PkgManager: spec, Workspace: ws, Result: &res}
	}

	tarball, err := d.tarball(res, dest, ws)
	if err != nil {
		return smoketypes.InstallManifest{}, &smoketypes.PackParseError{
			PkgManager: spec, Workspace: ws, Output: res.Stdout, Err: err,
		}
	}

	return smoketypes.InstallManifest{
		PkgManager:  spec,
		Workspace:   ws,
		PkgName:     ws.PkgName,
		PkgSpec:     tarball,
		Cwd:         dest,
		InstallPath: smoketypes.NewInstallPath(dest, ws.PkgName),
	}, nil
}

func (b *Binary) Install(ctx context.Context, manifests []smoketypes.InstallManifest) (smoketypes.InstallResult, error) {
	spec, d, tmpDir := b.current()
	result := smoketypes.InstallResult{PkgManager: spec, Manifests: manifests}
	if len(manifests) == 0 {
		return result, nil
	}
	if d == nil {
		return result, &smoketypes.InstallError{PkgManager: spec, Manifests: manifests, Err: ErrNotSetUp}
	}

	specs := make([]string, len(manifests))
	for i, m := range manifests {
		specs[i] = m.PkgSpec
	}
	cwd := manifests[0].Cwd
	if cwd == "" {
		cwd = tmpDir
	}

	execReq := b.request(d.installArgs(specs), cwd)
	res, err := b.cfg.Executor.Exec(ctx, execReq)
	result.RawResult = res
	if err != nil {
		return result, &smoketypes.InstallError{PkgManager: spec, Manifests: manifests, Result: &res, Err: err}
	}
	if res.Failed() {
		return result, &smoketypes.InstallError{PkgManager: spec, Manifests: manifests, Result: &res}
	}
	return result, nil
}

func (b *Binary) RunScript(ctx context.Context, m smoketypes.RunScriptManifest) (smoketypes.RunScriptResult, error) {
	if !m.Workspace.PkgJSON.HasScript(m.Script) {
		return smoketypes.RunScriptResult{
			Manifest: m, Status: smoketypes.ScriptStatusSkipped, SkipReason: SkipReasonNoScript,
		}, nil
	}

	_, d, _ := b.current()
	if d == nil {
		return smoketypes.RunScriptResult{}, &smoketypes.ScriptError{Manifest: m, Err: ErrNotSetUp}
	}

	execReq := b.request(d.runArgs(m.Script), m.Cwd)
	res, err := b.cfg.Executor.Exec(ctx, execReq)
	if err != nil {
		return smoketypes.RunScriptResult{}, &smoketypes.ScriptError{Manifest: m, Err: err}
	}

	result := smoketypes.RunScriptResult{Manifest: m, Status: smoketypes.ScriptStatusOk, RawResult: &res}
	if res.Failed() {
		result.Status = smoketypes.ScriptStatusFailed
		result.Error = &smoketypes.ScriptFailedError{Manifest: m, ExitCode: res.ExitCode, Output: res.Stderr}
	}
	return result, nil
}
