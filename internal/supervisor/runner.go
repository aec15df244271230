package supervisor

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
)

// SkipReasonBail is reported for scripts truncated by bail.
const SkipReasonBail = "bailed after a previous failure"

// RunScriptUnit runs one script of one installed package.
type RunScriptUnit struct {
	PkgManager pkgmanager.PkgManager
	Manifest   smoketypes.RunScriptManifest
}

// Runner supervises script runs. Scripts of one package manager run in
// order; package managers run concurrently.
type Runner = Supervisor[RunScriptUnit, smoketypes.RunScriptResult]

// RunScriptEvent is the internal event type of the Runner.
type RunScriptEvent = Event[RunScriptUnit, smoketypes.RunScriptResult]

// RunnerConfig configures NewRunner.
type RunnerConfig struct {
	Scripts []string
	// Bail stops running further scripts after the first failure.
	Bail bool
}

// RunScriptManifests builds the manifests of one package manager: every
// script for every installed package under test, in script order.
func RunScriptManifests(result smoketypes.InstallResult, scripts []string) []smoketypes.RunScriptManifest {
	installed := result.UnderTest()
	out := make([]smoketypes.RunScriptManifest, 0, len(installed)*len(scripts))
	for _, script := range scripts {
		for _, m := range installed {
			out = append(out, smoketypes.RunScriptManifest{
				PkgManager: result.PkgManager,
				Workspace:  m.Workspace,
				Script:     script,
				PkgName:    m.PkgName,
				Cwd:        m.InstallPath,
				Index:      len(out),
			})
		}
	}
	return out
}

// NewRunner returns a sealed Runner for the given install results.
// pkgManagers is looked up by spec key.
func NewRunner(
	cfg RunnerConfig,
	pkgManagers map[string]pkgmanager.PkgManager, installed []smoketypes.InstallResult,
	emitter Emitter[RunScriptUnit, smoketypes.RunScriptResult], log logr.Logger,
) *Runner {
	r := New(Spec[RunScriptUnit, smoketypes.RunScriptResult]{
		Name: "runner",
		Work: func(ctx context.Context, u RunScriptUnit) (smoketypes.RunScriptResult, error) {
			return u.PkgManager.RunScript(ctx, u.Manifest)
		},
		Label: func(u RunScriptUnit) string {
			return fmt.Sprintf("run %q in %s with %s", u.Manifest.Script, u.Manifest.PkgName, u.PkgManager.Spec())
		},
		Classify:        classifyScript,
		Skipped:         skippedScript,
		Serial:          true,
		CancelOnFailure: cfg.Bail,
	}, emitter, log)

	for _, res := range installed {
		pm, ok := pkgManagers[res.PkgManager.Key()]
		if !ok {
			continue
		}
		manifests := RunScriptManifests(res, cfg.Scripts)
		units := make([]RunScriptUnit, len(manifests))
		for i := range manifests {
			units[i] = RunScriptUnit{PkgManager: pm, Manifest: manifests[i]}
		}
		r.Add(Group[RunScriptUnit]{PkgManager: res.PkgManager, Inputs: units})
	}
	r.Seal()

	return r
}

func classifyScript(res smoketypes.RunScriptResult) (Kind, error) {
	switch res.Status {
	case smoketypes.ScriptStatusFailed:
		err := res.Error
		if err == nil {
			err = &smoketypes.ScriptFailedError{Manifest: res.Manifest}
		}
		return KindUnitFailed, err
	case smoketypes.ScriptStatusSkipped:
		return KindUnitSkipped, nil
	}
	return KindUnitOk, nil
}

func skippedScript(u RunScriptUnit) smoketypes.RunScriptResult {
	return smoketypes.RunScriptResult{
		Manifest:   u.Manifest,
		Status:     smoketypes.ScriptStatusSkipped,
		SkipReason: SkipReasonBail,
	}
}
