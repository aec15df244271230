package bus

import (
	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"smoker.run/internal/events"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/supervisor"
)

type (
	PackBus    = Bus[supervisor.PackUnit, smoketypes.InstallManifest]
	InstallBus = Bus[supervisor.InstallUnit, smoketypes.InstallResult]
	ScriptsBus = Bus[supervisor.RunScriptUnit, smoketypes.RunScriptResult]
	LintBus    = Bus[supervisor.LintUnit, smoketypes.RuleResult]
)

// NewPackBus returns the bus of the pack phase.
func NewPackBus(
	pkgManagers []smoketypes.PkgManagerSpec, workspaces []smoketypes.WorkspaceInfo, log logr.Logger,
) *PackBus {
	type (
		bc = Context[supervisor.PackUnit]
		ev = supervisor.PackEvent
	)
	totalPkgs := len(pkgManagers) * len(workspaces)

	return New(Translation[supervisor.PackUnit, smoketypes.InstallManifest]{
		Phase:       "pack",
		PkgManagers: pkgManagers,
		Begin: func() events.Event {
			return events.PackBegin{
				PkgManagers:      pkgManagers,
				Workspaces:       workspaces,
				TotalPkgManagers: len(pkgManagers),
				TotalPkgs:        totalPkgs,
			}
		},
		Table: map[supervisor.Kind]MapFunc[supervisor.PackUnit, smoketypes.InstallManifest]{
			supervisor.KindPkgManagerBegin: func(c bc, e ev) events.Event {
				ws := make([]smoketypes.WorkspaceInfo, len(e.Inputs))
				for i := range e.Inputs {
					ws[i] = e.Inputs[i].Workspace
				}
				return events.PkgManagerPackBegin{PkgManagerProgress: c.PkgManagerProgress, Workspaces: ws}
			},
			supervisor.KindUnitBegin: func(c bc, e ev) events.Event {
				return events.PkgPackBegin{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
					Workspace: e.Input.Workspace,
				}
			},
			supervisor.KindUnitOk: func(c bc, e ev) events.Event {
				return events.PkgPackOk{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
					Workspace: e.Input.Workspace, Manifest: e.Output,
				}
			},
			supervisor.KindUnitError:  packFailed,
			supervisor.KindUnitFailed: packFailed,
			supervisor.KindPkgManagerOk: func(c bc, e ev) events.Event {
				return events.PkgManagerPackOk{PkgManagerProgress: c.PkgManagerProgress, Manifests: e.Outputs}
			},
			supervisor.KindPkgManagerFailed: func(c bc, e ev) events.Event {
				return events.PkgManagerPackFailed{
					PkgManagerProgress: c.PkgManagerProgress, Manifests: e.Outputs, Errors: e.Errors,
				}
			},
		},
		Close: func(s Summary[smoketypes.InstallManifest]) events.Event {
			if s.Failed {
				return events.PackFailed{
					PkgManagers: s.PkgManagers, Manifests: s.Results,
					TotalPkgManagers: s.TotalPkgManagers, TotalPkgs: totalPkgs,
					Error: s.Err(),
				}
			}
			return events.PackOk{
				PkgManagers: s.PkgManagers, Manifests: s.Results,
				TotalPkgManagers: s.TotalPkgManagers, TotalPkgs: totalPkgs,
			}
		},
	}, log)
}

func packFailed(c Context[supervisor.PackUnit], e supervisor.PackEvent) events.Event {
	return events.PkgPackFailed{
		PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
		Workspace: e.Input.Workspace, Error: e.Err,
	}
}

// NewInstallBus returns the bus of the install phase. Installs are batched
// per package manager, so there are no per package events.
func NewInstallBus(
	pkgManagers []smoketypes.PkgManagerSpec, workspaces []smoketypes.WorkspaceInfo, log logr.Logger,
) *InstallBus {
	type (
		bc = Context[supervisor.InstallUnit]
		ev = supervisor.InstallEvent
	)
	totalPkgs := len(pkgManagers) * len(workspaces)

	return New(Translation[supervisor.InstallUnit, smoketypes.InstallResult]{
		Phase:       "install",
		PkgManagers: pkgManagers,
		Begin: func() events.Event {
			return events.InstallBegin{
				PkgManagers:      pkgManagers,
				TotalPkgManagers: len(pkgManagers),
				TotalPkgs:        totalPkgs,
			}
		},
		Table: map[supervisor.Kind]MapFunc[supervisor.InstallUnit, smoketypes.InstallResult]{
			supervisor.KindPkgManagerBegin: func(c bc, _ ev) events.Event {
				return events.PkgManagerInstallBegin{
					PkgManagerProgress: c.PkgManagerProgress, Manifests: installManifests(c.Inputs),
				}
			},
			supervisor.KindPkgManagerOk: func(c bc, e ev) events.Event {
				out := events.PkgManagerInstallOk{PkgManagerProgress: c.PkgManagerProgress}
				if len(e.Outputs) > 0 {
					out.Result = e.Outputs[0]
				}
				return out
			},
			supervisor.KindPkgManagerFailed: func(c bc, e ev) events.Event {
				return events.PkgManagerInstallFailed{
					PkgManagerProgress: c.PkgManagerProgress, Manifests: installManifests(c.Inputs),
					Error: utilerrors.NewAggregate(e.Errors),
				}
			},
		},
		Close: func(s Summary[smoketypes.InstallResult]) events.Event {
			if s.Failed {
				return events.InstallFailed{
					Results: s.Results, TotalPkgManagers: s.TotalPkgManagers, TotalPkgs: totalPkgs,
					Error: s.Err(),
				}
			}
			return events.InstallOk{Results: s.Results, TotalPkgManagers: s.TotalPkgManagers, TotalPkgs: totalPkgs}
		},
	}, log)
}

func installManifests(units []supervisor.InstallUnit) []smoketypes.InstallManifest {
	var out []smoketypes.InstallManifest
	for _, u := range units {
		out = append(out, u.Manifests...)
	}
	return out
}

// NewScriptsBus returns the bus of the script phase.
func NewScriptsBus(scripts []string, installed []smoketypes.InstallResult, log logr.Logger) *ScriptsBus {
	type (
		bc = Context[supervisor.RunScriptUnit]
		ev = supervisor.RunScriptEvent
	)
	pkgManagers := installedPkgManagers(installed)
	totalScripts := 0
	for _, res := range installed {
		totalScripts += len(supervisor.RunScriptManifests(res, scripts))
	}

	return New(Translation[supervisor.RunScriptUnit, smoketypes.RunScriptResult]{
		Phase:       "scripts",
		PkgManagers: pkgManagers,
		Begin: func() events.Event {
			return events.RunScriptsBegin{
				Scripts:          scripts,
				PkgManagers:      pkgManagers,
				TotalPkgManagers: len(pkgManagers),
				TotalScripts:     totalScripts,
			}
		},
		Table: map[supervisor.Kind]MapFunc[supervisor.RunScriptUnit, smoketypes.RunScriptResult]{
			supervisor.KindPkgManagerBegin: func(c bc, e ev) events.Event {
				ms := make([]smoketypes.RunScriptManifest, len(e.Inputs))
				for i := range e.Inputs {
					ms[i] = e.Inputs[i].Manifest
				}
				return events.PkgManagerRunScriptsBegin{PkgManagerProgress: c.PkgManagerProgress, Manifests: ms}
			},
			supervisor.KindUnitBegin: func(c bc, e ev) events.Event {
				return events.RunScriptBegin{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Manifest: e.Input.Manifest,
				}
			},
			supervisor.KindUnitOk: func(c bc, e ev) events.Event {
				return events.RunScriptOk{PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Result: e.Output}
			},
			supervisor.KindUnitFailed: func(c bc, e ev) events.Event {
				return events.RunScriptFailed{PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Result: e.Output}
			},
			supervisor.KindUnitSkipped: func(c bc, e ev) events.Event {
				return events.RunScriptSkipped{PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Result: e.Output}
			},
			supervisor.KindUnitError: func(c bc, e ev) events.Event {
				return events.RunScriptError{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
					Manifest: e.Input.Manifest, Error: e.Err,
				}
			},
			supervisor.KindPkgManagerOk: func(c bc, e ev) events.Event {
				return events.PkgManagerRunScriptsOk{
					PkgManagerProgress: c.PkgManagerProgress,
					ScriptTotals:       events.CountScripts(e.Outputs),
					Results:            e.Outputs,
				}
			},
			supervisor.KindPkgManagerFailed: func(c bc, e ev) events.Event {
				return events.PkgManagerRunScriptsFailed{
					PkgManagerProgress: c.PkgManagerProgress,
					ScriptTotals:       events.CountScripts(e.Outputs),
					Results:            e.Outputs,
					Errors:             e.Errors,
				}
			},
		},
		Close: func(s Summary[smoketypes.RunScriptResult]) events.Event {
			if s.Failed {
				return events.RunScriptsFailed{
					ScriptTotals: events.CountScripts(s.Results), Results: s.Results,
					TotalPkgManagers: s.TotalPkgManagers, Error: scriptsErr(s),
				}
			}
			return events.RunScriptsOk{
				ScriptTotals: events.CountScripts(s.Results), Results: s.Results,
				TotalPkgManagers: s.TotalPkgManagers,
			}
		},
	}, log)
}

// scriptsErr summarizes failed scripts. Infrastructure errors are kept as is.
func scriptsErr(s Summary[smoketypes.RunScriptResult]) error {
	var failed []smoketypes.RunScriptResult
	for _, r := range s.Results {
		if r.Status == smoketypes.ScriptStatusFailed {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 || len(failed) != len(s.Errors) {
		return s.Err()
	}
	return &smoketypes.ScriptsFailedError{Failed: failed}
}

// NewLintBus returns the bus of the lint phase.
func NewLintBus(ruleIDs []string, installed []smoketypes.InstallResult, log logr.Logger) *LintBus {
	type (
		bc = Context[supervisor.LintUnit]
		ev = supervisor.LintEvent
	)
	pkgManagers := installedPkgManagers(installed)
	totalPkgs := 0
	for _, res := range installed {
		totalPkgs += len(res.UnderTest())
	}

	return New(Translation[supervisor.LintUnit, smoketypes.RuleResult]{
		Phase:       "lint",
		PkgManagers: pkgManagers,
		Begin: func() events.Event {
			return events.LintBegin{
				Rules:            ruleIDs,
				PkgManagers:      pkgManagers,
				TotalPkgManagers: len(pkgManagers),
				TotalRules:       len(ruleIDs),
				TotalPkgs:        totalPkgs,
			}
		},
		Table: map[supervisor.Kind]MapFunc[supervisor.LintUnit, smoketypes.RuleResult]{
			supervisor.KindPkgManagerBegin: func(c bc, e ev) events.Event {
				seen := map[string]bool{}
				var ms []smoketypes.LintManifest
				for _, u := range e.Inputs {
					if !seen[u.Manifest.InstallPath] {
						seen[u.Manifest.InstallPath] = true
						ms = append(ms, u.Manifest)
					}
				}
				return events.PkgManagerLintBegin{PkgManagerProgress: c.PkgManagerProgress, Manifests: ms}
			},
			supervisor.KindUnitBegin: func(c bc, e ev) events.Event {
				return events.RuleBegin{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
					RuleID: e.Input.Rule.ID(), Manifest: e.Input.Manifest,
				}
			},
			supervisor.KindUnitOk: func(c bc, e ev) events.Event {
				return events.RuleOk{PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Result: e.Output}
			},
			supervisor.KindUnitFailed: func(c bc, e ev) events.Event {
				return events.RuleFailed{PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit, Result: e.Output}
			},
			supervisor.KindUnitError: func(c bc, e ev) events.Event {
				return events.RuleError{
					PkgManagerProgress: c.PkgManagerProgress, UnitProgress: c.Unit,
					RuleID: e.Input.Rule.ID(), Manifest: e.Input.Manifest, Error: e.Err,
				}
			},
			supervisor.KindPkgManagerOk: func(c bc, e ev) events.Event {
				return events.PkgManagerLintOk{PkgManagerProgress: c.PkgManagerProgress, Results: e.Outputs}
			},
			supervisor.KindPkgManagerFailed: func(c bc, e ev) events.Event {
				return events.PkgManagerLintFailed{PkgManagerProgress: c.PkgManagerProgress, Results: e.Outputs, Errors: e.Errors}
			},
		},
		Close: func(s Summary[smoketypes.RuleResult]) events.Event {
			if s.Failed {
				return events.LintFailed{
					Results: s.Results, TotalPkgManagers: s.TotalPkgManagers, TotalRules: len(ruleIDs),
					Error: s.Err(),
				}
			}
			return events.LintOk{Results: s.Results, TotalPkgManagers: s.TotalPkgManagers, TotalRules: len(ruleIDs)}
		},
	}, log)
}

func installedPkgManagers(installed []smoketypes.InstallResult) []smoketypes.PkgManagerSpec {
	out := make([]smoketypes.PkgManagerSpec, len(installed))
	for i := range installed {
		out[i] = installed[i].PkgManager
	}
	return out
}
