package smoketypes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPkgManagerSpec is returned for unparsable package manager specs.
	ErrInvalidPkgManagerSpec = errors.New("invalid package manager spec")
	// ErrNoWorkspaces is returned when workspace selection matched nothing.
	ErrNoWorkspaces = errors.New("no workspaces found")
)

// PackError is returned when a package manager fails to pack a workspace.
type PackError struct {
	PkgManager PkgManagerSpec
	Workspace  WorkspaceInfo
	Result     *ExecResult
	Err        error
}

func (e *PackError) Unwrap() error {
	return e.Err
}

func (e *PackError) Error() string {
	msg := fmt.Sprintf("%s failed to pack %s", e.PkgManager, e.Workspace.PkgName)
	if e.Result != nil && e.Result.Failed() {
		msg += fmt.Sprintf(" (exit code %d)", e.Result.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// PackParseError is returned when the output of a pack command can not be understood.
type PackParseError struct {
	PkgManager PkgManagerSpec
	Workspace  WorkspaceInfo
	Output     string
	Err        error
}

func (e *PackParseError) Unwrap() error {
	return e.Err
}

func (e *PackParseError) Error() string {
	return fmt.Sprintf("%s produced unparsable pack output for %s: %v",
		e.PkgManager, e.Workspace.PkgName, e.Err)
}

// InstallError is returned when installing a batch of manifests fails.
type InstallError struct {
	PkgManager PkgManagerSpec
	Manifests  []InstallManifest
	Result     *ExecResult
	Err        error
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *InstallError) Error() string {
	names := make([]string, len(e.Manifests))
	for i := range e.Manifests {
		names[i] = e.Manifests[i].PkgName
	}
	msg := fmt.Sprintf("%s failed to install %s", e.PkgManager, strings.Join(names, ", "))
	if e.Result != nil && e.Result.Failed() {
		msg += fmt.Sprintf(" (exit code %d)", e.Result.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// ScriptError is an infrastructure failure while running a script,
// as opposed to the script itself exiting non-zero.
type ScriptError struct {
	Manifest RunScriptManifest
	Err      error
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s could not run script %q in %s: %v",
		e.Manifest.PkgManager, e.Manifest.Script, e.Manifest.PkgName, e.Err)
}

// ScriptFailedError is carried inside a RunScriptResult when a script exits non-zero.
type ScriptFailedError struct {
	Manifest RunScriptManifest
	ExitCode int
	Output   string
}

func (e *ScriptFailedError) Error() string {
	return fmt.Sprintf("script %q in %s failed with exit code %d (%s)",
		e.Manifest.Script, e.Manifest.PkgName, e.ExitCode, e.Manifest.PkgManager)
}

// RuleError is returned when a rule check itself fails unexpectedly.
type RuleError struct {
	RuleID   string
	Manifest LintManifest
	Err      error
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q errored while checking %s: %v", e.RuleID, e.Manifest.PkgName, e.Err)
}

// ReifyError is returned when a plugin can not be turned into components.
type ReifyError struct {
	Plugin string
	Err    error
}

func (e *ReifyError) Unwrap() error {
	return e.Err
}

func (e *ReifyError) Error() string {
	return fmt.Sprintf("plugin %q: %v", e.Plugin, e.Err)
}

// LifecycleError is returned when a setup or teardown hook fails.
type LifecycleError struct {
	Component string
	Stage     string
	Err       error
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Stage, e.Component, e.Err)
}

// UnknownPkgManagerError is returned when no plugin provides a requested package manager.
type UnknownPkgManagerError struct {
	Spec      string
	Available []string
}

func (e *UnknownPkgManagerError) Error() string {
	return fmt.Sprintf("no package manager matches %q, available: %s",
		e.Spec, strings.Join(e.Available, ", "))
}

// ScriptsFailedError summarizes failed scripts of a RunScripts phase.
type ScriptsFailedError struct {
	Failed []RunScriptResult
}

func (e *ScriptsFailedError) Error() string {
	errs := make([]error, 0, len(e.Failed))
	for _, r := range e.Failed {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	return fmt.Sprintf("%d script(s) failed:%s", len(e.Failed), joinErrorsReadable(true, errs...))
}

// LintFailedError summarizes the error-severity issues of a Lint phase.
type LintFailedError struct {
	Issues []Issue
}

func (e *LintFailedError) Error() string {
	errs := make([]error, len(e.Issues))
	for i := range e.Issues {
		errs[i] = e.Issues[i]
	}
	return fmt.Sprintf("%d lint issue(s):%s", len(e.Issues), joinErrorsReadable(true, errs...))
}
