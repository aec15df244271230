package smoketypes

import (
	"path/filepath"
	"strings"
	"time"
)

// WorkspaceInfo describes one packable unit of the project under test.
// It is created during loading and never mutated afterwards.
type WorkspaceInfo struct {
	// LocalPath is the absolute directory of the workspace.
	LocalPath string `json:"localPath"`
	// PkgName is the "name" field of the workspace's package.json.
	PkgName string `json:"pkgName"`
	// PkgJSON is the parsed package.json.
	PkgJSON PackageJSON `json:"-"`
	// Private mirrors package.json#private.
	Private bool `json:"private"`
	// IsRoot is set for the project root.
	IsRoot bool `json:"isRoot"`
}

// Key is the identity of a workspace.
func (w WorkspaceInfo) Key() string {
	return w.PkgName + "@" + w.LocalPath
}

func (w WorkspaceInfo) String() string {
	return w.PkgName
}

// InstallManifest says: install this tarball, for this package, via this
// package manager, into this directory.
type InstallManifest struct {
	PkgManager PkgManagerSpec `json:"pkgManager"`
	Workspace  WorkspaceInfo  `json:"workspace"`
	// PkgName is the name of the package being installed.
	PkgName string `json:"pkgName"`
	// PkgSpec is the tarball path, or a registry spec for additional deps.
	PkgSpec string `json:"pkgSpec"`
	// Cwd is the directory install runs in.
	Cwd string `json:"cwd"`
	// InstallPath is where the package ends up after install.
	InstallPath string `json:"installPath"`
	// IsAdditional is set for dependencies installed next to the package
	// under test (--add).
	IsAdditional bool `json:"isAdditional"`
}

// NewInstallPath returns <cwd>/node_modules/<pkgName>.
func NewInstallPath(cwd, pkgName string) string {
	return filepath.Join(append([]string{cwd, "node_modules"}, strings.Split(pkgName, "/")...)...)
}

// ExecResult is the raw result of a spawned process.
type ExecResult struct {
	Command  string        `json:"command"`
	Args     []string      `json:"args"`
	Cwd      string        `json:"cwd"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the process exited non-zero.
func (r ExecResult) Failed() bool {
	return r.ExitCode != 0
}

// CommandLine returns the command and its arguments joined by spaces.
func (r ExecResult) CommandLine() string {
	return strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " "))
}

// InstallResult is the result of installing one package manager's batch.
type InstallResult struct {
	PkgManager PkgManagerSpec    `json:"pkgManager"`
	Manifests  []InstallManifest `json:"manifests"`
	RawResult  ExecResult        `json:"rawResult"`
}

// UnderTest returns the manifests that are not additional dependencies.
func (r InstallResult) UnderTest() []InstallManifest {
	out := make([]InstallManifest, 0, len(r.Manifests))
	for _, m := range r.Manifests {
		if !m.IsAdditional {
			out = append(out, m)
		}
	}
	return out
}

// RunScriptManifest is one (script, package, package manager) triple.
type RunScriptManifest struct {
	PkgManager PkgManagerSpec `json:"pkgManager"`
	Workspace  WorkspaceInfo  `json:"workspace"`
	Script     string         `json:"script"`
	PkgName    string         `json:"pkgName"`
	// Cwd is the installed package directory the script runs in.
	Cwd string `json:"cwd"`
	// Index is the position of the script within its package manager's run.
	Index int `json:"index"`
}

// ScriptStatus is the outcome of a script run.
type ScriptStatus string

const (
	ScriptStatusOk      ScriptStatus = "ok"
	ScriptStatusFailed  ScriptStatus = "failed"
	ScriptStatusSkipped ScriptStatus = "skipped"
)

// RunScriptResult is the outcome of one script.
// An ordinary non-zero exit is reported as ScriptStatusFailed with Error set,
// never as a Go error returned by the runner.
type RunScriptResult struct {
	Manifest  RunScriptManifest `json:"manifest"`
	Status    ScriptStatus      `json:"status"`
	RawResult *ExecResult       `json:"rawResult,omitempty"`
	Error     error             `json:"-"`
	// SkipReason explains a skipped result.
	SkipReason string `json:"skipReason,omitempty"`
}

// LintManifest is one installed package to check rules against.
type LintManifest struct {
	PkgManager  PkgManagerSpec `json:"pkgManager"`
	Workspace   WorkspaceInfo  `json:"workspace"`
	PkgName     string         `json:"pkgName"`
	InstallPath string         `json:"installPath"`
}

// RuleResult is the outcome of checking one rule against one package.
type RuleResult struct {
	RuleID   string       `json:"ruleId"`
	Severity Severity     `json:"severity"`
	Manifest LintManifest `json:"manifest"`
	Issues   []Issue      `json:"issues,omitempty"`
}

// Failed reports whether the rule raised any issue.
func (r RuleResult) Failed() bool {
	return len(r.Issues) > 0
}

// Severity of a rule.
type Severity string

const (
	SeverityOff   Severity = "off"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityOff, SeverityWarn, SeverityError:
		return true
	}
	return false
}

// Issue is a single problem raised by a rule.
type Issue struct {
	RuleID   string   `json:"ruleId"`
	PkgName  string   `json:"pkgName"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	// FilePath is relative to the installed package, if the issue concerns a file.
	FilePath string `json:"filePath,omitempty"`
}

func (i Issue) Error() string {
	msg := "[" + i.RuleID + "] " + i.PkgName + ": " + i.Message
	if i.FilePath != "" {
		msg += " (" + i.FilePath + ")"
	}
	return msg
}
