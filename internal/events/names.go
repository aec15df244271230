// Package events defines the external event vocabulary emitted to reporters.
//
// Every phase follows the same shape: a phase-level Begin, per package
// manager Begin/Ok/Failed, per unit Begin/Ok/Failed (plus Skipped/Error where
// applicable) and a single phase-level Ok or Failed.
package events

import (
	"strings"

	"smoker.run/internal/smoketypes"
)

// Name of an event.
type Name string

// Event is implemented by every event delivered to reporters.
type Event interface {
	Name() Name
}

const (
	NameSmokeBegin  Name = "SmokeBegin"
	NameSmokeOk     Name = "SmokeOk"
	NameSmokeFailed Name = "SmokeFailed"
	NameBeforeExit  Name = "BeforeExit"

	NamePackBegin            Name = "PackBegin"
	NamePkgManagerPackBegin  Name = "PkgManagerPackBegin"
	NamePkgPackBegin         Name = "PkgPackBegin"
	NamePkgPackOk            Name = "PkgPackOk"
	NamePkgPackFailed        Name = "PkgPackFailed"
	NamePkgManagerPackOk     Name = "PkgManagerPackOk"
	NamePkgManagerPackFailed Name = "PkgManagerPackFailed"
	NamePackOk               Name = "PackOk"
	NamePackFailed           Name = "PackFailed"

	NameInstallBegin            Name = "InstallBegin"
	NamePkgManagerInstallBegin  Name = "PkgManagerInstallBegin"
	NamePkgManagerInstallOk     Name = "PkgManagerInstallOk"
	NamePkgManagerInstallFailed Name = "PkgManagerInstallFailed"
	NameInstallOk               Name = "InstallOk"
	NameInstallFailed           Name = "InstallFailed"

	NameRunScriptsBegin            Name = "RunScriptsBegin"
	NamePkgManagerRunScriptsBegin  Name = "PkgManagerRunScriptsBegin"
	NameRunScriptBegin             Name = "RunScriptBegin"
	NameRunScriptOk                Name = "RunScriptOk"
	NameRunScriptFailed            Name = "RunScriptFailed"
	NameRunScriptSkipped           Name = "RunScriptSkipped"
	NameRunScriptError             Name = "RunScriptError"
	NamePkgManagerRunScriptsOk     Name = "PkgManagerRunScriptsOk"
	NamePkgManagerRunScriptsFailed Name = "PkgManagerRunScriptsFailed"
	NameRunScriptsOk               Name = "RunScriptsOk"
	NameRunScriptsFailed           Name = "RunScriptsFailed"

	NameLintBegin            Name = "LintBegin"
	NamePkgManagerLintBegin  Name = "PkgManagerLintBegin"
	NameRuleBegin            Name = "RuleBegin"
	NameRuleOk               Name = "RuleOk"
	NameRuleFailed           Name = "RuleFailed"
	NameRuleError            Name = "RuleError"
	NamePkgManagerLintOk     Name = "PkgManagerLintOk"
	NamePkgManagerLintFailed Name = "PkgManagerLintFailed"
	NameLintOk               Name = "LintOk"
	NameLintFailed           Name = "LintFailed"
)

// AllNames lists every event name in emission order of a full run.
var AllNames = []Name{
	NameSmokeBegin,
	NamePackBegin, NamePkgManagerPackBegin, NamePkgPackBegin, NamePkgPackOk, NamePkgPackFailed,
	NamePkgManagerPackOk, NamePkgManagerPackFailed, NamePackOk, NamePackFailed,
	NameInstallBegin, NamePkgManagerInstallBegin, NamePkgManagerInstallOk, NamePkgManagerInstallFailed,
	NameInstallOk, NameInstallFailed,
	NameRunScriptsBegin, NamePkgManagerRunScriptsBegin, NameRunScriptBegin, NameRunScriptOk,
	NameRunScriptFailed, NameRunScriptSkipped, NameRunScriptError,
	NamePkgManagerRunScriptsOk, NamePkgManagerRunScriptsFailed, NameRunScriptsOk, NameRunScriptsFailed,
	NameLintBegin, NamePkgManagerLintBegin, NameRuleBegin, NameRuleOk, NameRuleFailed, NameRuleError,
	NamePkgManagerLintOk, NamePkgManagerLintFailed, NameLintOk, NameLintFailed,
	NameSmokeOk, NameSmokeFailed, NameBeforeExit,
}

// IsFailure reports whether the event signals a failure or an error.
func (n Name) IsFailure() bool {
	s := string(n)
	return strings.HasSuffix(s, "Failed") || strings.HasSuffix(s, "Error")
}

// PkgManagerProgress locates a package manager within a phase.
type PkgManagerProgress struct {
	PkgManager smoketypes.PkgManagerSpec `json:"pkgManager"`
	// CurrentPkgManager is 1-based in order of first activity.
	CurrentPkgManager int `json:"currentPkgManager"`
	TotalPkgManagers  int `json:"totalPkgManagers"`
}

// UnitProgress locates a unit of work within its package manager.
type UnitProgress struct {
	// Current is 1-based in order of start.
	Current int `json:"current"`
	Total   int `json:"total"`
}
