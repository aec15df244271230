package supervisor

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
)

// LintUnit checks one rule against one installed package.
type LintUnit struct {
	Rule     rules.Rule
	Config   rules.Config
	Manifest smoketypes.LintManifest
}

// Linter supervises one rule check per rule and installed package.
type Linter = Supervisor[LintUnit, smoketypes.RuleResult]

// LintEvent is the internal event type of the Linter.
type LintEvent = Event[LintUnit, smoketypes.RuleResult]

// RuleSet is an enabled rule with its effective configuration.
type RuleSet struct {
	Rule   rules.Rule
	Config rules.Config
}

// LintManifests returns one manifest per installed package under test.
func LintManifests(result smoketypes.InstallResult) []smoketypes.LintManifest {
	installed := result.UnderTest()
	out := make([]smoketypes.LintManifest, len(installed))
	for i, m := range installed {
		out[i] = smoketypes.LintManifest{
			PkgManager:  result.PkgManager,
			Workspace:   m.Workspace,
			PkgName:     m.PkgName,
			InstallPath: m.InstallPath,
		}
	}
	return out
}

// NewLinter returns a sealed Linter checking every rule against every
// installed package. Disabled rules are left out. Without rules the
// package managers still begin and complete, but no worker is spawned.
func NewLinter(
	ruleSets []RuleSet, installed []smoketypes.InstallResult,
	emitter Emitter[LintUnit, smoketypes.RuleResult], log logr.Logger,
) *Linter {
	l := New(Spec[LintUnit, smoketypes.RuleResult]{
		Name: "linter",
		Work: func(ctx context.Context, u LintUnit) (smoketypes.RuleResult, error) {
			return rules.Run(ctx, u.Rule, u.Config, u.Manifest)
		},
		Label: func(u LintUnit) string {
			return fmt.Sprintf("check %s against %s (%s)", u.Rule.ID(), u.Manifest.PkgName, u.Manifest.PkgManager)
		},
		Classify: classifyRule,
	}, emitter, log)

	enabled := make([]RuleSet, 0, len(ruleSets))
	for _, rs := range ruleSets {
		if rs.Config.Enabled() {
			enabled = append(enabled, rs)
		}
	}

	for _, res := range installed {
		manifests := LintManifests(res)
		units := make([]LintUnit, 0, len(enabled)*len(manifests))
		for _, rs := range enabled {
			for _, m := range manifests {
				units = append(units, LintUnit{Rule: rs.Rule, Config: rs.Config, Manifest: m})
			}
		}
		l.Add(Group[LintUnit]{PkgManager: res.PkgManager, Inputs: units})
	}
	l.Seal()

	return l
}

// classifyRule fails a unit only for issues of severity error. Warnings
// stay in the result of an ok unit.
func classifyRule(res smoketypes.RuleResult) (Kind, error) {
	var errs []smoketypes.Issue
	for _, issue := range res.Issues {
		if issue.Severity == smoketypes.SeverityError {
			errs = append(errs, issue)
		}
	}
	if len(errs) > 0 {
		return KindUnitFailed, &smoketypes.LintFailedError{Issues: errs}
	}
	return KindUnitOk, nil
}
