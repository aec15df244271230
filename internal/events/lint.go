package events

import "smoker.run/internal/smoketypes"

type LintBegin struct {
	Rules            []string                    `json:"rules"`
	PkgManagers      []smoketypes.PkgManagerSpec `json:"pkgManagers"`
	TotalPkgManagers int                         `json:"totalPkgManagers"`
	TotalRules       int                         `json:"totalRules"`
	TotalPkgs        int                         `json:"totalPkgs"`
}

func (LintBegin) Name() Name { return NameLintBegin }

type PkgManagerLintBegin struct {
	PkgManagerProgress
	Manifests []smoketypes.LintManifest `json:"manifests"`
}

func (PkgManagerLintBegin) Name() Name { return NamePkgManagerLintBegin }

type RuleBegin struct {
	PkgManagerProgress
	UnitProgress
	RuleID   string                  `json:"ruleId"`
	Manifest smoketypes.LintManifest `json:"manifest"`
}

func (RuleBegin) Name() Name { return NameRuleBegin }

type RuleOk struct {
	PkgManagerProgress
	UnitProgress
	Result smoketypes.RuleResult `json:"result"`
}

func (RuleOk) Name() Name { return NameRuleOk }

type RuleFailed struct {
	PkgManagerProgress
	UnitProgress
	Result smoketypes.RuleResult `json:"result"`
}

func (RuleFailed) Name() Name { return NameRuleFailed }

type RuleError struct {
	PkgManagerProgress
	UnitProgress
	RuleID   string                  `json:"ruleId"`
	Manifest smoketypes.LintManifest `json:"manifest"`
	Error    error                   `json:"-"`
}

func (RuleError) Name() Name { return NameRuleError }

type PkgManagerLintOk struct {
	PkgManagerProgress
	Results []smoketypes.RuleResult `json:"results"`
}

func (PkgManagerLintOk) Name() Name { return NamePkgManagerLintOk }

type PkgManagerLintFailed struct {
	PkgManagerProgress
	Results []smoketypes.RuleResult `json:"results"`
	Errors  []error                 `json:"-"`
}

func (PkgManagerLintFailed) Name() Name { return NamePkgManagerLintFailed }

type LintOk struct {
	Results          []smoketypes.RuleResult `json:"results"`
	TotalPkgManagers int                     `json:"totalPkgManagers"`
	TotalRules       int                     `json:"totalRules"`
}

func (LintOk) Name() Name { return NameLintOk }

type LintFailed struct {
	Results          []smoketypes.RuleResult `json:"results"`
	TotalPkgManagers int                     `json:"totalPkgManagers"`
	TotalRules       int                     `json:"totalRules"`
	Error            error                   `json:"-"`
}

func (LintFailed) Name() Name { return NameLintFailed }
