package smoketypes

// SmokeResults collects everything a run produced.
type SmokeResults struct {
	PkgManagers    []PkgManagerSpec  `json:"pkgManagers"`
	Workspaces     []WorkspaceInfo   `json:"workspaces"`
	PackManifests  []InstallManifest `json:"packManifests"`
	InstallResults []InstallResult   `json:"installResults"`
	ScriptResults  []RunScriptResult `json:"scriptResults"`
	LintResults    []RuleResult      `json:"lintResults"`
	Errors         []error           `json:"-"`
}

// Failed reports whether any error was recorded during the run.
func (r SmokeResults) Failed() bool {
	return len(r.Errors) > 0
}

// LintIssues returns every issue raised during linting.
func (r SmokeResults) LintIssues() []Issue {
	var out []Issue
	for _, res := range r.LintResults {
		out = append(out, res.Issues...)
	}
	return out
}
