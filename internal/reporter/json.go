package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"smoker.run/internal/events"
	"smoker.run/internal/smoketypes"
)

// Summary is the document written by the json reporter.
type Summary struct {
	Success        bool                         `json:"success"`
	PkgManagers    []smoketypes.PkgManagerSpec  `json:"pkgManagers"`
	Workspaces     []smoketypes.WorkspaceInfo   `json:"workspaces"`
	PackManifests  []smoketypes.InstallManifest `json:"packManifests"`
	InstallResults []smoketypes.InstallResult   `json:"installResults"`
	Scripts        events.ScriptTotals          `json:"scripts"`
	ScriptResults  []smoketypes.RunScriptResult `json:"scriptResults"`
	LintIssues     []smoketypes.Issue           `json:"lintIssues"`
	Errors         []string                     `json:"errors,omitempty"`
}

// NewSummary converts the results of a run.
func NewSummary(res smoketypes.SmokeResults) Summary {
	s := Summary{
		Success:        !res.Failed(),
		PkgManagers:    res.PkgManagers,
		Workspaces:     res.Workspaces,
		PackManifests:  res.PackManifests,
		InstallResults: res.InstallResults,
		Scripts:        events.CountScripts(res.ScriptResults),
		ScriptResults:  res.ScriptResults,
		LintIssues:     res.LintIssues(),
	}
	for _, err := range res.Errors {
		s.Errors = append(s.Errors, err.Error())
	}
	return s
}

// JSON writes a Summary of the run once it completed.
// With an empty path the summary goes to out.
type JSON struct {
	out     io.Writer
	path    string
	summary *Summary
}

func NewJSON(out io.Writer, path string) *JSON {
	return &JSON{out: out, path: path}
}

func (j *JSON) Name() string { return "json" }

func (j *JSON) OnEvent(_ context.Context, ev events.Event) error {
	var s Summary
	switch e := ev.(type) {
	case events.SmokeOk:
		s = NewSummary(e.Results)
	case events.SmokeFailed:
		s = NewSummary(e.Results)
		if len(s.Errors) == 0 && e.Error != nil {
			s.Errors = []string{e.Error.Error()}
		}
	default:
		return nil
	}
	j.summary = &s
	return nil
}

// Teardown writes the summary. Nothing is written for runs that never completed.
func (j *JSON) Teardown(_ context.Context) error {
	if j.summary == nil {
		return nil
	}

	data, err := json.MarshalIndent(j.summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling summary: %w", err)
	}
	data = append(data, '\n')

	if j.path == "" {
		if _, err := j.out.Write(data); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(j.path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary to %s: %w", j.path, err)
	}
	return nil
}
