package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/disiqueira/gotree"
	"github.com/pterm/pterm"

	"smoker.run/internal/events"
	"smoker.run/internal/smoketypes"
)

var consoleMessages = map[events.Name]string{
	events.NameSmokeBegin: `Smoking {{ len .Workspaces }} package(s) with {{ .PkgManagers | pmList }}` +
		`{{ with .Scripts }}, scripts: {{ join ", " . }}{{ end }}`,

	events.NamePackBegin:            `Packing {{ .TotalPkgs }} package(s) with {{ .TotalPkgManagers }} package manager(s)`,
	events.NamePkgManagerPackOk:     `{{ .PkgManager }} packed {{ len .Manifests }} package(s) [{{ .CurrentPkgManager }}/{{ .TotalPkgManagers }}]`,
	events.NamePkgPackFailed:        `{{ .PkgManager }} failed to pack {{ .Workspace.PkgName }}: {{ .Error }}`,
	events.NamePkgManagerPackFailed: `{{ .PkgManager }} failed packing [{{ .CurrentPkgManager }}/{{ .TotalPkgManagers }}]`,
	events.NamePackOk:               `Packed {{ len .Manifests }} tarball(s)`,
	events.NamePackFailed:           `Packing failed: {{ .Error }}`,

	events.NameInstallBegin:            `Installing {{ .TotalPkgs }} package(s) with {{ .TotalPkgManagers }} package manager(s)`,
	events.NamePkgManagerInstallOk:     `{{ .PkgManager }} installed {{ len .Result.Manifests }} package(s) [{{ .CurrentPkgManager }}/{{ .TotalPkgManagers }}]`,
	events.NamePkgManagerInstallFailed: `{{ .PkgManager }} failed to install: {{ .Error }}`,
	events.NameInstallOk:               `Installed packages with {{ .TotalPkgManagers }} package manager(s)`,
	events.NameInstallFailed:           `Installation failed: {{ .Error }}`,

	events.NameRunScriptsBegin:            `Running script(s) {{ .Scripts | join ", " | quote }} with {{ .TotalPkgManagers }} package manager(s)`,
	events.NameRunScriptOk:                `{{ .PkgManager }} ran {{ .Result.Manifest.Script | quote }} in {{ .Result.Manifest.PkgName }} [{{ .Current }}/{{ .Total }}]`,
	events.NameRunScriptFailed:            `{{ .PkgManager }} {{ .Result.Manifest.Script | quote }} failed in {{ .Result.Manifest.PkgName }}: {{ .Result.Error }}`,
	events.NameRunScriptSkipped:           `{{ .PkgManager }} skipped {{ .Result.Manifest.Script | quote }} in {{ .Result.Manifest.PkgName }}{{ with .Result.SkipReason }} ({{ . }}){{ end }}`,
	events.NameRunScriptError:             `{{ .PkgManager }} could not run {{ .Manifest.Script | quote }}: {{ .Error }}`,
	events.NamePkgManagerRunScriptsFailed: `{{ .PkgManager }}: {{ .Failed }} of {{ .Total }} script(s) failed`,
	events.NameRunScriptsOk:               `{{ .Passed }} script(s) passed{{ if .Skipped }}, {{ .Skipped }} skipped{{ end }}`,
	events.NameRunScriptsFailed:           `{{ .Failed }} of {{ .Total }} script(s) failed`,

	events.NameLintBegin:            `Linting {{ .TotalPkgs }} package(s) with {{ .TotalRules }} rule(s)`,
	events.NameRuleFailed:           `{{ .PkgManager }} [{{ .Result.RuleID }}] {{ .Result.Manifest.PkgName }}: {{ len .Result.Issues }} issue(s)`,
	events.NameRuleError:            `{{ .PkgManager }} rule {{ .RuleID | quote }} errored: {{ .Error }}`,
	events.NamePkgManagerLintFailed: `{{ .PkgManager }} lint failed [{{ .CurrentPkgManager }}/{{ .TotalPkgManagers }}]`,
	events.NameLintOk:               `Lint passed`,
	events.NameLintFailed:           `Lint failed: {{ .Error }}`,

	events.NameSmokeFailed: `Smoke test failed`,
	events.NameSmokeOk:     `Smoke test passed`,
}

// NewConsole returns the console observer writing human readable progress to out.
func NewConsole(out io.Writer) (*Console, error) {
	funcs := sprig.TxtFuncMap()
	funcs["pmList"] = func(pms []smoketypes.PkgManagerSpec) string {
		names := make([]string, len(pms))
		for i := range pms {
			names[i] = pms[i].String()
		}
		return strings.Join(names, ", ")
	}

	tmpls := make(map[events.Name]*template.Template, len(consoleMessages))
	for name, msg := range consoleMessages {
		t, err := template.New(string(name)).Funcs(funcs).Parse(msg)
		if err != nil {
			return nil, fmt.Errorf("parsing console template %s: %w", name, err)
		}
		tmpls[name] = t
	}

	return &Console{out: out, templates: tmpls}, nil
}

type Console struct {
	out       io.Writer
	templates map[events.Name]*template.Template
}

func (c *Console) Name() string { return "console" }

func (c *Console) OnEvent(_ context.Context, ev events.Event) error {
	if t, ok := c.templates[ev.Name()]; ok {
		var buf bytes.Buffer
		if err := t.Execute(&buf, ev); err != nil {
			return fmt.Errorf("rendering %s: %w", ev.Name(), err)
		}
		if err := c.println(prefixPrinter(ev.Name()).Sprint(buf.String())); err != nil {
			return err
		}
	}

	switch e := ev.(type) {
	case events.RuleFailed:
		for _, issue := range e.Result.Issues {
			if err := c.println("    " + issue.Error()); err != nil {
				return err
			}
		}
	case events.SmokeOk:
		return c.println(ResultTree(e.Results).Print())
	case events.SmokeFailed:
		if err := c.println(ResultTree(e.Results).Print()); err != nil {
			return err
		}
		if e.Error != nil {
			return c.println(pterm.Error.Sprint(e.Error.Error()))
		}
	}
	return nil
}

func (c *Console) println(s string) error {
	if _, err := fmt.Fprintln(c.out, strings.TrimRight(s, "\n")); err != nil {
		return fmt.Errorf("printing to console: %w", err)
	}
	return nil
}

func prefixPrinter(name events.Name) *pterm.PrefixPrinter {
	s := string(name)
	switch {
	case name.IsFailure():
		return &pterm.Error
	case strings.HasSuffix(s, "Skipped"):
		return &pterm.Warning
	case strings.HasSuffix(s, "Ok"):
		return &pterm.Success
	}
	return &pterm.Info
}

// ResultTree renders the results of a run grouped by package manager.
func ResultTree(res smoketypes.SmokeResults) gotree.Tree {
	tree := gotree.New("Results")

	for _, pm := range res.PkgManagers {
		node := tree.Add(pm.String())
		key := pm.Key()

		for _, m := range res.PackManifests {
			if m.PkgManager.Key() == key {
				node.Add("packed " + m.PkgName)
			}
		}
		for _, r := range res.InstallResults {
			if r.PkgManager.Key() == key {
				node.Add(fmt.Sprintf("installed %d package(s)", len(r.UnderTest())))
			}
		}

		var scripts gotree.Tree
		for _, r := range res.ScriptResults {
			if r.Manifest.PkgManager.Key() != key {
				continue
			}
			if scripts == nil {
				scripts = node.Add("scripts")
			}
			scripts.Add(fmt.Sprintf("%s %s: %s", r.Manifest.PkgName, r.Manifest.Script, r.Status))
		}

		var lint gotree.Tree
		for _, r := range res.LintResults {
			if r.Manifest.PkgManager.Key() != key || !r.Failed() {
				continue
			}
			if lint == nil {
				lint = node.Add("lint")
			}
			rule := lint.Add(fmt.Sprintf("%s %s (%s)", r.Manifest.PkgName, r.RuleID, r.Severity))
			for _, issue := range r.Issues {
				rule.Add(issue.Message)
			}
		}
	}

	return tree
}
