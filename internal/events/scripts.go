package events

import "smoker.run/internal/smoketypes"

// ScriptTotals counts script results.
type ScriptTotals struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CountScripts tallies results by status.
func CountScripts(results []smoketypes.RunScriptResult) ScriptTotals {
	t := ScriptTotals{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case smoketypes.ScriptStatusOk:
			t.Passed++
		case smoketypes.ScriptStatusFailed:
			t.Failed++
		case smoketypes.ScriptStatusSkipped:
			t.Skipped++
		}
	}
	return t
}

type RunScriptsBegin struct {
	Scripts          []string                    `json:"scripts"`
	PkgManagers      []smoketypes.PkgManagerSpec `json:"pkgManagers"`
	TotalPkgManagers int                         `json:"totalPkgManagers"`
	TotalScripts     int                         `json:"totalScripts"`
}

func (RunScriptsBegin) Name() Name { return NameRunScriptsBegin }

type PkgManagerRunScriptsBegin struct {
	PkgManagerProgress
	Manifests []smoketypes.RunScriptManifest `json:"manifests"`
}

func (PkgManagerRunScriptsBegin) Name() Name { return NamePkgManagerRunScriptsBegin }

type RunScriptBegin struct {
	PkgManagerProgress
	UnitProgress
	Manifest smoketypes.RunScriptManifest `json:"manifest"`
}

func (RunScriptBegin) Name() Name { return NameRunScriptBegin }

type RunScriptOk struct {
	PkgManagerProgress
	UnitProgress
	Result smoketypes.RunScriptResult `json:"result"`
}

func (RunScriptOk) Name() Name { return NameRunScriptOk }

type RunScriptFailed struct {
	PkgManagerProgress
	UnitProgress
	Result smoketypes.RunScriptResult `json:"result"`
}

func (RunScriptFailed) Name() Name { return NameRunScriptFailed }

type RunScriptSkipped struct {
	PkgManagerProgress
	UnitProgress
	Result smoketypes.RunScriptResult `json:"result"`
}

func (RunScriptSkipped) Name() Name { return NameRunScriptSkipped }

type RunScriptError struct {
	PkgManagerProgress
	UnitProgress
	Manifest smoketypes.RunScriptManifest `json:"manifest"`
	Error    error                        `json:"-"`
}

func (RunScriptError) Name() Name { return NameRunScriptError }

type PkgManagerRunScriptsOk struct {
	PkgManagerProgress
	ScriptTotals
	Results []smoketypes.RunScriptResult `json:"results"`
}

func (PkgManagerRunScriptsOk) Name() Name { return NamePkgManagerRunScriptsOk }

type PkgManagerRunScriptsFailed struct {
	PkgManagerProgress
	ScriptTotals
	Results []smoketypes.RunScriptResult `json:"results"`
	Errors  []error                      `json:"-"`
}

func (PkgManagerRunScriptsFailed) Name() Name { return NamePkgManagerRunScriptsFailed }

type RunScriptsOk struct {
	ScriptTotals
	Results          []smoketypes.RunScriptResult `json:"results"`
	TotalPkgManagers int                          `json:"totalPkgManagers"`
}

func (RunScriptsOk) Name() Name { return NameRunScriptsOk }

type RunScriptsFailed struct {
	ScriptTotals
	Results          []smoketypes.RunScriptResult `json:"results"`
	TotalPkgManagers int                          `json:"totalPkgManagers"`
	Error            error                        `json:"-"`
}

func (RunScriptsFailed) Name() Name { return NameRunScriptsFailed }
