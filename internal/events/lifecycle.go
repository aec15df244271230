package events

import "smoker.run/internal/smoketypes"

type SmokeBegin struct {
	PkgManagers []smoketypes.PkgManagerSpec `json:"pkgManagers"`
	Workspaces  []smoketypes.WorkspaceInfo  `json:"workspaces"`
	Scripts     []string                    `json:"scripts"`
	Rules       []string                    `json:"rules"`
	Reporters   []string                    `json:"reporters"`
	Plugins     []string                    `json:"plugins"`
}

func (SmokeBegin) Name() Name { return NameSmokeBegin }

type SmokeOk struct {
	Results smoketypes.SmokeResults `json:"results"`
}

func (SmokeOk) Name() Name { return NameSmokeOk }

type SmokeFailed struct {
	Results smoketypes.SmokeResults `json:"results"`
	Error   error                   `json:"-"`
}

func (SmokeFailed) Name() Name { return NameSmokeFailed }

// BeforeExit is the last event every reporter receives.
type BeforeExit struct{}

func (BeforeExit) Name() Name { return NameBeforeExit }
