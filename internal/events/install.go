package events

import "smoker.run/internal/smoketypes"

type InstallBegin struct {
	PkgManagers      []smoketypes.PkgManagerSpec `json:"pkgManagers"`
	TotalPkgManagers int                         `json:"totalPkgManagers"`
	TotalPkgs        int                         `json:"totalPkgs"`
}

func (InstallBegin) Name() Name { return NameInstallBegin }

type PkgManagerInstallBegin struct {
	PkgManagerProgress
	Manifests []smoketypes.InstallManifest `json:"manifests"`
}

func (PkgManagerInstallBegin) Name() Name { return NamePkgManagerInstallBegin }

type PkgManagerInstallOk struct {
	PkgManagerProgress
	Result smoketypes.InstallResult `json:"result"`
}

func (PkgManagerInstallOk) Name() Name { return NamePkgManagerInstallOk }

type PkgManagerInstallFailed struct {
	PkgManagerProgress
	Manifests []smoketypes.InstallManifest `json:"manifests"`
	Error     error                        `json:"-"`
}

func (PkgManagerInstallFailed) Name() Name { return NamePkgManagerInstallFailed }

type InstallOk struct {
	Results          []smoketypes.InstallResult `json:"results"`
	TotalPkgManagers int                        `json:"totalPkgManagers"`
	TotalPkgs        int                        `json:"totalPkgs"`
}

func (InstallOk) Name() Name { return NameInstallOk }

type InstallFailed struct {
	Results          []smoketypes.InstallResult `json:"results"`
	TotalPkgManagers int                        `json:"totalPkgManagers"`
	TotalPkgs        int                        `json:"totalPkgs"`
	Error            error                      `json:"-"`
}

func (InstallFailed) Name() Name { return NameInstallFailed }
