package events

import "smoker.run/internal/smoketypes"

type PackBegin struct {
	PkgManagers      []smoketypes.PkgManagerSpec `json:"pkgManagers"`
	Workspaces       []smoketypes.WorkspaceInfo  `json:"workspaces"`
	TotalPkgManagers int                         `json:"totalPkgManagers"`
	TotalPkgs        int                         `json:"totalPkgs"`
}

func (PackBegin) Name() Name { return NamePackBegin }

type PkgManagerPackBegin struct {
	PkgManagerProgress
	Workspaces []smoketypes.WorkspaceInfo `json:"workspaces"`
}

func (PkgManagerPackBegin) Name() Name { return NamePkgManagerPackBegin }

type PkgPackBegin struct {
	PkgManagerProgress
	UnitProgress
	Workspace smoketypes.WorkspaceInfo `json:"workspace"`
}

func (PkgPackBegin) Name() Name { return NamePkgPackBegin }

type PkgPackOk struct {
	PkgManagerProgress
	UnitProgress
	Workspace smoketypes.WorkspaceInfo   `json:"workspace"`
	Manifest  smoketypes.InstallManifest `json:"manifest"`
}

func (PkgPackOk) Name() Name { return NamePkgPackOk }

type PkgPackFailed struct {
	PkgManagerProgress
	UnitProgress
	Workspace smoketypes.WorkspaceInfo `json:"workspace"`
	Error     error                    `json:"-"`
}

func (PkgPackFailed) Name() Name { return NamePkgPackFailed }

type PkgManagerPackOk struct {
	PkgManagerProgress
	Manifests []smoketypes.InstallManifest `json:"manifests"`
}

func (PkgManagerPackOk) Name() Name { return NamePkgManagerPackOk }

type PkgManagerPackFailed struct {
	PkgManagerProgress
	Manifests []smoketypes.InstallManifest `json:"manifests"`
	Errors    []error                      `json:"-"`
}

func (PkgManagerPackFailed) Name() Name { return NamePkgManagerPackFailed }

type PackOk struct {
	PkgManagers      []smoketypes.PkgManagerSpec  `json:"pkgManagers"`
	Manifests        []smoketypes.InstallManifest `json:"manifests"`
	TotalPkgManagers int                          `json:"totalPkgManagers"`
	TotalPkgs        int                          `json:"totalPkgs"`
}

func (PackOk) Name() Name { return NamePackOk }

type PackFailed struct {
	PkgManagers      []smoketypes.PkgManagerSpec  `json:"pkgManagers"`
	Manifests        []smoketypes.InstallManifest `json:"manifests"`
	TotalPkgManagers int                          `json:"totalPkgManagers"`
	TotalPkgs        int                          `json:"totalPkgs"`
	Error            error                        `json:"-"`
}

func (PackFailed) Name() Name { return NamePackFailed }
