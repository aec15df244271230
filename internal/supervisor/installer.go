package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
)

// InstallUnit installs the batch of one package manager.
type InstallUnit struct {
	PkgManager pkgmanager.PkgManager
	Manifests  []smoketypes.InstallManifest
}

// Installer supervises one install worker per package manager. Work is
// added as the Packer finishes each package manager.
type Installer struct {
	*Supervisor[InstallUnit, smoketypes.InstallResult]

	additional []string
	root       smoketypes.WorkspaceInfo
}

// InstallEvent is the internal event type of the Installer.
type InstallEvent = Event[InstallUnit, smoketypes.InstallResult]

// InstallerOption configures an Installer.
type InstallerOption interface {
	ConfigureInstaller(*Installer)
}

// WithAdditionalDeps installs the given registry specs next to every batch.
type WithAdditionalDeps []string

func (w WithAdditionalDeps) ConfigureInstaller(i *Installer) {
	i.additional = append(i.additional, w...)
}

// WithRootWorkspace attributes additional deps to the project root.
type WithRootWorkspace smoketypes.WorkspaceInfo

func (w WithRootWorkspace) ConfigureInstaller(i *Installer) {
	i.root = smoketypes.WorkspaceInfo(w)
}

// NewInstaller returns an Installer waiting for install requests.
func NewInstaller(
	emitter Emitter[InstallUnit, smoketypes.InstallResult], log logr.Logger, opts ...InstallerOption,
) *Installer {
	i := &Installer{
		Supervisor: New(Spec[InstallUnit, smoketypes.InstallResult]{
			Name: "installer",
			Work: func(ctx context.Context, u InstallUnit) (smoketypes.InstallResult, error) {
				return u.PkgManager.Install(ctx, u.Manifests)
			},
			Label: func(u InstallUnit) string {
				names := make([]string, len(u.Manifests))
				for i := range u.Manifests {
					names[i] = u.Manifests[i].PkgName
				}
				return fmt.Sprintf("install %s with %s", strings.Join(names, ", "), u.PkgManager.Spec())
			},
		}, emitter, log),
	}
	for _, opt := range opts {
		opt.ConfigureInstaller(i)
	}

	return i
}

// Request queues the install of the manifests a package manager packed.
func (i *Installer) Request(pm pkgmanager.PkgManager, manifests []smoketypes.InstallManifest) {
	batch := append([]smoketypes.InstallManifest(nil), manifests...)
	batch = append(batch, i.additionalManifests(pm, manifests)...)

	i.Add(Group[InstallUnit]{
		PkgManager: pm.Spec(),
		Inputs:     []InstallUnit{{PkgManager: pm, Manifests: batch}},
	})
}

// PackingComplete signals that no more install requests will arrive.
func (i *Installer) PackingComplete() {
	i.Seal()
}

func (i *Installer) additionalManifests(
	pm pkgmanager.PkgManager, packed []smoketypes.InstallManifest,
) []smoketypes.InstallManifest {
	if len(i.additional) == 0 || len(packed) == 0 {
		return nil
	}
	cwd := packed[0].Cwd
	out := make([]smoketypes.InstallManifest, 0, len(i.additional))
	for _, spec := range i.additional {
		name := AdditionalDepName(spec)
		out = append(out, smoketypes.InstallManifest{
			PkgManager:   pm.Spec(),
			Workspace:    i.root,
			PkgName:      name,
			PkgSpec:      spec,
			Cwd:          cwd,
			InstallPath:  smoketypes.NewInstallPath(cwd, name),
			IsAdditional: true,
		})
	}
	return out
}

// AdditionalDepName strips the version from a registry spec,
// keeping the scope of scoped packages: "@a/b@1" -> "@a/b".
func AdditionalDepName(spec string) string {
	if strings.HasPrefix(spec, "@") {
		if idx := strings.Index(spec[1:], "@"); idx >= 0 {
			return spec[:idx+1]
		}
		return spec
	}
	name, _, _ := strings.Cut(spec, "@")
	return name
}
