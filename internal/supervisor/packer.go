package supervisor

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
)

// PackUnit packs one workspace with one package manager.
type PackUnit struct {
	PkgManager pkgmanager.PkgManager
	Workspace  smoketypes.WorkspaceInfo
}

// Packer supervises one pack worker per package manager and workspace.
type Packer = Supervisor[PackUnit, smoketypes.InstallManifest]

// PackEvent is the internal event type of the Packer.
type PackEvent = Event[PackUnit, smoketypes.InstallManifest]

// NewPacker returns a sealed Packer for every package manager × workspace pair.
func NewPacker(
	pkgManagers []pkgmanager.PkgManager, workspaces []smoketypes.WorkspaceInfo,
	emitter Emitter[PackUnit, smoketypes.InstallManifest], log logr.Logger,
) *Packer {
	p := New(Spec[PackUnit, smoketypes.InstallManifest]{
		Name: "packer",
		Work: func(ctx context.Context, u PackUnit) (smoketypes.InstallManifest, error) {
			return u.PkgManager.Pack(ctx, pkgmanager.PackRequest{Workspace: u.Workspace})
		},
		Label: func(u PackUnit) string {
			return fmt.Sprintf("pack %s with %s", u.Workspace.PkgName, u.PkgManager.Spec())
		},
	}, emitter, log)

	for _, pm := range pkgManagers {
		units := make([]PackUnit, 0, len(workspaces))
		for _, ws := range workspaces {
			units = append(units, PackUnit{PkgManager: pm, Workspace: ws})
		}
		p.Add(Group[PackUnit]{PkgManager: pm.Spec(), Inputs: units})
	}
	p.Seal()

	return p
}
