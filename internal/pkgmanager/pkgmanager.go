// Package pkgmanager contains the package manager collaborator contract and
// the builtin npm, yarn and pnpm implementations driving the real binaries.
package pkgmanager

import (
	"context"

	"smoker.run/internal/smoketypes"
)

// PkgManager packs workspaces, installs tarballs and runs scripts with one
// specific package manager binary and version.
type PkgManager interface {
	// Spec identifies the package manager.
	Spec() smoketypes.PkgManagerSpec
	// Pack creates a tarball of a workspace.
	// Errors are *smoketypes.PackError or *smoketypes.PackParseError.
	Pack(ctx context.Context, req PackRequest) (smoketypes.InstallManifest, error)
	// Install installs all manifests in one batch.
	// Errors are *smoketypes.InstallError.
	Install(ctx context.Context, manifests []smoketypes.InstallManifest) (smoketypes.InstallResult, error)
	// RunScript runs a script of an installed package. A script exiting
	// non-zero is reported in the result; errors are *smoketypes.ScriptError.
	RunScript(ctx context.Context, manifest smoketypes.RunScriptManifest) (smoketypes.RunScriptResult, error)
}

// PackRequest asks a package manager to pack one workspace.
type PackRequest struct {
	Workspace smoketypes.WorkspaceInfo
	// Dest is the directory tarballs are written to and install runs in.
	// Empty means the package manager's own temporary directory.
	Dest string
}

// TempDirProvider is implemented by package managers owning a work directory.
type TempDirProvider interface {
	TempDir() string
}
