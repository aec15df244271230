package pkgmanager

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"smoker.run/internal/smoketypes"
)

var errNoTarball = errors.New("no tarball in pack output")

// dialect is the command line flavor of one package manager family.
type dialect interface {
	packArgs(dest string, ws smoketypes.WorkspaceInfo) []string
	// tarball extracts the path of the created tarball from the pack result.
	tarball(res smoketypes.ExecResult, dest string, ws smoketypes.WorkspaceInfo) (string, error)
	installArgs(specs []string) []string
	runArgs(script string) []string
	env() []string
}

// tarballName mirrors the file name npm gives tarballs: "@scope/pkg" at
// 1.0.0 becomes "scope-pkg-1.0.0.tgz".
func tarballName(ws smoketypes.WorkspaceInfo) string {
	name := strings.ReplaceAll(strings.TrimPrefix(ws.PkgName, "@"), "/", "-")
	if v := ws.PkgJSON.Version; v != "" {
		name += "-" + v
	}
	return name + ".tgz"
}

type npmDialect struct{}

func (npmDialect) packArgs(dest string, _ smoketypes.WorkspaceInfo) []string {
	return []string{"pack", "--json", "--pack-destination", dest}
}

type npmPackEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Filename string `json:"filename"`
}

func (npmDialect) tarball(res smoketypes.ExecResult, dest string, _ smoketypes.WorkspaceInfo) (string, error) {
	// lifecycle scripts may print before the JSON document
	out := res.Stdout
	if i := strings.Index(out, "["); i >= 0 {
		out = out[i:]
	}
	var entries []npmPackEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		return "", fmt.Errorf("parsing npm pack output: %w", err)
	}
	if len(entries) == 0 || entries[0].Filename == "" {
		return "", errNoTarball
	}
	return filepath.Join(dest, filepath.Base(entries[0].Filename)), nil
}

func (npmDialect) installArgs(specs []string) []string {
	return append([]string{"install", "--no-audit", "--no-fund", "--no-package-lock"}, specs...)
}

func (npmDialect) runArgs(script string) []string {
	return []string{"run", script}
}

func (npmDialect) env() []string { return nil }

type yarnClassicDialect struct{}

func (yarnClassicDialect) packArgs(dest string, ws smoketypes.WorkspaceInfo) []string {
	return []string{"pack", "--filename", filepath.Join(dest, tarballName(ws))}
}

func (yarnClassicDialect) tarball(_ smoketypes.ExecResult, dest string, ws smoketypes.WorkspaceInfo) (string, error) {
	return filepath.Join(dest, tarballName(ws)), nil
}

func (yarnClassicDialect) installArgs(specs []string) []string {
	return append([]string{"add", "--no-lockfile", "--non-interactive", "--ignore-engines"}, specs...)
}

func (yarnClassicDialect) runArgs(script string) []string {
	return []string{"run", script}
}

func (yarnClassicDialect) env() []string { return nil }

type yarnBerryDialect struct{}

func (yarnBerryDialect) packArgs(dest string, ws smoketypes.WorkspaceInfo) []string {
	return []string{"pack", "--out", filepath.Join(dest, tarballName(ws))}
}

func (yarnBerryDialect) tarball(_ smoketypes.ExecResult, dest string, ws smoketypes.WorkspaceInfo) (string, error) {
	return filepath.Join(dest, tarballName(ws)), nil
}

func (yarnBerryDialect) installArgs(specs []string) []string {
	return append([]string{"add"}, specs...)
}

func (yarnBerryDialect) runArgs(script string) []string {
	return []string{"run", script}
}

func (yarnBerryDialect) env() []string {
	return []string{
		"YARN_ENABLE_IMMUTABLE_INSTALLS=false",
		"YARN_NODE_LINKER=node-modules",
		"YARN_ENABLE_TELEMETRY=0",
	}
}

type pnpmDialect struct{}

func (pnpmDialect) packArgs(dest string, _ smoketypes.WorkspaceInfo) []string {
	return []string{"pack", "--pack-destination", dest}
}

// tarball takes the last line pnpm prints, which is the tarball path.
func (pnpmDialect) tarball(res smoketypes.ExecResult, dest string, _ smoketypes.WorkspaceInfo) (string, error) {
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasSuffix(last, ".tgz") {
		return "", errNoTarball
	}
	if filepath.IsAbs(last) {
		return last, nil
	}
	return filepath.Join(dest, filepath.Base(last)), nil
}

func (pnpmDialect) installArgs(specs []string) []string {
	return append([]string{"add"}, specs...)
}

func (pnpmDialect) runArgs(script string) []string {
	return []string{"run", script}
}

func (pnpmDialect) env() []string { return nil }
