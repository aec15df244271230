// Package workspace finds the packages of a project.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/gobwas/glob"
	"k8s.io/apimachinery/pkg/util/sets"

	"smoker.run/internal/smoketypes"
)

// ErrUnknownWorkspace is returned when a selected workspace does not exist.
var ErrUnknownWorkspace = errors.New("unknown workspace")

type DiscoverConfig struct {
	Log logr.Logger
	// Workspaces selects workspaces by package name or path.
	Workspaces []string
	// All selects every public workspace.
	All bool
	// IncludeRoot adds the project root to the selection.
	IncludeRoot bool
}

func (c *DiscoverConfig) Option(opts ...DiscoverOption) {
	for _, opt := range opts {
		opt.ConfigureDiscover(c)
	}
}

func (c *DiscoverConfig) Default() {
	if c.Log.GetSink() == nil {
		c.Log = logr.Discard()
	}
}

type DiscoverOption interface {
	ConfigureDiscover(*DiscoverConfig)
}

type WithLog struct{ Log logr.Logger }

func (w WithLog) ConfigureDiscover(c *DiscoverConfig) { c.Log = w.Log }

type WithWorkspaces []string

func (w WithWorkspaces) ConfigureDiscover(c *DiscoverConfig) { c.Workspaces = []string(w) }

type WithAll bool

func (w WithAll) ConfigureDiscover(c *DiscoverConfig) { c.All = bool(w) }

type WithIncludeRoot bool

func (w WithIncludeRoot) ConfigureDiscover(c *DiscoverConfig) { c.IncludeRoot = bool(w) }

// Discover reads the project at dir and returns the selected workspaces
// sorted by path. Without a selection only the project root is returned.
func Discover(ctx context.Context, dir string, opts ...DiscoverOption) ([]smoketypes.WorkspaceInfo, error) {
	var cfg DiscoverConfig

	cfg.Option(opts...)
	cfg.Default()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	rootPkg, err := smoketypes.ReadPackageJSON(root)
	if err != nil {
		return nil, err
	}
	rootWs := newWorkspace(root, rootPkg, true)

	all, err := expand(ctx, root, rootPkg.WorkspacePatterns())
	if err != nil {
		return nil, err
	}
	cfg.Log.V(1).Info("discovered workspaces", "count", len(all))

	selected := map[string]smoketypes.WorkspaceInfo{}
	switch {
	case cfg.All:
		for _, ws := range all {
			if ws.Private {
				cfg.Log.V(1).Info("skipping private workspace", "workspace", ws.PkgName)
				continue
			}
			selected[ws.LocalPath] = ws
		}
	case len(cfg.Workspaces) > 0:
		for _, want := range cfg.Workspaces {
			ws, ok := find(root, all, want)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownWorkspace, want)
			}
			selected[ws.LocalPath] = ws
		}
	default:
		selected[root] = rootWs
	}
	if cfg.IncludeRoot {
		selected[root] = rootWs
	}

	if len(selected) == 0 {
		return nil, smoketypes.ErrNoWorkspaces
	}
	out := make([]smoketypes.WorkspaceInfo, 0, len(selected))
	for _, ws := range selected {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalPath < out[j].LocalPath })
	return out, nil
}

func newWorkspace(path string, pkg smoketypes.PackageJSON, isRoot bool) smoketypes.WorkspaceInfo {
	return smoketypes.WorkspaceInfo{
		LocalPath: path,
		PkgName:   pkg.Name,
		PkgJSON:   pkg,
		Private:   pkg.Private,
		IsRoot:    isRoot,
	}
}

func find(root string, all []smoketypes.WorkspaceInfo, want string) (smoketypes.WorkspaceInfo, bool) {
	wantPath := want
	if !filepath.IsAbs(wantPath) {
		wantPath = filepath.Join(root, want)
	}
	for _, ws := range all {
		if ws.PkgName == want || ws.LocalPath == filepath.Clean(wantPath) {
			return ws, true
		}
	}
	return smoketypes.WorkspaceInfo{}, false
}

// expand resolves workspace patterns ("packages/*", "!packages/internal")
// to the directories below root holding a package.json.
func expand(ctx context.Context, root string, patterns []string) ([]smoketypes.WorkspaceInfo, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	var include, exclude []glob.Glob
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(p, "!"), "./"), "/")
		g, err := glob.Compile(strings.TrimSuffix(p, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid workspace pattern %q: %w", p, err)
		}
		if negated {
			exclude = append(exclude, g)
		} else {
			include = append(include, g)
		}
	}

	var out []smoketypes.WorkspaceInfo
	seen := sets.New[string]()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(include, rel) || matchAny(exclude, rel) || seen.Has(path) {
			return nil
		}

		pkg, err := smoketypes.ReadPackageJSON(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		seen.Insert(path)
		out = append(out, newWorkspace(path, pkg, false))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expanding workspaces: %w", err)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
