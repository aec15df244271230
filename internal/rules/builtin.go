package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"smoker.run/internal/smoketypes"
)

// Builtin returns the rules shipped with smoker.
func Builtin() []Rule {
	return []Rule{
		NoBannedFiles{},
		NoMissingEntryPoint{},
		NoMissingExports{},
		NoMissingPkgFiles{},
	}
}

// DefaultBannedFiles are never expected in a published package.
var DefaultBannedFiles = []string{
	"**/.env",
	"**/.env.*",
	"**/*.pem",
	"**/*.key",
	"**/id_rsa",
	"**/id_dsa",
	"**/.npmrc",
	"**/.git-credentials",
	"**/.DS_Store",
}

// NoBannedFiles reports sensitive or junk files shipped in the package.
type NoBannedFiles struct{}

func (NoBannedFiles) ID() string { return "no-banned-files" }

func (NoBannedFiles) Description() string {
	return "Checks that no sensitive or junk files are published"
}

func (NoBannedFiles) DefaultSeverity() smoketypes.Severity { return smoketypes.SeverityError }

// Check walks the installed package. Option "bannedFiles" adds globs,
// option "allow" removes matches again.
func (NoBannedFiles) Check(ctx context.Context, rc *Context, opts Options) error {
	banned, err := compileGlobs(append(append([]string(nil), DefaultBannedFiles...), opts.Strings("bannedFiles")...))
	if err != nil {
		return err
	}
	allowed, err := compileGlobs(opts.Strings("allow"))
	if err != nil {
		return err
	}

	files, err := packageFiles(ctx, rc.Manifest.InstallPath)
	if err != nil {
		return err
	}
	for _, f := range files {
		// leading slash so "**/x" also matches top-level files
		p := "/" + f
		if matchAny(banned, p) && !matchAny(allowed, p) {
			rc.AddIssue(fmt.Sprintf("banned file %q is published", f), f)
		}
	}
	return nil
}

// NoMissingEntryPoint reports a "main" or "module" field pointing nowhere.
type NoMissingEntryPoint struct{}

func (NoMissingEntryPoint) ID() string { return "no-missing-entry-point" }

func (NoMissingEntryPoint) Description() string {
	return "Checks that the package entry point exists"
}

func (NoMissingEntryPoint) DefaultSeverity() smoketypes.Severity { return smoketypes.SeverityError }

func (NoMissingEntryPoint) Check(_ context.Context, rc *Context, _ Options) error {
	pkg := rc.PkgJSON
	if pkg.Main == "" && pkg.Module == "" {
		// a package with exports and no main is fine, exports are checked elsewhere
		if pkg.Exports != nil || len(pkg.BinPaths()) > 0 {
			return nil
		}
		if !resolvesModule(rc, "index") {
			rc.AddIssue(`no "main" field and no index.js found`)
		}
		return nil
	}
	for field, target := range map[string]string{"main": pkg.Main, "module": pkg.Module} {
		if target == "" {
			continue
		}
		if !resolvesModule(rc, target) {
			rc.AddIssue(fmt.Sprintf("%q field points to missing file %q", field, target), target)
		}
	}
	return nil
}

// NoMissingExports reports "exports" targets which do not exist.
type NoMissingExports struct{}

func (NoMissingExports) ID() string { return "no-missing-exports" }

func (NoMissingExports) Description() string {
	return `Checks that every "exports" target exists`
}

func (NoMissingExports) DefaultSeverity() smoketypes.Severity { return smoketypes.SeverityError }

// Check resolves every target. Subpath patterns containing "*" must match
// at least one file. Option "types" (default true) includes "types" conditions.
func (NoMissingExports) Check(ctx context.Context, rc *Context, opts Options) error {
	if rc.PkgJSON.Exports == nil {
		return nil
	}
	checkTypes := opts.Bool("types", true)

	var files []string
	for _, t := range exportTargets(rc.PkgJSON.Exports, "") {
		if t.condition == "types" && !checkTypes {
			continue
		}
		if !strings.HasPrefix(t.target, "./") {
			rc.AddIssue(fmt.Sprintf("export %q has target %q not starting with ./", t.subpath, t.target))
			continue
		}
		rel := strings.TrimPrefix(t.target, "./")
		if !strings.Contains(rel, "*") {
			if _, err := os.Stat(rc.Path(rel)); err != nil {
				rc.AddIssue(fmt.Sprintf("export %q points to missing file %q", t.subpath, t.target), rel)
			}
			continue
		}

		if files == nil {
			var err error
			if files, err = packageFiles(ctx, rc.Manifest.InstallPath); err != nil {
				return err
			}
		}
		g, err := glob.Compile(strings.ReplaceAll(rel, "*", "**"), '/')
		if err != nil {
			return fmt.Errorf("export %q: %w", t.subpath, err)
		}
		if !anyMatch(g, files) {
			rc.AddIssue(fmt.Sprintf("export %q pattern %q matches no file", t.subpath, t.target), rel)
		}
	}
	return nil
}

// NoMissingPkgFiles reports "bin", "browser" and "types" fields pointing nowhere.
type NoMissingPkgFiles struct{}

func (NoMissingPkgFiles) ID() string { return "no-missing-pkg-files" }

func (NoMissingPkgFiles) Description() string {
	return `Checks that files referenced by "bin", "browser" and "types" exist`
}

func (NoMissingPkgFiles) DefaultSeverity() smoketypes.Severity { return smoketypes.SeverityError }

// Check can skip fields via the "bin", "browser" and "types" bool options.
func (NoMissingPkgFiles) Check(_ context.Context, rc *Context, opts Options) error {
	pkg := rc.PkgJSON
	var refs []fieldRef
	if opts.Bool("bin", true) {
		for _, p := range pkg.BinPaths() {
			refs = append(refs, fieldRef{"bin", p})
		}
	}
	if opts.Bool("browser", true) {
		if b, ok := pkg.Browser.(string); ok && b != "" {
			refs = append(refs, fieldRef{"browser", b})
		}
	}
	if opts.Bool("types", true) {
		if pkg.Types != "" {
			refs = append(refs, fieldRef{"types", pkg.Types})
		}
		if pkg.Typings != "" {
			refs = append(refs, fieldRef{"typings", pkg.Typings})
		}
	}

	for _, ref := range refs {
		if _, err := os.Stat(rc.Path(ref.path)); err != nil {
			rc.AddIssue(fmt.Sprintf("%q field points to missing file %q", ref.field, ref.path), ref.path)
		}
	}
	return nil
}

type fieldRef struct {
	field, path string
}

type exportTarget struct {
	subpath, condition, target string
}

// exportTargets flattens the "exports" field into its string targets.
func exportTargets(exports any, condition string) []exportTarget {
	var out []exportTarget
	var walk func(v any, subpath, condition string)
	walk = func(v any, subpath, condition string) {
		switch e := v.(type) {
		case string:
			out = append(out, exportTarget{subpath: subpath, condition: condition, target: e})
		case []any:
			for _, alt := range e {
				walk(alt, subpath, condition)
			}
		case map[string]any:
			keys := make([]string, 0, len(e))
			for k := range e {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if strings.HasPrefix(k, ".") {
					walk(e[k], k, condition)
					continue
				}
				walk(e[k], subpath, k)
			}
		}
	}
	walk(exports, ".", condition)
	return out
}

// resolvesModule follows the node resolution of a relative file or directory.
func resolvesModule(rc *Context, target string) bool {
	target = strings.TrimPrefix(target, "./")
	candidates := []string{
		target,
		target + ".js",
		target + ".cjs",
		target + ".mjs",
		target + ".json",
		target + ".node",
		filepath.Join(target, "index.js"),
		filepath.Join(target, "index.json"),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(rc.Path(c)); err == nil && !fi.IsDir() {
			return true
		}
	}
	return false
}

// packageFiles lists the files of an installed package relative to its
// root, using forward slashes. Nested node_modules are skipped.
func packageFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == "node_modules" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if !strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "**") {
			p = "/" + p
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		out = append(out, g)
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

func anyMatch(g glob.Glob, files []string) bool {
	for _, f := range files {
		if g.Match(f) {
			return true
		}
	}
	return false
}
