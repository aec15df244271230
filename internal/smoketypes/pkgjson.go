package smoketypes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PackageJSONFilename is the name of the npm package descriptor.
const PackageJSONFilename = "package.json"

// PackageJSON holds the fields of a package.json file smoker cares about.
// Raw keeps the complete document for expression rules.
type PackageJSON struct {
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Private    bool              `json:"private"`
	Main       string            `json:"main"`
	Module     string            `json:"module"`
	Types      string            `json:"types"`
	Typings    string            `json:"typings"`
	Browser    any               `json:"browser"`
	Bin        any               `json:"bin"`
	Exports    any               `json:"exports"`
	Files      []string          `json:"files"`
	Scripts    map[string]string `json:"scripts"`
	Workspaces any               `json:"workspaces"`
	License    string            `json:"license"`
	Type       string            `json:"type"`

	Raw map[string]any `json:"-"`
}

type packageJSONAlias PackageJSON

func (p *PackageJSON) UnmarshalJSON(data []byte) error {
	var alias packageJSONAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PackageJSON(alias)
	p.Raw = raw
	return nil
}

// HasScript reports whether the package defines the named script.
func (p PackageJSON) HasScript(name string) bool {
	_, ok := p.Scripts[name]
	return ok
}

// WorkspacePatterns returns the workspace globs in either the array or the
// object ({"packages": [...]}) form.
func (p PackageJSON) WorkspacePatterns() []string {
	switch w := p.Workspaces.(type) {
	case []any:
		return stringSlice(w)
	case map[string]any:
		if pkgs, ok := w["packages"].([]any); ok {
			return stringSlice(pkgs)
		}
	}
	return nil
}

// BinPaths returns the files referenced by the "bin" field.
func (p PackageJSON) BinPaths() []string {
	switch b := p.Bin.(type) {
	case string:
		if b != "" {
			return []string{b}
		}
	case map[string]any:
		var out []string
		for _, v := range b {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ReadPackageJSON reads and parses <dir>/package.json.
func ReadPackageJSON(dir string) (PackageJSON, error) {
	path := filepath.Join(dir, PackageJSONFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return PackageJSON{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return PackageJSON{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pkg, nil
}

func stringSlice(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
