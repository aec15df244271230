package pkgmanager

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
	"k8s.io/apimachinery/pkg/util/sets"

	"smoker.run/internal/smoketypes"
)

// Definition declares a package manager a plugin provides.
type Definition struct {
	Name        string
	Description string
	New         func(spec smoketypes.PkgManagerSpec, opts ...BinaryOption) PkgManager
}

func newBinary(spec smoketypes.PkgManagerSpec, opts ...BinaryOption) PkgManager {
	return NewBinary(spec, opts...)
}

// Builtin returns the package managers shipped with smoker.
func Builtin() []Definition {
	return []Definition{
		{Name: "npm", Description: "npm v7 and newer", New: newBinary},
		{Name: "pnpm", Description: "pnpm v7 and newer", New: newBinary},
		{Name: "yarn", Description: "yarn classic (v1) and berry (v2+)", New: newBinary},
	}
}

// Create parses raw specs and instantiates them from defs.
// Duplicate specs are created once.
func Create(defs []Definition, raw []string, opts ...BinaryOption) ([]PkgManager, error) {
	byName := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	seen := sets.New[string]()
	out := make([]PkgManager, 0, len(raw))
	for _, r := range raw {
		spec, err := smoketypes.ParsePkgManagerSpec(r)
		if err != nil {
			return nil, err
		}
		d, ok := byName[spec.Name]
		if !ok {
			available := maps.Keys(byName)
			sort.Strings(available)
			return nil, &smoketypes.UnknownPkgManagerError{Spec: r, Available: available}
		}
		if seen.Has(spec.Key()) {
			continue
		}
		seen.Insert(spec.Key())
		pm := d.New(spec, opts...)
		if pm == nil {
			return nil, fmt.Errorf("package manager %s returned nothing", spec)
		}
		out = append(out, pm)
	}
	return out, nil
}
