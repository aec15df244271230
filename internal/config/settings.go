package config

import (
	"k8s.io/apimachinery/pkg/util/validation/field"

	"smoker.run/internal/rules"
)

// Defaults applied when neither the file nor the command line set a value.
var (
	DefaultPkgManagers = []string{"npm"}
	DefaultReporters   = []string{"console"}
)

// Overrides are values given on the command line. Nil and empty values
// leave the file value in place.
type Overrides struct {
	PkgManagers []string
	Workspaces  []string
	All         *bool
	IncludeRoot *bool
	Add         []string
	Scripts     []string
	Bail        *bool
	Lint        *bool
	Reporters   []string
	JSONFile    string
	MetricsFile string
}

// Settings is the effective configuration of a run.
type Settings struct {
	PkgManagers     []string
	Workspaces      []string
	All             bool
	IncludeRoot     bool
	Add             []string
	Scripts         []string
	Bail            bool
	Lint            bool
	RuleConfigs     map[string]rules.Config
	ExpressionRules []rules.ExpressionRuleSpec
	Plugins         []string
	Reporters       []string
	JSONFile        string
	MetricsFile     string
}

// Resolve merges o over f and applies defaults.
func Resolve(f *File, o Overrides) (Settings, error) {
	if f == nil {
		f = &File{}
	}

	s := Settings{
		PkgManagers:     pick(o.PkgManagers, f.PkgManagers, DefaultPkgManagers),
		Workspaces:      pick(o.Workspaces, f.Workspaces, nil),
		All:             flag(o.All, f.All, false),
		IncludeRoot:     flag(o.IncludeRoot, f.IncludeRoot, false),
		Add:             append(append([]string(nil), f.Add...), o.Add...),
		Scripts:         pick(o.Scripts, f.Scripts, nil),
		Bail:            flag(o.Bail, f.Bail, false),
		Lint:            flag(o.Lint, f.Lint, true),
		ExpressionRules: f.ExpressionRules,
		Plugins:         f.PluginPaths(),
		Reporters:       pick(o.Reporters, f.Reporters, DefaultReporters),
		JSONFile:        pickString(o.JSONFile, f.JSONFile),
		MetricsFile:     pickString(o.MetricsFile, f.MetricsFile),
	}
	if len(f.Rules) > 0 {
		s.RuleConfigs = make(map[string]rules.Config, len(f.Rules))
		for id, setting := range f.Rules {
			s.RuleConfigs[id] = rules.Config(setting)
		}
	}

	if errs := s.Validate(field.NewPath("settings")); len(errs) > 0 {
		return Settings{}, errs.ToAggregate()
	}
	return s, nil
}

// Validate checks combinations that are only known after merging.
func (s Settings) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if s.All && len(s.Workspaces) > 0 {
		errs = append(errs, field.Forbidden(path.Child("workspaces"), "cannot be combined with all"))
	}
	if len(s.Reporters) == 0 {
		errs = append(errs, field.Required(path.Child("reporters"), "at least one reporter"))
	}
	return errs
}

func pick(override, file, def []string) []string {
	switch {
	case len(override) > 0:
		return override
	case len(file) > 0:
		return file
	}
	return def
}

func pickString(override, file string) string {
	if override != "" {
		return override
	}
	return file
}

func flag(override, file *bool, def bool) bool {
	switch {
	case override != nil:
		return *override
	case file != nil:
		return *file
	}
	return def
}

// LoadSettings loads the config file for dir (or path when set) and
// resolves o over it.
func LoadSettings(dir, path string, o Overrides) (Settings, error) {
	f, err := LoadDir(dir, path)
	if err != nil {
		return Settings{}, err
	}
	return Resolve(f, o)
}
