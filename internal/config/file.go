// Package config loads the smoker config file and merges it with command
// line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"

	"smoker.run/internal/plugin"
	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
)

// FileNames are searched in this order in the project directory.
var FileNames = []string{
	"smoker.config.yaml",
	".smokerrc.yaml",
	".smokerrc.json",
	"smoker.config.json",
}

var ErrInvalidRuleSetting = errors.New("invalid rule setting")

// File is the content of a config file.
//
//	pkgManagers: [npm@9, yarn@1]
//	scripts: [test]
//	rules:
//	  no-banned-files: warn
//	  no-missing-exports: [error, {glob: false}]
type File struct {
	PkgManagers     []string                   `json:"pkgManagers,omitempty"`
	Workspaces      []string                   `json:"workspaces,omitempty"`
	All             *bool                      `json:"all,omitempty"`
	IncludeRoot     *bool                      `json:"includeRoot,omitempty"`
	Add             []string                   `json:"add,omitempty"`
	Scripts         []string                   `json:"scripts,omitempty"`
	Bail            *bool                      `json:"bail,omitempty"`
	Lint            *bool                      `json:"lint,omitempty"`
	Rules           map[string]RuleSetting     `json:"rules,omitempty"`
	ExpressionRules []rules.ExpressionRuleSpec `json:"expressionRules,omitempty"`
	// Plugins are declarative plugin files, relative to the config file.
	Plugins     []string `json:"plugins,omitempty"`
	Reporters   []string `json:"reporters,omitempty"`
	JSONFile    string   `json:"jsonFile,omitempty"`
	MetricsFile string   `json:"metricsFile,omitempty"`

	// Path the file was loaded from, empty when no file was found.
	Path string `json:"-"`
}

// RuleSetting is a rule configuration. It is written as a severity
// ("warn"), a [severity, options] pair or an object. YAML reads an unquoted
// off as false, so booleans toggle the rule.
type RuleSetting rules.Config

type ruleSettingObject rules.Config

func (s *RuleSetting) UnmarshalJSON(data []byte) error {
	var sev smoketypes.Severity
	if err := json.Unmarshal(data, &sev); err == nil {
		*s = RuleSetting{Severity: sev}
		return nil
	}

	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*s = RuleSetting{}
		if !enabled {
			s.Severity = smoketypes.SeverityOff
		}
		return nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) == 0 || len(pair) > 2 {
			return fmt.Errorf("%w: expected [severity, options], got %d elements", ErrInvalidRuleSetting, len(pair))
		}
		var out RuleSetting
		if err := json.Unmarshal(pair[0], &out.Severity); err != nil {
			return fmt.Errorf("%w: severity: %w", ErrInvalidRuleSetting, err)
		}
		if len(pair) == 2 {
			if err := json.Unmarshal(pair[1], &out.Options); err != nil {
				return fmt.Errorf("%w: options: %w", ErrInvalidRuleSetting, err)
			}
		}
		*s = out
		return nil
	}

	var obj ruleSettingObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRuleSetting, err)
	}
	*s = RuleSetting(obj)
	return nil
}

// Find returns the first config file in dir. ok is false if there is none.
func Find(dir string) (path string, ok bool, err error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, true, nil
		case errors.Is(err, os.ErrNotExist):
			continue
		default:
			return "", false, fmt.Errorf("looking for config file: %w", err)
		}
	}
	return "", false, nil
}

// Load reads, parses and validates the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	f := &File{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	f.Path = path
	if errs := f.Validate(field.NewPath(filepath.Base(path))); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return f, nil
}

// LoadDir loads path when set, else the first config file found in dir.
// Without any file an empty File is returned.
func LoadDir(dir, path string) (*File, error) {
	if path != "" {
		return Load(path)
	}
	found, ok, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &File{}, nil
	}
	return Load(found)
}

// Validate checks the file for structural problems.
func (f *File) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList

	for i, raw := range f.PkgManagers {
		if _, err := smoketypes.ParsePkgManagerSpec(raw); err != nil {
			errs = append(errs, field.Invalid(path.Child("pkgManagers").Index(i), raw, err.Error()))
		}
	}
	for i, name := range f.Reporters {
		if name == "" {
			errs = append(errs, field.Required(path.Child("reporters").Index(i), "reporter name"))
		}
	}
	for id, setting := range f.Rules {
		if setting.Severity != "" && !setting.Severity.Valid() {
			errs = append(errs, field.NotSupported(path.Child("rules").Key(id).Child("severity"), setting.Severity, severities))
		}
	}
	if f.All != nil && *f.All && len(f.Workspaces) > 0 {
		errs = append(errs, field.Forbidden(path.Child("workspaces"), "cannot be combined with all"))
	}
	errs = append(errs, plugin.ValidateExpressionRules(path.Child("expressionRules"), f.ExpressionRules)...)
	return errs
}

// PluginPaths returns the declared plugin files resolved against the
// directory of the config file.
func (f *File) PluginPaths() []string {
	out := make([]string, len(f.Plugins))
	for i, p := range f.Plugins {
		if filepath.IsAbs(p) || f.Path == "" {
			out[i] = p
			continue
		}
		out[i] = filepath.Join(filepath.Dir(f.Path), p)
	}
	return out
}

var severities = []string{
	string(smoketypes.SeverityOff),
	string(smoketypes.SeverityWarn),
	string(smoketypes.SeverityError),
}
