// Package rules contains the lint rule contract and the builtin rules
// checking the structure of installed packages.
package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"smoker.run/internal/smoketypes"
)

// Rule checks one installed package.
type Rule interface {
	// ID is the unique rule name, e.g. "no-banned-files".
	ID() string
	Description() string
	DefaultSeverity() smoketypes.Severity
	// Check inspects the package and adds issues to rc.
	// A returned error means the check itself broke.
	Check(ctx context.Context, rc *Context, opts Options) error
}

// Options are the user supplied options of a rule.
type Options map[string]any

// Strings returns the option as a string slice.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Bool returns the option as a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Config is the effective configuration of a rule.
type Config struct {
	Severity smoketypes.Severity `json:"severity"`
	Options  Options             `json:"opts,omitempty"`
}

// Enabled reports whether the rule should run.
func (c Config) Enabled() bool {
	return c.Severity != smoketypes.SeverityOff
}

// Context is handed to Rule.Check and collects issues.
type Context struct {
	RuleID   string
	Severity smoketypes.Severity
	Manifest smoketypes.LintManifest
	PkgJSON  smoketypes.PackageJSON

	issues []smoketypes.Issue
}

// NewContext reads the installed package.json of the manifest.
func NewContext(ruleID string, severity smoketypes.Severity, m smoketypes.LintManifest) (*Context, error) {
	pkg, err := smoketypes.ReadPackageJSON(m.InstallPath)
	if err != nil {
		return nil, err
	}
	return &Context{
		RuleID:   ruleID,
		Severity: severity,
		Manifest: m,
		PkgJSON:  pkg,
	}, nil
}

// Path resolves a package relative path against the install directory.
func (c *Context) Path(rel string) string {
	return filepath.Join(c.Manifest.InstallPath, filepath.FromSlash(rel))
}

// AddIssue records a problem, optionally concerning a file.
func (c *Context) AddIssue(msg string, filePath ...string) {
	issue := smoketypes.Issue{
		RuleID:   c.RuleID,
		PkgName:  c.Manifest.PkgName,
		Message:  msg,
		Severity: c.Severity,
	}
	if len(filePath) > 0 {
		issue.FilePath = filePath[0]
	}
	c.issues = append(c.issues, issue)
}

// Issues returns the recorded issues.
func (c *Context) Issues() []smoketypes.Issue {
	return c.issues
}

// Run checks one rule against one installed package.
// Failures of the check itself are returned as *smoketypes.RuleError.
func Run(ctx context.Context, rule Rule, cfg Config, m smoketypes.LintManifest) (res smoketypes.RuleResult, err error) {
	ruleErr := func(err error) error {
		return &smoketypes.RuleError{RuleID: rule.ID(), Manifest: m, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = ruleErr(fmt.Errorf("panic: %v", r))
		}
	}()

	severity := cfg.Severity
	if severity == "" {
		severity = rule.DefaultSeverity()
	}

	rc, err := NewContext(rule.ID(), severity, m)
	if err != nil {
		return smoketypes.RuleResult{}, ruleErr(err)
	}
	if err := rule.Check(ctx, rc, cfg.Options); err != nil {
		return smoketypes.RuleResult{}, ruleErr(err)
	}

	return smoketypes.RuleResult{
		RuleID:   rule.ID(),
		Severity: severity,
		Manifest: m,
		Issues:   rc.Issues(),
	}, nil
}

// Registry holds rules by id.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry returns a registry holding the given rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: map[string]Rule{}}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule, rejecting duplicate ids.
func (r *Registry) Register(rule Rule) error {
	if _, ok := r.rules[rule.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID())
	}
	r.rules[rule.ID()] = rule
	return nil
}

// Get returns the rule with the given id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// List returns all rules sorted by id.
func (r *Registry) List() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
