package plugin

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"

	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
)

// Declaration is a plugin written in YAML. It contributes expression rules.
//
//	name: house-rules
//	expressionRules:
//	- id: has-license
//	  expression: has(pkg.license)
//	  message: package.json must declare a license
type Declaration struct {
	Name            string                     `json:"name"`
	ExpressionRules []rules.ExpressionRuleSpec `json:"expressionRules,omitempty"`
}

// Validate checks the declaration for structural problems.
func (d Declaration) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if d.Name == "" {
		errs = append(errs, field.Required(path.Child("name"), "plugin needs a name"))
	}
	errs = append(errs, ValidateExpressionRules(path.Child("expressionRules"), d.ExpressionRules)...)
	return errs
}

// ValidateExpressionRules checks ids, expressions and severities.
func ValidateExpressionRules(path *field.Path, specs []rules.ExpressionRuleSpec) field.ErrorList {
	var errs field.ErrorList
	seen := map[string]bool{}
	for i, spec := range specs {
		p := path.Index(i)
		switch {
		case spec.ID == "":
			errs = append(errs, field.Required(p.Child("id"), ""))
		case seen[spec.ID]:
			errs = append(errs, field.Duplicate(p.Child("id"), spec.ID))
		}
		seen[spec.ID] = true
		if spec.Expression == "" {
			errs = append(errs, field.Required(p.Child("expression"), ""))
		}
		if spec.Severity != "" && !spec.Severity.Valid() {
			errs = append(errs, field.NotSupported(p.Child("severity"), spec.Severity, []string{
				string(smoketypes.SeverityOff), string(smoketypes.SeverityWarn), string(smoketypes.SeverityError),
			}))
		}
	}
	return errs
}

// Declarative reifies a Declaration.
type Declarative struct {
	Declaration Declaration
}

// LoadDeclarative reads a declaration from a YAML or JSON file.
func LoadDeclarative(path string) (*Declarative, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin %s: %w", path, err)
	}
	var d Declaration
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("parsing plugin %s: %w", path, err)
	}
	if errs := d.Validate(field.NewPath(path)); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return &Declarative{Declaration: d}, nil
}

func (d *Declarative) Name() string { return d.Declaration.Name }

// Reify compiles the expression rules.
func (d *Declarative) Reify(_ context.Context, env Env) (Components, error) {
	if env.Log.GetSink() == nil {
		env.Log = logr.Discard()
	}

	var c Components
	for _, spec := range d.Declaration.ExpressionRules {
		r, err := rules.NewExpressionRule(spec)
		if err != nil {
			return Components{}, err
		}
		env.Log.V(1).Info("compiled expression rule", "rule", spec.ID)
		c.Rules = append(c.Rules, r)
	}
	return c, nil
}
