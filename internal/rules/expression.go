package rules

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"smoker.run/internal/smoketypes"
)

// ExpressionRuleSpec declares a rule as a CEL expression that must
// evaluate to true for every installed package.
//
// The expression sees:
//
//	pkg     map   the installed package.json
//	files   list  the published files, relative with forward slashes
//	pkgName string
type ExpressionRuleSpec struct {
	ID          string              `json:"id"`
	Description string              `json:"description,omitempty"`
	Expression  string              `json:"expression"`
	Message     string              `json:"message,omitempty"`
	Severity    smoketypes.Severity `json:"severity,omitempty"`
}

// ExpressionRule is a Rule backed by a compiled CEL program.
type ExpressionRule struct {
	spec    ExpressionRuleSpec
	program cel.Program
}

var _ Rule = (*ExpressionRule)(nil)

// NewExpressionRule compiles the expression of spec.
func NewExpressionRule(spec ExpressionRuleSpec) (*ExpressionRule, error) {
	env, err := cel.NewEnv(
		cel.Variable("pkg", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("files", cel.ListType(cel.StringType)),
		cel.Variable("pkgName", cel.StringType),
		cel.HomogeneousAggregateLiterals(),
		cel.EagerlyValidateDeclarations(true),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL env: %w", err)
	}

	ast, issues := env.Compile(spec.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: rule %q: %w", ErrInvalidExpression, spec.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: rule %q evaluates to %v, expected bool",
			ErrInvalidExpression, spec.ID, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program failed: %w", err)
	}

	return &ExpressionRule{spec: spec, program: prg}, nil
}

func (r *ExpressionRule) ID() string { return r.spec.ID }

func (r *ExpressionRule) Description() string {
	if r.spec.Description != "" {
		return r.spec.Description
	}
	return "Expression: " + r.spec.Expression
}

func (r *ExpressionRule) DefaultSeverity() smoketypes.Severity {
	if r.spec.Severity != "" {
		return r.spec.Severity
	}
	return smoketypes.SeverityError
}

func (r *ExpressionRule) Check(ctx context.Context, rc *Context, _ Options) error {
	files, err := packageFiles(ctx, rc.Manifest.InstallPath)
	if err != nil {
		return err
	}
	raw := rc.PkgJSON.Raw
	if raw == nil {
		raw = map[string]any{}
	}

	out, _, err := r.program.ContextEval(ctx, map[string]any{
		"pkg":     raw,
		"files":   files,
		"pkgName": rc.Manifest.PkgName,
	})
	if err != nil {
		return fmt.Errorf("evaluating %q: %w", r.spec.Expression, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("%w: %q returned %T", ErrInvalidExpression, r.spec.Expression, out.Value())
	}
	if !ok {
		msg := r.spec.Message
		if msg == "" {
			msg = fmt.Sprintf("expression %q is false", r.spec.Expression)
		}
		rc.AddIssue(msg)
	}
	return nil
}
