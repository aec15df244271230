// Package plugin turns plugin declarations into live package managers,
// rules and reporters.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/reporter"
	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/worker"
)

var (
	ErrDuplicatePlugin    = errors.New("duplicate plugin")
	ErrDuplicateComponent = errors.New("duplicate component")
)

// Env is handed to Reify.
type Env struct {
	Log logr.Logger
}

// Components are what a plugin contributes.
type Components struct {
	PkgManagers []pkgmanager.Definition
	Rules       []rules.Rule
	Reporters   []reporter.Definition
}

// Plugin contributes components.
type Plugin interface {
	Name() string
	Reify(ctx context.Context, env Env) (Components, error)
}

// ReifyAll reifies every plugin on its own worker and merges the
// components. Any failure fails the whole operation; all failures are
// reported as *smoketypes.ReifyError.
func ReifyAll(ctx context.Context, plugins []Plugin, env Env) (Components, error) {
	if env.Log.GetSink() == nil {
		env.Log = logr.Discard()
	}

	names := sets.New[string]()
	for _, p := range plugins {
		if names.Has(p.Name()) {
			return Components{}, &smoketypes.ReifyError{Plugin: p.Name(), Err: ErrDuplicatePlugin}
		}
		names.Insert(p.Name())
	}

	done := make(chan worker.Outcome[Components], len(plugins))
	for _, p := range plugins {
		p := p
		worker.Actor[Plugin, Components]{
			ID:    uuid.NewString(),
			Input: p,
			Fn: func(ctx context.Context, p Plugin) (Components, error) {
				return p.Reify(ctx, Env{Log: env.Log.WithName(p.Name())})
			},
			Label: p.Name(),
		}.Spawn(ctx, done)
	}

	byPlugin := make(map[string]Components, len(plugins))
	var errs []error
	for range plugins {
		out := <-done
		switch out.Status {
		case worker.StatusOk:
			byPlugin[out.Context] = out.Payload
		case worker.StatusSkipped:
			errs = append(errs, &smoketypes.ReifyError{Plugin: out.Context, Err: ctx.Err()})
		default:
			errs = append(errs, &smoketypes.ReifyError{Plugin: out.Context, Err: out.Err})
		}
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return Components{}, utilerrors.NewAggregate(errs)
	}

	// merge in plugin order so that listings are stable
	var (
		merged     Components
		pmNames    = sets.New[string]()
		ruleIDs    = sets.New[string]()
		reporterNs = sets.New[string]()
	)
	for _, p := range plugins {
		c := byPlugin[p.Name()]
		for _, d := range c.PkgManagers {
			if pmNames.Has(d.Name) {
				return Components{}, duplicate(p, "package manager", d.Name)
			}
			pmNames.Insert(d.Name)
			merged.PkgManagers = append(merged.PkgManagers, d)
		}
		for _, r := range c.Rules {
			if ruleIDs.Has(r.ID()) {
				return Components{}, duplicate(p, "rule", r.ID())
			}
			ruleIDs.Insert(r.ID())
			merged.Rules = append(merged.Rules, r)
		}
		for _, d := range c.Reporters {
			if reporterNs.Has(d.Name) {
				return Components{}, duplicate(p, "reporter", d.Name)
			}
			reporterNs.Insert(d.Name)
			merged.Reporters = append(merged.Reporters, d)
		}
	}
	return merged, nil
}

func duplicate(p Plugin, kind, name string) error {
	return &smoketypes.ReifyError{
		Plugin: p.Name(),
		Err:    fmt.Errorf("%w: %s %q", ErrDuplicateComponent, kind, name),
	}
}

// Builtin contributes the package managers, rules and reporters shipped with smoker.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) Reify(_ context.Context, _ Env) (Components, error) {
	return Components{
		PkgManagers: pkgmanager.Builtin(),
		Rules:       rules.Builtin(),
		Reporters:   reporter.Builtin(),
	}, nil
}
