// Package smoker runs a complete smoke test of a project: it discovers the
// workspaces, drives the orchestrator through every requested phase and
// returns the result.
package smoker

import (
	"context"
	"fmt"

	"smoker.run/internal/orchestrator"
	"smoker.run/internal/plugin"
	"smoker.run/internal/rules"
	"smoker.run/internal/workspace"
)

// ConfigPluginName names the plugin holding expression rules from the
// config file.
const ConfigPluginName = "config"

type Smoker struct {
	cfg Config
}

func New(opts ...Option) *Smoker {
	var cfg Config

	cfg.Option(opts...)
	cfg.Default()

	return &Smoker{cfg: cfg}
}

// Smoke runs pack and install, then the scripts and lint rules, and waits
// for every reporter. The returned error is only set when the run could not
// be started, failures of the run itself are in Result.Err.
func (s *Smoker) Smoke(ctx context.Context) (orchestrator.Result, error) {
	log := s.cfg.Log.WithName("smoker")
	settings := s.cfg.Settings

	workspaces, err := workspace.Discover(ctx, s.cfg.Dir,
		workspace.WithLog{Log: s.cfg.Log},
		workspace.WithWorkspaces(settings.Workspaces),
		workspace.WithAll(settings.All),
		workspace.WithIncludeRoot(settings.IncludeRoot),
	)
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("discovering workspaces: %w", err)
	}

	plugins, err := s.Plugins()
	if err != nil {
		return orchestrator.Result{}, err
	}

	o := orchestrator.New(
		orchestrator.WithLog{Log: s.cfg.Log},
		orchestrator.WithClock{Clock: s.cfg.Clock},
		orchestrator.WithPlugins(plugins),
		orchestrator.WithPkgManagers(settings.PkgManagers),
		orchestrator.WithPkgManagerOptions(s.cfg.PkgManagerOptions),
		orchestrator.WithWorkspaces(workspaces),
		orchestrator.WithAdditional(settings.Add),
		orchestrator.WithScripts(settings.Scripts),
		orchestrator.WithBail(settings.Bail),
		orchestrator.WithRuleConfigs(settings.RuleConfigs),
		orchestrator.WithReporters(settings.Reporters),
		orchestrator.WithReporterEnv(s.cfg.ReporterEnv),
		orchestrator.WithObservers(s.cfg.Observers),
	)
	go o.Run(ctx)

	select {
	case <-o.Ready():
	case <-ctx.Done():
	}
	if len(settings.Scripts) > 0 {
		o.RunScripts()
	}
	if settings.Lint {
		o.Lint()
	}
	o.Halt()

	// the orchestrator always finishes, a cancelled ctx only shortens the run
	<-o.Done()
	res := o.Result()
	log.V(1).Info("smoke finished", "state", res.State)
	return res, nil
}

// Plugins returns the configured plugins followed by the ones declared in
// the settings.
func (s *Smoker) Plugins() ([]plugin.Plugin, error) {
	plugins := append([]plugin.Plugin(nil), s.cfg.Plugins...)
	for _, path := range s.cfg.Settings.Plugins {
		p, err := plugin.LoadDeclarative(path)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	if len(s.cfg.Settings.ExpressionRules) > 0 {
		plugins = append(plugins, &plugin.Declarative{Declaration: plugin.Declaration{
			Name:            ConfigPluginName,
			ExpressionRules: s.cfg.Settings.ExpressionRules,
		}})
	}
	return plugins, nil
}

// Components reifies every plugin without running anything.
func (s *Smoker) Components(ctx context.Context) (plugin.Components, error) {
	plugins, err := s.Plugins()
	if err != nil {
		return plugin.Components{}, err
	}
	return plugin.ReifyAll(ctx, plugins, plugin.Env{Log: s.cfg.Log})
}

// RuleConfig returns the effective configuration of r.
func (s *Smoker) RuleConfig(r rules.Rule) rules.Config {
	cfg := s.cfg.Settings.RuleConfigs[r.ID()]
	if cfg.Severity == "" {
		cfg.Severity = r.DefaultSeverity()
	}
	return cfg
}
