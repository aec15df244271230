package orchestrator

import (
	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/plugin"
	"smoker.run/internal/reporter"
	"smoker.run/internal/rules"
	"smoker.run/internal/smoketypes"
)

type Config struct {
	Log   logr.Logger
	Clock clock.PassiveClock

	Plugins []plugin.Plugin
	// PkgManagers are raw specs like "npm@8".
	PkgManagers       []string
	PkgManagerOptions []pkgmanager.BinaryOption
	Workspaces        []smoketypes.WorkspaceInfo
	// Additional registry specs installed next to every batch.
	Additional []string

	Scripts []string
	Bail    bool

	// RuleConfigs overrides rule configuration by rule id.
	RuleConfigs map[string]rules.Config

	// Reporters are names of reporter definitions.
	Reporters   []string
	ReporterEnv reporter.Env
	// Observers are attached next to the named reporters.
	Observers []reporter.Observer
}

func (c *Config) Option(opts ...Option) {
	for _, opt := range opts {
		opt.ConfigureOrchestrator(c)
	}
}

func (c *Config) Default() {
	if c.Log.GetSink() == nil {
		c.Log = logr.Discard()
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if len(c.Plugins) == 0 {
		c.Plugins = []plugin.Plugin{plugin.Builtin{}}
	}
	if c.ReporterEnv.Log.GetSink() == nil {
		c.ReporterEnv.Log = c.Log
	}
	if c.ReporterEnv.Clock == nil {
		c.ReporterEnv.Clock = c.Clock
	}
}

type Option interface {
	ConfigureOrchestrator(*Config)
}

type WithLog struct{ Log logr.Logger }

func (w WithLog) ConfigureOrchestrator(c *Config) { c.Log = w.Log }

type WithClock struct{ Clock clock.PassiveClock }

func (w WithClock) ConfigureOrchestrator(c *Config) { c.Clock = w.Clock }

type WithPlugins []plugin.Plugin

func (w WithPlugins) ConfigureOrchestrator(c *Config) { c.Plugins = []plugin.Plugin(w) }

type WithPkgManagers []string

func (w WithPkgManagers) ConfigureOrchestrator(c *Config) { c.PkgManagers = []string(w) }

type WithPkgManagerOptions []pkgmanager.BinaryOption

func (w WithPkgManagerOptions) ConfigureOrchestrator(c *Config) {
	c.PkgManagerOptions = append(c.PkgManagerOptions, w...)
}

type WithWorkspaces []smoketypes.WorkspaceInfo

func (w WithWorkspaces) ConfigureOrchestrator(c *Config) { c.Workspaces = []smoketypes.WorkspaceInfo(w) }

type WithAdditional []string

func (w WithAdditional) ConfigureOrchestrator(c *Config) { c.Additional = []string(w) }

type WithScripts []string

func (w WithScripts) ConfigureOrchestrator(c *Config) { c.Scripts = []string(w) }

type WithBail bool

func (w WithBail) ConfigureOrchestrator(c *Config) { c.Bail = bool(w) }

type WithRuleConfigs map[string]rules.Config

func (w WithRuleConfigs) ConfigureOrchestrator(c *Config) { c.RuleConfigs = map[string]rules.Config(w) }

type WithReporters []string

func (w WithReporters) ConfigureOrchestrator(c *Config) { c.Reporters = []string(w) }

type WithReporterEnv reporter.Env

func (w WithReporterEnv) ConfigureOrchestrator(c *Config) { c.ReporterEnv = reporter.Env(w) }

type WithObservers []reporter.Observer

func (w WithObservers) ConfigureOrchestrator(c *Config) { c.Observers = append(c.Observers, w...) }
