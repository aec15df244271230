package smoker

import (
	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"smoker.run/internal/config"
	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/plugin"
	"smoker.run/internal/reporter"
)

type Config struct {
	Log   logr.Logger
	Clock clock.PassiveClock

	// Dir is the project directory.
	Dir      string
	Settings config.Settings

	// Plugins are reified before any declared in Settings.
	Plugins           []plugin.Plugin
	PkgManagerOptions []pkgmanager.BinaryOption
	ReporterEnv       reporter.Env
	Observers         []reporter.Observer
}

func (c *Config) Option(opts ...Option) {
	for _, opt := range opts {
		opt.ConfigureSmoker(c)
	}
}

func (c *Config) Default() {
	if c.Log.GetSink() == nil {
		c.Log = logr.Discard()
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Dir == "" {
		c.Dir = "."
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
	if c.ReporterEnv.JSONFile == "" {
		c.ReporterEnv.JSONFile = c.Settings.JSONFile
	}
	if c.ReporterEnv.MetricsFile == "" {
		c.ReporterEnv.MetricsFile = c.Settings.MetricsFile
	}
}

type Option interface {
	ConfigureSmoker(*Config)
}

type WithLog struct{ Log logr.Logger }

func (w WithLog) ConfigureSmoker(c *Config) { c.Log = w.Log }

type WithClock struct{ Clock clock.PassiveClock }

func (w WithClock) ConfigureSmoker(c *Config) { c.Clock = w.Clock }

type WithDir string

func (w WithDir) ConfigureSmoker(c *Config) { c.Dir = string(w) }

type WithSettings config.Settings

func (w WithSettings) ConfigureSmoker(c *Config) { c.Settings = config.Settings(w) }

// WithPlugins replaces the builtin plugin.
type WithPlugins []plugin.Plugin

func (w WithPlugins) ConfigureSmoker(c *Config) { c.Plugins = []plugin.Plugin(w) }

type WithPkgManagerOptions []pkgmanager.BinaryOption

func (w WithPkgManagerOptions) ConfigureSmoker(c *Config) {
	c.PkgManagerOptions = append(c.PkgManagerOptions, w...)
}

type WithReporterEnv reporter.Env

func (w WithReporterEnv) ConfigureSmoker(c *Config) { c.ReporterEnv = reporter.Env(w) }

type WithObservers []reporter.Observer

func (w WithObservers) ConfigureSmoker(c *Config) { c.Observers = append(c.Observers, w...) }
