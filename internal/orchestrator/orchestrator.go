// Package orchestrator drives a smoke run through its phases:
// loading, setup (pack and install), on demand script runs and linting,
// and finally reporting the result.
package orchestrator

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"smoker.run/internal/actor"
	"smoker.run/internal/bus"
	"smoker.run/internal/events"
	"smoker.run/internal/lifecycle"
	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/plugin"
	"smoker.run/internal/reporter"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/supervisor"
)

type State string

const (
	StateLoading        State = "loading"
	StateSetup          State = "setup"
	StateReady          State = "ready"
	StateRunningScripts State = "runningScripts"
	StateLinting        State = "linting"
	StateDone           State = "done"
	StateComplete       State = "complete"
	StateErrored        State = "errored"
)

type command int

const (
	cmdRunScripts command = iota + 1
	cmdLint
	cmdHalt
)

type message struct {
	cmd   command
	event events.Event
}

// Result is the outcome of a run.
type Result struct {
	State   State
	Results smoketypes.SmokeResults
	// Err aggregates every error recorded during the run.
	Err error
	// ReporterErrors are failures of observers. They do not fail the run.
	ReporterErrors []error
}

// Orchestrator is the root actor of a smoke run.
type Orchestrator struct {
	cfg   Config
	log   logr.Logger
	inbox *actor.Mailbox[message]
	ready chan struct{}
	done  chan struct{}

	// Owned by the Run goroutine.
	state       State
	pkgManagers []pkgmanager.PkgManager
	pmByKey     map[string]pkgmanager.PkgManager
	ruleSets    []supervisor.RuleSet
	relays      []*reporter.Relay
	installer   *supervisor.Installer
	packDone    bool
	installDone bool
	installed   []smoketypes.InstallResult
	scriptsRun  bool
	linted      bool
	active      int
	halted      bool
	queued      []command
	results     smoketypes.SmokeResults
	readyOnce   sync.Once
	phases      sync.WaitGroup

	resultMux sync.Mutex
	result    Result
}

func New(opts ...Option) *Orchestrator {
	var cfg Config

	cfg.Option(opts...)
	cfg.Default()

	return &Orchestrator{
		cfg:   cfg,
		log:   cfg.Log.WithName("orchestrator"),
		inbox: actor.NewMailbox[message](),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
		state: StateLoading,
	}
}

// Ready is closed once pack and install finished, or the run errored.
func (o *Orchestrator) Ready() <-chan struct{} { return o.ready }

// Done is closed when the run is over and every reporter was torn down.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// RunScripts requests the configured scripts to run once.
func (o *Orchestrator) RunScripts() { o.inbox.Put(message{cmd: cmdRunScripts}) }

// Lint requests the enabled rules to be checked once.
func (o *Orchestrator) Lint() { o.inbox.Put(message{cmd: cmdLint}) }

// Halt finishes the run after every requested phase completed.
func (o *Orchestrator) Halt() { o.inbox.Put(message{cmd: cmdHalt}) }

// Result returns the result, valid after Done is closed.
func (o *Orchestrator) Result() Result {
	o.resultMux.Lock()
	defer o.resultMux.Unlock()
	return o.result
}

// Wait blocks until the run is over.
func (o *Orchestrator) Wait(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		return o.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run drives the run to completion.
func (o *Orchestrator) Run(ctx context.Context) Result {
	defer close(o.done)
	defer o.markReady()

	start := o.cfg.Clock.Now()
	o.results.Workspaces = o.cfg.Workspaces

	if err := o.load(ctx); err != nil {
		o.results.Errors = append(o.results.Errors, err)
		return o.finish(ctx)
	}
	o.setup(ctx)

	for !o.finished() {
		msg, ok := o.inbox.Next(ctx)
		if !ok {
			o.results.Errors = append(o.results.Errors, ctx.Err())
			break
		}
		switch {
		case msg.event != nil:
			o.handleEvent(ctx, msg.event)
		case msg.cmd != 0:
			o.handleCommand(ctx, msg.cmd)
		}
	}

	res := o.finish(ctx)
	o.log.Info("smoke run finished", "state", res.State, "duration", o.cfg.Clock.Since(start))
	return res
}

func (o *Orchestrator) finished() bool {
	return o.state == StateReady && o.halted && o.active == 0
}

// load reifies plugins, creates and sets up package managers and starts
// the reporter relays.
func (o *Orchestrator) load(ctx context.Context) error {
	comps, err := plugin.ReifyAll(ctx, o.cfg.Plugins, plugin.Env{Log: o.cfg.Log})
	if err != nil {
		return err
	}

	pms, err := pkgmanager.Create(comps.PkgManagers, o.cfg.PkgManagers, o.cfg.PkgManagerOptions...)
	if err != nil {
		return err
	}
	o.pkgManagers = pms
	if err := lifecycle.SetupAll(ctx, pms, pkgManagerName); err != nil {
		return err
	}
	o.pmByKey = make(map[string]pkgmanager.PkgManager, len(pms))
	for _, pm := range pms {
		spec := pm.Spec()
		o.pmByKey[spec.Key()] = pm
		o.results.PkgManagers = append(o.results.PkgManagers, spec)
	}

	for _, r := range comps.Rules {
		cfg := o.cfg.RuleConfigs[r.ID()]
		if cfg.Severity == "" {
			cfg.Severity = r.DefaultSeverity()
		}
		if cfg.Enabled() {
			o.ruleSets = append(o.ruleSets, supervisor.RuleSet{Rule: r, Config: cfg})
		}
	}

	registry, err := reporter.NewRegistry(comps.Reporters...)
	if err != nil {
		return err
	}
	observers, err := registry.Create(o.cfg.ReporterEnv, o.cfg.Reporters...)
	if err != nil {
		return err
	}
	observers = append(observers, o.cfg.Observers...)

	// relays outlive ctx so that the closing events are still delivered
	relayCtx := context.WithoutCancel(ctx)
	for _, obs := range observers {
		r := reporter.NewRelay(obs, o.cfg.Log)
		o.relays = append(o.relays, r)
		go r.Run(relayCtx)
	}

	o.broadcast(events.SmokeBegin{
		PkgManagers: o.results.PkgManagers,
		Workspaces:  o.cfg.Workspaces,
		Scripts:     o.cfg.Scripts,
		Rules:       o.ruleIDs(),
		Reporters:   observerNames(observers),
		Plugins:     pluginNames(o.cfg.Plugins),
	})
	return nil
}

// setup starts packing and installing. Install requests are sent as each
// package manager finishes packing.
func (o *Orchestrator) setup(ctx context.Context) {
	o.transition(StateSetup)

	packBus := bus.NewPackBus(o.results.PkgManagers, o.cfg.Workspaces, o.cfg.Log)
	installBus := bus.NewInstallBus(o.results.PkgManagers, o.cfg.Workspaces, o.cfg.Log)
	packBus.Start(o.sinks()...)
	installBus.Start(o.sinks()...)

	installerOpts := []supervisor.InstallerOption{supervisor.WithAdditionalDeps(o.cfg.Additional)}
	if root, ok := rootWorkspace(o.cfg.Workspaces); ok {
		installerOpts = append(installerOpts, supervisor.WithRootWorkspace(root))
	}
	o.installer = supervisor.NewInstaller(installBus, o.cfg.Log, installerOpts...)
	packer := supervisor.NewPacker(o.pkgManagers, o.cfg.Workspaces, packBus, o.cfg.Log)

	o.spawn(ctx, packBus.Run)
	o.spawn(ctx, func(ctx context.Context) {
		// reporters see PackBegin before InstallBegin
		select {
		case <-packBus.Begun():
		case <-ctx.Done():
		}
		installBus.Run(ctx)
	})
	o.spawn(ctx, o.installer.Run)
	o.spawn(ctx, packer.Run)
}

// spawn runs a phase goroutine that finish joins before tearing down.
func (o *Orchestrator) spawn(ctx context.Context, run func(context.Context)) {
	o.phases.Add(1)
	go func() {
		defer o.phases.Done()
		run(ctx)
	}()
}

func (o *Orchestrator) handleEvent(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.PkgManagerPackOk:
		if pm, ok := o.pmByKey[e.PkgManager.Key()]; ok {
			o.installer.Request(pm, e.Manifests)
		}

	case events.PackOk:
		o.results.PackManifests = e.Manifests
		o.packComplete(ctx)
	case events.PackFailed:
		o.results.PackManifests = e.Manifests
		o.recordErr(e.Error)
		o.packComplete(ctx)

	case events.InstallOk:
		o.installComplete(ctx, e.Results)
	case events.InstallFailed:
		o.recordErr(e.Error)
		o.installComplete(ctx, e.Results)

	case events.RunScriptsOk:
		o.results.ScriptResults = e.Results
		o.phaseComplete()
	case events.RunScriptsFailed:
		o.results.ScriptResults = e.Results
		o.recordErr(e.Error)
		o.phaseComplete()

	case events.LintOk:
		o.results.LintResults = e.Results
		o.phaseComplete()
	case events.LintFailed:
		o.results.LintResults = e.Results
		o.recordErr(e.Error)
		o.phaseComplete()
	}
}

func (o *Orchestrator) packComplete(ctx context.Context) {
	o.packDone = true
	o.installer.PackingComplete()
	o.maybeReady(ctx)
}

func (o *Orchestrator) installComplete(ctx context.Context, results []smoketypes.InstallResult) {
	o.installDone = true
	o.installed = results
	o.results.InstallResults = results
	o.maybeReady(ctx)
}

func (o *Orchestrator) maybeReady(ctx context.Context) {
	if !o.packDone || !o.installDone {
		return
	}
	o.transition(StateReady)
	o.markReady()

	queued := o.queued
	o.queued = nil
	for _, cmd := range queued {
		o.handleCommand(ctx, cmd)
	}
}

func (o *Orchestrator) handleCommand(ctx context.Context, cmd command) {
	if cmd == cmdHalt {
		o.halted = true
		return
	}
	if o.state == StateSetup {
		o.queued = append(o.queued, cmd)
		return
	}

	switch cmd {
	case cmdRunScripts:
		if o.scriptsRun || len(o.cfg.Scripts) == 0 {
			o.log.V(1).Info("ignoring script run request", "alreadyRun", o.scriptsRun)
			return
		}
		o.scriptsRun = true
		o.runScripts(ctx)
	case cmdLint:
		if o.linted || len(o.ruleSets) == 0 {
			o.log.V(1).Info("ignoring lint request", "alreadyLinted", o.linted)
			return
		}
		o.linted = true
		o.lint(ctx)
	}
}

func (o *Orchestrator) runScripts(ctx context.Context) {
	o.active++
	o.transition(StateRunningScripts)

	b := bus.NewScriptsBus(o.cfg.Scripts, o.installed, o.cfg.Log)
	b.Start(o.sinks()...)
	runner := supervisor.NewRunner(
		supervisor.RunnerConfig{Scripts: o.cfg.Scripts, Bail: o.cfg.Bail},
		o.pmByKey, o.installed, b, o.cfg.Log,
	)
	o.spawn(ctx, b.Run)
	o.spawn(ctx, runner.Run)
}

func (o *Orchestrator) lint(ctx context.Context) {
	o.active++
	o.transition(StateLinting)

	b := bus.NewLintBus(o.ruleIDs(), o.installed, o.cfg.Log)
	b.Start(o.sinks()...)
	linter := supervisor.NewLinter(o.ruleSets, o.installed, b, o.cfg.Log)
	o.spawn(ctx, b.Run)
	o.spawn(ctx, linter.Run)
}

func (o *Orchestrator) phaseComplete() {
	o.active--
	if o.active == 0 {
		o.transition(StateReady)
	}
}

// finish reports the result, tears down and halts every relay.
func (o *Orchestrator) finish(ctx context.Context) Result {
	o.transition(StateDone)

	// supervisors join their workers, so nothing runs in the package
	// managers' directories once this returns
	o.phases.Wait()

	teardownCtx := context.WithoutCancel(ctx)
	if err := lifecycle.TeardownAll(teardownCtx, o.pkgManagers, pkgManagerName); err != nil {
		o.results.Errors = append(o.results.Errors, err)
	}

	res := Result{Results: o.results, Err: utilerrors.NewAggregate(o.results.Errors)}
	if res.Err != nil {
		res.State = StateErrored
		o.broadcast(events.SmokeFailed{Results: o.results, Error: res.Err})
	} else {
		res.State = StateComplete
		o.broadcast(events.SmokeOk{Results: o.results})
	}
	o.broadcast(events.BeforeExit{})

	for _, r := range o.relays {
		r.Halt()
	}
	for _, r := range o.relays {
		<-r.Done()
		res.ReporterErrors = append(res.ReporterErrors, r.Errors()...)
	}

	o.transition(res.State)
	o.resultMux.Lock()
	o.result = res
	o.resultMux.Unlock()
	return res
}

func (o *Orchestrator) recordErr(err error) {
	if err != nil {
		o.results.Errors = append(o.results.Errors, err)
	}
}

func (o *Orchestrator) broadcast(ev events.Event) {
	for _, r := range o.relays {
		r.Send(ev)
	}
}

// sinks returns every relay followed by the orchestrator itself, so that
// reporters see a phase's closing event before the next phase begins.
func (o *Orchestrator) sinks() []bus.Sink {
	sinks := make([]bus.Sink, 0, len(o.relays)+1)
	for _, r := range o.relays {
		sinks = append(sinks, r)
	}
	return append(sinks, bus.SinkFunc(func(ev events.Event) {
		o.inbox.Put(message{event: ev})
	}))
}

func (o *Orchestrator) markReady() {
	o.readyOnce.Do(func() { close(o.ready) })
}

func (o *Orchestrator) transition(to State) {
	if o.state == to {
		return
	}
	o.log.V(1).Info("state transition", "from", o.state, "to", to)
	o.state = to
}

func (o *Orchestrator) ruleIDs() []string {
	ids := make([]string, len(o.ruleSets))
	for i, rs := range o.ruleSets {
		ids[i] = rs.Rule.ID()
	}
	return ids
}

func pkgManagerName(pm pkgmanager.PkgManager) string {
	return pm.Spec().String()
}

func rootWorkspace(wss []smoketypes.WorkspaceInfo) (smoketypes.WorkspaceInfo, bool) {
	for _, ws := range wss {
		if ws.IsRoot {
			return ws, true
		}
	}
	if len(wss) > 0 {
		return wss[0], true
	}
	return smoketypes.WorkspaceInfo{}, false
}

func observerNames(obs []reporter.Observer) []string {
	out := make([]string, len(obs))
	for i := range obs {
		out[i] = obs[i].Name()
	}
	return out
}

func pluginNames(ps []plugin.Plugin) []string {
	out := make([]string, len(ps))
	for i := range ps {
		out[i] = ps[i].Name()
	}
	return out
}
