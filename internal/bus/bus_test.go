package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoker.run/internal/events"
	"smoker.run/internal/pkgmanager"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/supervisor"
	"smoker.run/internal/testutil"
)

type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) Send(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) Names() []events.Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Name, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Name()
	}
	return out
}

func (c *collector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func runBus(t *testing.T, run func(context.Context)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run(ctx)
	require.NoError(t, ctx.Err(), "bus did not finish")
}

func TestPackBus(t *testing.T) {
	t.Parallel()

	npm := testutil.NewFakePkgManager("npm@8")
	yarn := testutil.NewFakePkgManager("yarn@1")
	pms := []pkgmanager.PkgManager{npm, yarn}
	specs := []smoketypes.PkgManagerSpec{npm.Spec(), yarn.Spec()}
	workspaces := []smoketypes.WorkspaceInfo{testutil.Workspace("a")}

	b := NewPackBus(specs, workspaces, testr.New(t))
	col := &collector{}
	b.Start(col)
	supervisor.NewPacker(pms, workspaces, b, testr.New(t)).Run(context.Background())
	runBus(t, b.Run)

	names := col.Names()
	require.Len(t, names, 1+2*4+1)
	assert.Equal(t, events.NamePackBegin, names[0])
	assert.Equal(t, events.NamePackOk, names[len(names)-1])

	// per package manager order
	perPM := map[string][]events.Name{}
	for _, ev := range col.Events() {
		switch e := ev.(type) {
		case events.PkgManagerPackBegin:
			perPM[e.PkgManager.Key()] = append(perPM[e.PkgManager.Key()], e.Name())
		case events.PkgPackBegin:
			perPM[e.PkgManager.Key()] = append(perPM[e.PkgManager.Key()], e.Name())
			assert.Equal(t, events.UnitProgress{Current: 1, Total: 1}, e.UnitProgress)
			assert.Equal(t, 2, e.TotalPkgManagers)
		case events.PkgPackOk:
			perPM[e.PkgManager.Key()] = append(perPM[e.PkgManager.Key()], e.Name())
		case events.PkgManagerPackOk:
			perPM[e.PkgManager.Key()] = append(perPM[e.PkgManager.Key()], e.Name())
			assert.Len(t, e.Manifests, 1)
		case events.PackOk:
			assert.Len(t, e.Manifests, 2)
			assert.Equal(t, 2, e.TotalPkgs)
		}
	}
	expected := []events.Name{
		events.NamePkgManagerPackBegin, events.NamePkgPackBegin, events.NamePkgPackOk, events.NamePkgManagerPackOk,
	}
	for _, spec := range specs {
		assert.Equal(t, expected, perPM[spec.Key()], spec.String())
	}
}

func TestBus_Enrichment(t *testing.T) {
	t.Parallel()

	pmA := smoketypes.PkgManagerSpec{Name: "npm", Requested: "8"}
	pmB := smoketypes.PkgManagerSpec{Name: "yarn", Requested: "1"}
	b := NewPackBus([]smoketypes.PkgManagerSpec{pmA, pmB}, nil, testr.New(t))

	// events emitted before Start are held back
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindPkgManagerBegin, PkgManager: pmB, Inputs: make([]supervisor.PackUnit, 2)})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindPkgManagerBegin, PkgManager: pmA, Inputs: make([]supervisor.PackUnit, 3)})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindUnitBegin, PkgManager: pmA, UnitID: "a1"})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindUnitBegin, PkgManager: pmB, UnitID: "b1"})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindUnitBegin, PkgManager: pmA, UnitID: "a2"})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindUnitOk, PkgManager: pmA, UnitID: "a1"})

	col := &collector{}
	b.Start(col)
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindPkgManagerOk, PkgManager: pmA})
	b.Emit(supervisor.PackEvent{Kind: supervisor.KindPkgManagerFailed, PkgManager: pmB, Errors: []error{errors.New("x")}})
	runBus(t, b.Run)

	evs := col.Events()
	require.Len(t, evs, 10)
	assert.Equal(t, events.NamePackBegin, evs[0].Name())

	pmBegin := evs[1].(events.PkgManagerPackBegin)
	assert.Equal(t, 1, pmBegin.CurrentPkgManager)
	assert.Equal(t, pmB, pmBegin.PkgManager)

	assert.Equal(t, 2, evs[2].(events.PkgManagerPackBegin).CurrentPkgManager)
	assert.Equal(t, events.UnitProgress{Current: 1, Total: 3}, evs[3].(events.PkgPackBegin).UnitProgress)
	assert.Equal(t, events.UnitProgress{Current: 1, Total: 2}, evs[4].(events.PkgPackBegin).UnitProgress)
	assert.Equal(t, events.UnitProgress{Current: 2, Total: 3}, evs[5].(events.PkgPackBegin).UnitProgress)
	assert.Equal(t, events.UnitProgress{Current: 1, Total: 3}, evs[6].(events.PkgPackOk).UnitProgress)

	failed, ok := evs[9].(events.PackFailed)
	require.True(t, ok)
	require.Error(t, failed.Error)
}

func TestBus_DoneCompletesMissingPkgManagers(t *testing.T) {
	t.Parallel()

	pmA := smoketypes.PkgManagerSpec{Name: "npm", Requested: "8"}
	pmB := smoketypes.PkgManagerSpec{Name: "yarn", Requested: "1"}
	b := NewInstallBus([]smoketypes.PkgManagerSpec{pmA, pmB}, nil, testr.New(t))
	col := &collector{}
	b.Start(col)

	res := smoketypes.InstallResult{PkgManager: pmA}
	b.Emit(supervisor.InstallEvent{Kind: supervisor.KindPkgManagerBegin, PkgManager: pmA, Inputs: make([]supervisor.InstallUnit, 1)})
	b.Emit(supervisor.InstallEvent{Kind: supervisor.KindUnitBegin, PkgManager: pmA, UnitID: "1"})
	b.Emit(supervisor.InstallEvent{Kind: supervisor.KindUnitOk, PkgManager: pmA, UnitID: "1", Output: res})
	b.Emit(supervisor.InstallEvent{Kind: supervisor.KindPkgManagerOk, PkgManager: pmA, Outputs: []smoketypes.InstallResult{res}})
	// yarn never packed, so it never reaches the installer
	b.Emit(supervisor.InstallEvent{Kind: supervisor.KindDone, Outputs: []smoketypes.InstallResult{res}})
	runBus(t, b.Run)

	assert.Equal(t, []events.Name{
		events.NameInstallBegin,
		events.NamePkgManagerInstallBegin,
		events.NamePkgManagerInstallOk,
		events.NameInstallOk,
	}, col.Names())
	assert.Equal(t, pmA, col.Events()[2].(events.PkgManagerInstallOk).Result.PkgManager)
}

func TestScriptsBus(t *testing.T) {
	t.Parallel()

	pm := testutil.NewFakePkgManager("npm@8")
	pm.RunScriptFn = func(_ context.Context, m smoketypes.RunScriptManifest) (smoketypes.RunScriptResult, error) {
		switch m.Script {
		case "fail":
			return smoketypes.RunScriptResult{
				Manifest: m, Status: smoketypes.ScriptStatusFailed,
				Error: &smoketypes.ScriptFailedError{Manifest: m, ExitCode: 2},
			}, nil
		case "missing":
			return smoketypes.RunScriptResult{Manifest: m, Status: smoketypes.ScriptStatusSkipped, SkipReason: "no script"}, nil
		case "broken":
			return smoketypes.RunScriptResult{}, &smoketypes.ScriptError{Manifest: m, Err: errors.New("no binary")}
		}
		return smoketypes.RunScriptResult{Manifest: m, Status: smoketypes.ScriptStatusOk}, nil
	}
	installed := []smoketypes.InstallResult{{
		PkgManager: pm.Spec(),
		Manifests:  []smoketypes.InstallManifest{pm.Manifest(testutil.Workspace("a"))},
	}}
	scripts := []string{"build", "fail", "missing", "broken"}

	b := NewScriptsBus(scripts, installed, testr.New(t))
	col := &collector{}
	b.Start(col)
	supervisor.NewRunner(supervisor.RunnerConfig{Scripts: scripts},
		map[string]pkgmanager.PkgManager{pm.Spec().Key(): pm}, installed, b, testr.New(t)).
		Run(context.Background())
	runBus(t, b.Run)

	assert.Equal(t, []events.Name{
		events.NameRunScriptsBegin,
		events.NamePkgManagerRunScriptsBegin,
		events.NameRunScriptBegin, events.NameRunScriptOk,
		events.NameRunScriptBegin, events.NameRunScriptFailed,
		events.NameRunScriptBegin, events.NameRunScriptSkipped,
		events.NameRunScriptBegin, events.NameRunScriptError,
		events.NamePkgManagerRunScriptsFailed,
		events.NameRunScriptsFailed,
	}, col.Names())

	evs := col.Events()
	assert.Equal(t, 4, evs[0].(events.RunScriptsBegin).TotalScripts)
	failed := evs[len(evs)-1].(events.RunScriptsFailed)
	assert.Equal(t, events.ScriptTotals{Total: 3, Passed: 1, Failed: 1, Skipped: 1}, failed.ScriptTotals)
	require.Error(t, failed.Error)
}

func TestLintBus_NoRules(t *testing.T) {
	t.Parallel()

	pm := testutil.NewFakePkgManager("npm@8")
	installed := []smoketypes.InstallResult{{
		PkgManager: pm.Spec(),
		Manifests:  []smoketypes.InstallManifest{pm.Manifest(testutil.Workspace("a"))},
	}}

	b := NewLintBus(nil, installed, testr.New(t))
	col := &collector{}
	b.Start(col)
	supervisor.NewLinter(nil, installed, b, testr.New(t)).Run(context.Background())
	runBus(t, b.Run)

	assert.Equal(t, []events.Name{
		events.NameLintBegin,
		events.NamePkgManagerLintBegin,
		events.NamePkgManagerLintOk,
		events.NameLintOk,
	}, col.Names())
}

func TestBus_NoPkgManagers(t *testing.T) {
	t.Parallel()

	b := NewScriptsBus([]string{"build"}, nil, testr.New(t))
	col := &collector{}
	b.Start(col)
	runBus(t, b.Run)

	assert.Equal(t, []events.Name{events.NameRunScriptsBegin, events.NameRunScriptsOk}, col.Names())
}
