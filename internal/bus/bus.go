// Package bus translates the internal progress events of a phase
// supervisor into the external event vocabulary, enriches them with
// totals and relays them to reporters and the orchestrator.
package bus

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"smoker.run/internal/actor"
	"smoker.run/internal/events"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/supervisor"
)

// State of a bus.
type State string

const (
	StateIdle    State = "idle"
	StateWorking State = "working"
	StateDone    State = "done"
	StateErrored State = "errored"
)

// Sink receives external events. Send must not block.
type Sink interface {
	Send(events.Event)
}

// SinkFunc adapts a func to Sink.
type SinkFunc func(events.Event)

func (f SinkFunc) Send(ev events.Event) { f(ev) }

// Context is handed to mapping funcs. It carries the totals computed for
// the package manager and unit an internal event belongs to.
type Context[In any] struct {
	events.PkgManagerProgress
	Unit events.UnitProgress
	// Inputs are all units of the package manager.
	Inputs []In
}

// MapFunc translates one internal event. Returning nil drops it.
type MapFunc[In, Out any] func(Context[In], supervisor.Event[In, Out]) events.Event

// Summary is the aggregate a phase closes with.
type Summary[Out any] struct {
	PkgManagers      []smoketypes.PkgManagerSpec
	TotalPkgManagers int
	Results          []Out
	Errors           []error
	Failed           bool
}

// Err folds the recorded errors. It is nil for successful phases.
func (s Summary[Out]) Err() error {
	return utilerrors.NewAggregate(s.Errors)
}

// Translation is the phase specific part of a bus: the begin event, the
// internal kind to external event table and the closing event.
type Translation[In, Out any] struct {
	Phase       string
	PkgManagers []smoketypes.PkgManagerSpec
	Begin       func() events.Event
	Table       map[supervisor.Kind]MapFunc[In, Out]
	Close       func(Summary[Out]) events.Event
	// UnitTotal counts the units of a package manager. Defaults to len(inputs).
	UnitTotal func(inputs []In) int
}

type message[In, Out any] struct {
	sinks []Sink
	start bool
	event *supervisor.Event[In, Out]
}

type pkgManagerState[In any] struct {
	current int
	inputs  []In
	total   int
	started int
	units   map[string]int
}

// Bus relays the events of one phase.
type Bus[In, Out any] struct {
	tr        Translation[In, Out]
	log       logr.Logger
	inbox     *actor.Mailbox[message[In, Out]]
	begun     chan struct{}
	begunOnce sync.Once

	// Everything below is owned by the Run goroutine.
	state       State
	sinks       []Sink
	pending     []supervisor.Event[In, Out]
	pkgManagers map[string]*pkgManagerState[In]
	completed   int
	failed      bool
	results     []Out
	errs        []error
}

// New returns an idle Bus. It implements supervisor.Emitter.
func New[In, Out any](tr Translation[In, Out], log logr.Logger) *Bus[In, Out] {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if tr.UnitTotal == nil {
		tr.UnitTotal = func(inputs []In) int { return len(inputs) }
	}
	return &Bus[In, Out]{
		tr:          tr,
		log:         log.WithName(tr.Phase + "-bus"),
		inbox:       actor.NewMailbox[message[In, Out]](),
		begun:       make(chan struct{}),
		state:       StateIdle,
		pkgManagers: map[string]*pkgManagerState[In]{},
	}
}

// Start makes the bus emit its begin event and relay to sinks.
// Supervisor events arriving earlier are held back until then.
func (b *Bus[In, Out]) Start(sinks ...Sink) {
	b.inbox.Put(message[In, Out]{start: true, sinks: sinks})
}

// Emit implements supervisor.Emitter.
func (b *Bus[In, Out]) Emit(ev supervisor.Event[In, Out]) {
	b.inbox.Put(message[In, Out]{event: &ev})
}

// Begun is closed once the begin event was handed to every sink, or when
// Run returned without sending it.
func (b *Bus[In, Out]) Begun() <-chan struct{} {
	return b.begun
}

func (b *Bus[In, Out]) markBegun() {
	b.begunOnce.Do(func() { close(b.begun) })
}

// Run relays events until the phase is complete or ctx is done.
func (b *Bus[In, Out]) Run(ctx context.Context) {
	defer b.inbox.Close()
	defer b.markBegun()

	for {
		msg, ok := b.inbox.Next(ctx)
		if !ok {
			return
		}

		switch {
		case msg.start:
			if b.state != StateIdle {
				continue
			}
			b.sinks = msg.sinks
			b.transition(StateWorking)
			b.send(b.tr.Begin())
			b.markBegun()
			if len(b.tr.PkgManagers) == 0 {
				b.close()
				return
			}
			pending := b.pending
			b.pending = nil
			for _, ev := range pending {
				if b.handle(ev) {
					return
				}
			}

		case msg.event != nil:
			if b.state == StateIdle {
				b.pending = append(b.pending, *msg.event)
				continue
			}
			if b.handle(*msg.event) {
				return
			}
		}
	}
}

// handle processes one supervisor event and reports whether the bus is terminal.
func (b *Bus[In, Out]) handle(ev supervisor.Event[In, Out]) bool {
	if ev.Kind == supervisor.KindDone {
		// covers package managers that never reached this phase
		b.results = ev.Outputs
		b.errs = ev.Errors
		if len(ev.Errors) > 0 {
			b.failed = true
		}
		b.close()
		return true
	}

	key := ev.PkgManager.Key()
	pm := b.pkgManagers[key]
	if ev.Kind == supervisor.KindPkgManagerBegin {
		pm = &pkgManagerState[In]{
			current: len(b.pkgManagers) + 1,
			inputs:  ev.Inputs,
			total:   b.tr.UnitTotal(ev.Inputs),
			units:   map[string]int{},
		}
		b.pkgManagers[key] = pm
	}
	if pm == nil {
		b.log.Info("event for unknown package manager", "kind", ev.Kind, "pkgManager", key)
		return false
	}

	c := Context[In]{
		PkgManagerProgress: events.PkgManagerProgress{
			PkgManager:        ev.PkgManager,
			CurrentPkgManager: pm.current,
			TotalPkgManagers:  len(b.tr.PkgManagers),
		},
		Unit:   events.UnitProgress{Total: pm.total},
		Inputs: pm.inputs,
	}
	switch ev.Kind {
	case supervisor.KindUnitBegin:
		pm.started++
		pm.units[ev.UnitID] = pm.started
		c.Unit.Current = pm.started
	case supervisor.KindUnitOk, supervisor.KindUnitFailed, supervisor.KindUnitSkipped, supervisor.KindUnitError:
		c.Unit.Current = pm.units[ev.UnitID]
	}

	if fn := b.tr.Table[ev.Kind]; fn != nil {
		if out := fn(c, ev); out != nil {
			b.send(out)
		}
	}

	switch ev.Kind {
	case supervisor.KindPkgManagerOk, supervisor.KindPkgManagerFailed:
		b.completed++
		b.results = append(b.results, ev.Outputs...)
		b.errs = append(b.errs, ev.Errors...)
		if ev.Kind == supervisor.KindPkgManagerFailed {
			b.failed = true
		}
		if b.completed == len(b.tr.PkgManagers) {
			b.close()
			return true
		}
	}
	return false
}

func (b *Bus[In, Out]) close() {
	if len(b.errs) > 0 {
		b.failed = true
	}
	to := StateDone
	if b.failed {
		to = StateErrored
	}
	b.transition(to)
	b.send(b.tr.Close(Summary[Out]{
		PkgManagers:      b.tr.PkgManagers,
		TotalPkgManagers: len(b.tr.PkgManagers),
		Results:          b.results,
		Errors:           b.errs,
		Failed:           b.failed,
	}))
}

func (b *Bus[In, Out]) transition(to State) {
	b.log.V(1).Info("state transition", "from", b.state, "to", to)
	b.state = to
}

func (b *Bus[In, Out]) send(ev events.Event) {
	for _, s := range b.sinks {
		s.Send(ev)
	}
}
