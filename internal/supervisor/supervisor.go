// Package supervisor implements the phase supervisors (Packer, Installer,
// Runner, Linter). A supervisor owns a dynamic set of worker actors grouped
// per package manager, merges their outcomes and reports progress as
// internal events to its bus.
package supervisor

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"smoker.run/internal/actor"
	"smoker.run/internal/smoketypes"
	"smoker.run/internal/worker"
)

// State of a supervisor.
type State string

const (
	StateIdle    State = "idle"
	StateWorking State = "working"
	StateDone    State = "done"
)

// Kind of an internal progress event.
type Kind int

const (
	KindPkgManagerBegin Kind = iota
	KindUnitBegin
	KindUnitOk
	KindUnitFailed
	KindUnitSkipped
	KindUnitError
	KindPkgManagerOk
	KindPkgManagerFailed
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindPkgManagerBegin:
		return "PkgManagerBegin"
	case KindUnitBegin:
		return "UnitBegin"
	case KindUnitOk:
		return "UnitOk"
	case KindUnitFailed:
		return "UnitFailed"
	case KindUnitSkipped:
		return "UnitSkipped"
	case KindUnitError:
		return "UnitError"
	case KindPkgManagerOk:
		return "PkgManagerOk"
	case KindPkgManagerFailed:
		return "PkgManagerFailed"
	case KindDone:
		return "Done"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is an internal progress event sent from a supervisor to its bus.
type Event[In, Out any] struct {
	Kind       Kind
	PkgManager smoketypes.PkgManagerSpec
	// UnitID is set for unit events.
	UnitID string
	// Input is set for unit events.
	Input In
	// Inputs is set for KindPkgManagerBegin.
	Inputs []In
	// Output is set for ok, failed and skipped unit events.
	Output Out
	// Outputs is set for package manager completion and KindDone.
	Outputs []Out
	// Err is set for failed and errored unit events.
	Err error
	// Errors is set for package manager completion and KindDone.
	Errors []error
}

// Emitter receives the progress events of a supervisor.
type Emitter[In, Out any] interface {
	Emit(Event[In, Out])
}

// Group is the work of one package manager.
type Group[In any] struct {
	PkgManager smoketypes.PkgManagerSpec
	Inputs     []In
}

// Spec configures the phase specific behavior of a Supervisor.
type Spec[In, Out any] struct {
	// Name of the phase, used for logging.
	Name string
	// Work is the collaborator call each worker performs.
	Work worker.Func[In, Out]
	// Label describes a unit for error context.
	Label func(In) string
	// Classify maps a successful payload to a unit kind.
	// Defaults to KindUnitOk. Failed payloads may carry an error.
	Classify func(Out) (Kind, error)
	// Skipped synthesizes the payload of a skipped unit.
	Skipped func(In) Out
	// Serial runs the units of one package manager one after another.
	Serial bool
	// CancelOnFailure sets the phase cancellation signal on the first
	// failed or errored unit.
	CancelOnFailure bool
}

type message[In any] struct {
	group *Group[In]
	seal  bool
}

type liveUnit[In any] struct {
	key   string
	input In
}

type groupState[In, Out any] struct {
	pkgManager smoketypes.PkgManagerSpec
	pending    []In
	live       int
	results    []Out
	errs       []error
	failed     bool
}

// Supervisor owns the worker actors of one phase.
type Supervisor[In, Out any] struct {
	spec    Spec[In, Out]
	log     logr.Logger
	emitter Emitter[In, Out]
	newID   func() string

	inbox    *actor.Mailbox[message[In]]
	outcomes chan worker.Outcome[Out]

	// Everything below is owned by the Run goroutine.
	state   State
	sealed  bool
	live    map[string]liveUnit[In]
	groups  map[string]*groupState[In, Out]
	results []Out
	errs    []error
	cancel  context.CancelFunc
}

// New creates an idle Supervisor reporting to emitter.
func New[In, Out any](spec Spec[In, Out], emitter Emitter[In, Out], log logr.Logger) *Supervisor[In, Out] {
	if spec.Label == nil {
		spec.Label = func(in In) string { return fmt.Sprint(in) }
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Supervisor[In, Out]{
		spec:     spec,
		log:      log.WithName(spec.Name),
		emitter:  emitter,
		newID:    uuid.NewString,
		inbox:    actor.NewMailbox[message[In]](),
		outcomes: make(chan worker.Outcome[Out]),
		state:    StateIdle,
		live:     map[string]liveUnit[In]{},
		groups:   map[string]*groupState[In, Out]{},
	}
}

// Add queues work for a package manager. Safe to call from any goroutine.
func (s *Supervisor[In, Out]) Add(g Group[In]) {
	s.inbox.Put(message[In]{group: &g})
}

// Seal signals that no more work will be added. The supervisor finishes
// once sealed and every unit has reported.
func (s *Supervisor[In, Out]) Seal() {
	s.inbox.Put(message[In]{seal: true})
}

// Run drives the supervisor until all work is done or ctx is cancelled.
// It always joins every spawned worker before returning.
func (s *Supervisor[In, Out]) Run(ctx context.Context) {
	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel

	s.transition(StateWorking)

	for {
		if s.complete() {
			if err := ctx.Err(); err != nil {
				// the last workers reported before the cancellation was seen
				s.errs = append(s.errs, err)
			}
			s.finish()
			return
		}

		select {
		case out := <-s.outcomes:
			s.handleOutcome(phaseCtx, out)

		case <-s.inbox.Wait():
			for {
				msg, ok := s.inbox.TryNext()
				if !ok {
					break
				}
				s.handleMessage(phaseCtx, msg)
			}

		case <-ctx.Done():
			s.abort(ctx.Err())
			return
		}
	}
}

func (s *Supervisor[In, Out]) transition(to State) {
	s.log.V(1).Info("state transition", "from", s.state, "to", to)
	s.state = to
}

func (s *Supervisor[In, Out]) complete() bool {
	if !s.sealed || len(s.live) > 0 {
		return false
	}
	for _, g := range s.groups {
		if len(g.pending) > 0 {
			return false
		}
	}
	return true
}

func (s *Supervisor[In, Out]) handleMessage(ctx context.Context, msg message[In]) {
	if msg.seal {
		s.sealed = true
		return
	}
	if msg.group == nil {
		return
	}

	key := msg.group.PkgManager.Key()
	g, ok := s.groups[key]
	if ok {
		// more work for a package manager that is already known
		g.pending = append(g.pending, msg.group.Inputs...)
		s.schedule(ctx, key, g)
		return
	}

	g = &groupState[In, Out]{
		pkgManager: msg.group.PkgManager,
		pending:    append([]In(nil), msg.group.Inputs...),
	}
	s.groups[key] = g

	s.emit(Event[In, Out]{
		Kind:       KindPkgManagerBegin,
		PkgManager: g.pkgManager,
		Inputs:     msg.group.Inputs,
	})

	if len(g.pending) == 0 {
		s.completeGroup(g)
		return
	}
	s.schedule(ctx, key, g)
}

// schedule spawns as many pending units of a group as its policy allows.
func (s *Supervisor[In, Out]) schedule(ctx context.Context, key string, g *groupState[In, Out]) {
	for len(g.pending) > 0 {
		if s.spec.Serial && g.live > 0 {
			return
		}
		in := g.pending[0]
		g.pending = g.pending[1:]
		s.spawn(ctx, key, g, in)
	}
}

func (s *Supervisor[In, Out]) spawn(ctx context.Context, key string, g *groupState[In, Out], in In) {
	id := s.newID()
	s.live[id] = liveUnit[In]{key: key, input: in}
	g.live++

	s.emit(Event[In, Out]{
		Kind:       KindUnitBegin,
		PkgManager: g.pkgManager,
		UnitID:     id,
		Input:      in,
	})

	worker.Actor[In, Out]{
		ID:    id,
		Input: in,
		Fn:    s.spec.Work,
		Label: s.spec.Label(in),
	}.Spawn(ctx, s.outcomes)
}

func (s *Supervisor[In, Out]) handleOutcome(ctx context.Context, out worker.Outcome[Out]) {
	unit, ok := s.live[out.ID]
	if !ok {
		s.log.Info("outcome from unknown worker", "id", out.ID)
		return
	}
	delete(s.live, out.ID)

	g := s.groups[unit.key]
	g.live--

	ev := Event[In, Out]{
		PkgManager: g.pkgManager,
		UnitID:     out.ID,
		Input:      unit.input,
	}

	switch out.Status {
	case worker.StatusOk:
		ev.Kind = KindUnitOk
		ev.Output = out.Payload
		if s.spec.Classify != nil {
			ev.Kind, ev.Err = s.spec.Classify(out.Payload)
		}
		g.results = append(g.results, out.Payload)
		s.results = append(s.results, out.Payload)

	case worker.StatusSkipped:
		ev.Kind = KindUnitSkipped
		if s.spec.Skipped != nil {
			ev.Output = s.spec.Skipped(unit.input)
			g.results = append(g.results, ev.Output)
			s.results = append(s.results, ev.Output)
		}

	default:
		ev.Kind = KindUnitError
		ev.Err = out.Err
		if ev.Err == nil {
			ev.Err = fmt.Errorf("%s: unknown failure", out.Context)
		}
	}

	if ev.Kind == KindUnitFailed || ev.Kind == KindUnitError {
		g.failed = true
		if ev.Err != nil {
			g.errs = append(g.errs, ev.Err)
			s.errs = append(s.errs, ev.Err)
		}
		s.log.V(1).Info("unit failed", "unit", out.Context, "error", ev.Err)
		if s.spec.CancelOnFailure {
			s.cancel()
		}
	}

	s.emit(ev)

	if len(g.pending) > 0 {
		s.schedule(ctx, unit.key, g)
		return
	}
	if g.live == 0 {
		s.completeGroup(g)
	}
}

func (s *Supervisor[In, Out]) completeGroup(g *groupState[In, Out]) {
	kind := KindPkgManagerOk
	if g.failed {
		kind = KindPkgManagerFailed
	}
	s.emit(Event[In, Out]{
		Kind:       kind,
		PkgManager: g.pkgManager,
		Outputs:    g.results,
		Errors:     g.errs,
	})
}

func (s *Supervisor[In, Out]) finish() {
	s.transition(StateDone)
	s.emit(Event[In, Out]{
		Kind:    KindDone,
		Outputs: s.results,
		Errors:  s.errs,
	})
}

// abort cancels and joins every live worker, then reports done.
func (s *Supervisor[In, Out]) abort(cause error) {
	s.cancel()
	for len(s.live) > 0 {
		out := <-s.outcomes
		delete(s.live, out.ID)
	}
	s.errs = append(s.errs, cause)
	s.finish()
}

func (s *Supervisor[In, Out]) emit(ev Event[In, Out]) {
	if s.emitter != nil {
		s.emitter.Emit(ev)
	}
}
