package reporter

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"smoker.run/internal/actor"
	"smoker.run/internal/events"
	"smoker.run/internal/lifecycle"
)

// RelayState is the state of a Relay.
type RelayState string

const (
	RelayStateSetup     RelayState = "setup"
	RelayStateListening RelayState = "listening"
	RelayStateDraining  RelayState = "draining"
	RelayStateCleanup   RelayState = "cleanup"
	RelayStateDone      RelayState = "done"
)

type relayMessage struct {
	event events.Event
	halt  bool
}

// Relay queues the events for one observer and delivers them strictly in
// arrival order, one at a time.
type Relay struct {
	id       string
	observer Observer
	log      logr.Logger
	inbox    *actor.Mailbox[relayMessage]
	done     chan struct{}

	// Owned by the Run goroutine.
	state  RelayState
	halted bool
	broken bool

	errsLock sync.Mutex
	errs     []error
}

// NewRelay returns a Relay for o. Call Run to start delivering.
func NewRelay(o Observer, log logr.Logger) *Relay {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	id := uuid.NewString()
	return &Relay{
		id:       id,
		observer: o,
		log:      log.WithName("relay").WithValues("observer", o.Name(), "relay", id),
		inbox:    actor.NewMailbox[relayMessage](),
		done:     make(chan struct{}),
		state:    RelayStateSetup,
	}
}

// ID identifies the relay.
func (r *Relay) ID() string { return r.id }

// Observer returns the observer the relay delivers to.
func (r *Relay) Observer() Observer { return r.observer }

// Send queues an event. Events sent after the relay unsubscribed are dropped.
func (r *Relay) Send(ev events.Event) {
	if !r.inbox.Put(relayMessage{event: ev}) {
		r.log.V(1).Info("dropped event after unsubscribe", "event", ev.Name())
	}
}

// Halt asks the relay to finish once its queue is drained.
func (r *Relay) Halt() {
	r.inbox.Put(relayMessage{halt: true})
}

// Done is closed after the observer was torn down.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// Errors returns the observer errors recorded so far.
func (r *Relay) Errors() []error {
	r.errsLock.Lock()
	defer r.errsLock.Unlock()
	return append([]error(nil), r.errs...)
}

// Run sets up the observer, delivers events until halted and tears the
// observer down. Observer errors are recorded, they never stop the relay.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)

	if err := lifecycle.Setup(ctx, r.observer.Name(), r.observer); err != nil {
		// events are still consumed so senders never notice
		r.broken = true
		r.record(err)
	}
	r.transition(RelayStateListening)

	for {
		msg, ok := r.inbox.Next(ctx)
		if !ok {
			// context cancelled, skip straight to teardown
			r.cleanup(ctx)
			return
		}

		r.transition(RelayStateDraining)
		r.handle(ctx, msg)
		for {
			next, ok := r.inbox.TryNext()
			if !ok {
				break
			}
			r.handle(ctx, next)
		}

		if r.halted {
			r.cleanup(ctx)
			return
		}
		r.transition(RelayStateListening)
	}
}

func (r *Relay) handle(ctx context.Context, msg relayMessage) {
	if msg.halt {
		r.halted = true
		return
	}
	r.deliver(ctx, msg.event)
}

func (r *Relay) deliver(ctx context.Context, ev events.Event) {
	if r.broken {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.record(fmt.Errorf("observer %s panicked on %s: %v", r.observer.Name(), ev.Name(), p))
		}
	}()
	if err := r.observer.OnEvent(ctx, ev); err != nil {
		r.record(fmt.Errorf("observer %s failed on %s: %w", r.observer.Name(), ev.Name(), err))
	}
}

// cleanup unsubscribes, delivers what is still queued and tears down.
func (r *Relay) cleanup(ctx context.Context) {
	r.transition(RelayStateCleanup)
	r.inbox.Close()
	for {
		msg, ok := r.inbox.TryNext()
		if !ok {
			break
		}
		if ctx.Err() == nil {
			r.handle(ctx, msg)
		}
	}

	// teardown runs even when ctx is done
	if err := lifecycle.Teardown(context.WithoutCancel(ctx), r.observer.Name(), r.observer); err != nil {
		r.record(err)
	}
	r.transition(RelayStateDone)
}

func (r *Relay) record(err error) {
	r.log.Error(err, "observer error")
	r.errsLock.Lock()
	defer r.errsLock.Unlock()
	r.errs = append(r.errs, err)
}

func (r *Relay) transition(to RelayState) {
	if r.state == to {
		return
	}
	r.log.V(2).Info("state transition", "from", r.state, "to", to)
	r.state = to
}
