package testutil

import (
	"context"
	"sync"

	"smoker.run/internal/events"
)

// RecordingObserver records every event it receives. Hook, when set, is
// called after recording and may block the relay.
type RecordingObserver struct {
	Hook func(ev events.Event)

	mu     sync.Mutex
	events []events.Event
}

func (r *RecordingObserver) Name() string { return "recorder" }

func (r *RecordingObserver) OnEvent(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	if r.Hook != nil {
		r.Hook(ev)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (r *RecordingObserver) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Names returns the names of the recorded events in order.
func (r *RecordingObserver) Names() []events.Name {
	evs := r.Events()
	out := make([]events.Name, len(evs))
	for i, ev := range evs {
		out[i] = ev.Name()
	}
	return out
}

// Count returns how often an event with the given name was recorded.
func (r *RecordingObserver) Count(name events.Name) int {
	n := 0
	for _, got := range r.Names() {
		if got == name {
			n++
		}
	}
	return n
}
