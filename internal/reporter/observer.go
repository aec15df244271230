// Package reporter delivers events to observers through one relay per
// observer and contains the builtin observers.
package reporter

import (
	"context"

	"smoker.run/internal/events"
)

// Observer consumes the event stream. A relay calls OnEvent for one event
// at a time, so implementations need no locking.
// Observers may implement lifecycle.Setupper and lifecycle.Teardowner.
type Observer interface {
	Name() string
	OnEvent(ctx context.Context, ev events.Event) error
}

// Listener handles one kind of event.
type Listener func(ctx context.Context, ev events.Event) error

// Listeners maps event names to their handlers.
type Listeners map[events.Name]Listener

// Dispatch calls the listener registered for ev, if any.
func (l Listeners) Dispatch(ctx context.Context, ev events.Event) error {
	if fn, ok := l[ev.Name()]; ok && fn != nil {
		return fn(ctx, ev)
	}
	return nil
}

// On returns a Listener calling fn for events of type E only.
func On[E events.Event](fn func(ctx context.Context, ev E) error) Listener {
	return func(ctx context.Context, ev events.Event) error {
		if e, ok := ev.(E); ok {
			return fn(ctx, e)
		}
		return nil
	}
}

// ListenerObserver turns a set of listeners into an Observer.
type ListenerObserver struct {
	ObserverName string
	Listeners    Listeners
}

func (o ListenerObserver) Name() string { return o.ObserverName }

func (o ListenerObserver) OnEvent(ctx context.Context, ev events.Event) error {
	return o.Listeners.Dispatch(ctx, ev)
}
