package worker

import (
	"context"
	"fmt"
)

// Func is the one collaborator call a worker performs.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Status tags the terminal outcome of a worker.
type Status int

const (
	// StatusOk means the collaborator call returned a payload.
	StatusOk Status = iota
	// StatusError means the collaborator call failed.
	StatusError
	// StatusSkipped means the cancellation signal was set, either before the
	// call or while it was in flight. It is never a failure.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is the tagged result every worker terminates with.
type Outcome[T any] struct {
	// ID of the worker that produced the outcome.
	ID      string
	Status  Status
	Payload T
	Err     error
	// Context describes the unit of work the outcome belongs to.
	Context string
}

// Ok reports whether the outcome carries a payload.
func (o Outcome[T]) Ok() bool {
	return o.Status == StatusOk
}

// Actor executes exactly one unit of work.
type Actor[In, Out any] struct {
	ID    string
	Input In
	Fn    Func[In, Out]
	// Label describes the unit of work, used as outcome context.
	Label string
}

// PanicError is reported when a collaborator panics.
type PanicError struct {
	Context string
	Value   any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Context, e.Value)
}

// Run invokes the collaborator once and returns its outcome.
// Failures never escape as panics; they become StatusError outcomes.
func (a Actor[In, Out]) Run(ctx context.Context) (out Outcome[Out]) {
	out = Outcome[Out]{ID: a.ID, Context: a.Label}

	if ctx.Err() != nil {
		out.Status = StatusSkipped
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusError
			out.Err = &PanicError{Context: a.Label, Value: r}
		}
	}()

	payload, err := a.Fn(ctx, a.Input)
	switch {
	case ctx.Err() != nil:
		// whatever came back was cut short by the signal
		out.Status = StatusSkipped
	case err != nil:
		out.Status = StatusError
		out.Err = err
	default:
		out.Status = StatusOk
		out.Payload = payload
	}

	return out
}

// Spawn runs the actor on its own goroutine and delivers the outcome to done.
// The caller must keep receiving from done until every spawned actor reported.
func (a Actor[In, Out]) Spawn(ctx context.Context, done chan<- Outcome[Out]) {
	go func() {
		done <- a.Run(ctx)
	}()
}
