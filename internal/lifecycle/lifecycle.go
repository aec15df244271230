// Package lifecycle runs the optional setup and teardown hooks of
// package managers and reporters.
package lifecycle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"smoker.run/internal/smoketypes"
)

const (
	StageSetup    = "setup"
	StageTeardown = "teardown"
)

// Setupper is implemented by components needing preparation before use.
type Setupper interface {
	Setup(ctx context.Context) error
}

// Teardowner is implemented by components holding resources to release.
type Teardowner interface {
	Teardown(ctx context.Context) error
}

// Setup calls the setup hook of c, if any.
// Failures are returned as *smoketypes.LifecycleError.
func Setup(ctx context.Context, name string, c any) error {
	s, ok := c.(Setupper)
	if !ok {
		return nil
	}
	if err := s.Setup(ctx); err != nil {
		return &smoketypes.LifecycleError{Component: name, Stage: StageSetup, Err: err}
	}
	return nil
}

// Teardown calls the teardown hook of c, if any.
// Failures are returned as *smoketypes.LifecycleError.
func Teardown(ctx context.Context, name string, c any) error {
	t, ok := c.(Teardowner)
	if !ok {
		return nil
	}
	if err := t.Teardown(ctx); err != nil {
		return &smoketypes.LifecycleError{Component: name, Stage: StageTeardown, Err: err}
	}
	return nil
}

// SetupAll runs every setup hook concurrently and returns the first failure.
func SetupAll[T any](ctx context.Context, components []T, name func(T) string) error {
	return all(ctx, components, name, Setup)
}

// TeardownAll runs every teardown hook concurrently and returns the first
// failure. A failing hook does not cancel the others.
func TeardownAll[T any](ctx context.Context, components []T, name func(T) string) error {
	var g errgroup.Group
	for _, c := range components {
		c := c
		g.Go(func() error {
			return Teardown(ctx, name(c), c)
		})
	}
	return g.Wait()
}

func all[T any](
	ctx context.Context, components []T, name func(T) string,
	hook func(context.Context, string, any) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range components {
		c := c
		g.Go(func() error {
			return hook(gctx, name(c), c)
		})
	}
	return g.Wait()
}
