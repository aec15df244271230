package testutil

import (
	"context"
	"sync"

	"smoker.run/internal/executor"
	"smoker.run/internal/smoketypes"
)

// FakeExecutor records requests and answers them with Fn.
// Without Fn every command succeeds with empty output.
type FakeExecutor struct {
	Fn func(req executor.Request) (smoketypes.ExecResult, error)

	mu       sync.Mutex
	requests []executor.Request
}

var _ executor.Executor = (*FakeExecutor)(nil)

func (f *FakeExecutor) Exec(_ context.Context, req executor.Request) (smoketypes.ExecResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Fn != nil {
		res, err := f.Fn(req)
		res.Command, res.Args, res.Cwd = req.Command, req.Args, req.Cwd
		return res, err
	}
	return smoketypes.ExecResult{Command: req.Command, Args: req.Args, Cwd: req.Cwd}, nil
}

// Requests returns all requests seen so far.
func (f *FakeExecutor) Requests() []executor.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.Request(nil), f.requests...)
}
