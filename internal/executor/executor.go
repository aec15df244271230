// Package executor spawns external processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"smoker.run/internal/smoketypes"
)

// ErrNotFound is returned when the command is not on PATH.
var ErrNotFound = errors.New("command not found")

// Request describes a process to spawn.
type Request struct {
	Command string
	Args    []string
	Cwd     string
	// Env is appended to the environment of the current process.
	Env []string
}

// Executor runs processes. A process exiting non-zero is not an error:
// callers inspect the ExitCode of the result.
type Executor interface {
	Exec(ctx context.Context, req Request) (smoketypes.ExecResult, error)
}

// NewExec returns an Executor backed by os/exec.
func NewExec(opts ...ExecOption) *Exec {
	var cfg ExecConfig

	cfg.Option(opts...)
	cfg.Default()

	return &Exec{cfg: cfg}
}

type Exec struct {
	cfg ExecConfig
}

type ExecConfig struct {
	Log   logr.Logger
	Clock clock.PassiveClock
	// WaitDelay bounds how long to wait for output after the process was killed.
	WaitDelay time.Duration
}

func (c *ExecConfig) Option(opts ...ExecOption) {
	for _, opt := range opts {
		opt.ConfigureExec(c)
	}
}

func (c *ExecConfig) Default() {
	if c.Log.GetSink() == nil {
		c.Log = logr.Discard()
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.WaitDelay == 0 {
		c.WaitDelay = 5 * time.Second
	}
}

type ExecOption interface {
	ConfigureExec(*ExecConfig)
}

type WithLog struct{ Log logr.Logger }

func (w WithLog) ConfigureExec(c *ExecConfig) {
	c.Log = w.Log
}

type WithClock struct{ Clock clock.PassiveClock }

func (w WithClock) ConfigureExec(c *ExecConfig) {
	c.Clock = w.Clock
}

func (e *Exec) Exec(ctx context.Context, req Request) (smoketypes.ExecResult, error) {
	res := smoketypes.ExecResult{
		Command: req.Command,
		Args:    req.Args,
		Cwd:     req.Cwd,
	}

	path, err := exec.LookPath(req.Command)
	if err != nil {
		return res, fmt.Errorf("%w: %s", ErrNotFound, req.Command)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, req.Args...)
	cmd.Dir = req.Cwd
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	cmd.WaitDelay = e.cfg.WaitDelay
	configureProcess(cmd)

	log := e.cfg.Log.WithValues("command", res.CommandLine(), "cwd", req.Cwd)
	log.V(1).Info("spawning")

	start := e.cfg.Clock.Now()
	err = cmd.Run()
	res.Duration = e.cfg.Clock.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("running %s: %w", res.CommandLine(), ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		return res, fmt.Errorf("running %s: %w", res.CommandLine(), err)
	}

	log.V(1).Info("exited", "exitCode", res.ExitCode, "duration", res.Duration)
	return res, nil
}
