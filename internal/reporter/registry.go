package reporter

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"k8s.io/utils/clock"
)

var (
	ErrDuplicateReporter = errors.New("duplicate reporter")
	ErrUnknownReporter   = errors.New("unknown reporter")
)

// Env is handed to reporter factories.
type Env struct {
	Out   io.Writer
	Err   io.Writer
	Log   logr.Logger
	Clock clock.PassiveClock
	// JSONFile is where the json reporter writes, stdout when empty.
	JSONFile string
	// MetricsFile is where the metrics reporter exports to, nowhere when empty.
	MetricsFile string
}

// Definition declares a reporter.
type Definition struct {
	Name        string
	Description string
	New         func(env Env) (Observer, error)
}

// Builtin returns the reporters shipped with smoker.
func Builtin() []Definition {
	return []Definition{
		{
			Name:        "console",
			Description: "Human readable progress and a result tree",
			New: func(env Env) (Observer, error) {
				c, err := NewConsole(env.Err)
				if err != nil {
					return nil, err
				}
				return c, nil
			},
		},
		{
			Name:        "json",
			Description: "JSON summary of the run",
			New: func(env Env) (Observer, error) {
				return NewJSON(env.Out, env.JSONFile), nil
			},
		},
		{
			Name:        "metrics",
			Description: "Prometheus metrics in the textfile format",
			New: func(env Env) (Observer, error) {
				return NewMetrics(env.Clock, env.MetricsFile), nil
			},
		},
		{
			Name:        "debug",
			Description: "Dumps every event to the log",
			New: func(env Env) (Observer, error) {
				return NewDebug(env.Log), nil
			},
		},
	}
}

// Registry holds reporter definitions by name.
type Registry struct {
	defs map[string]Definition
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: map[string]Definition{}}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(d Definition) error {
	if _, ok := r.defs[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateReporter, d.Name)
	}
	r.defs[d.Name] = d
	return nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	names := sortedNames(r.defs)
	out := make([]Definition, 0, len(names))
	for _, n := range names {
		out = append(out, r.defs[n])
	}
	return out
}

// Create instantiates the named reporters in the given order.
func (r *Registry) Create(env Env, names ...string) ([]Observer, error) {
	if env.Log.GetSink() == nil {
		env.Log = logr.Discard()
	}
	if env.Clock == nil {
		env.Clock = clock.RealClock{}
	}

	observers := make([]Observer, 0, len(names))
	for _, n := range names {
		d, ok := r.defs[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q, available: %v", ErrUnknownReporter, n, sortedNames(r.defs))
		}
		o, err := d.New(env)
		if err != nil {
			return nil, fmt.Errorf("creating reporter %s: %w", n, err)
		}
		observers = append(observers, o)
	}
	return observers, nil
}

func sortedNames(defs map[string]Definition) []string {
	names := maps.Keys(defs)
	sort.Strings(names)
	return names
}
