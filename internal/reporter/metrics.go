package reporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"smoker.run/internal/events"
	"smoker.run/internal/metrics"
)

// Metrics feeds a prometheus recorder from the event stream and exports it
// in the textfile format on teardown.
type Metrics struct {
	recorder *metrics.Recorder
	registry *prometheus.Registry
	path     string
}

// NewMetrics returns a metrics observer. An empty path disables the export.
func NewMetrics(clk clock.PassiveClock, path string) *Metrics {
	return &Metrics{
		recorder: metrics.NewRecorder(clk),
		registry: prometheus.NewRegistry(),
		path:     path,
	}
}

func (m *Metrics) Name() string { return "metrics" }

// Gatherer exposes the collected metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Metrics) Setup(_ context.Context) error {
	return m.recorder.Register(m.registry)
}

func (m *Metrics) OnEvent(_ context.Context, ev events.Event) error {
	name := ev.Name()
	m.recorder.RecordEvent(string(name))

	if phase, ok := phaseOf(name); ok {
		switch {
		case strings.HasSuffix(string(name), "Begin"):
			m.recorder.PhaseBegin(phase)
		default:
			m.recorder.PhaseEnd(phase)
		}
	}

	switch e := ev.(type) {
	case events.RunScriptOk:
		m.recorder.RecordScript(e.PkgManager.Key(), string(e.Result.Status))
	case events.RunScriptFailed:
		m.recorder.RecordScript(e.PkgManager.Key(), string(e.Result.Status))
	case events.RunScriptSkipped:
		m.recorder.RecordScript(e.PkgManager.Key(), string(e.Result.Status))
	case events.RunScriptError:
		m.recorder.RecordScript(e.PkgManager.Key(), "error")
	case events.RuleFailed:
		for _, issue := range e.Result.Issues {
			m.recorder.RecordLintIssue(issue.RuleID, string(issue.Severity))
		}
	case events.PkgManagerPackFailed:
		m.recorder.RecordPkgManagerFailure("pack", e.PkgManager.Key())
	case events.PkgManagerInstallFailed:
		m.recorder.RecordPkgManagerFailure("install", e.PkgManager.Key())
	case events.PkgManagerRunScriptsFailed:
		m.recorder.RecordPkgManagerFailure("scripts", e.PkgManager.Key())
	case events.PkgManagerLintFailed:
		m.recorder.RecordPkgManagerFailure("lint", e.PkgManager.Key())
	case events.SmokeOk:
		m.recorder.SetRunSuccess(true)
	case events.SmokeFailed:
		m.recorder.SetRunSuccess(false)
	}
	return nil
}

func (m *Metrics) Teardown(_ context.Context) error {
	if m.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", m.path, err)
	}
	return nil
}

// phaseOf returns the phase a phase-level event opens or closes.
func phaseOf(name events.Name) (string, bool) {
	for _, p := range []struct {
		prefix string
		phase  string
	}{
		{"Smoke", "smoke"},
		{"Pack", "pack"},
		{"Install", "install"},
		{"RunScripts", "scripts"},
		{"Lint", "lint"},
	} {
		rest, ok := strings.CutPrefix(string(name), p.prefix)
		if ok && (rest == "Begin" || rest == "Ok" || rest == "Failed") {
			return p.phase, true
		}
	}
	return "", false
}
