// Package metrics records prometheus metrics about smoke runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"
)

// Recorder stores all the metrics of a smoke run.
type Recorder struct {
	clock  clock.PassiveClock
	phases *phaseState

	// metrics
	eventsTotal        *prometheus.CounterVec
	phaseDuration      *prometheus.GaugeVec
	scriptsTotal       *prometheus.CounterVec
	lintIssuesTotal    *prometheus.CounterVec
	pkgManagerFailures *prometheus.CounterVec
	runSuccess         prometheus.Gauge // 0 - failed, 1 - ok
}

// NewRecorder creates a Recorder. Metrics are only exposed after Register.
func NewRecorder(clk clock.PassiveClock) *Recorder {
	if clk == nil {
		clk = clock.RealClock{}
	}

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoker_events_total",
			Help: "Number of events emitted, grouped by event name.",
		}, []string{"event"})

	phaseDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoker_phase_duration_seconds",
			Help: "Wall time each phase took.",
		}, []string{"phase"})

	scriptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoker_scripts_total",
			Help: "Number of script runs, grouped by package manager and status.",
		}, []string{"pkg_manager", "status"})

	lintIssuesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoker_lint_issues_total",
			Help: "Number of lint issues, grouped by rule and severity.",
		}, []string{"rule", "severity"})

	pkgManagerFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoker_pkg_manager_failures_total",
			Help: "Number of package managers failing a phase.",
		}, []string{"phase", "pkg_manager"})

	runSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smoker_run_success",
			Help: "A boolean that tells if the last run succeeded.",
		})

	return &Recorder{
		clock:              clk,
		phases:             newPhaseState(),
		eventsTotal:        eventsTotal,
		phaseDuration:      phaseDuration,
		scriptsTotal:       scriptsTotal,
		lintIssuesTotal:    lintIssuesTotal,
		pkgManagerFailures: pkgManagerFailures,
		runSuccess:         runSuccess,
	}
}

// Register registers all metrics with reg.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		r.eventsTotal,
		r.phaseDuration,
		r.scriptsTotal,
		r.lintIssuesTotal,
		r.pkgManagerFailures,
		r.runSuccess,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) RecordEvent(name string) {
	r.eventsTotal.WithLabelValues(name).Inc()
}

// PhaseBegin marks the start of a phase.
func (r *Recorder) PhaseBegin(phase string) {
	r.phases.begin(phase, r.clock.Now())
}

// PhaseEnd records the duration of a phase started with PhaseBegin.
func (r *Recorder) PhaseEnd(phase string) {
	if d, ok := r.phases.end(phase, r.clock.Now()); ok {
		r.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
	}
}

func (r *Recorder) RecordScript(pkgManager, status string) {
	r.scriptsTotal.WithLabelValues(pkgManager, status).Inc()
}

func (r *Recorder) RecordLintIssue(rule, severity string) {
	r.lintIssuesTotal.WithLabelValues(rule, severity).Inc()
}

func (r *Recorder) RecordPkgManagerFailure(phase, pkgManager string) {
	r.pkgManagerFailures.WithLabelValues(phase, pkgManager).Inc()
}

// SetRunSuccess sets the `smoker_run_success` metric.
// 0 - failed, 1 - ok
func (r *Recorder) SetRunSuccess(ok bool) {
	if ok {
		r.runSuccess.Set(1)
	} else {
		r.runSuccess.Set(0)
	}
}
