package testutil

import (
	"fmt"
	"os"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const metricsPrefix = "smoker_"

// Metrics are parsed metric families keyed by name without the smoker_ prefix.
type Metrics map[string][]*dto.Metric

// ReadMetrics parses a prometheus textfile as written by the metrics reporter.
func ReadMetrics(path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	metrics := Metrics{}
	for name, mf := range mfs {
		if strings.HasPrefix(name, metricsPrefix) {
			metrics[strings.TrimPrefix(name, metricsPrefix)] = mf.GetMetric()
		}
	}
	return metrics, nil
}

// Find returns the sample of metric carrying all given labels.
func (m Metrics) Find(metric string, labels map[string]string) *dto.Metric {
	for _, sample := range m[metric] {
		if searchableLabels(sample.GetLabel()).containsAll(labels) {
			return sample
		}
	}
	return nil
}

// Value returns the counter or gauge value of the matching sample.
func (m Metrics) Value(metric string, labels map[string]string) (float64, bool) {
	sample := m.Find(metric, labels)
	switch {
	case sample == nil:
		return 0, false
	case sample.Counter != nil:
		return sample.GetCounter().GetValue(), true
	case sample.Gauge != nil:
		return sample.GetGauge().GetValue(), true
	}
	return 0, false
}

type searchableLabels []*dto.LabelPair

func (ls searchableLabels) containsAll(want map[string]string) bool {
	for name, val := range want {
		if !ls.contains(name, val) {
			return false
		}
	}
	return true
}

func (ls searchableLabels) contains(name, val string) bool {
	for _, l := range ls {
		if l.GetName() != name {
			continue
		}

		if l.GetValue() == val {
			return true
		}
	}
	return false
}
