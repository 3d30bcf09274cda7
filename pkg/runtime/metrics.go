// Copyright 2025 The Kubernetes Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "xform"
	subsystem = "runtime"
)

// Metrics holds prometheus metrics for form sessions. A nil *Metrics
// records nothing. One Metrics may be shared by many sessions.
type Metrics struct {
	writes        *prometheus.CounterVec
	effectRuns    *prometheus.CounterVec
	flushDuration prometheus.Histogram
	repeatChanges *prometheus.CounterVec
}

// NewMetrics creates an unregistered metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "writes_total",
				Help:      "Value writes by result.",
			},
			[]string{"result"}, // "success", "readonly" or "reentrant"
		),
		effectRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "effect_runs_total",
				Help:      "Effect evaluations by kind.",
			},
			[]string{"kind"}, // "calculate" or "count"
		),
		flushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flush_duration_seconds",
				Help:      "Time to bring calculations to a fixed point.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
		),
		repeatChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "repeat_instances_total",
				Help:      "Repeat instances added or removed.",
			},
			[]string{"operation"}, // "add" or "remove"
		),
	}
}

// MustRegister registers every metric with registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.writes, m.effectRuns, m.flushDuration, m.repeatChanges)
}

func (m *Metrics) write(result string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result).Inc()
}

func (m *Metrics) effectRun(kind string) {
	if m == nil {
		return
	}
	m.effectRuns.WithLabelValues(kind).Inc()
}

func (m *Metrics) flushed(seconds float64) {
	if m == nil {
		return
	}
	m.flushDuration.Observe(seconds)
}

func (m *Metrics) repeatChanged(operation string, n int) {
	if m == nil {
		return
	}
	m.repeatChanges.WithLabelValues(operation).Add(float64(n))
}
