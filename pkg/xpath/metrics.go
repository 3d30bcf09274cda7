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

package xpath

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "xform"
	subsystem = "xpath"
)

// Metrics holds prometheus metrics for expression parsing and evaluation.
// A nil *Metrics records nothing.
type Metrics struct {
	parseTime      *prometheus.HistogramVec
	evaluationTime *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

// NewMetrics creates an unregistered metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		parseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "parse_duration_seconds",
				Help:      "XPath parse time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 12), // 1µs to ~2ms
			},
			[]string{"result"}, // "success" or "error"
		),
		evaluationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "XPath evaluation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 14), // 1µs to ~8ms
			},
			[]string{"result"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "parse_cache_lookups_total",
				Help:      "Parse cache lookups by outcome.",
			},
			[]string{"outcome"}, // "hit" or "miss"
		),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveParse records a parse duration.
func (m *Metrics) ObserveParse(durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.parseTime.WithLabelValues(resultLabel(err)).Observe(durationSeconds)
}

// ObserveEvaluation records an evaluation duration.
func (m *Metrics) ObserveEvaluation(durationSeconds float64, err error) {
	if m == nil {
		return
	}
	m.evaluationTime.WithLabelValues(resultLabel(err)).Observe(durationSeconds)
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.parseTime, m.evaluationTime, m.cacheLookups)
}
