// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what a Client does with each fetch. A nil *Metrics records
// nothing.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    prometheus.Counter
	shared    prometheus.Counter
	discarded prometheus.Counter
	errors    *prometheus.CounterVec
	latency   prometheus.Histogram
}

// NewMetrics registers the client metrics with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Fetches answered without a network call, by source",
		}, []string{"source"}),

		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Retrievals that went to the network",
		}),

		shared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shared_fetches_total",
			Help:      "Fetches that joined a retrieval already in flight",
		}),

		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_results_total",
			Help:      "Results dropped because a newer generation had started",
		}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed retrievals, by kind",
		}, []string{"kind"}),

		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Network retrieval duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) hit(source string) {
	if m != nil {
		m.hits.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) miss(took time.Duration) {
	if m != nil {
		m.misses.Inc()
		m.latency.Observe(took.Seconds())
	}
}

func (m *Metrics) share() {
	if m != nil {
		m.shared.Inc()
	}
}

func (m *Metrics) discard() {
	if m != nil {
		m.discarded.Inc()
	}
}

func (m *Metrics) fail(kind Kind) {
	if m != nil {
		m.errors.WithLabelValues(kind.String()).Inc()
	}
}
