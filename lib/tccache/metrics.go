// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results.
const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupExpired = "expired"
)

// Load outcomes.
const (
	loadStored   = "stored"
	loadRejected = "rejected"
	loadError    = "error"
)

// Metrics counts cache traffic. A nil *Metrics records nothing.
type Metrics struct {
	lookups      *prometheus.CounterVec
	loads        *prometheus.CounterVec
	discards     *prometheus.CounterVec
	repairs      *prometheus.CounterVec
	notFoundStub *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with
// registerer (prometheus.DefaultRegisterer when nil). Counters that
// are already registered are shared, so several servers in one
// process report into the same series, split by label.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tcbot",
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, labels)
	}
	metrics := &Metrics{
		lookups:      counter("lookups_total", "Cache reads by result", "cache", "result"),
		loads:        counter("loads_total", "Remote loads triggered by cache reads, by outcome", "cache", "outcome"),
		discards:     counter("discarded_records_total", "Stored records deleted as inconsistent", "cache"),
		repairs:      counter("project_repairs_total", "Build results re-fetched for a missing project id, by outcome", "outcome"),
		notFoundStub: counter("not_found_stubs_total", "Fake builds stored for builds the server does not have", "server"),
	}
	for _, target := range []**prometheus.CounterVec{
		&metrics.lookups, &metrics.loads, &metrics.discards, &metrics.repairs, &metrics.notFoundStub,
	} {
		if err := registerer.Register(*target); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					*target = existing
				}
			}
		}
	}
	return metrics
}

func (m *Metrics) lookup(cache, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) load(cache, outcome string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(cache, outcome).Inc()
}

func (m *Metrics) discarded(cache string) {
	if m == nil {
		return
	}
	m.discards.WithLabelValues(cache).Inc()
}

func (m *Metrics) repair(outcome string) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) stubStored(server string) {
	if m == nil {
		return
	}
	m.notFoundStub.WithLabelValues(server).Inc()
}
