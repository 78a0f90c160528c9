// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics - engine counters exported in prometheus format
//
// all methods accept a nil receiver so that components can run without
// metrics
package metrics

import (
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "collabd"

// outcome labels
const (
	ResultOK      = "ok"
	ResultFail    = "fail"
	ResultSkipped = "skipped"
)

// Metrics - the engine's collectors on their own registry
type Metrics struct {
	registry *prometheus.Registry

	updatesPushed     prometheus.Counter
	updateBytes       prometheus.Counter
	loads             prometheus.Counter
	flushes           *prometheus.CounterVec
	snapshots         *prometheus.CounterVec
	snapshotsInFlight prometheus.Gauge
	snapshotDuration  prometheus.Histogram
	errors            *prometheus.CounterVec
}

// New - create and register all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updatesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "updates_pushed_total",
			Help:      "Updates appended to document logs",
		}),
		updateBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "update_bytes_total",
			Help:      "Bytes of updates appended to document logs",
		}),
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "loads_total",
			Help:      "Documents loaded into a runtime",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "flushes_total",
			Help:      "Document log flushes by result",
		}, []string{"result"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "created_total",
			Help:      "Snapshot attempts by result",
		}, []string{"result"}),
		snapshotsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "in_flight",
			Help:      "Snapshot jobs currently processing",
		}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Time to replay and write a snapshot",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 2.5, 10},
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed operations by operation name",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.updatesPushed,
		m.updateBytes,
		m.loads,
		m.flushes,
		m.snapshots,
		m.snapshotsInFlight,
		m.snapshotDuration,
		m.errors,
	)
	return m
}

// Registry - for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	if nil == m {
		return nil
	}
	return m.registry
}

// UpdatePushed - one update of size bytes was appended
func (m *Metrics) UpdatePushed(size int) {
	if nil == m {
		return
	}
	m.updatesPushed.Inc()
	m.updateBytes.Add(float64(size))
}

// Loaded - a document was replayed into a runtime
func (m *Metrics) Loaded() {
	if nil == m {
		return
	}
	m.loads.Inc()
}

// Flushed - outcome of a flush
func (m *Metrics) Flushed(result string) {
	if nil == m {
		return
	}
	m.flushes.WithLabelValues(result).Inc()
}

// SnapshotStarted - a snapshot job began processing
func (m *Metrics) SnapshotStarted() {
	if nil == m {
		return
	}
	m.snapshotsInFlight.Inc()
}

// SnapshotFinished - a snapshot job ended
func (m *Metrics) SnapshotFinished(result string, elapsed time.Duration) {
	if nil == m {
		return
	}
	m.snapshotsInFlight.Dec()
	m.snapshots.WithLabelValues(result).Inc()
	m.snapshotDuration.Observe(elapsed.Seconds())
}

// Error - an operation failed
func (m *Metrics) Error(operation string) {
	if nil == m {
		return
	}
	m.errors.WithLabelValues(operation).Inc()
}

// Handler - http handler serving the registry
func (m *Metrics) Handler() http.Handler {
	if nil == m {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteText - dump all metrics in the text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	if nil == m {
		return nil
	}
	families, err := m.registry.Gather()
	if nil != err {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); nil != err {
			return err
		}
	}
	return nil
}
