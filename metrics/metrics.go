// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a thin facade over the metrics backend. All meters
// are no-ops until a backend is initialized, so library code records
// metrics unconditionally and only binaries decide whether to expose
// them.
package metrics

import (
	"net/http"
	"sync"
)

const namespace = "vinyl_metrics"

// CountMeter is a cumulative counter.
type CountMeter interface {
	Add(i int64)
}

// CountVecMeter is a cumulative counter with labels.
type CountVecMeter interface {
	AddWithLabel(i int64, labels map[string]string)
}

// GaugeMeter is a settable value.
type GaugeMeter interface {
	Add(i int64)
	Set(i int64)
}

// GaugeVecMeter is a settable value with labels.
type GaugeVecMeter interface {
	AddWithLabel(i int64, labels map[string]string)
	SetWithLabel(i int64, labels map[string]string)
}

// HistogramMeter observes value distributions.
type HistogramMeter interface {
	Observe(i int64)
}

// HistogramVecMeter observes value distributions with labels.
type HistogramVecMeter interface {
	ObserveWithLabels(i int64, labels map[string]string)
}

type metricsBackend interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateGaugeVecMeter(name string, labels []string) GaugeVecMeter
	GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter
	GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter
	GetOrCreateHandler() http.Handler
}

var (
	backendMu sync.Mutex
	backend   metricsBackend = &noopBackend{}
)

func getBackend() metricsBackend {
	backendMu.Lock()
	defer backendMu.Unlock()
	return backend
}

// Counter returns a counter, creating it on first use.
func Counter(name string) CountMeter { return getBackend().GetOrCreateCountMeter(name) }

// CounterVec returns a labeled counter, creating it on first use.
func CounterVec(name string, labels []string) CountVecMeter {
	return getBackend().GetOrCreateCountVecMeter(name, labels)
}

// Gauge returns a gauge, creating it on first use.
func Gauge(name string) GaugeMeter { return getBackend().GetOrCreateGaugeMeter(name) }

// GaugeVec returns a labeled gauge, creating it on first use.
func GaugeVec(name string, labels []string) GaugeVecMeter {
	return getBackend().GetOrCreateGaugeVecMeter(name, labels)
}

// Histogram returns a histogram, creating it on first use.
func Histogram(name string, buckets []int64) HistogramMeter {
	return getBackend().GetOrCreateHistogramMeter(name, buckets)
}

// HistogramVec returns a labeled histogram, creating it on first use.
func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return getBackend().GetOrCreateHistogramVecMeter(name, labels, buckets)
}

// HTTPHandler returns the exposition handler of the active backend.
func HTTPHandler() http.Handler { return getBackend().GetOrCreateHandler() }

// LazyLoadCounter defers meter creation to first use, useful for
// package-level metric vars that may never be exercised.
func LazyLoadCounter(name string) func() CountMeter {
	var once sync.Once
	var meter CountMeter
	return func() CountMeter {
		once.Do(func() { meter = Counter(name) })
		return meter
	}
}

// LazyLoadCounterVec defers meter creation to first use.
func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	var once sync.Once
	var meter CountVecMeter
	return func() CountVecMeter {
		once.Do(func() { meter = CounterVec(name, labels) })
		return meter
	}
}

// LazyLoadGauge defers meter creation to first use.
func LazyLoadGauge(name string) func() GaugeMeter {
	var once sync.Once
	var meter GaugeMeter
	return func() GaugeMeter {
		once.Do(func() { meter = Gauge(name) })
		return meter
	}
}

// LazyLoadGaugeVec defers meter creation to first use.
func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	var once sync.Once
	var meter GaugeVecMeter
	return func() GaugeVecMeter {
		once.Do(func() { meter = GaugeVec(name, labels) })
		return meter
	}
}

// LazyLoadHistogram defers meter creation to first use.
func LazyLoadHistogram(name string, buckets []int64) func() HistogramMeter {
	var once sync.Once
	var meter HistogramMeter
	return func() HistogramMeter {
		once.Do(func() { meter = Histogram(name, buckets) })
		return meter
	}
}
