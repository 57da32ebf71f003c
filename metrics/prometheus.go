// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitializePrometheusMetrics switches the backend to prometheus,
// registering meters on the default registry. Call it once at startup,
// before any meter is used.
func InitializePrometheusMetrics() {
	backendMu.Lock()
	defer backendMu.Unlock()
	if _, ok := backend.(*prometheusBackend); !ok {
		backend = newPrometheusBackend()
	}
}

type prometheusBackend struct {
	mu            sync.Mutex
	counters      map[string]CountMeter
	counterVecs   map[string]CountVecMeter
	gauges        map[string]GaugeMeter
	gaugeVecs     map[string]GaugeVecMeter
	histograms    map[string]HistogramMeter
	histogramVecs map[string]HistogramVecMeter
}

func newPrometheusBackend() *prometheusBackend {
	return &prometheusBackend{
		counters:      make(map[string]CountMeter),
		counterVecs:   make(map[string]CountVecMeter),
		gauges:        make(map[string]GaugeMeter),
		gaugeVecs:     make(map[string]GaugeVecMeter),
		histograms:    make(map[string]HistogramMeter),
		histogramVecs: make(map[string]HistogramVecMeter),
	}
}

func (b *prometheusBackend) GetOrCreateCountMeter(name string) CountMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.counters[name]; ok {
		return m
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
	prometheus.MustRegister(c)
	m := &promCountMeter{c}
	b.counters[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.counterVecs[name]; ok {
		return m
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
	prometheus.MustRegister(c)
	m := &promCountVecMeter{c}
	b.counterVecs[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateGaugeMeter(name string) GaugeMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.gauges[name]; ok {
		return m
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
	prometheus.MustRegister(g)
	m := &promGaugeMeter{g}
	b.gauges[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateGaugeVecMeter(name string, labels []string) GaugeVecMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.gaugeVecs[name]; ok {
		return m
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name}, labels)
	prometheus.MustRegister(g)
	m := &promGaugeVecMeter{g}
	b.gaugeVecs[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.histograms[name]; ok {
		return m
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Buckets:   toFloatBuckets(buckets),
	})
	prometheus.MustRegister(h)
	m := &promHistogramMeter{h}
	b.histograms[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.histogramVecs[name]; ok {
		return m
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Buckets:   toFloatBuckets(buckets),
	}, labels)
	prometheus.MustRegister(h)
	m := &promHistogramVecMeter{h}
	b.histogramVecs[name] = m
	return m
}

func (b *prometheusBackend) GetOrCreateHandler() http.Handler {
	return promhttp.Handler()
}

func toFloatBuckets(buckets []int64) []float64 {
	if len(buckets) == 0 {
		return prometheus.DefBuckets
	}
	fs := make([]float64, len(buckets))
	for i, v := range buckets {
		fs[i] = float64(v)
	}
	return fs
}

type promCountMeter struct {
	c prometheus.Counter
}

func (m *promCountMeter) Add(i int64) { m.c.Add(float64(i)) }

type promCountVecMeter struct {
	c *prometheus.CounterVec
}

func (m *promCountVecMeter) AddWithLabel(i int64, labels map[string]string) {
	m.c.With(labels).Add(float64(i))
}

type promGaugeMeter struct {
	g prometheus.Gauge
}

func (m *promGaugeMeter) Add(i int64) { m.g.Add(float64(i)) }
func (m *promGaugeMeter) Set(i int64) { m.g.Set(float64(i)) }

type promGaugeVecMeter struct {
	g *prometheus.GaugeVec
}

func (m *promGaugeVecMeter) AddWithLabel(i int64, labels map[string]string) {
	m.g.With(labels).Add(float64(i))
}

func (m *promGaugeVecMeter) SetWithLabel(i int64, labels map[string]string) {
	m.g.With(labels).Set(float64(i))
}

type promHistogramMeter struct {
	h prometheus.Histogram
}

func (m *promHistogramMeter) Observe(i int64) { m.h.Observe(float64(i)) }

type promHistogramVecMeter struct {
	h *prometheus.HistogramVec
}

func (m *promHistogramVecMeter) ObserveWithLabels(i int64, labels map[string]string) {
	m.h.With(labels).Observe(float64(i))
}
