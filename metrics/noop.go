// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopBackend is the default backend: every meter discards its input.
type noopBackend struct{}

type noopMeter struct{}

func (noopMeter) Add(int64)                                  {}
func (noopMeter) Set(int64)                                  {}
func (noopMeter) AddWithLabel(int64, map[string]string)      {}
func (noopMeter) SetWithLabel(int64, map[string]string)      {}
func (noopMeter) Observe(int64)                              {}
func (noopMeter) ObserveWithLabels(int64, map[string]string) {}

func (*noopBackend) GetOrCreateCountMeter(string) CountMeter { return noopMeter{} }

func (*noopBackend) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return noopMeter{} }

func (*noopBackend) GetOrCreateGaugeMeter(string) GaugeMeter { return noopMeter{} }

func (*noopBackend) GetOrCreateGaugeVecMeter(string, []string) GaugeVecMeter { return noopMeter{} }

func (*noopBackend) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return noopMeter{} }

func (*noopBackend) GetOrCreateHistogramVecMeter(string, []string, []int64) HistogramVecMeter {
	return noopMeter{}
}

func (*noopBackend) GetOrCreateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "metrics not enabled", http.StatusNotFound)
	})
}
