// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vinyl

import "github.com/vechain/vinyl/metrics"

var (
	metricYield  = metrics.LazyLoadCounterVec("write_iterator_output_count", []string{"type"})
	metricElided = metrics.LazyLoadCounterVec("write_iterator_elided_count", []string{"reason"})
	metricUpsert = metrics.LazyLoadCounter("write_iterator_upsert_applied_count")
)
