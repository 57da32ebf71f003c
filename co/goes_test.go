// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoes(t *testing.T) {
	var g Goes
	var n int32
	g.Go(func() { atomic.AddInt32(&n, 1) })
	g.Go(func() { atomic.AddInt32(&n, 1) })
	g.Wait()

	<-g.Done()
	assert.Equal(t, int32(2), atomic.LoadInt32(&n))
}
