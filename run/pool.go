// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package run

import (
	"github.com/vechain/vinyl/cache"
)

// Pool caches open readers by path, bounded to maxOpen. An evicted
// reader is closed, so size the pool above the working set of a merge.
type Pool struct {
	lru  *cache.LRU
	opts *ReaderOptions
}

// NewPool creates a reader pool.
func NewPool(maxOpen int, opts *ReaderOptions) *Pool {
	return &Pool{
		lru: cache.NewLRUWithEvict(maxOpen, func(_, value interface{}) {
			value.(*Reader).Close()
		}),
		opts: opts,
	}
}

// Get returns an open reader for the run at path, opening it on first
// use.
func (p *Pool) Get(path string) (*Reader, error) {
	v, err := p.lru.GetOrLoad(path, func(key interface{}) (interface{}, error) {
		return Open(key.(string), p.opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Reader), nil
}

// Close closes all pooled readers.
func (p *Pool) Close() {
	p.lru.Purge()
}
