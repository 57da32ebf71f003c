// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides small caching helpers.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRU a LRU cache extends golang-lru.
type LRU struct {
	*lru.Cache
}

// NewLRU create a LRU cache instance.
func NewLRU(maxSize int) *LRU {
	if maxSize < 16 {
		maxSize = 16
	}
	cache, _ := lru.New(maxSize)
	return &LRU{cache}
}

// NewLRUWithEvict create a LRU cache which calls onEvict for every
// entry leaving the cache, eviction and Purge included.
func NewLRUWithEvict(maxSize int, onEvict func(key, value interface{})) *LRU {
	if maxSize < 1 {
		maxSize = 1
	}
	cache, _ := lru.NewWithEvict(maxSize, onEvict)
	return &LRU{cache}
}

// Loader defines loader to load value.
type Loader func(key interface{}) (interface{}, error)

// GetOrLoad first try to get from cache, do load if missed.
func (l *LRU) GetOrLoad(key interface{}, loader Loader) (interface{}, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := loader(key)
	if err != nil {
		return nil, err
	}

	l.Add(key, v)
	return v, nil
}
