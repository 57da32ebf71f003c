// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package run

import (
	"encoding/binary"

	"github.com/qianbin/directcache"
)

// Cache holds decompressed data blocks, shared between readers. Entries
// are keyed by (reader id, block offset).
type Cache struct {
	c *directcache.Cache
}

// NewCache creates a block cache bounded to capacity bytes.
func NewCache(capacity int) *Cache {
	return &Cache{c: directcache.New(capacity)}
}

func cacheKey(readerID, offset uint64) []byte {
	var k [16]byte
	binary.BigEndian.PutUint64(k[:8], readerID)
	binary.BigEndian.PutUint64(k[8:], offset)
	return k[:]
}

func (c *Cache) get(readerID, offset uint64) ([]byte, bool) {
	return c.c.Get(cacheKey(readerID, offset))
}

func (c *Cache) set(readerID, offset uint64, data []byte) {
	c.c.Set(cacheKey(readerID, offset), data)
}
