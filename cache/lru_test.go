// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoad(t *testing.T) {
	l := NewLRU(16)

	loads := 0
	loader := func(key interface{}) (interface{}, error) {
		loads++
		return key.(string) + "-v", nil
	}

	v, err := l.GetOrLoad("a", loader)
	require.NoError(t, err)
	assert.Equal(t, "a-v", v)

	v, err = l.GetOrLoad("a", loader)
	require.NoError(t, err)
	assert.Equal(t, "a-v", v)
	assert.Equal(t, 1, loads)

	_, err = l.GetOrLoad("b", func(interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	_, ok := l.Get("b")
	assert.False(t, ok)
}

func TestEvictCallback(t *testing.T) {
	var evicted []interface{}
	l := NewLRUWithEvict(2, func(key, _ interface{}) {
		evicted = append(evicted, key)
	})

	l.Add(1, "a")
	l.Add(2, "b")
	l.Add(3, "c")
	assert.Equal(t, []interface{}{1}, evicted)

	l.Purge()
	assert.Len(t, evicted, 3)
}
