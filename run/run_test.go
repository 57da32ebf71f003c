// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/vinyl/stmt"
)

var kd = stmt.NewKeyDef(0)

func writeRun(t *testing.T, path string, opts *WriterOptions, stmts ...*stmt.Statement) {
	t.Helper()
	w, err := Create(path, opts)
	require.NoError(t, err)
	for _, s := range stmts {
		require.NoError(t, w.Append(s))
	}
	require.NoError(t, w.Finish())
}

func readAll(t *testing.T, r *Reader) []*stmt.Statement {
	t.Helper()
	s := r.NewStream()
	defer s.Close()

	var out []*stmt.Statement
	for {
		st, err := s.Next()
		require.NoError(t, err)
		if st == nil {
			return out
		}
		assert.False(t, st.Refable(), "run streams produce borrowed statements")
		out = append(out, st.Clone())
	}
}

func TestRunRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0001.run")
	stmts := []*stmt.Statement{
		stmt.NewReplace(kd, stmt.NewTuple(1, 10), 9, 0),
		stmt.NewUpsert(kd, stmt.NewTuple(1, 0), []stmt.Op{stmt.AddOp(1, 2)}, 9),
		stmt.NewDelete(kd, stmt.NewTuple(2), 7, 0b10),
		stmt.NewReplace(kd, stmt.NewTuple(3, 30), 4, 0),
	}
	writeRun(t, path, nil, stmts...)

	r, err := Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint64(len(stmts)), r.Len())
	assert.Equal(t, 1, r.Blocks())

	got := readAll(t, r)
	require.Len(t, got, len(stmts))
	for i, want := range stmts {
		assert.Equal(t, want.Key(), got[i].Key())
		assert.Equal(t, want.LSN(), got[i].LSN())
		assert.Equal(t, want.Type(), got[i].Type())
		assert.Equal(t, want.ColMask(), got[i].ColMask())
		assert.Equal(t, want.Tuple(), got[i].Tuple())
	}
	assert.Equal(t, stmts[1].Ops(), got[1].Ops())
}

func TestRunManyBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.run")
	w, err := Create(path, &WriterOptions{BlockSize: 64})
	require.NoError(t, err)
	const n = 500
	for i := range n {
		require.NoError(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(uint64(i), uint64(i)*3), 1, 0)))
	}
	require.NoError(t, w.Finish())

	r, err := Open(path, &ReaderOptions{Cache: NewCache(1 << 20)})
	require.NoError(t, err)
	defer r.Close()

	assert.Greater(t, r.Blocks(), 1)
	got := readAll(t, r)
	require.Len(t, got, n)
	for i, s := range got {
		k, _ := s.Tuple().Uint64(0)
		v, _ := s.Tuple().Uint64(1)
		assert.Equal(t, uint64(i), k)
		assert.Equal(t, uint64(i)*3, v)
	}

	// a second pass hits the block cache
	again := readAll(t, r)
	assert.Len(t, again, n)
}

func TestWriterRejectsOutOfOrder(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(filepath.Join(dir, "a.run"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(2, 0), 5, 0)))
	assert.Error(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(1, 0), 5, 0)))
	w.Abort()

	w, err = Create(filepath.Join(dir, "b.run"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(1, 0), 5, 0)))
	assert.Error(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(1, 1), 6, 0)))
	w.Abort()

	w, err = Create(filepath.Join(dir, "c.run"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(stmt.NewUpsert(kd, stmt.NewTuple(1, 0), []stmt.Op{stmt.AddOp(1, 1)}, 5)))
	assert.Error(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(1, 0), 5, 0)))
	w.Abort()
}

func TestOpenRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.run")
	require.NoError(t, os.WriteFile(short, []byte("tiny"), 0o600))
	_, err := Open(short, nil)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.run")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 64), 0o600))
	_, err = Open(garbage, nil)
	assert.Error(t, err)
}

func TestAbortRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.run")
	w, err := Create(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(stmt.NewReplace(kd, stmt.NewTuple(1, 0), 1, 0)))
	w.Abort()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPoolReusesReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pooled.run")
	writeRun(t, path, nil, stmt.NewReplace(kd, stmt.NewTuple(1, 1), 1, 0))

	p := NewPool(4, nil)
	defer p.Close()

	r1, err := p.Get(path)
	require.NoError(t, err)
	r2, err := p.Get(path)
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	_, err = p.Get(filepath.Join(t.TempDir(), "missing.run"))
	assert.Error(t, err)
}
