// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vinyl

import (
	"math"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/vinyl/stmt"
)

func TestMain(m *testing.M) {
	strictOrderCheck = true
	os.Exit(m.Run())
}

var kd = stmt.NewKeyDef(0)

func rep(key, lsn, val uint64) *stmt.Statement {
	return stmt.NewReplace(kd, stmt.NewTuple(key, val), int64(lsn), 0)
}

func repMasked(key, lsn, val, mask uint64) *stmt.Statement {
	return stmt.NewReplace(kd, stmt.NewTuple(key, val), int64(lsn), mask)
}

func del(key, lsn uint64) *stmt.Statement {
	return stmt.NewDelete(kd, stmt.NewTuple(key), int64(lsn), 0)
}

func ups(key, lsn, proposal, delta uint64) *stmt.Statement {
	return stmt.NewUpsert(kd, stmt.NewTuple(key, proposal), []stmt.Op{stmt.AddOp(1, delta)}, int64(lsn))
}

// stubStream hands out pre-built refable statements, modeling a memory
// level whose statements are shared with the pool.
type stubStream struct {
	stmts     []*stmt.Statement
	i         int
	failAt    int // Next index that fails; -1 never
	nextCalls int
	closed    bool
}

func newStubStream(stmts ...*stmt.Statement) *stubStream {
	return &stubStream{stmts: stmts, failAt: -1}
}

func (s *stubStream) Next() (*stmt.Statement, error) {
	s.nextCalls++
	if s.i == s.failAt {
		return nil, errors.New("stub stream broken")
	}
	if s.i >= len(s.stmts) {
		return nil, nil
	}
	st := s.stmts[s.i]
	s.i++
	st.Ref()
	return st, nil
}

func (s *stubStream) Close() { s.closed = true }

// borrowedStream models a run stream: statements are non-refable.
type borrowedStream struct {
	stmts []*stmt.Statement
	i     int
}

func (s *borrowedStream) Next() (*stmt.Statement, error) {
	if s.i >= len(s.stmts) {
		return nil, nil
	}
	st := s.stmts[s.i]
	s.i++
	return stmt.NewBorrowed(st.Type(), st.Key(), st.Tuple(), st.Ops(), st.LSN(), st.ColMask()), nil
}

func (s *borrowedStream) Close() {}

type yielded struct {
	key, val uint64
	lsn      int64
	typ      stmt.Type
}

func drain(t *testing.T, w *WriteIterator) []yielded {
	t.Helper()
	var out []yielded
	for {
		s, err := w.Next()
		require.NoError(t, err)
		if s == nil {
			return out
		}
		y := yielded{lsn: s.LSN(), typ: s.Type()}
		y.key, _ = s.Tuple().Uint64(0)
		if s.Type() != stmt.Delete {
			y.val, _ = s.Tuple().Uint64(1)
		}
		out = append(out, y)
	}
}

func TestSimpleMerge(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(rep(1, 12, 100), rep(3, 12, 300))))
	require.NoError(t, w.addSource(newStubStream(rep(2, 12, 200))))

	assert.Equal(t, []yielded{
		{key: 1, val: 100, lsn: 12, typ: stmt.Replace},
		{key: 2, val: 200, lsn: 12, typ: stmt.Replace},
		{key: 3, val: 300, lsn: 12, typ: stmt.Replace},
	}, drain(t, w))
}

func TestShadowingAboveHorizon(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(rep(1, 15, 1))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 14, 2))))

	// both versions may still be read by active transactions
	assert.Equal(t, []yielded{
		{key: 1, val: 1, lsn: 15, typ: stmt.Replace},
		{key: 1, val: 2, lsn: 14, typ: stmt.Replace},
	}, drain(t, w))
}

func TestHorizonSquash(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(rep(1, 15, 1))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 14, 2))))

	// the shadowed version is invisible to every reader and dropped
	assert.Equal(t, []yielded{
		{key: 1, val: 1, lsn: 15, typ: stmt.Replace},
	}, drain(t, w))
}

func TestUpsertFoldWithBase(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(ups(1, 18, 1, 1))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 10, 5))))

	assert.Equal(t, []yielded{
		{key: 1, val: 6, lsn: 18, typ: stmt.Replace},
	}, drain(t, w))
}

func TestUpsertFoldLastLevelNoBase(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20, IsLastLevel: true})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(ups(1, 18, 7, 1))))

	// folding from nothing keeps the proposal, ops are not applied
	assert.Equal(t, []yielded{
		{key: 1, val: 7, lsn: 18, typ: stmt.Replace},
	}, drain(t, w))
}

func TestUpsertKeptWhenNotLastLevel(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(ups(1, 18, 7, 1))))

	out := drain(t, w)
	require.Len(t, out, 1)
	assert.Equal(t, stmt.Upsert, out[0].typ)
	assert.Equal(t, int64(18), out[0].lsn)
}

func TestUpsertChainFold(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 40})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(ups(1, 30, 1, 1), ups(1, 25, 1, 2))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 10, 100))))

	assert.Equal(t, []yielded{
		{key: 1, val: 103, lsn: 30, typ: stmt.Replace},
	}, drain(t, w))
}

func TestSecondaryIndexSkip(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IndexColMask: 0b0010, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(repMasked(1, 15, 1, 0b0001))))

	assert.Empty(t, drain(t, w))
}

func TestSecondaryIndexKeepsTouchedColumns(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IndexColMask: 0b0010, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(repMasked(1, 15, 1, 0b0110))))

	assert.Len(t, drain(t, w), 1)
}

func TestLastLevelDeleteElision(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20, IsLastLevel: true})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(del(1, 15))))

	assert.Empty(t, drain(t, w))
}

func TestDeleteKeptAboveLastLevel(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(del(1, 15))))

	assert.Equal(t, []yielded{
		{key: 1, lsn: 15, typ: stmt.Delete},
	}, drain(t, w))
}

func TestDeleteShadowsOlderData(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20, IsLastLevel: true})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(del(1, 15), rep(2, 12, 2))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 8, 1))))

	// key 1 disappears entirely: the tombstone consumes the old version
	// and is itself elided at the last level
	assert.Equal(t, []yielded{
		{key: 2, val: 2, lsn: 12, typ: stmt.Replace},
	}, drain(t, w))
}

// recordingApplier wraps OpsApplier and records the fold order.
type recordingApplier struct {
	OpsApplier
	calls [][2]int64
}

func (a *recordingApplier) Apply(upsert, base *stmt.Statement, kd *stmt.KeyDef, primary bool) (*stmt.Statement, error) {
	baseLSN := int64(-1)
	if base != nil {
		baseLSN = base.LSN()
	}
	a.calls = append(a.calls, [2]int64{upsert.LSN(), baseLSN})
	return a.OpsApplier.Apply(upsert, base, kd, primary)
}

func TestSquashFoldOrder(t *testing.T) {
	applier := &recordingApplier{}
	w := NewWriteIterator(Options{KeyDef: kd, Applier: applier, IsPrimary: true, OldestVLSN: 40})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(ups(1, 30, 1, 1), ups(1, 25, 1, 2))))
	require.NoError(t, w.addSource(newStubStream(rep(1, 10, 100))))

	drain(t, w)
	// left fold: newest against next older, then against the base
	assert.Equal(t, [][2]int64{{30, 25}, {30, 10}}, applier.calls)
}

func TestRefBalance(t *testing.T) {
	stmts := []*stmt.Statement{
		ups(1, 30, 1, 1), ups(1, 25, 1, 2), rep(1, 10, 100),
		del(2, 15), rep(3, 35, 3),
	}
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 40, IsLastLevel: true})

	require.NoError(t, w.addSource(newStubStream(stmts[0], stmts[1], stmts[3])))
	require.NoError(t, w.addSource(newStubStream(stmts[2], stmts[4])))

	drain(t, w)
	w.Close()

	// only the creation references held by the test remain
	for i, s := range stmts {
		assert.Equal(t, int32(1), s.Refs(), "statement %d", i)
	}
}

func TestBorrowedStatementsMaterialized(t *testing.T) {
	src := []*stmt.Statement{rep(1, 15, 1), rep(2, 14, 2)}
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})
	defer w.Close()

	require.NoError(t, w.addSource(&borrowedStream{stmts: src}))

	s, err := w.Next()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Refable())
	first, _ := s.Tuple().Uint64(0)
	assert.Equal(t, uint64(1), first)

	s2, err := w.Next()
	require.NoError(t, err)
	require.NotNil(t, s2)
	second, _ := s2.Tuple().Uint64(0)
	assert.Equal(t, uint64(2), second)
}

func TestEmptySourceDiscarded(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true})
	defer w.Close()

	empty := newStubStream()
	require.NoError(t, w.addSource(empty))
	assert.True(t, empty.closed)
	assert.Empty(t, w.sources)

	s, err := w.Next()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAddSourceError(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})
	defer w.Close()

	broken := newStubStream(rep(1, 12, 1))
	broken.failAt = 0
	require.Error(t, w.addSource(broken))
	assert.True(t, broken.closed)

	// the iterator stays usable without the broken source
	require.NoError(t, w.addSource(newStubStream(rep(2, 12, 2))))
	assert.Equal(t, []yielded{
		{key: 2, val: 2, lsn: 12, typ: stmt.Replace},
	}, drain(t, w))
}

func TestStreamErrorMidMerge(t *testing.T) {
	broken := newStubStream(rep(1, 12, 1), rep(2, 12, 2))
	broken.failAt = 1
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})

	require.NoError(t, w.addSource(broken))

	_, err := w.Next()
	require.Error(t, err)

	// after an error only Close is valid; Next keeps failing
	_, err2 := w.Next()
	assert.Equal(t, err, err2)

	w.Close()
	assert.True(t, broken.closed)
}

func TestCloseIdempotentAndQuiet(t *testing.T) {
	s1 := newStubStream(rep(1, 12, 1), rep(2, 12, 2))
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 10})
	require.NoError(t, w.addSource(s1))

	_, err := w.Next()
	require.NoError(t, err)

	w.Close()
	w.Close()
	assert.True(t, s1.closed)

	calls := s1.nextCalls
	s, err := w.Next()
	require.NoError(t, err)
	assert.Nil(t, s)
	// no stream operation after Close
	assert.Equal(t, calls, s1.nextCalls)
}

func TestApplyErrorSurfaces(t *testing.T) {
	// the upsert targets a field the base doesn't have
	bad := stmt.NewUpsert(kd, stmt.NewTuple(1, 1), []stmt.Op{stmt.AddOp(9, 1)}, 18)
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: 20})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(bad)))
	require.NoError(t, w.addSource(newStubStream(rep(1, 10, 5))))

	_, err := w.Next()
	require.Error(t, err)
	// the sentinel is gone despite the abort
	for _, src := range w.heap.items {
		assert.NotEqual(t, w.endOfKey, src)
	}
}

func TestKeysAreNonDecreasing(t *testing.T) {
	w := NewWriteIterator(Options{KeyDef: kd, IsPrimary: true, OldestVLSN: math.MaxInt64})
	defer w.Close()

	require.NoError(t, w.addSource(newStubStream(rep(1, 5, 1), rep(4, 8, 4), rep(9, 2, 9))))
	require.NoError(t, w.addSource(newStubStream(rep(2, 3, 2), rep(4, 6, 44))))
	require.NoError(t, w.addSource(newStubStream(del(3, 7), rep(8, 1, 8))))

	out := drain(t, w)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].key, out[i].key)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 8, 9}, func() (keys []uint64) {
		for _, y := range out {
			keys = append(keys, y.key)
		}
		return
	}())
}
