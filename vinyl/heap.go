// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vinyl

import (
	"container/heap"

	"github.com/vechain/vinyl/stmt"
)

// source is one registered input of the write iterator. It wraps the
// stream, the statement the stream currently stands on, and its position
// in the merge heap.
type source struct {
	stream  Stream
	cur     *stmt.Statement
	heapIdx int
	closed  bool
}

// advance pulls the next statement from the stream, releasing the
// previous one. cur == nil afterwards means the stream is exhausted.
func (s *source) advance() error {
	next, err := s.stream.Next()
	if err != nil {
		return err
	}
	if s.cur != nil && s.cur.Refable() {
		s.cur.Unref()
	}
	s.cur = next
	return nil
}

func (s *source) close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.cur != nil && s.cur.Refable() {
		s.cur.Unref()
	}
	s.cur = nil
	s.stream.Close()
}

// mergeHeap is a min-heap of active sources ordered by which yields
// next. Each source carries its own heap index, so removing or
// re-sifting an arbitrary source stays O(log n).
type mergeHeap struct {
	w     *WriteIterator
	items []*source
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	return h.w.compareSources(h.items[i], h.items[j]) < 0
}

func (h *mergeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIdx = i
	h.items[j].heapIdx = j
}

func (h *mergeHeap) Push(x interface{}) {
	src := x.(*source)
	src.heapIdx = len(h.items)
	h.items = append(h.items, src)
}

func (h *mergeHeap) Pop() interface{} {
	n := len(h.items)
	src := h.items[n-1]
	src.heapIdx = -1
	h.items = h.items[:n-1]
	return src
}

func (h *mergeHeap) push(src *source) {
	heap.Push(h, src)
}

func (h *mergeHeap) remove(src *source) {
	if src.heapIdx >= 0 {
		heap.Remove(h, src.heapIdx)
	}
}

// fix restores heap order after the caller mutated src's current
// statement.
func (h *mergeHeap) fix(src *source) {
	heap.Fix(h, src.heapIdx)
}

func (h *mergeHeap) top() *source {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// compareSources orders two heap nodes: smaller key first, then larger
// LSN, then terminal statements before UPSERTs. The end-of-key sentinel
// carries no statement; it borrows the iterator's current key and ranks
// after every real node of that key, marking where the key's history
// ends.
func (w *WriteIterator) compareSources(a, b *source) int {
	if c := w.kd.Compare(w.sourceKey(a), w.sourceKey(b)); c != 0 {
		return c
	}
	if a == w.endOfKey {
		return 1
	}
	if b == w.endOfKey {
		return -1
	}
	if a.cur.LSN() != b.cur.LSN() {
		if a.cur.LSN() > b.cur.LSN() {
			return -1
		}
		return 1
	}
	return typeRank(a.cur.Type()) - typeRank(b.cur.Type())
}

func (w *WriteIterator) sourceKey(s *source) []byte {
	if s == w.endOfKey {
		return w.cur.Key()
	}
	return s.cur.Key()
}

func typeRank(t stmt.Type) int {
	if t == stmt.Upsert {
		return 1
	}
	return 0
}
