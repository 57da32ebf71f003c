// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vinyl implements the write iterator at the heart of the
// dump/compaction pipeline: a k-way merge over memory levels and runs
// that squashes deferred updates per key, prunes statements shadowed
// below the read horizon, and elides redundant tombstones and
// secondary-index writes.
package vinyl

import (
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"

	"github.com/vechain/vinyl/mem"
	"github.com/vechain/vinyl/run"
	"github.com/vechain/vinyl/stmt"
)

var log = log15.New("pkg", "vinyl")

// Stream lazily produces ordered statements over one source.
// Next returns (nil, nil) once the source is exhausted. Close is
// idempotent. Memory-backed streams return refable statements,
// run-backed ones return borrowed statements invalidated by the next
// advance.
type Stream interface {
	Next() (*stmt.Statement, error)
	Close()
}

// UpsertApplier folds a deferred update onto a base statement of the
// same key. base == nil means no older data remains below. The result
// is always a fresh refable statement carrying one reference owned by
// the caller.
type UpsertApplier interface {
	Apply(upsert, base *stmt.Statement, kd *stmt.KeyDef, primary bool) (*stmt.Statement, error)
}

// Options configures a write iterator.
type Options struct {
	KeyDef *stmt.KeyDef
	// Applier folds upserts; nil selects the statement-ops applier.
	Applier UpsertApplier
	// IsPrimary marks the target as a primary index. Secondary indexes
	// elide updates that didn't touch indexed columns.
	IsPrimary bool
	// IndexColMask is the set of columns the target index depends on.
	IndexColMask uint64
	// IsLastLevel marks the output as the oldest level of storage,
	// enabling tombstone elision and no-base upsert folding.
	IsLastLevel bool
	// OldestVLSN is the read horizon: statements with a larger LSN may
	// still be read by an active transaction and pass through verbatim.
	OldestVLSN int64
}

// strictOrderCheck enables the set-current monotonicity assertion.
// Toggled by tests.
var strictOrderCheck = false

// WriteIterator merges several ordered statement streams into a single
// ordered stream suitable for writing a new run.
//
// It is single-owner and performs no internal synchronization: one
// logical worker drives it from construction to Close. Register all
// sources before the first Next.
type WriteIterator struct {
	kd           *stmt.KeyDef
	applier      UpsertApplier
	isPrimary    bool
	indexColMask uint64
	isLastLevel  bool
	oldestVLSN   int64

	heap     mergeHeap
	sources  []*source
	endOfKey *source
	cur      *stmt.Statement
	err      error
	closed   bool
}

// NewWriteIterator creates a write iterator with no sources yet.
func NewWriteIterator(opts Options) *WriteIterator {
	kd := opts.KeyDef
	if kd == nil {
		kd = stmt.NewKeyDef(0)
	}
	applier := opts.Applier
	if applier == nil {
		applier = OpsApplier{}
	}
	w := &WriteIterator{
		kd:           kd,
		applier:      applier,
		isPrimary:    opts.IsPrimary,
		indexColMask: opts.IndexColMask,
		isLastLevel:  opts.IsLastLevel,
		oldestVLSN:   opts.OldestVLSN,
		endOfKey:     &source{heapIdx: -1},
	}
	w.heap.w = w
	return w
}

// AddMemory registers a memory level as a source.
func (w *WriteIterator) AddMemory(level *mem.Level) error {
	return w.addSource(level.NewStream())
}

// AddRun registers an on-disk run as a source.
func (w *WriteIterator) AddRun(r *run.Reader) error {
	return w.addSource(r.NewStream())
}

// addSource opens a stream, pulls its first statement and, unless the
// stream is immediately empty, pushes it into the heap. On failure the
// stream is closed and the error propagates; the iterator stays usable
// without that source.
func (w *WriteIterator) addSource(s Stream) error {
	src := &source{stream: s, heapIdx: -1}
	if err := src.advance(); err != nil {
		src.close()
		return errors.WithMessage(err, "add source")
	}
	if src.cur == nil {
		src.close()
		return nil
	}
	w.heap.push(src)
	w.sources = append(w.sources, src)
	log.Debug("source added", "lsn", src.cur.LSN())
	return nil
}

// Next yields the next statement to write, or (nil, nil) at the end of
// the merge. The returned statement is valid until the next call to
// Next or Close; Ref (or Clone) it to retain longer. After an error,
// only Close is valid.
func (w *WriteIterator) Next() (*stmt.Statement, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.closed {
		return nil, nil
	}
	for {
		top := w.heap.top()
		if top == nil {
			return nil, nil
		}
		w.setCurrent(top.cur)
		if err := w.step(); err != nil {
			w.err = err
			return nil, err
		}
		// Above the horizon the statement may still be read by an
		// active transaction; keep it verbatim.
		if w.cur.LSN() > w.oldestVLSN {
			metricYield().AddWithLabel(1, map[string]string{"type": w.cur.Type().String()})
			return w.cur, nil
		}
		// At or below the horizon: the newest version visible to any
		// old reader.
		if !w.isPrimary && w.cur.Type().Terminal() &&
			w.cur.ColMask() != 0 && stmt.CanSkipIndex(w.indexColMask, w.cur.ColMask()) {
			// The update didn't touch the indexed columns; this write
			// is redundant in the secondary index.
			metricElided().AddWithLabel(1, map[string]string{"reason": "index_skip"})
			continue
		}
		if err := w.squashCurrentKey(); err != nil {
			w.err = err
			return nil, err
		}
		if w.cur.Type() == stmt.Delete && w.isLastLevel {
			// No older data remains below to shadow.
			metricElided().AddWithLabel(1, map[string]string{"reason": "last_level_delete"})
			continue
		}
		metricYield().AddWithLabel(1, map[string]string{"type": w.cur.Type().String()})
		return w.cur, nil
	}
}

// step advances the heap top's stream: re-sift on a new statement,
// remove and destroy the source on exhaustion. On a stream error the
// source stays registered and is destroyed at Close.
func (w *WriteIterator) step() error {
	top := w.heap.top()
	if err := top.advance(); err != nil {
		return errors.WithMessage(err, "advance source")
	}
	if top.cur == nil {
		w.heap.remove(top)
		top.close()
		log.Debug("source exhausted", "remaining", len(w.heap.items))
	} else {
		w.heap.fix(top)
	}
	return nil
}

// squashCurrentKey folds all remaining statements of the current key
// into the current statement where possible, and leaves the heap
// positioned past the key. The end-of-key sentinel marks the point
// where everything left in the heap is strictly greater than the key;
// it is removed again on every exit path.
func (w *WriteIterator) squashCurrentKey() error {
	w.heap.push(w.endOfKey)
	err := w.squashKeyLoop()
	w.heap.remove(w.endOfKey)
	return err
}

func (w *WriteIterator) squashKeyLoop() error {
	for {
		top := w.heap.top()
		if w.cur.Type() == stmt.Upsert && (top != w.endOfKey || w.isLastLevel) {
			// A real node above the sentinel shares the current key,
			// so it's the base to fold onto. At the last level the
			// sentinel itself means folding from nothing.
			var base *stmt.Statement
			if top != w.endOfKey {
				base = top.cur
			}
			applied, err := w.applier.Apply(w.cur, base, w.kd, w.isPrimary)
			if err != nil {
				return errors.WithMessage(err, "apply upsert")
			}
			metricUpsert().Add(1)
			w.setCurrent(applied)
			applied.Unref()
		}
		if top == w.endOfKey {
			return nil
		}
		if err := w.step(); err != nil {
			return err
		}
	}
}

// setCurrent is the single chokepoint updating the iterator's current
// statement: it releases the prior one and retains the new one (borrowed
// statements are materialized, so the current statement is always
// refable).
func (w *WriteIterator) setCurrent(next *stmt.Statement) {
	if next != nil {
		if next.Refable() {
			next.Ref()
		} else {
			next = next.Clone()
		}
		if strictOrderCheck && w.cur != nil {
			if w.kd.Compare(w.cur.Key(), next.Key()) >= 0 && w.cur.LSN() < next.LSN() {
				panic("vinyl: write iterator went backwards")
			}
		}
	}
	if w.cur != nil {
		w.cur.Unref()
	}
	w.cur = next
}

// Close releases the current statement and destroys all remaining
// sources. It never fails and is safe to call after any error, or more
// than once.
func (w *WriteIterator) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.setCurrent(nil)
	for _, src := range w.sources {
		src.close()
	}
	w.heap.items = nil
}
