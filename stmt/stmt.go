// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stmt defines the statement primitive shared by memory levels,
// runs and the write iterator.
package stmt

import (
	"sync/atomic"
)

// Type is the kind of a statement.
type Type uint8

const (
	// Replace stores a full tuple, shadowing any older statement of the key.
	Replace Type = iota
	// Delete is a tombstone for the key.
	Delete
	// Upsert is a deferred update, folded against older state on read or
	// during dump/compaction.
	Upsert
)

func (t Type) String() string {
	switch t {
	case Replace:
		return "REPLACE"
	case Delete:
		return "DELETE"
	case Upsert:
		return "UPSERT"
	}
	return "UNKNOWN"
}

// Terminal tells whether the type needs no further folding.
func (t Type) Terminal() bool {
	return t != Upsert
}

// Statement is an immutable versioned record. Statements come in two
// ownership flavors:
//
//   - refable: heap allocated and reference counted. Holding one past the
//     producing stream's next advance requires Ref, and every Ref must be
//     paired with exactly one Unref.
//   - non-refable (borrowed): backed by a decode buffer which the next
//     advance of the producing stream invalidates. Use Clone to retain.
type Statement struct {
	key     []byte
	tuple   Tuple
	ops     []Op
	lsn     int64
	typ     Type
	colMask uint64

	refable bool
	refs    int32
}

// New creates a refable statement. The returned statement carries one
// reference owned by the caller. The key is extracted from the tuple
// under kd.
func New(typ Type, kd *KeyDef, tuple Tuple, ops []Op, lsn int64, colMask uint64) *Statement {
	return &Statement{
		key:     kd.ExtractKey(tuple),
		tuple:   tuple,
		ops:     ops,
		lsn:     lsn,
		typ:     typ,
		colMask: colMask,
		refable: true,
		refs:    1,
	}
}

// NewReplace creates a refable REPLACE statement.
func NewReplace(kd *KeyDef, tuple Tuple, lsn int64, colMask uint64) *Statement {
	return New(Replace, kd, tuple, nil, lsn, colMask)
}

// NewDelete creates a refable DELETE statement. The tuple needs to carry
// the key fields only.
func NewDelete(kd *KeyDef, tuple Tuple, lsn int64, colMask uint64) *Statement {
	return New(Delete, kd, tuple, nil, lsn, colMask)
}

// NewUpsert creates a refable UPSERT statement from the proposed tuple
// and the list of update operations.
func NewUpsert(kd *KeyDef, tuple Tuple, ops []Op, lsn int64) *Statement {
	return New(Upsert, kd, tuple, ops, lsn, 0)
}

// NewBorrowed creates a non-refable statement aliasing caller owned
// buffers. Producers that decode statements into reusable buffers (run
// streams) use it; consumers must Clone before retaining.
func NewBorrowed(typ Type, key []byte, tuple Tuple, ops []Op, lsn int64, colMask uint64) *Statement {
	return &Statement{
		key:     key,
		tuple:   tuple,
		ops:     ops,
		lsn:     lsn,
		typ:     typ,
		colMask: colMask,
	}
}

// Key returns the encoded key view.
func (s *Statement) Key() []byte { return s.key }

// LSN returns the statement version.
func (s *Statement) LSN() int64 { return s.lsn }

// Type returns the statement type.
func (s *Statement) Type() Type { return s.typ }

// ColMask returns the column mask. It's nonzero only on REPLACE/DELETE
// produced by an update operation.
func (s *Statement) ColMask() uint64 { return s.colMask }

// Tuple returns the payload tuple. Nil for DELETE produced without one.
func (s *Statement) Tuple() Tuple { return s.tuple }

// Ops returns the update operations. Set only on UPSERT.
func (s *Statement) Ops() []Op { return s.ops }

// Refable tells whether the statement is reference counted.
func (s *Statement) Refable() bool { return s.refable }

// Refs returns the current reference count. 0 for non-refable statements.
func (s *Statement) Refs() int32 { return atomic.LoadInt32(&s.refs) }

// Ref acquires a reference. Panics on non-refable statements.
func (s *Statement) Ref() {
	if !s.refable {
		panic("stmt: ref on borrowed statement")
	}
	if atomic.AddInt32(&s.refs, 1) <= 1 {
		panic("stmt: ref on released statement")
	}
}

// Unref releases a reference. Panics when the count drops below zero.
func (s *Statement) Unref() {
	if !s.refable {
		panic("stmt: unref on borrowed statement")
	}
	if atomic.AddInt32(&s.refs, -1) < 0 {
		panic("stmt: unref underflow")
	}
}

// Clone materializes a refable deep copy carrying one reference owned by
// the caller.
func (s *Statement) Clone() *Statement {
	cpy := &Statement{
		key:     append([]byte(nil), s.key...),
		tuple:   s.tuple.Copy(),
		lsn:     s.lsn,
		typ:     s.typ,
		colMask: s.colMask,
		refable: true,
		refs:    1,
	}
	if len(s.ops) > 0 {
		cpy.ops = make([]Op, len(s.ops))
		for i, op := range s.ops {
			cpy.ops[i] = Op{Kind: op.Kind, Field: op.Field, Arg: append([]byte(nil), op.Arg...)}
		}
	}
	return cpy
}

// CanSkipIndex reports whether a statement with the given column mask is
// redundant for a secondary index depending on indexMask, i.e. none of
// the indexed columns were touched by the update.
func CanSkipIndex(indexMask, stmtMask uint64) bool {
	return indexMask&stmtMask == 0
}

// ColumnMask builds a column mask from field numbers. Fields beyond 63
// share the highest bit, keeping the mask conservative.
func ColumnMask(fields ...int) uint64 {
	var m uint64
	for _, f := range fields {
		if f > 63 {
			f = 63
		}
		m |= 1 << uint(f)
	}
	return m
}
