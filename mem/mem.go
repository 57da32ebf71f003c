// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mem implements the in-memory level: an ordered container of
// statements awaiting dump.
package mem

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/memdb"

	"github.com/vechain/vinyl/stmt"
)

// Level is an ordered in-memory container of statements. Entries are
// kept in a memdb keyed so that raw byte order equals merge order:
// key ascending, then LSN descending, then terminal before UPSERT.
//
// It's not safe for concurrent use.
type Level struct {
	kd *stmt.KeyDef
	db *memdb.DB
}

// NewLevel creates an empty level. capacity is the initial buffer size
// hint in bytes.
func NewLevel(kd *stmt.KeyDef, capacity int) *Level {
	return &Level{
		kd: kd,
		db: memdb.New(comparer.DefaultComparer, capacity),
	}
}

// Put inserts a statement. The level keeps its own encoded copy.
func (l *Level) Put(s *stmt.Statement) error {
	val, err := stmt.Encode(s)
	if err != nil {
		return err
	}
	if err := l.db.Put(entryKey(s), val); err != nil {
		return errors.Wrap(err, "memdb put")
	}
	return nil
}

// Len returns the number of statements in the level.
func (l *Level) Len() int { return l.db.Len() }

// Size returns the approximate memory footprint in bytes.
func (l *Level) Size() int { return l.db.Size() }

// NewStream opens a stream over the level. Produced statements are
// refable.
func (l *Level) NewStream() *Stream {
	return &Stream{iter: l.db.NewIterator(nil)}
}

// entryKey encodes the memdb entry key of a statement: the statement
// key, the bitwise complement of the LSN, and a type rank byte.
func entryKey(s *stmt.Statement) []byte {
	key := s.Key()
	buf := make([]byte, len(key)+9)
	n := copy(buf, key)
	binary.BigEndian.PutUint64(buf[n:], ^uint64(s.LSN()))
	if s.Type() == stmt.Upsert {
		buf[n+8] = 1
	}
	return buf
}

// Stream is a pull-only cursor over a level.
type Stream struct {
	iter   iterator.Iterator
	closed bool
}

// Next advances and returns the next statement, or (nil, nil) when the
// level is exhausted. Each returned statement is a fresh refable
// allocation carrying one reference owned by the caller.
func (s *Stream) Next() (*stmt.Statement, error) {
	if s.closed || !s.iter.Next() {
		return nil, nil
	}
	st, err := stmt.Decode(s.iter.Value())
	if err != nil {
		return nil, errors.WithMessage(err, "memory stream")
	}
	return st, nil
}

// Close releases the stream. Idempotent.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.iter.Release()
}
