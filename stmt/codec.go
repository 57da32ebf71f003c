// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stmt

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// wire-level statement record
type record struct {
	Key     []byte
	LSN     uint64
	Type    uint8
	ColMask uint64
	Tuple   [][]byte
	Ops     []Op
}

// Encode serializes a statement, key included.
func Encode(s *Statement) ([]byte, error) {
	data, err := rlp.EncodeToBytes(&record{
		Key:     s.key,
		LSN:     uint64(s.lsn),
		Type:    uint8(s.typ),
		ColMask: s.colMask,
		Tuple:   s.tuple,
		Ops:     s.ops,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode statement")
	}
	return data, nil
}

// Decode deserializes a statement into a fresh refable allocation
// carrying one reference owned by the caller.
func Decode(data []byte) (*Statement, error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	return &Statement{
		key:     rec.Key,
		tuple:   rec.Tuple,
		ops:     rec.Ops,
		lsn:     int64(rec.LSN),
		typ:     Type(rec.Type),
		colMask: rec.ColMask,
		refable: true,
		refs:    1,
	}, nil
}

// DecodeBorrowed deserializes a statement as non-refable. The caller
// owns the backing buffers and may recycle them on its next decode.
func DecodeBorrowed(data []byte) (*Statement, error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	return NewBorrowed(Type(rec.Type), rec.Key, rec.Tuple, rec.Ops, int64(rec.LSN), rec.ColMask), nil
}

func decodeRecord(data []byte) (*record, error) {
	var rec record
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode statement")
	}
	if Type(rec.Type) > Upsert {
		return nil, errors.Errorf("decode statement: unknown type %d", rec.Type)
	}
	return &rec, nil
}
