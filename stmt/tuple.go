// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stmt

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Tuple is an ordered list of fields. Numeric fields are stored as
// 8-byte big-endian, which keeps their raw byte order consistent with
// their numeric order.
type Tuple [][]byte

// NewTuple builds a tuple from uint64 field values.
func NewTuple(fields ...uint64) Tuple {
	t := make(Tuple, len(fields))
	for i, f := range fields {
		t[i] = Uint64Field(f)
	}
	return t
}

// Uint64Field encodes a numeric field.
func Uint64Field(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// Uint64 decodes field i as numeric. ok is false when the field is
// missing or not 8 bytes wide.
func (t Tuple) Uint64(i int) (v uint64, ok bool) {
	if i < 0 || i >= len(t) || len(t[i]) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(t[i]), true
}

// Copy deep-copies the tuple.
func (t Tuple) Copy() Tuple {
	if t == nil {
		return nil
	}
	cpy := make(Tuple, len(t))
	for i, f := range t {
		cpy[i] = append([]byte(nil), f...)
	}
	return cpy
}

// Encode serializes the tuple.
func (t Tuple) Encode() ([]byte, error) {
	data, err := rlp.EncodeToBytes([][]byte(t))
	if err != nil {
		return nil, errors.Wrap(err, "encode tuple")
	}
	return data, nil
}

// DecodeTuple deserializes a tuple.
func DecodeTuple(data []byte) (Tuple, error) {
	var fields [][]byte
	if err := rlp.DecodeBytes(data, &fields); err != nil {
		return nil, errors.Wrap(err, "decode tuple")
	}
	return Tuple(fields), nil
}
