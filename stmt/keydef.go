// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stmt

import (
	"bytes"
)

// KeyDef describes which tuple fields form the key of an index, in
// comparison order.
//
// Keys are kept in a memcomparable encoding (0x00 bytes escaped, parts
// terminated), so comparing encoded keys byte-wise yields the same total
// order as comparing the parts field by field.
type KeyDef struct {
	parts []int
}

// NewKeyDef creates a key definition over the given field numbers.
func NewKeyDef(parts ...int) *KeyDef {
	if len(parts) == 0 {
		parts = []int{0}
	}
	return &KeyDef{parts: append([]int(nil), parts...)}
}

// Parts returns the key field numbers.
func (kd *KeyDef) Parts() []int { return kd.parts }

// ExtractKey encodes the key of a tuple. Missing fields encode as empty
// parts, ranking before any present value.
func (kd *KeyDef) ExtractKey(t Tuple) []byte {
	var buf []byte
	for _, p := range kd.parts {
		var f []byte
		if p >= 0 && p < len(t) {
			f = t[p]
		}
		buf = appendKeyPart(buf, f)
	}
	return buf
}

// Compare compares two encoded keys.
func (kd *KeyDef) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// CompareStmt compares two statements by key.
func (kd *KeyDef) CompareStmt(a, b *Statement) int {
	return kd.Compare(a.Key(), b.Key())
}

// appendKeyPart escapes 0x00 as 0x00 0xff and terminates the part with
// 0x00 0x00, so a part that is a strict prefix of another ranks first.
func appendKeyPart(buf, part []byte) []byte {
	for _, b := range part {
		if b == 0x00 {
			buf = append(buf, 0x00, 0xff)
		} else {
			buf = append(buf, b)
		}
	}
	return append(buf, 0x00, 0x00)
}
