// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stmt

import (
	"github.com/pkg/errors"
)

// Update operation kinds carried by an UPSERT.
const (
	OpAdd    = '+' // add Arg (numeric) to the field
	OpSub    = '-' // subtract Arg (numeric) from the field
	OpAssign = '=' // set the field to Arg
)

// Op is a single update operation on a tuple field.
type Op struct {
	Kind  uint8
	Field uint64
	Arg   []byte
}

// AddOp builds a numeric add operation.
func AddOp(field int, delta uint64) Op {
	return Op{Kind: OpAdd, Field: uint64(field), Arg: Uint64Field(delta)}
}

// SubOp builds a numeric subtract operation.
func SubOp(field int, delta uint64) Op {
	return Op{Kind: OpSub, Field: uint64(field), Arg: Uint64Field(delta)}
}

// AssignOp builds an assignment operation.
func AssignOp(field int, value []byte) Op {
	return Op{Kind: OpAssign, Field: uint64(field), Arg: value}
}

// ApplyOps applies operations to a copy of the base tuple, in order.
// Arithmetic requires an 8-byte numeric field and argument; assignment
// accepts any field, and may extend the tuple by exactly one field.
// A malformed operation fails the whole application.
func ApplyOps(base Tuple, ops []Op) (Tuple, error) {
	out := base.Copy()
	for i, op := range ops {
		f := int(op.Field)
		switch op.Kind {
		case OpAssign:
			if f < 0 || f > len(out) {
				return nil, errors.Errorf("op %d: assign field %d out of range", i, f)
			}
			if f == len(out) {
				out = append(out, nil)
			}
			out[f] = append([]byte(nil), op.Arg...)
		case OpAdd, OpSub:
			if f < 0 || f >= len(out) {
				return nil, errors.Errorf("op %d: field %d out of range", i, f)
			}
			cur, ok := out.Uint64(f)
			if !ok {
				return nil, errors.Errorf("op %d: field %d is not numeric", i, f)
			}
			if len(op.Arg) != 8 {
				return nil, errors.Errorf("op %d: argument is not numeric", i)
			}
			arg, _ := Tuple{op.Arg}.Uint64(0)
			if op.Kind == OpAdd {
				cur += arg
			} else {
				cur -= arg
			}
			out[f] = Uint64Field(cur)
		default:
			return nil, errors.Errorf("op %d: unknown kind %q", i, op.Kind)
		}
	}
	return out, nil
}
