// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vinyl

import (
	"github.com/pkg/errors"

	"github.com/vechain/vinyl/stmt"
)

// OpsApplier folds upserts under the statement-ops model: an UPSERT
// carries a proposed tuple and a list of field operations. Over nothing
// (or a tombstone) the proposal wins and the operations are ignored;
// over an existing tuple the operations rewrite it.
type OpsApplier struct{}

// Apply implements UpsertApplier.
func (OpsApplier) Apply(upsert, base *stmt.Statement, kd *stmt.KeyDef, _ bool) (*stmt.Statement, error) {
	if upsert.Type() != stmt.Upsert {
		return nil, errors.Errorf("apply: %v statement is not an upsert", upsert.Type())
	}
	if base == nil || base.Type() == stmt.Delete {
		return stmt.NewReplace(kd, upsert.Tuple().Copy(), upsert.LSN(), 0), nil
	}
	tuple, err := stmt.ApplyOps(base.Tuple(), upsert.Ops())
	if err != nil {
		return nil, errors.WithMessage(err, "apply")
	}
	if base.Type() == stmt.Replace {
		return stmt.NewReplace(kd, tuple, upsert.LSN(), 0), nil
	}
	// Base is an upsert too: combine into one. The proposal absorbs the
	// newer operations so it stays correct when inserted over nothing,
	// while the concatenated operation list (older first) covers the
	// case of an even older base turning up below.
	ops := make([]stmt.Op, 0, len(base.Ops())+len(upsert.Ops()))
	ops = append(ops, base.Ops()...)
	ops = append(ops, upsert.Ops()...)
	return stmt.NewUpsert(kd, tuple, ops, upsert.LSN()), nil
}
