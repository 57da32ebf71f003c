// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vinyl

import (
	"github.com/pkg/errors"

	"github.com/vechain/vinyl/run"
)

// Dump drains the iterator into the run writer and finishes the run.
// It returns the number of statements written. The iterator is not
// closed; the caller owns it.
func Dump(it *WriteIterator, w *run.Writer) (int, error) {
	n := 0
	for {
		s, err := it.Next()
		if err != nil {
			return n, errors.WithMessage(err, "dump")
		}
		if s == nil {
			break
		}
		if err := w.Append(s); err != nil {
			return n, errors.WithMessage(err, "dump")
		}
		n++
	}
	if err := w.Finish(); err != nil {
		return n, errors.WithMessage(err, "dump")
	}
	return n, nil
}
