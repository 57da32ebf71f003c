// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package run implements immutable sorted on-disk files of statements,
// the output of dumps and compactions.
//
// A run consists of snappy-compressed data blocks of length-prefixed
// statement records, a compressed index block locating them, and a
// fixed-size footer:
//
//	[block 0] ... [block n-1] [index block] [footer]
//
// The footer carries the index offset and length, the statement count
// and a magic number.
package run

import (
	"github.com/inconshreveable/log15"

	"github.com/vechain/vinyl/metrics"
)

var log = log15.New("pkg", "run")

const (
	// magic tails every run file.
	magic = uint32(0x764c4e31)
	// footerSize is indexOff(8) + indexLen(4) + count(8) + magic(4).
	footerSize = 24
	// defaultBlockSize is the uncompressed data block target.
	defaultBlockSize = 4096
)

// indexEntry locates one data block.
type indexEntry struct {
	FirstKey []byte
	Offset   uint64
	Length   uint32
	Count    uint32
}

var (
	metricBlocks = metrics.LazyLoadCounterVec("run_block_count", []string{"op"})
	metricBytes  = metrics.LazyLoadCounterVec("run_byte_count", []string{"op", "kind"})
)
