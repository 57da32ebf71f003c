// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"github.com/inconshreveable/log15"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: int(log15.LvlInfo),
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "emit logs in JSON format",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "serve prometheus metrics at this address",
	}
	keyPartsFlag = cli.StringFlag{
		Name:  "key-parts",
		Value: "0",
		Usage: "comma separated tuple field numbers forming the key",
	}
	oldestVLSNFlag = cli.Int64Flag{
		Name:  "oldest-vlsn",
		Value: -1,
		Usage: "read horizon; statements above it are preserved verbatim (-1 preserves every statement)",
	}
	lastLevelFlag = cli.BoolFlag{
		Name:  "last-level",
		Usage: "the output is the oldest level: elide tombstones, fold upserts from nothing",
	}
	secondaryMaskFlag = cli.Uint64Flag{
		Name:  "secondary-mask",
		Usage: "treat the target as a secondary index depending on these columns (bitmap)",
	}
	blockSizeFlag = cli.IntFlag{
		Name:  "block-size",
		Value: 4096,
		Usage: "uncompressed run block size in bytes",
	}
	cacheMBFlag = cli.IntFlag{
		Name:  "cache-mb",
		Value: 32,
		Usage: "run block cache size in MB",
	}
	lsnStartFlag = cli.Int64Flag{
		Name:  "lsn-start",
		Value: 1,
		Usage: "LSN assigned to the first statement read",
	}
)
