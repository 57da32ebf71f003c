// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/inconshreveable/log15"
	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/vinyl/co"
	"github.com/vechain/vinyl/mem"
	"github.com/vechain/vinyl/metrics"
	"github.com/vechain/vinyl/run"
	"github.com/vechain/vinyl/stmt"
	"github.com/vechain/vinyl/vinyl"
)

var (
	version   string
	gitCommit string
	gitTag    string
	log       = log15.New()

	metricsServer co.Goes
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Vinyl",
		Usage:     "dump and compaction toolbox for vinyl runs",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			verbosityFlag,
			jsonLogsFlag,
			metricsAddrFlag,
		},
		Commands: []cli.Command{
			{
				Name:      "dump",
				Usage:     "read 'key value' lines from stdin into a memory level and dump it as a run",
				ArgsUsage: "OUT-RUN",
				Flags: []cli.Flag{
					keyPartsFlag,
					lsnStartFlag,
					blockSizeFlag,
				},
				Action: dumpAction,
			},
			{
				Name:      "compact",
				Usage:     "merge runs into one",
				ArgsUsage: "OUT-RUN IN-RUN...",
				Flags: []cli.Flag{
					keyPartsFlag,
					oldestVLSNFlag,
					lastLevelFlag,
					secondaryMaskFlag,
					blockSizeFlag,
					cacheMBFlag,
				},
				Action: compactAction,
			},
			{
				Name:      "inspect",
				Usage:     "print run summaries",
				ArgsUsage: "RUN...",
				Action:    inspectAction,
			},
			{
				Name:      "verify",
				Usage:     "check the statement order of runs, in parallel",
				ArgsUsage: "RUN...",
				Action:    verifyAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) {
	initLogger(ctx)
	if addr := ctx.GlobalString(metricsAddrFlag.Name); addr != "" {
		metrics.InitializePrometheusMetrics()
		metricsServer.Go(func() {
			srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler()}
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Warn("metrics server stopped", "err", err)
			}
		})
	}
}

func initLogger(ctx *cli.Context) {
	format := log15.LogfmtFormat()
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		format = log15.JsonFormat()
	} else if isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb" {
		format = log15.TerminalFormat()
	}
	lvl := log15.Lvl(ctx.GlobalInt(verbosityFlag.Name))
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, format)))
}

func keyDef(ctx *cli.Context) (*stmt.KeyDef, error) {
	var parts []int
	for _, p := range strings.Split(ctx.String(keyPartsFlag.Name), ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrap(err, "parse key-parts")
		}
		parts = append(parts, n)
	}
	return stmt.NewKeyDef(parts...), nil
}

func dumpAction(ctx *cli.Context) error {
	setup(ctx)
	if ctx.NArg() != 1 {
		return errors.New("dump: exactly one output run expected")
	}
	kd, err := keyDef(ctx)
	if err != nil {
		return err
	}
	level := mem.NewLevel(kd, 1024*1024)
	lsn := ctx.Int64(lsnStartFlag.Name)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var fields []uint64
		for _, f := range strings.Fields(line) {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parse statement %q", line)
			}
			fields = append(fields, v)
		}
		s := stmt.NewReplace(kd, stmt.NewTuple(fields...), lsn, 0)
		err := level.Put(s)
		s.Unref()
		if err != nil {
			return err
		}
		lsn++
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read stdin")
	}

	it := vinyl.NewWriteIterator(vinyl.Options{
		KeyDef:     kd,
		IsPrimary:  true,
		OldestVLSN: math.MaxInt64,
	})
	defer it.Close()
	if err := it.AddMemory(level); err != nil {
		return err
	}
	w, err := run.Create(ctx.Args().First(), &run.WriterOptions{BlockSize: ctx.Int(blockSizeFlag.Name)})
	if err != nil {
		return err
	}
	n, err := vinyl.Dump(it, w)
	if err != nil {
		w.Abort()
		return err
	}
	log.Info("memory level dumped", "path", ctx.Args().First(), "statements", n)
	return nil
}

func compactAction(ctx *cli.Context) error {
	setup(ctx)
	if ctx.NArg() < 2 {
		return errors.New("compact: output and at least one input run expected")
	}
	kd, err := keyDef(ctx)
	if err != nil {
		return err
	}
	args := ctx.Args()
	out, ins := args[0], args[1:]

	cache := run.NewCache(ctx.Int(cacheMBFlag.Name) * 1024 * 1024)
	pool := run.NewPool(len(ins)+1, &run.ReaderOptions{Cache: cache})
	defer pool.Close()

	secondaryMask := ctx.Uint64(secondaryMaskFlag.Name)
	oldestVLSN := ctx.Int64(oldestVLSNFlag.Name)
	it := vinyl.NewWriteIterator(vinyl.Options{
		KeyDef:       kd,
		IsPrimary:    secondaryMask == 0,
		IndexColMask: secondaryMask,
		IsLastLevel:  ctx.Bool(lastLevelFlag.Name),
		OldestVLSN:   oldestVLSN,
	})
	defer it.Close()

	total := uint64(0)
	for _, in := range ins {
		r, err := pool.Get(in)
		if err != nil {
			return err
		}
		if err := it.AddRun(r); err != nil {
			return err
		}
		total += r.Len()
	}
	w, err := run.Create(out, &run.WriterOptions{BlockSize: ctx.Int(blockSizeFlag.Name)})
	if err != nil {
		return err
	}
	n, err := vinyl.Dump(it, w)
	if err != nil {
		w.Abort()
		return err
	}
	log.Info("runs compacted",
		"out", out, "in", len(ins),
		"statements", n, "merged", total,
		"horizon", oldestVLSN, "lastLevel", ctx.Bool(lastLevelFlag.Name))
	return nil
}

func inspectAction(ctx *cli.Context) error {
	setup(ctx)
	if ctx.NArg() == 0 {
		return errors.New("inspect: at least one run expected")
	}
	for _, path := range ctx.Args() {
		r, err := run.Open(path, nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d statements in %d blocks\n", path, r.Len(), r.Blocks())
		r.Close()
	}
	return nil
}

func verifyAction(ctx *cli.Context) error {
	setup(ctx)
	if ctx.NArg() == 0 {
		return errors.New("verify: at least one run expected")
	}
	var bad int32
	<-co.Parallel(func(queue chan<- func()) {
		for _, path := range ctx.Args() {
			queue <- func() {
				if err := verifyRun(path); err != nil {
					log.Error("run broken", "path", path, "err", err)
					atomic.AddInt32(&bad, 1)
				} else {
					log.Info("run ok", "path", path)
				}
			}
		}
	})
	if bad > 0 {
		return errors.Errorf("verify: %d broken runs", bad)
	}
	return nil
}

func verifyRun(path string) error {
	r, err := run.Open(path, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	s := r.NewStream()
	defer s.Close()

	var (
		lastKey []byte
		lastLSN int64
		n       uint64
	)
	for {
		st, err := s.Next()
		if err != nil {
			return err
		}
		if st == nil {
			break
		}
		if lastKey != nil {
			switch c := bytes.Compare(lastKey, st.Key()); {
			case c > 0:
				return errors.Errorf("key order broken at statement %d", n)
			case c == 0:
				if lastLSN < st.LSN() {
					return errors.Errorf("lsn order broken at statement %d", n)
				}
			}
		}
		lastKey = append(lastKey[:0], st.Key()...)
		lastLSN = st.LSN()
		n++
	}
	if n != r.Len() {
		return errors.Errorf("statement count mismatch: footer %d, read %d", r.Len(), n)
	}
	return nil
}
