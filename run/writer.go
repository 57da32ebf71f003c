// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package run

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/vechain/vinyl/stmt"
)

// WriterOptions tunes run writing.
type WriterOptions struct {
	// BlockSize is the uncompressed data block target in bytes.
	BlockSize int
}

// Writer builds a run file. Statements must be appended in merge order:
// key ascending, then LSN descending, then terminal before UPSERT.
type Writer struct {
	f         *os.File
	path      string
	blockSize int

	buf        []byte
	blockFirst []byte
	blockCount uint32
	index      []indexEntry
	off        uint64
	count      uint64

	lastKey  []byte
	lastLSN  int64
	lastType stmt.Type

	finished bool
}

// Create creates a run file at path.
func Create(path string, opts *WriterOptions) (*Writer, error) {
	blockSize := defaultBlockSize
	if opts != nil && opts.BlockSize > 0 {
		blockSize = opts.BlockSize
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create run")
	}
	return &Writer{f: f, path: path, blockSize: blockSize}, nil
}

// Append adds a statement to the run. Out-of-order statements are
// rejected.
func (w *Writer) Append(s *stmt.Statement) error {
	if w.finished {
		return errors.New("append to finished run")
	}
	// the key encoding is memcomparable, so raw byte compare serves any
	// index
	if w.lastKey != nil {
		if c := bytes.Compare(w.lastKey, s.Key()); c > 0 {
			return errors.New("append out of order: key went backwards")
		} else if c == 0 {
			if w.lastLSN < s.LSN() {
				return errors.New("append out of order: lsn went forward")
			}
			if w.lastLSN == s.LSN() && w.lastType == stmt.Upsert && s.Type().Terminal() {
				return errors.New("append out of order: terminal after upsert")
			}
		}
	}
	rec, err := stmt.Encode(s)
	if err != nil {
		return err
	}
	if len(w.buf) == 0 {
		w.blockFirst = append(w.blockFirst[:0], s.Key()...)
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(rec)))
	w.buf = append(w.buf, lenBuf[:n]...)
	w.buf = append(w.buf, rec...)
	w.blockCount++
	w.count++
	w.lastKey = append(w.lastKey[:0], s.Key()...)
	w.lastLSN = s.LSN()
	w.lastType = s.Type()

	if len(w.buf) >= w.blockSize {
		return w.flushBlock()
	}
	return nil
}

func (w *Writer) flushBlock() error {
	if len(w.buf) == 0 {
		return nil
	}
	comp := snappy.Encode(nil, w.buf)
	if _, err := w.f.Write(comp); err != nil {
		return errors.Wrap(err, "write block")
	}
	w.index = append(w.index, indexEntry{
		FirstKey: append([]byte(nil), w.blockFirst...),
		Offset:   w.off,
		Length:   uint32(len(comp)),
		Count:    w.blockCount,
	})
	metricBlocks().AddWithLabel(1, map[string]string{"op": "write"})
	metricBytes().AddWithLabel(int64(len(w.buf)), map[string]string{"op": "write", "kind": "raw"})
	metricBytes().AddWithLabel(int64(len(comp)), map[string]string{"op": "write", "kind": "compressed"})
	w.off += uint64(len(comp))
	w.buf = w.buf[:0]
	w.blockCount = 0
	return nil
}

// Finish flushes pending data, writes the index and footer, syncs and
// closes the file.
func (w *Writer) Finish() error {
	if w.finished {
		return errors.New("run already finished")
	}
	w.finished = true
	if err := w.flushBlock(); err != nil {
		w.f.Close()
		return err
	}
	indexRaw, err := rlp.EncodeToBytes(w.index)
	if err != nil {
		w.f.Close()
		return errors.Wrap(err, "encode index")
	}
	indexComp := snappy.Encode(nil, indexRaw)
	if _, err := w.f.Write(indexComp); err != nil {
		w.f.Close()
		return errors.Wrap(err, "write index")
	}
	var footer [footerSize]byte
	binary.BigEndian.PutUint64(footer[0:], w.off)
	binary.BigEndian.PutUint32(footer[8:], uint32(len(indexComp)))
	binary.BigEndian.PutUint64(footer[12:], w.count)
	binary.BigEndian.PutUint32(footer[20:], magic)
	if _, err := w.f.Write(footer[:]); err != nil {
		w.f.Close()
		return errors.Wrap(err, "write footer")
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return errors.Wrap(err, "sync run")
	}
	if err := w.f.Close(); err != nil {
		return errors.Wrap(err, "close run")
	}
	log.Debug("run written", "path", w.path, "statements", w.count, "blocks", len(w.index))
	return nil
}

// Abort discards the partially written run.
func (w *Writer) Abort() {
	if w.finished {
		return
	}
	w.finished = true
	w.f.Close()
	os.Remove(w.path)
}
