// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package run

import (
	"encoding/binary"
	"os"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/vechain/vinyl/stmt"
)

// ReaderOptions tunes run reading.
type ReaderOptions struct {
	// Cache is an optional block cache shared between readers.
	Cache *Cache
}

// nextReaderID distinguishes readers within a shared cache.
var nextReaderID uint64

// Reader reads a finished run file. Safe to open multiple streams over
// one reader sequentially; the reader owns the file handle.
type Reader struct {
	f     *os.File
	path  string
	index []indexEntry
	count uint64
	cache *Cache
	id    uint64
}

// Open opens a run file and loads its index.
func Open(path string, opts *ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open run")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat run")
	}
	if st.Size() < footerSize {
		f.Close()
		return nil, errors.New("open run: file too short")
	}
	var footer [footerSize]byte
	if _, err := f.ReadAt(footer[:], st.Size()-footerSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "read footer")
	}
	if binary.BigEndian.Uint32(footer[20:]) != magic {
		f.Close()
		return nil, errors.New("open run: bad magic")
	}
	indexOff := binary.BigEndian.Uint64(footer[0:])
	indexLen := binary.BigEndian.Uint32(footer[8:])
	count := binary.BigEndian.Uint64(footer[12:])
	if int64(indexOff)+int64(indexLen) > st.Size()-footerSize {
		f.Close()
		return nil, errors.New("open run: index out of bounds")
	}
	indexComp := make([]byte, indexLen)
	if _, err := f.ReadAt(indexComp, int64(indexOff)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "read index")
	}
	indexRaw, err := snappy.Decode(nil, indexComp)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "decompress index")
	}
	var index []indexEntry
	if err := rlp.DecodeBytes(indexRaw, &index); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "decode index")
	}
	r := &Reader{
		f:     f,
		path:  path,
		index: index,
		count: count,
		id:    atomic.AddUint64(&nextReaderID, 1),
	}
	if opts != nil {
		r.cache = opts.Cache
	}
	return r, nil
}

// Path returns the run file path.
func (r *Reader) Path() string { return r.path }

// Len returns the number of statements in the run.
func (r *Reader) Len() uint64 { return r.count }

// Blocks returns the number of data blocks.
func (r *Reader) Blocks() int { return len(r.index) }

// Close closes the underlying file. Streams opened from the reader must
// not be advanced afterwards.
func (r *Reader) Close() error {
	return r.f.Close()
}

// block loads and decompresses data block i, consulting the cache.
func (r *Reader) block(i int) ([]byte, error) {
	ent := &r.index[i]
	if r.cache != nil {
		if data, ok := r.cache.get(r.id, ent.Offset); ok {
			return data, nil
		}
	}
	comp := make([]byte, ent.Length)
	if _, err := r.f.ReadAt(comp, int64(ent.Offset)); err != nil {
		return nil, errors.Wrap(err, "read block")
	}
	data, err := snappy.Decode(nil, comp)
	if err != nil {
		return nil, errors.Wrap(err, "decompress block")
	}
	metricBlocks().AddWithLabel(1, map[string]string{"op": "read"})
	metricBytes().AddWithLabel(int64(len(data)), map[string]string{"op": "read", "kind": "raw"})
	metricBytes().AddWithLabel(int64(len(comp)), map[string]string{"op": "read", "kind": "compressed"})
	if r.cache != nil {
		r.cache.set(r.id, ent.Offset, data)
	}
	return data, nil
}

// NewStream opens a stream over the whole run. Produced statements are
// borrowed: the next advance invalidates them.
func (r *Reader) NewStream() *Stream {
	return &Stream{r: r}
}

// Stream is a pull-only cursor over a run.
type Stream struct {
	r         *Reader
	blockIdx  int
	data      []byte
	pos       int
	remaining uint32
	closed    bool
}

// Next advances and returns the next statement, or (nil, nil) once the
// run is exhausted.
func (s *Stream) Next() (*stmt.Statement, error) {
	if s.closed {
		return nil, nil
	}
	for s.remaining == 0 {
		if s.blockIdx >= len(s.r.index) {
			return nil, nil
		}
		data, err := s.r.block(s.blockIdx)
		if err != nil {
			return nil, errors.WithMessage(err, "run stream")
		}
		s.data = data
		s.pos = 0
		s.remaining = s.r.index[s.blockIdx].Count
		s.blockIdx++
	}
	recLen, n := binary.Uvarint(s.data[s.pos:])
	if n <= 0 || s.pos+n+int(recLen) > len(s.data) {
		return nil, errors.New("run stream: corrupted block")
	}
	rec := s.data[s.pos+n : s.pos+n+int(recLen)]
	s.pos += n + int(recLen)
	s.remaining--
	st, err := stmt.DecodeBorrowed(rec)
	if err != nil {
		return nil, errors.WithMessage(err, "run stream")
	}
	return st, nil
}

// Close detaches the stream from the reader. Idempotent; the reader
// stays open.
func (s *Stream) Close() {
	s.closed = true
	s.data = nil
}
