// Package lsm wraps Pebble (CockroachDB's LSM storage engine) behind the
// common Index interface so it can be benchmarked alongside the in-memory
// B+ tree and the sorted-slice baseline.
package lsm

import (
	"encoding/binary"
	"math"

	"github.com/btree-query-bench/bplus/index"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

var _ index.Index = (*LSM)(nil)

type LSM struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at the given directory path.
func Open(dir string) (*LSM, error) {
	opts := &pebble.Options{
		// Use a 16 MB memtable
		MemTableSize: 16 << 20,
		// Allow a few queued memtables so one can be flushed while the others
		// take writes.
		MemTableStopWritesThreshold: 4,
		// L0 compaction trigger.
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: open")
	}
	return &LSM{db: db}, nil
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (l *LSM) Close() error {
	return l.db.Close()
}

// Insert inserts or updates the value for key.
func (l *LSM) Insert(key int64, value uint64) error {
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], value)
	if err := l.db.Set(encodeKey(key), v[:], pebble.NoSync); err != nil {
		return errors.Wrap(err, "lsm: insert")
	}
	return nil
}

// Get retrieves the value for key, or index.ErrNotFound.
func (l *LSM) Get(key int64) (uint64, error) {
	val, closer, err := l.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, index.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "lsm: get")
	}
	// val is only valid until closer.Close().
	defer closer.Close()
	return decodeValue(val)
}

// Delete removes the key from the store. Deleting an absent key is not an
// error.
func (l *LSM) Delete(key int64) error {
	if err := l.db.Delete(encodeKey(key), pebble.NoSync); err != nil {
		return errors.Wrap(err, "lsm: delete")
	}
	return nil
}

// Range returns an iterator over all keys in [start, end] inclusive.
func (l *LSM) Range(start, end int64) (index.Iterator, error) {
	if start > end {
		return &rangeIterator{}, nil
	}
	iterOpts := &pebble.IterOptions{
		LowerBound: encodeKey(start),
		UpperBound: encodeKeyExclusive(end),
	}
	iter, err := l.db.NewIter(iterOpts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: range")
	}
	iter.First()
	return &rangeIterator{iter: iter, first: true}, nil
}

// ─── Key encoding ─────────────────────────────────────────────────────────────

// encodeKey encodes an int64 as a big-endian 8-byte slice with the sign bit
// flipped, so that byte order matches numeric order for negative keys too.
func encodeKey(k int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k)^(1<<63))
	return b
}

func decodeKey(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// encodeKeyExclusive returns the exclusive upper bound for use with Pebble's
// UpperBound option (which is exclusive, unlike our interface which is
// inclusive). nil leaves the range open for the largest key.
func encodeKeyExclusive(k int64) []byte {
	if k == math.MaxInt64 {
		return nil
	}
	return encodeKey(k + 1)
}

func decodeValue(v []byte) (uint64, error) {
	if len(v) != 8 {
		return 0, errors.Newf("lsm: unexpected value length %d", len(v))
	}
	return binary.LittleEndian.Uint64(v), nil
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator struct {
	iter  *pebble.Iterator
	first bool
	key   int64
	val   uint64
	err   error
}

func (it *rangeIterator) Next() bool {
	if it.iter == nil || it.err != nil {
		return false
	}
	var valid bool
	if it.first {
		// iter.First() was already called in Range(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		it.err = it.iter.Error()
		return false
	}
	k := it.iter.Key()
	if len(k) != 8 {
		it.err = errors.Newf("lsm: unexpected key length %d", len(k))
		return false
	}
	it.key = decodeKey(k)
	it.val, it.err = decodeValue(it.iter.Value())
	return it.err == nil
}

func (it *rangeIterator) Key() int64    { return it.key }
func (it *rangeIterator) Value() uint64 { return it.val }
func (it *rangeIterator) Error() error  { return it.err }

func (it *rangeIterator) Close() error {
	if it.iter == nil {
		return nil
	}
	return it.iter.Close()
}
