// Package index defines the interface shared by every backend the benchmark
// driver can load: the in-memory B+ tree, the sorted-slice baseline and the
// pebble LSM. Keys are int64, values are uint64 (typically file offsets).
package index

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("index: key not found")

type Index interface {
	// Insert stores value under key, replacing any previous value.
	Insert(key int64, value uint64) error
	Get(key int64) (uint64, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key int64) error
	// Range iterates over all keys in [start, end].
	Range(start, end int64) (Iterator, error)
	Close() error
}

// Persistent is implemented by backends that can snapshot their whole
// contents to a single file and load them back.
type Persistent interface {
	SaveTo(path string) error
	LoadFrom(path string) error
}
