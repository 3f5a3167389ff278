package bplustree

import (
	"cmp"
	"os"

	"github.com/btree-query-bench/bplus/index"
	"github.com/cockroachdb/errors"
)

var _ index.Index = (*BPlusTree)(nil)
var _ index.Persistent = (*BPlusTree)(nil)

// BPlusTree adapts a Tree[int64, uint64] to index.Index. Inserting an
// existing key replaces its value.
type BPlusTree struct {
	tree *Tree[int64, uint64]
	// Compress selects snappy compression for SaveTo.
	Compress bool
}

// NewBPlusTree returns an empty index. The duplicate policy in opts is
// ignored.
func NewBPlusTree(opts *Options) (*BPlusTree, error) {
	t, err := New[int64, uint64](cmp.Compare[int64], withPolicy(opts, OverwriteDuplicates))
	if err != nil {
		return nil, err
	}
	return &BPlusTree{tree: t}, nil
}

// Tree returns the underlying tree.
func (bt *BPlusTree) Tree() *Tree[int64, uint64] { return bt.tree }

// --- GET (Point Query) ---

func (bt *BPlusTree) Get(key int64) (uint64, error) {
	v, ok := bt.tree.Get(key)
	if !ok {
		return 0, index.ErrNotFound
	}
	return v, nil
}

// --- INSERT / DELETE ---

func (bt *BPlusTree) Insert(key int64, value uint64) error {
	bt.tree.Insert(key, value)
	return nil
}

func (bt *BPlusTree) Delete(key int64) error {
	bt.tree.EraseOne(key)
	return nil
}

// --- RANGE (The Iterator) ---

func (bt *BPlusTree) Range(start, end int64) (index.Iterator, error) {
	if start > end {
		return &BPlusIterator{}, nil
	}
	return &BPlusIterator{
		next:  bt.tree.LowerBound(start),
		end:   end,
		first: true,
	}, nil
}

// BPlusIterator walks the leaf chain from the lower bound of a range until
// the first key past its end.
type BPlusIterator struct {
	next  Iterator[int64, uint64]
	end   int64
	first bool
	key   int64
	val   uint64
}

func (it *BPlusIterator) Next() bool {
	if !it.first {
		it.next.Next()
	}
	it.first = false
	if !it.next.Valid() || it.next.Key() > it.end {
		return false
	}
	it.key, it.val = it.next.Key(), it.next.Value()
	return true
}

func (it *BPlusIterator) Key() int64    { return it.key }
func (it *BPlusIterator) Value() uint64 { return it.val }
func (it *BPlusIterator) Error() error  { return nil }
func (it *BPlusIterator) Close() error  { return nil }

// --- PERSISTENCE ---

func (bt *BPlusTree) SaveTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "bplustree: save")
	}
	if err := bt.tree.DumpWith(f, DumpOptions{Compress: bt.Compress}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (bt *BPlusTree) LoadFrom(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "bplustree: load")
	}
	defer f.Close()
	return bt.tree.Restore(f)
}

func (bt *BPlusTree) Close() error { return nil }
