// Package listindex is the baseline backend: a single sorted slice searched
// with binary search. Inserts and deletes shift the tail of the slice.
package listindex

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"os"
	"slices"

	"github.com/btree-query-bench/bplus/index"
	"github.com/cockroachdb/errors"
)

var _ index.Index = (*ListIndex)(nil)
var _ index.Persistent = (*ListIndex)(nil)

type Data struct {
	Key int64
	Val uint64
}

type ListIndex struct {
	Data []Data
}

func NewListIndex() *ListIndex {
	return &ListIndex{
		Data: make([]Data, 0),
	}
}

func (l *ListIndex) search(key int64) (int, bool) {
	return slices.BinarySearchFunc(l.Data, key, func(d Data, k int64) int {
		return cmp.Compare(d.Key, k)
	})
}

func (l *ListIndex) Insert(key int64, value uint64) error {
	i, found := l.search(key)
	if found {
		l.Data[i].Val = value
		return nil
	}
	l.Data = slices.Insert(l.Data, i, Data{Key: key, Val: value})
	return nil
}

func (l *ListIndex) Get(key int64) (uint64, error) {
	i, found := l.search(key)
	if !found {
		return 0, index.ErrNotFound
	}
	return l.Data[i].Val, nil
}

func (l *ListIndex) Delete(key int64) error {
	if i, found := l.search(key); found {
		l.Data = slices.Delete(l.Data, i, i+1)
	}
	return nil
}

func (l *ListIndex) Range(start, end int64) (index.Iterator, error) {
	lo, _ := l.search(start)
	return &ListIterator{
		data: l.Data,
		cur:  lo - 1,
		end:  end,
	}, nil
}

// SaveTo writes the entries as little-endian (key, value) pairs.
func (l *ListIndex) SaveTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "listindex: save")
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(l.Data))); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, l.Data); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *ListIndex) LoadFrom(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "listindex: load")
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Wrap(err, "listindex: load header")
	}
	if fi, err := f.Stat(); err == nil && n > uint64(fi.Size())/16 {
		return errors.Newf("listindex: %d entries do not fit in %d bytes", n, fi.Size())
	}
	data := make([]Data, n)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return errors.Wrap(err, "listindex: load entries")
	}
	if !slices.IsSortedFunc(data, func(a, b Data) int { return cmp.Compare(a.Key, b.Key) }) {
		return errors.New("listindex: entries out of order")
	}
	l.Data = data
	return nil
}

func (l *ListIndex) Close() error { return nil }

type ListIterator struct {
	data []Data
	cur  int
	end  int64
}

func (it *ListIterator) Next() bool {
	it.cur++
	return it.cur < len(it.data) && it.data[it.cur].Key <= it.end
}

func (it *ListIterator) Key() int64    { return it.data[it.cur].Key }
func (it *ListIterator) Value() uint64 { return it.data[it.cur].Val }
func (it *ListIterator) Error() error  { return nil }
func (it *ListIterator) Close() error  { return nil }
