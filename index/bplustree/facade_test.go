package bplustree

import (
	"bytes"
	"cmp"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/btree-query-bench/bplus/index"
	"github.com/btree-query-bench/bplus/index/listindex"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s, err := NewSet(strings.Compare, &Options{LeafSlots: 3, InnerSlots: 3, Duplicates: AllowDuplicates})
	require.NoError(t, err)
	for _, w := range strings.Fields("pear apple fig apple kiwi pear") {
		s.Insert(w)
	}
	require.Equal(t, 4, s.Len())
	require.True(t, s.Has("fig"))
	require.False(t, s.Insert("fig"))
	require.True(t, s.Delete("fig"))
	require.False(t, s.Delete("fig"))
	require.Equal(t, []string{"apple", "kiwi", "pear"}, slices.Collect(s.All()))
	require.Equal(t, RejectDuplicates, s.Tree().Options().Duplicates)
}

func TestMultiset(t *testing.T) {
	s, err := NewMultiset(cmp.Compare[int], nil)
	require.NoError(t, err)
	for _, k := range []int{3, 1, 3, 2, 3} {
		s.Insert(k)
	}
	require.Equal(t, 5, s.Len())
	require.Equal(t, 3, s.Count(3))
	require.True(t, s.DeleteOne(3))
	require.Equal(t, 2, s.Delete(3))
	require.Equal(t, []int{1, 2}, slices.Collect(s.All()))
	require.NotNil(t, s.Tree())
}

func TestMap(t *testing.T) {
	m, err := NewMap[string, int](strings.Compare, nil)
	require.NoError(t, err)
	require.True(t, m.Put("a", 1))
	require.True(t, m.Put("b", 2))
	require.False(t, m.Put("a", 10))
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
	require.True(t, m.Delete("b"))
	_, ok = m.Get("b")
	require.False(t, ok)
	require.Equal(t, map[string]int{"a": 10}, maps.Collect(m.All()))
	require.Equal(t, 1, m.Tree().Len())
}

func TestMultimap(t *testing.T) {
	m, err := NewMultimap[string, int](strings.Compare, &Options{LeafSlots: 3, InnerSlots: 3})
	require.NoError(t, err)
	for i, k := range strings.Fields("x y x z x y x") {
		m.Insert(k, i)
	}
	require.Equal(t, []int{0, 2, 4, 6}, m.Values("x"))
	require.Equal(t, []int{1, 5}, m.Values("y"))
	require.Nil(t, m.Values("w"))
	require.Equal(t, 4, m.Count("x"))
	require.True(t, m.DeleteOne("x"))
	require.Equal(t, []int{2, 4, 6}, m.Values("x"))
	require.Equal(t, 3, m.Delete("x"))
	require.Equal(t, 3, m.Len())
	require.Equal(t, map[string]int{"y": 5, "z": 3}, maps.Collect(m.All()))
	require.NotNil(t, m.Tree())
}

func TestWriteDOT(t *testing.T) {
	tr, err := NewOrdered[int, int](&Options{LeafSlots: 4, InnerSlots: 4})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDOT(&buf))
	require.Equal(t, "digraph BPlusTree {", strings.SplitN(buf.String(), "\n", 2)[0])

	for i := 1; i <= 13; i++ {
		tr.Insert(i, i)
	}
	buf.Reset()
	require.NoError(t, tr.WriteDOT(&buf))
	out := buf.String()
	require.True(t, strings.HasSuffix(out, "}\n"))
	// 8 parent/child edges plus 5 leaf chain edges.
	require.Equal(t, 13, strings.Count(out, " -> "))
	require.Equal(t, 5, strings.Count(out, "style=dashed"))
	require.Equal(t, 6, strings.Count(out, "<B>LEAF</B>"))
	require.Contains(t, out, "<B>INNER L2</B>")
}

func TestIndexAgainstListIndex(t *testing.T) {
	bt, err := NewBPlusTree(&Options{LeafSlots: 4, InnerSlots: 4, SelfVerify: true})
	require.NoError(t, err)
	ref := listindex.NewListIndex()

	apply := func(idx index.Index, op int, k int64) {
		switch op % 3 {
		case 0, 1:
			require.NoError(t, idx.Insert(k, uint64(op)))
		case 2:
			require.NoError(t, idx.Delete(k))
		}
	}
	scan := func(idx index.Index, start, end int64) [][2]int64 {
		it, err := idx.Range(start, end)
		require.NoError(t, err)
		defer it.Close()
		var out [][2]int64
		for it.Next() {
			out = append(out, [2]int64{it.Key(), int64(it.Value())})
		}
		require.NoError(t, it.Error())
		return out
	}

	for op := 0; op < 3000; op++ {
		k := int64((op*7919)%401) - 200
		apply(bt, op, k)
		apply(ref, op, k)
	}
	for k := int64(-201); k <= 201; k++ {
		want, wantErr := ref.Get(k)
		got, gotErr := bt.Get(k)
		require.Equal(t, wantErr, gotErr)
		require.Equal(t, want, got)
	}
	require.Equal(t, scan(ref, -1000, 1000), scan(bt, -1000, 1000))
	require.Equal(t, scan(ref, -50, 50), scan(bt, -50, 50))
	require.Equal(t, scan(ref, 7, 7), scan(bt, 7, 7))
	require.Empty(t, scan(bt, 10, -10))

	_, err = bt.Get(100000)
	require.ErrorIs(t, err, index.ErrNotFound)

	path := filepath.Join(t.TempDir(), "tree.dump")
	bt.Compress = true
	require.NoError(t, bt.SaveTo(path))
	loaded, err := NewBPlusTree(&Options{LeafSlots: 4, InnerSlots: 4})
	require.NoError(t, err)
	require.NoError(t, loaded.LoadFrom(path))
	require.True(t, Equal(bt.Tree(), loaded.Tree()))
	require.NoError(t, loaded.Close())

	require.Error(t, loaded.LoadFrom(filepath.Join(t.TempDir(), "missing")))
}
