package bplustree

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func newDumpTree(t *testing.T, opts *Options) *Tree[int64, uint64] {
	t.Helper()
	tr, err := New[int64, uint64](cmp.Compare[int64], opts)
	require.NoError(t, err)
	return tr
}

func dumpBytes[K, V any](t *testing.T, tr *Tree[K, V], compress bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tr.DumpWith(&buf, DumpOptions{Compress: compress}))
	return buf.Bytes()
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		for _, opts := range []Options{
			{LeafSlots: 4, InnerSlots: 4},
			{LeafSlots: 3, InnerSlots: 5, Duplicates: AllowDuplicates},
			{},
		} {
			rng := rand.New(rand.NewSource(42))
			src := newDumpTree(t, &opts)
			for i := 0; i < 3000; i++ {
				src.Insert(rng.Int63n(5000)-2500, rng.Uint64())
			}
			for i := 0; i < 500; i++ {
				src.EraseOne(rng.Int63n(5000) - 2500)
			}

			data := dumpBytes(t, src, compress)
			dst := newDumpTree(t, &opts)
			dst.Insert(99999, 1)
			require.NoError(t, dst.Restore(bytes.NewReader(data)))
			require.True(t, Equal(src, dst))
			require.Equal(t, src.Stats(), dst.Stats())
			require.NoError(t, dst.CheckInvariants())

			// The restored tree is fully functional.
			dst.Insert(100000, 7)
			v, ok := dst.Get(100000)
			require.True(t, ok)
			require.Equal(t, uint64(7), v)
		}
	}
}

func TestDumpEmptyTree(t *testing.T) {
	src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
	data := dumpBytes(t, src, false)

	dst := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
	for i := int64(0); i < 10; i++ {
		dst.Insert(i, uint64(i))
	}
	require.NoError(t, dst.Restore(bytes.NewReader(data)))
	require.True(t, dst.Empty())
	require.Equal(t, 0, dst.Height())
	require.NoError(t, dst.CheckInvariants())
}

func TestDumpHeaderLayout(t *testing.T) {
	src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 5, Duplicates: AllowDuplicates})
	for i := int64(0); i < 10; i++ {
		src.Insert(i, uint64(i))
	}
	data := dumpBytes(t, src, true)

	le := binary.LittleEndian
	require.Equal(t, dumpMagic, string(data[:8]))
	require.Equal(t, uint16(dumpVersion), le.Uint16(data[8:]))
	require.Equal(t, uint16(flagDuplicates|flagSnappy), le.Uint16(data[10:]))
	require.Equal(t, uint32(8), le.Uint32(data[12:]))
	require.Equal(t, uint32(8), le.Uint32(data[16:]))
	require.Equal(t, uint32(4), le.Uint32(data[20:]))
	require.Equal(t, uint32(5), le.Uint32(data[24:]))
	require.Equal(t, uint64(10), le.Uint64(data[28:]))
	require.Equal(t, uint32(src.Height()), le.Uint32(data[36:]))
	require.Equal(t, 40, binary.Size(dumpHeader{}))
}

func TestReadDumpInfo(t *testing.T) {
	src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 5, Duplicates: AllowDuplicates})
	for i := int64(0); i < 30; i++ {
		src.Insert(i%7, uint64(i))
	}
	data := dumpBytes(t, src, true)

	info, err := ReadDumpInfo(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, DumpInfo{
		KeySize:    8,
		ValueSize:  8,
		LeafSlots:  4,
		InnerSlots: 5,
		Duplicates: true,
		Compressed: true,
		Items:      30,
		Height:     src.Height(),
	}, info)

	dst, err := New[int64, uint64](cmp.Compare[int64], info.Options())
	require.NoError(t, err)
	require.NoError(t, dst.Restore(bytes.NewReader(data)))
	require.True(t, Equal(src, dst))

	_, err = ReadDumpInfo(bytes.NewReader(data[:20]))
	require.True(t, errors.Is(err, ErrCorruption))
	_, err = ReadDumpInfo(bytes.NewReader([]byte("not a dump at all, definitely not 40b")))
	require.True(t, errors.Is(err, ErrCorruption))
}

func TestRestoreRejectsTruncation(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
		for i := int64(0); i < 40; i++ {
			src.Insert(i, uint64(i*i))
		}
		data := dumpBytes(t, src, compress)

		dst := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
		dst.Insert(-1, 1)
		for n := 0; n < len(data); n++ {
			err := dst.Restore(bytes.NewReader(data[:n]))
			require.Error(t, err, "prefix %d of %d", n, len(data))
			require.True(t, errors.Is(err, ErrCorruption), "prefix %d: %v", n, err)
		}
		require.Equal(t, 1, dst.Len())
		require.True(t, dst.Has(-1))
	}
}

func TestRestoreRejectsBitFlips(t *testing.T) {
	src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
	for i := int64(0); i < 30; i++ {
		src.Insert(i*3, uint64(i))
	}
	data := dumpBytes(t, src, false)

	dst := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
	dst.Insert(-1, 1)
	for pos := 0; pos < len(data); pos++ {
		for bit := 0; bit < 8; bit++ {
			flipped := bytes.Clone(data)
			flipped[pos] ^= 1 << bit
			err := dst.Restore(bytes.NewReader(flipped))
			require.Error(t, err, "byte %d bit %d", pos, bit)
			require.True(t, errors.Is(err, ErrCorruption) || errors.Is(err, ErrIncompatible),
				"byte %d bit %d: %v", pos, bit, err)
		}
	}
	require.Equal(t, 1, dst.Len())

	// Body and trailer damage is always corruption.
	for pos := 40; pos < len(data); pos++ {
		flipped := bytes.Clone(data)
		flipped[pos] ^= 0x10
		require.True(t, errors.Is(dst.Restore(bytes.NewReader(flipped)), ErrCorruption))
	}
}

func TestRestoreIncompatible(t *testing.T) {
	src := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4})
	for i := int64(0); i < 20; i++ {
		src.Insert(i, uint64(i))
	}
	data := dumpBytes(t, src, false)

	for _, opts := range []Options{
		{LeafSlots: 8, InnerSlots: 4},
		{LeafSlots: 4, InnerSlots: 6},
		{LeafSlots: 4, InnerSlots: 4, Duplicates: AllowDuplicates},
	} {
		dst := newDumpTree(t, &opts)
		err := dst.Restore(bytes.NewReader(data))
		require.True(t, errors.Is(err, ErrIncompatible), "%+v", opts)
		require.True(t, dst.Empty())
	}

	// OverwriteDuplicates and RejectDuplicates share the unique layout.
	dst := newDumpTree(t, &Options{LeafSlots: 4, InnerSlots: 4, Duplicates: OverwriteDuplicates})
	require.NoError(t, dst.Restore(bytes.NewReader(data)))
	require.Equal(t, 20, dst.Len())

	narrow, err := New[int64, uint32](cmp.Compare[int64], &Options{LeafSlots: 4, InnerSlots: 4})
	require.NoError(t, err)
	require.True(t, errors.Is(narrow.Restore(bytes.NewReader(data)), ErrIncompatible))

	bumped := bytes.Clone(data)
	binary.LittleEndian.PutUint16(bumped[8:], dumpVersion+1)
	require.True(t, errors.Is(src.Restore(bytes.NewReader(bumped)), ErrIncompatible))
	require.Equal(t, 20, src.Len())
}

func TestDumpUnsupportedTypes(t *testing.T) {
	strs, err := NewOrdered[string, int64](nil)
	require.NoError(t, err)
	strs.Insert("a", 1)
	var buf bytes.Buffer
	require.ErrorIs(t, strs.Dump(&buf), ErrUnsupportedType)
	require.ErrorIs(t, strs.Restore(&buf), ErrUnsupportedType)

	// int has no fixed encoding/binary size.
	ints, err := NewOrdered[int, int](nil)
	require.NoError(t, err)
	require.ErrorIs(t, ints.Dump(&buf), ErrUnsupportedType)

	type point struct{ X, Y int32 }
	pts, err := New[point, [4]byte](func(a, b point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	}, &Options{LeafSlots: 3, InnerSlots: 3})
	require.NoError(t, err)
	for i := int32(0); i < 20; i++ {
		pts.Insert(point{i % 4, i}, [4]byte{byte(i)})
	}
	data := dumpBytes(t, pts, true)
	c := pts.Clone()
	c.Clear()
	require.NoError(t, c.Restore(bytes.NewReader(data)))
	require.True(t, Equal(pts, c))
}
