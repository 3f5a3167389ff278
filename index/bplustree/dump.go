package bplustree

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// Dump format, little endian:
//
//	header   magic "bptdump\x00", version u16, flags u16, key size u32,
//	         value size u32, leaf slots u32, inner slots u32, items u64,
//	         height u32
//	body     pre-order node records: tag u8 (0 leaf, 1 inner), level u16,
//	         count u32, count keys, then count values for a leaf. The
//	         children of an inner record follow it recursively.
//	trailer  xxhash64 of the uncompressed body, u64
//
// With flagSnappy the body is written in the snappy framing format.
const (
	dumpMagic   = "bptdump\x00"
	dumpVersion = 1

	flagDuplicates = 1 << 0
	flagSnappy     = 1 << 1

	tagLeaf  = 0
	tagInner = 1

	// maxDumpHeight rejects absurd heights before recursing.
	maxDumpHeight = 64
)

var (
	// ErrCorruption marks restore failures caused by a malformed, truncated
	// or tampered dump.
	ErrCorruption = errors.New("bplustree: corrupt dump")
	// ErrIncompatible marks restore failures caused by a well-formed dump
	// written by a tree with a different shape: key or value size, slot
	// counts or duplicate policy.
	ErrIncompatible = errors.New("bplustree: incompatible dump")
	// ErrUnsupportedType is returned when the key or value type has no fixed
	// binary encoding.
	ErrUnsupportedType = errors.New("bplustree: type has no fixed binary size")
)

type dumpHeader struct {
	Magic      [8]byte
	Version    uint16
	Flags      uint16
	KeySize    uint32
	ValueSize  uint32
	LeafSlots  uint32
	InnerSlots uint32
	Items      uint64
	Height     uint32
}

// DumpOptions controls the dump encoding.
type DumpOptions struct {
	// Compress writes the body in snappy framing format.
	Compress bool
}

// Dump writes the whole tree to w in the uncompressed binary format.
func (t *Tree[K, V]) Dump(w io.Writer) error {
	return t.DumpWith(w, DumpOptions{})
}

// DumpWith writes the whole tree to w. K and V must have a fixed
// encoding/binary size.
func (t *Tree[K, V]) DumpWith(w io.Writer, opts DumpOptions) error {
	keySize, valueSize, err := fixedSizes[K, V]()
	if err != nil {
		return err
	}

	h := dumpHeader{
		Version:    dumpVersion,
		KeySize:    uint32(keySize),
		ValueSize:  uint32(valueSize),
		LeafSlots:  uint32(t.opts.LeafSlots),
		InnerSlots: uint32(t.opts.InnerSlots),
		Items:      uint64(t.size),
		Height:     uint32(t.height),
	}
	copy(h.Magic[:], dumpMagic)
	if t.opts.Duplicates == AllowDuplicates {
		h.Flags |= flagDuplicates
	}
	if opts.Compress {
		h.Flags |= flagSnappy
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "bplustree: writing dump header")
	}

	digest := xxhash.New()
	var sw *snappy.Writer
	var body io.Writer = bw
	if opts.Compress {
		sw = snappy.NewBufferedWriter(bw)
		body = sw
	}
	body = io.MultiWriter(body, digest)

	if t.root != nil {
		if err := t.dumpNode(body, t.root); err != nil {
			return errors.Wrap(err, "bplustree: writing dump body")
		}
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			return errors.Wrap(err, "bplustree: flushing compressed body")
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, digest.Sum64()); err != nil {
		return errors.Wrap(err, "bplustree: writing dump trailer")
	}
	return bw.Flush()
}

func (t *Tree[K, V]) dumpNode(w io.Writer, n node[K, V]) error {
	var rec [7]byte
	switch x := n.(type) {
	case *leafNode[K, V]:
		rec[0] = tagLeaf
		binary.LittleEndian.PutUint32(rec[3:], uint32(x.count))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, x.keys[:x.count]); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, x.values[:x.count])

	case *innerNode[K, V]:
		rec[0] = tagInner
		binary.LittleEndian.PutUint16(rec[1:], uint16(x.lvl))
		binary.LittleEndian.PutUint32(rec[3:], uint32(x.count))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, x.keys[:x.count]); err != nil {
			return err
		}
		for i := 0; i <= x.count; i++ {
			if err := t.dumpNode(w, x.children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	panic("unreachable")
}

// Restore replaces the contents of the tree with the dump read from r. The
// dump must have been written by a tree with the same key and value sizes,
// slot counts and duplicate policy, otherwise the error is marked
// ErrIncompatible. A malformed dump yields an error marked ErrCorruption. On
// any error the tree is left unchanged.
func (t *Tree[K, V]) Restore(r io.Reader) error {
	keySize, valueSize, err := fixedSizes[K, V]()
	if err != nil {
		return err
	}

	br := bufio.NewReader(r)
	var h dumpHeader
	if err := readHeader(br, &h); err != nil {
		return err
	}
	dups := h.Flags&flagDuplicates != 0
	switch {
	case h.KeySize != uint32(keySize) || h.ValueSize != uint32(valueSize):
		return incompatiblef("key/value size %d/%d, tree uses %d/%d", h.KeySize, h.ValueSize, keySize, valueSize)
	case h.LeafSlots != uint32(t.opts.LeafSlots) || h.InnerSlots != uint32(t.opts.InnerSlots):
		return incompatiblef("slots %d/%d, tree uses %d/%d",
			h.LeafSlots, h.InnerSlots, t.opts.LeafSlots, t.opts.InnerSlots)
	case dups != (t.opts.Duplicates == AllowDuplicates):
		return incompatiblef("duplicates %t, tree policy %s", dups, t.opts.Duplicates)
	}
	digest := xxhash.New()
	var body io.Reader = br
	if h.Flags&flagSnappy != 0 {
		body = snappy.NewReader(br)
	}
	body = io.TeeReader(body, digest)

	c := &Tree[K, V]{cmp: t.cmp, opts: t.opts, height: int(h.Height)}
	if h.Height > 0 {
		root, err := c.restoreNode(body, int(h.Height)-1)
		if err != nil {
			return err
		}
		c.root = root
	}
	if uint64(c.size) != h.Items {
		return corruptf("header claims %d items, body holds %d", h.Items, c.size)
	}

	var sum uint64
	if err := binary.Read(br, binary.LittleEndian, &sum); err != nil {
		return readErr(err, "trailer")
	}
	if sum != digest.Sum64() {
		return corruptf("checksum mismatch: %016x, computed %016x", sum, digest.Sum64())
	}
	if err := c.CheckInvariants(); err != nil {
		return errors.Mark(errors.Wrap(err, "bplustree: restored tree"), ErrCorruption)
	}

	*t = *c
	if t.opts.SelfVerify {
		t.Verify()
	}
	return nil
}

// readHeader reads the fixed header and checks the fields that do not
// depend on the restoring tree.
func readHeader(r io.Reader, h *dumpHeader) error {
	if err := binary.Read(r, binary.LittleEndian, h); err != nil {
		return readErr(err, "header")
	}
	if string(h.Magic[:]) != dumpMagic {
		return corruptf("bad magic %q", h.Magic[:])
	}
	if h.Version != dumpVersion {
		return errors.Mark(errors.Newf("bplustree: dump version %d, want %d", h.Version, dumpVersion), ErrIncompatible)
	}
	if h.Flags&^(flagDuplicates|flagSnappy) != 0 {
		return corruptf("unknown flags %#x", h.Flags)
	}
	if h.Height > maxDumpHeight || (h.Height == 0) != (h.Items == 0) {
		return corruptf("height %d with %d items", h.Height, h.Items)
	}
	return nil
}

// DumpInfo describes a dump as recorded in its header.
type DumpInfo struct {
	KeySize    int
	ValueSize  int
	LeafSlots  int
	InnerSlots int
	Duplicates bool
	Compressed bool
	Items      uint64
	Height     int
}

// ReadDumpInfo reads the header of a dump without restoring the body. Only
// the header is validated.
func ReadDumpInfo(r io.Reader) (DumpInfo, error) {
	var h dumpHeader
	if err := readHeader(r, &h); err != nil {
		return DumpInfo{}, err
	}
	return DumpInfo{
		KeySize:    int(h.KeySize),
		ValueSize:  int(h.ValueSize),
		LeafSlots:  int(h.LeafSlots),
		InnerSlots: int(h.InnerSlots),
		Duplicates: h.Flags&flagDuplicates != 0,
		Compressed: h.Flags&flagSnappy != 0,
		Items:      h.Items,
		Height:     int(h.Height),
	}, nil
}

// Options returns tree options under which the dump restores.
func (d DumpInfo) Options() *Options {
	o := &Options{LeafSlots: d.LeafSlots, InnerSlots: d.InnerSlots}
	if d.Duplicates {
		o.Duplicates = AllowDuplicates
	}
	return o
}

// restoreNode reads the record of a node at level and, for inner nodes, its
// children. Leaves are appended to t's chain in read order.
func (t *Tree[K, V]) restoreNode(r io.Reader, level int) (node[K, V], error) {
	var rec [7]byte
	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return nil, readErr(err, "node record")
	}
	tag := rec[0]
	lvl := int(binary.LittleEndian.Uint16(rec[1:]))
	count := binary.LittleEndian.Uint32(rec[3:])
	if lvl != level {
		return nil, corruptf("node at level %d, expected level %d", lvl, level)
	}

	switch tag {
	case tagLeaf:
		if level != 0 {
			return nil, corruptf("leaf record at level %d", level)
		}
		if count == 0 || count > uint32(t.opts.LeafSlots) {
			return nil, corruptf("leaf with %d slots", count)
		}
		leaf := newLeaf[K, V](t.opts.LeafSlots)
		leaf.count = int(count)
		if err := binary.Read(r, binary.LittleEndian, leaf.keys[:leaf.count]); err != nil {
			return nil, readErr(err, "leaf keys")
		}
		if err := binary.Read(r, binary.LittleEndian, leaf.values[:leaf.count]); err != nil {
			return nil, readErr(err, "leaf values")
		}
		t.appendLeaf(leaf)
		t.leaves++
		t.size += leaf.count
		return leaf, nil

	case tagInner:
		if level == 0 {
			return nil, corruptf("inner record at level 0")
		}
		if count == 0 || count > uint32(t.opts.InnerSlots) {
			return nil, corruptf("inner node with %d keys", count)
		}
		in := newInner[K, V](t.opts.InnerSlots, level)
		in.count = int(count)
		if err := binary.Read(r, binary.LittleEndian, in.keys[:in.count]); err != nil {
			return nil, readErr(err, "separator keys")
		}
		t.inners++
		for i := 0; i <= in.count; i++ {
			child, err := t.restoreNode(r, level-1)
			if err != nil {
				return nil, err
			}
			in.children[i] = child
		}
		return in, nil
	}
	return nil, corruptf("unknown node tag %d", tag)
}

// fixedSizes returns the encoding/binary sizes of K and V.
func fixedSizes[K, V any]() (keySize, valueSize int, _ error) {
	var k K
	var v V
	keySize, valueSize = binary.Size(k), binary.Size(v)
	if keySize < 0 {
		return 0, 0, errors.Wrapf(ErrUnsupportedType, "key type %T", k)
	}
	if valueSize < 0 {
		return 0, 0, errors.Wrapf(ErrUnsupportedType, "value type %T", v)
	}
	return keySize, valueSize, nil
}

func readErr(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, snappy.ErrCorrupt) || errors.Is(err, snappy.ErrUnsupported) {
		return errors.Mark(errors.Wrapf(err, "bplustree: reading dump %s", what), ErrCorruption)
	}
	return errors.Wrapf(err, "bplustree: reading dump %s", what)
}

func corruptf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("bplustree: "+format, args...), ErrCorruption)
}

func incompatiblef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("bplustree: "+format, args...), ErrIncompatible)
}
