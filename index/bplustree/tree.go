package bplustree

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Tree is an in-memory B+ tree mapping keys of type K to values of type V.
// All slots live in leaves; inner nodes only route. A Tree is not safe for
// concurrent use.
type Tree[K, V any] struct {
	cmp  func(a, b K) int
	opts Options

	root node[K, V]
	// head and tail are the first and last leaf of the chain.
	head *leafNode[K, V]
	tail *leafNode[K, V]

	size   int
	height int
	leaves int
	inners int
}

// New returns an empty tree ordered by cmp, which must return a negative
// number when a < b, zero when a == b and a positive number when a > b. A nil
// opts selects the defaults.
func New[K, V any](cmp func(a, b K) int, opts *Options) (*Tree[K, V], error) {
	if cmp == nil {
		return nil, errors.Wrap(ErrInvalidOptions, "nil comparator")
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	ensureDefaults[K, V](&o)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &Tree[K, V]{cmp: cmp, opts: o}, nil
}

// NewOrdered returns an empty tree over a naturally ordered key type.
func NewOrdered[K cmp.Ordered, V any](opts *Options) (*Tree[K, V], error) {
	return New[K, V](cmp.Compare[K], opts)
}

// Options returns a copy of the options the tree was created with, with all
// defaults filled in.
func (t *Tree[K, V]) Options() Options {
	return t.opts
}

// Len returns the number of key/value slots.
func (t *Tree[K, V]) Len() int { return t.size }

// Empty reports whether the tree holds no slots.
func (t *Tree[K, V]) Empty() bool { return t.size == 0 }

// Height returns the number of levels, 0 for an empty tree and 1 when the root
// is a leaf.
func (t *Tree[K, V]) Height() int { return t.height }

// Clear drops every node and resets the tree to the canonical empty tree.
func (t *Tree[K, V]) Clear() {
	t.reset()
	if t.opts.SelfVerify {
		t.Verify()
	}
}

func (t *Tree[K, V]) reset() {
	t.root = nil
	t.head, t.tail = nil, nil
	t.size, t.height = 0, 0
	t.leaves, t.inners = 0, 0
}

func (t *Tree[K, V]) minLeaf() int  { return (t.opts.LeafSlots + 1) / 2 }
func (t *Tree[K, V]) minInner() int { return t.opts.InnerSlots / 2 }

func (t *Tree[K, V]) debugf(format string, args ...interface{}) {
	if t.opts.Debug {
		t.opts.Logger.Infof("bplustree: "+format, args...)
	}
}

// Stats describes the shape of a tree.
type Stats struct {
	Items      int
	Leaves     int
	InnerNodes int
	Height     int
	LeafSlots  int
	InnerSlots int
}

// Nodes returns the total number of nodes.
func (s Stats) Nodes() int { return s.Leaves + s.InnerNodes }

// AvgFill returns the average fraction of used leaf slots.
func (s Stats) AvgFill() float64 {
	if s.Leaves == 0 {
		return 0
	}
	return float64(s.Items) / float64(s.Leaves*s.LeafSlots)
}

func (s Stats) String() string {
	return fmt.Sprintf("items=%d leaves=%d inner=%d height=%d slots=%d/%d fill=%.2f",
		s.Items, s.Leaves, s.InnerNodes, s.Height, s.LeafSlots, s.InnerSlots, s.AvgFill())
}

// Stats returns the current shape of the tree.
func (t *Tree[K, V]) Stats() Stats {
	return Stats{
		Items:      t.size,
		Leaves:     t.leaves,
		InnerNodes: t.inners,
		Height:     t.height,
		LeafSlots:  t.opts.LeafSlots,
		InnerSlots: t.opts.InnerSlots,
	}
}

// Clone returns a deep copy of the tree. Keys and values are copied by
// assignment.
func (t *Tree[K, V]) Clone() *Tree[K, V] {
	c := &Tree[K, V]{
		cmp:    t.cmp,
		opts:   t.opts,
		size:   t.size,
		height: t.height,
		leaves: t.leaves,
		inners: t.inners,
	}
	if t.root != nil {
		c.root = c.cloneNode(t.root)
	}
	return c
}

// cloneNode copies n and its subtree, appending copied leaves to t's chain
// in key order.
func (t *Tree[K, V]) cloneNode(n node[K, V]) node[K, V] {
	switch x := n.(type) {
	case *leafNode[K, V]:
		leaf := newLeaf[K, V](t.opts.LeafSlots)
		leaf.count = copy(leaf.keys, x.keys[:x.count])
		copy(leaf.values, x.values[:x.count])
		t.appendLeaf(leaf)
		return leaf
	case *innerNode[K, V]:
		in := newInner[K, V](t.opts.InnerSlots, x.lvl)
		in.count = copy(in.keys, x.keys[:x.count])
		for i := 0; i <= x.count; i++ {
			in.children[i] = t.cloneNode(x.children[i])
		}
		return in
	}
	panic("unreachable")
}

// appendLeaf links leaf at the end of the chain.
func (t *Tree[K, V]) appendLeaf(leaf *leafNode[K, V]) {
	leaf.prev = t.tail
	if t.tail != nil {
		t.tail.next = leaf
	} else {
		t.head = leaf
	}
	t.tail = leaf
}

// Equal reports whether a and b hold the same slots in the same order. Keys
// are compared with a's comparator.
func Equal[K any, V comparable](a, b *Tree[K, V]) bool {
	return EqualFunc(a, b, func(x, y V) bool { return x == y })
}

// EqualFunc is like Equal but compares values with eq.
func EqualFunc[K, V any](a, b *Tree[K, V], eq func(x, y V) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	ia, ib := a.Begin(), b.Begin()
	for ; ia.Valid(); ia.Next() {
		if a.cmp(ia.Key(), ib.Key()) != 0 || !eq(ia.Value(), ib.Value()) {
			return false
		}
		ib.Next()
	}
	return true
}

// String lists the keys of every level, root first, one line per level.
func (t *Tree[K, V]) String() string {
	if t.root == nil {
		return "(empty)"
	}
	var b strings.Builder
	level := []node[K, V]{t.root}
	for len(level) > 0 {
		var below []node[K, V]
		fmt.Fprintf(&b, "L%d:", level[0].level())
		for _, n := range level {
			switch x := n.(type) {
			case *innerNode[K, V]:
				fmt.Fprintf(&b, " (%s)", joinKeys(x.keys[:x.count]))
				below = append(below, x.children[:x.count+1]...)
			case *leafNode[K, V]:
				fmt.Fprintf(&b, " [%s]", joinKeys(x.keys[:x.count]))
			}
		}
		b.WriteByte('\n')
		level = below
	}
	return b.String()
}

func joinKeys[K any](keys []K) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprint(k)
	}
	return strings.Join(parts, " ")
}
