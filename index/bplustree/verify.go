package bplustree

import "github.com/cockroachdb/errors"

// Verify checks every structural invariant of the tree and panics with a
// descriptive assertion failure on the first violation. A violation means
// the tree is corrupt; there is no recovery.
func (t *Tree[K, V]) Verify() {
	if err := t.CheckInvariants(); err != nil {
		panic(err)
	}
}

// CheckInvariants is Verify returning the violation instead of panicking.
// The error satisfies errors.IsAssertionFailure.
func (t *Tree[K, V]) CheckInvariants() error {
	if t.root == nil {
		if t.size != 0 || t.height != 0 || t.head != nil || t.tail != nil || t.leaves != 0 || t.inners != 0 {
			return errors.AssertionFailedf(
				"bplustree: empty tree with size=%d height=%d leaves=%d inner=%d head/tail set=%t",
				t.size, t.height, t.leaves, t.inners, t.head != nil || t.tail != nil)
		}
		return nil
	}
	if t.height < 1 {
		return errors.AssertionFailedf("bplustree: non-empty tree with height %d", t.height)
	}
	v := verifier[K, V]{t: t}
	if err := v.check(t.root, 0, nil, nil); err != nil {
		return err
	}
	if v.items != t.size {
		return errors.AssertionFailedf("bplustree: size %d, leaves hold %d slots", t.size, v.items)
	}
	if len(v.chain) != t.leaves || v.inners != t.inners {
		return errors.AssertionFailedf("bplustree: node counters %d/%d, found %d leaves and %d inner nodes",
			t.leaves, t.inners, len(v.chain), v.inners)
	}
	return v.checkChain()
}

// verifier walks a tree once, collecting the leaves in traversal order.
type verifier[K, V any] struct {
	t      *Tree[K, V]
	chain  []*leafNode[K, V]
	items  int
	inners int
}

// check verifies the subtree n found at depth. Every key in it must be >= lo
// and <= hi (< hi for unique trees); nil bounds are open.
func (v *verifier[K, V]) check(n node[K, V], depth int, lo, hi *K) error {
	t := v.t
	wantLevel := t.height - 1 - depth
	if n == nil {
		return errors.AssertionFailedf("bplustree: nil node at depth %d", depth)
	}
	if n.level() != wantLevel {
		return errors.AssertionFailedf("bplustree: node at depth %d has level %d, want %d",
			depth, n.level(), wantLevel)
	}
	unique := t.opts.Duplicates != AllowDuplicates

	switch x := n.(type) {
	case *leafNode[K, V]:
		if err := v.checkCount("leaf", depth, x.count, t.minLeaf(), t.opts.LeafSlots); err != nil {
			return err
		}
		if len(x.keys) != t.opts.LeafSlots+1 || len(x.values) != t.opts.LeafSlots+1 {
			return errors.AssertionFailedf("bplustree: leaf at depth %d has %d/%d slot arrays, want %d",
				depth, len(x.keys), len(x.values), t.opts.LeafSlots+1)
		}
		for i := 0; i < x.count; i++ {
			if i > 0 {
				c := t.cmp(x.keys[i-1], x.keys[i])
				if c > 0 || (unique && c == 0) {
					return errors.AssertionFailedf("bplustree: leaf at depth %d: key %v at slot %d follows %v",
						depth, x.keys[i], i, x.keys[i-1])
				}
			}
			if err := v.checkBounds(x.keys[i], lo, hi, unique); err != nil {
				return err
			}
		}
		v.chain = append(v.chain, x)
		v.items += x.count
		return nil

	case *innerNode[K, V]:
		if wantLevel == 0 {
			return errors.AssertionFailedf("bplustree: inner node at leaf depth %d", depth)
		}
		if err := v.checkCount("inner node", depth, x.count, t.minInner(), t.opts.InnerSlots); err != nil {
			return err
		}
		if len(x.keys) != t.opts.InnerSlots+1 || len(x.children) != t.opts.InnerSlots+2 {
			return errors.AssertionFailedf("bplustree: inner node at depth %d has %d/%d slot arrays",
				depth, len(x.keys), len(x.children))
		}
		for i := 0; i < x.count; i++ {
			if i > 0 && t.cmp(x.keys[i-1], x.keys[i]) > 0 {
				return errors.AssertionFailedf("bplustree: inner node at depth %d: separator %v at %d follows %v",
					depth, x.keys[i], i, x.keys[i-1])
			}
			if err := v.checkBounds(x.keys[i], lo, hi, false); err != nil {
				return err
			}
		}
		for i := x.count + 1; i < len(x.children); i++ {
			if x.children[i] != nil {
				return errors.AssertionFailedf("bplustree: inner node at depth %d: stale child in slot %d", depth, i)
			}
		}
		v.inners++
		for i := 0; i <= x.count; i++ {
			clo, chi := lo, hi
			if i > 0 {
				clo = &x.keys[i-1]
			}
			if i < x.count {
				chi = &x.keys[i]
			}
			if err := v.check(x.children[i], depth+1, clo, chi); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.AssertionFailedf("bplustree: unknown node type %T", n)
}

func (v *verifier[K, V]) checkCount(kind string, depth, count, lo, hi int) error {
	if depth == 0 {
		lo = 1
	}
	if count < lo || count > hi {
		return errors.AssertionFailedf("bplustree: %s at depth %d holds %d, want [%d, %d]",
			kind, depth, count, lo, hi)
	}
	return nil
}

func (v *verifier[K, V]) checkBounds(key K, lo, hi *K, strictHi bool) error {
	if lo != nil && v.t.cmp(key, *lo) < 0 {
		return errors.AssertionFailedf("bplustree: key %v below separator %v", key, *lo)
	}
	if hi != nil {
		c := v.t.cmp(key, *hi)
		if c > 0 || (strictHi && c == 0) {
			return errors.AssertionFailedf("bplustree: key %v above separator %v", key, *hi)
		}
	}
	return nil
}

// checkChain compares the leaf chain with the traversal order.
func (v *verifier[K, V]) checkChain() error {
	t := v.t
	if t.head != v.chain[0] || t.tail != v.chain[len(v.chain)-1] {
		return errors.AssertionFailedf("bplustree: head/tail do not match the first/last leaf")
	}
	for i, leaf := range v.chain {
		var prev, next *leafNode[K, V]
		if i > 0 {
			prev = v.chain[i-1]
		}
		if i+1 < len(v.chain) {
			next = v.chain[i+1]
		}
		if leaf.prev != prev || leaf.next != next {
			return errors.AssertionFailedf("bplustree: leaf %d of %d is mislinked in the chain", i, len(v.chain))
		}
		if next != nil {
			c := t.cmp(leaf.keys[leaf.count-1], next.keys[0])
			if c > 0 || (t.opts.Duplicates != AllowDuplicates && c == 0) {
				return errors.AssertionFailedf("bplustree: leaf %d ends with %v but leaf %d starts with %v",
					i, leaf.keys[leaf.count-1], i+1, next.keys[0])
			}
		}
	}
	return nil
}
