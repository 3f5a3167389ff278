package bplustree

import "iter"

// Iterator is a position in a tree: a slot of a leaf, or the end sentinel
// past the last slot. Any mutation of the tree invalidates every iterator.
type Iterator[K, V any] struct {
	tree *Tree[K, V]
	// leaf is nil at the end sentinel.
	leaf *leafNode[K, V]
	slot int
}

// Pair is a key/value copy. Keys and values are stored in separate arrays,
// so a Pair never aliases tree memory.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Valid reports whether the iterator is positioned at a slot.
func (it Iterator[K, V]) Valid() bool { return it.leaf != nil }

// Next advances to the following slot, crossing into the next leaf when the
// current one is exhausted. Past the last slot the iterator becomes the end
// sentinel; Next on the end sentinel does nothing.
func (it *Iterator[K, V]) Next() {
	if it.leaf == nil {
		return
	}
	it.slot++
	if it.slot >= it.leaf.count {
		it.leaf, it.slot = it.leaf.next, 0
	}
}

// Prev moves to the preceding slot. Prev on the end sentinel moves to the
// last slot of the tree; Prev on the first slot yields the end sentinel.
func (it *Iterator[K, V]) Prev() {
	if it.leaf == nil {
		if it.tree != nil && it.tree.tail != nil {
			it.leaf, it.slot = it.tree.tail, it.tree.tail.count-1
		}
		return
	}
	if it.slot > 0 {
		it.slot--
		return
	}
	it.leaf = it.leaf.prev
	if it.leaf != nil {
		it.slot = it.leaf.count - 1
	} else {
		it.slot = 0
	}
}

// Key returns a copy of the key. It panics at the end sentinel.
func (it Iterator[K, V]) Key() K { return it.leaf.keys[it.slot] }

// Value returns a copy of the value. It panics at the end sentinel.
func (it Iterator[K, V]) Value() V { return it.leaf.values[it.slot] }

// KeyPtr returns a reference into the leaf's key array. Writing through it
// must not change the key's position in the order.
func (it Iterator[K, V]) KeyPtr() *K { return &it.leaf.keys[it.slot] }

// ValuePtr returns a reference into the leaf's value array.
func (it Iterator[K, V]) ValuePtr() *V { return &it.leaf.values[it.slot] }

// Pair returns a read-only copy of the key and value.
func (it Iterator[K, V]) Pair() Pair[K, V] {
	return Pair[K, V]{Key: it.leaf.keys[it.slot], Value: it.leaf.values[it.slot]}
}

// Equal reports whether both iterators address the same position.
func (it Iterator[K, V]) Equal(o Iterator[K, V]) bool {
	if it.leaf == nil || o.leaf == nil {
		return it.leaf == o.leaf
	}
	return it.leaf == o.leaf && it.slot == o.slot
}

// ReverseIterator walks a tree from the last slot to the first. Next moves
// towards smaller keys.
type ReverseIterator[K, V any] struct {
	it Iterator[K, V]
}

// Valid reports whether the iterator is positioned at a slot.
func (r ReverseIterator[K, V]) Valid() bool { return r.it.Valid() }

// Next moves to the preceding slot in key order; past the first slot the
// iterator becomes the reverse end sentinel.
func (r *ReverseIterator[K, V]) Next() {
	if r.it.leaf != nil {
		r.it.Prev()
	}
}

// Prev moves to the following slot in key order. Prev on the reverse end
// sentinel moves to the first slot.
func (r *ReverseIterator[K, V]) Prev() {
	if r.it.leaf == nil {
		if r.it.tree != nil && r.it.tree.head != nil {
			r.it.leaf, r.it.slot = r.it.tree.head, 0
		}
		return
	}
	r.it.Next()
}

func (r ReverseIterator[K, V]) Key() K           { return r.it.Key() }
func (r ReverseIterator[K, V]) Value() V         { return r.it.Value() }
func (r ReverseIterator[K, V]) KeyPtr() *K       { return r.it.KeyPtr() }
func (r ReverseIterator[K, V]) ValuePtr() *V     { return r.it.ValuePtr() }
func (r ReverseIterator[K, V]) Pair() Pair[K, V] { return r.it.Pair() }

// Base returns the forward iterator at the same slot.
func (r ReverseIterator[K, V]) Base() Iterator[K, V] { return r.it }

// ─── Positioning ──────────────────────────────────────────────────────────────

// Begin returns an iterator at the smallest slot, or End for an empty tree.
func (t *Tree[K, V]) Begin() Iterator[K, V] {
	return Iterator[K, V]{tree: t, leaf: t.head}
}

// End returns the end sentinel.
func (t *Tree[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{tree: t}
}

// Last returns an iterator at the largest slot, or End for an empty tree.
func (t *Tree[K, V]) Last() Iterator[K, V] {
	it := t.End()
	it.Prev()
	return it
}

// RBegin returns a reverse iterator at the largest slot.
func (t *Tree[K, V]) RBegin() ReverseIterator[K, V] {
	return ReverseIterator[K, V]{it: t.Last()}
}

// REnd returns the reverse end sentinel.
func (t *Tree[K, V]) REnd() ReverseIterator[K, V] {
	return ReverseIterator[K, V]{it: t.End()}
}

// LowerBound returns an iterator at the first slot whose key is >= key.
func (t *Tree[K, V]) LowerBound(key K) Iterator[K, V] {
	return t.seekLower(key)
}

// UpperBound returns an iterator at the first slot whose key is > key.
func (t *Tree[K, V]) UpperBound(key K) Iterator[K, V] {
	return t.seekUpper(key)
}

// Find returns an iterator at the first slot whose key equals key, or End.
func (t *Tree[K, V]) Find(key K) Iterator[K, V] {
	it := t.seekLower(key)
	if it.leaf != nil && t.cmp(it.Key(), key) == 0 {
		return it
	}
	return t.End()
}

// Get returns the value of the first slot whose key equals key.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	it := t.Find(key)
	if !it.Valid() {
		var zero V
		return zero, false
	}
	return it.Value(), true
}

// Has reports whether a slot with key exists.
func (t *Tree[K, V]) Has(key K) bool {
	return t.Find(key).Valid()
}

// EqualRange returns the half-open range [lower, upper) of slots whose key
// equals key.
func (t *Tree[K, V]) EqualRange(key K) (lower, upper Iterator[K, V]) {
	return t.seekLower(key), t.seekUpper(key)
}

// Count returns the number of slots whose key equals key.
func (t *Tree[K, V]) Count(key K) int {
	n := 0
	for it := t.seekLower(key); it.Valid() && t.cmp(it.Key(), key) == 0; it.Next() {
		n++
	}
	return n
}

// ─── Range functions ──────────────────────────────────────────────────────────

// All yields every slot in ascending key order.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return t.from(t.Begin())
}

// Ascend yields every slot whose key is >= from, in ascending order.
func (t *Tree[K, V]) Ascend(from K) iter.Seq2[K, V] {
	return t.from(t.seekLower(from))
}

func (t *Tree[K, V]) from(start Iterator[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for it := start; it.Valid(); it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}

// Backward yields every slot in descending key order.
func (t *Tree[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for it := t.RBegin(); it.Valid(); it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}
