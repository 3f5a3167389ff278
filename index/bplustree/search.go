package bplustree

// lowerIndex returns the lowest index i in keys[:n] with keys[i] >= key, or n
// if there is none.
func (t *Tree[K, V]) lowerIndex(keys []K, n int, key K) int {
	i, j := 0, n
	for i < j {
		h := int(uint(i+j) >> 1)
		if t.cmp(keys[h], key) < 0 {
			i = h + 1
		} else {
			j = h
		}
	}
	return i
}

// upperIndex returns the lowest index i in keys[:n] with keys[i] > key, or n
// if there is none.
func (t *Tree[K, V]) upperIndex(keys []K, n int, key K) int {
	i, j := 0, n
	for i < j {
		h := int(uint(i+j) >> 1)
		if t.cmp(keys[h], key) <= 0 {
			i = h + 1
		} else {
			j = h
		}
	}
	return i
}

// seekLower descends to the leaf holding the first slot >= key. Inner nodes
// route through the child at lowerIndex: everything left of it is < key and
// everything right of it is >= key, so the answer is in the reached leaf or
// at slot 0 of the following one.
func (t *Tree[K, V]) seekLower(key K) Iterator[K, V] {
	if t.root == nil {
		return t.End()
	}
	n := t.root
	for {
		switch x := n.(type) {
		case *innerNode[K, V]:
			n = x.children[t.lowerIndex(x.keys, x.count, key)]
		case *leafNode[K, V]:
			return t.normalize(x, t.lowerIndex(x.keys, x.count, key))
		}
	}
}

// seekUpper descends to the leaf holding the first slot > key, routing
// through the child at upperIndex.
func (t *Tree[K, V]) seekUpper(key K) Iterator[K, V] {
	if t.root == nil {
		return t.End()
	}
	n := t.root
	for {
		switch x := n.(type) {
		case *innerNode[K, V]:
			n = x.children[t.upperIndex(x.keys, x.count, key)]
		case *leafNode[K, V]:
			return t.normalize(x, t.upperIndex(x.keys, x.count, key))
		}
	}
}

// normalize turns a (leaf, slot) position where slot may equal the leaf's
// count into a valid iterator: the position then is slot 0 of the next leaf,
// or the end sentinel after the last leaf.
func (t *Tree[K, V]) normalize(leaf *leafNode[K, V], slot int) Iterator[K, V] {
	if slot >= leaf.count {
		leaf, slot = leaf.next, 0
	}
	return Iterator[K, V]{tree: t, leaf: leaf, slot: slot}
}
