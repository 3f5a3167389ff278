package bplustree

// Insert adds key/value to the tree. It returns an iterator at the slot
// holding key and whether a new slot was created. Under RejectDuplicates an
// existing key is left untouched; under OverwriteDuplicates its value is
// replaced. Under AllowDuplicates Insert always succeeds and the new slot
// follows every slot with an equal key.
func (t *Tree[K, V]) Insert(key K, value V) (Iterator[K, V], bool) {
	if t.root == nil {
		leaf := newLeaf[K, V](t.opts.LeafSlots)
		t.root = leaf
		t.head, t.tail = leaf, leaf
		t.height = 1
		t.leaves = 1
	}

	leaf, slot, inserted, sep, right := t.insertInto(t.root, key, value)
	if right != nil {
		// ─── Root split ───
		root := newInner[K, V](t.opts.InnerSlots, t.root.level()+1)
		root.children[0] = t.root
		root.keys[0] = sep
		root.children[1] = right
		root.count = 1
		t.root = root
		t.height++
		t.inners++
		t.debugf("new root at level %d, height %d", root.lvl, t.height)
	}
	if inserted {
		t.size++
	}
	if t.opts.SelfVerify {
		t.Verify()
	}
	return Iterator[K, V]{tree: t, leaf: leaf, slot: slot}, inserted
}

// insertInto inserts into the subtree n. It returns the final position of
// the slot and, when n was split, the separator and the new right sibling.
func (t *Tree[K, V]) insertInto(
	n node[K, V], key K, value V,
) (leaf *leafNode[K, V], slot int, inserted bool, sep K, right node[K, V]) {
	switch x := n.(type) {
	case *leafNode[K, V]:
		return t.insertLeaf(x, key, value)

	case *innerNode[K, V]:
		i := t.upperIndex(x.keys, x.count, key)
		var childSep K
		var childRight node[K, V]
		leaf, slot, inserted, childSep, childRight = t.insertInto(x.children[i], key, value)
		if childRight == nil {
			return leaf, slot, inserted, sep, nil
		}
		x.insertAt(i, childSep, childRight)
		if x.count <= t.opts.InnerSlots {
			return leaf, slot, inserted, sep, nil
		}
		promoted, upper := x.split(x.count/2, t.opts.InnerSlots)
		t.inners++
		t.debugf("split inner at level %d: %d + %d keys", x.lvl, x.count, upper.count)
		return leaf, slot, inserted, promoted, upper
	}
	panic("unreachable")
}

func (t *Tree[K, V]) insertLeaf(
	x *leafNode[K, V], key K, value V,
) (*leafNode[K, V], int, bool, K, node[K, V]) {
	var zero K
	u := t.upperIndex(x.keys, x.count, key)
	if t.opts.Duplicates != AllowDuplicates && u > 0 && t.cmp(x.keys[u-1], key) == 0 {
		if t.opts.Duplicates == OverwriteDuplicates {
			x.values[u-1] = value
		}
		return x, u - 1, false, zero, nil
	}

	x.insertAt(u, key, value)
	if x.count <= t.opts.LeafSlots {
		return x, u, true, zero, nil
	}

	mid := x.count / 2
	right := x.split(mid, t.opts.LeafSlots)
	if t.tail == x {
		t.tail = right
	}
	t.leaves++
	t.debugf("split leaf: %d + %d slots", x.count, right.count)
	if u >= mid {
		return right, u - mid, true, right.keys[0], right
	}
	return x, u, true, right.keys[0], right
}
