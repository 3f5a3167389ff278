package bplustree

// EraseOne removes the first slot, in iteration order, whose key equals key.
// It reports whether a slot was removed.
//
// There is no erase by iterator: rebalancing may move or merge the slot an
// iterator refers to.
func (t *Tree[K, V]) EraseOne(key K) bool {
	if t.root == nil || !t.eraseFrom(t.root, key) {
		return false
	}
	t.size--

	switch r := t.root.(type) {
	case *innerNode[K, V]:
		if r.count == 0 {
			t.root = r.children[0]
			r.children[0] = nil
			t.height--
			t.inners--
			t.debugf("collapse root, height %d", t.height)
		}
	case *leafNode[K, V]:
		if r.count == 0 {
			t.reset()
		}
	}
	if t.opts.SelfVerify {
		t.Verify()
	}
	return true
}

// Erase removes every slot whose key equals key and returns how many were
// removed.
func (t *Tree[K, V]) Erase(key K) int {
	n := 0
	for t.EraseOne(key) {
		n++
	}
	return n
}

// eraseFrom removes the first slot equal to key from the subtree n and
// restores the occupancy of the child it descended into.
func (t *Tree[K, V]) eraseFrom(n node[K, V], key K) bool {
	switch x := n.(type) {
	case *leafNode[K, V]:
		i := t.lowerIndex(x.keys, x.count, key)
		if i == x.count || t.cmp(x.keys[i], key) != 0 {
			return false
		}
		x.removeAt(i)
		return true

	case *innerNode[K, V]:
		// Equal keys may continue in the next child when the separator
		// equals key.
		for i := t.lowerIndex(x.keys, x.count, key); ; i++ {
			if t.eraseFrom(x.children[i], key) {
				t.fixChild(x, i)
				return true
			}
			if i == x.count || t.cmp(x.keys[i], key) != 0 {
				return false
			}
		}
	}
	panic("unreachable")
}

// fixChild restores the minimum occupancy of parent.children[i]: borrow from
// the left sibling, then the right sibling, then merge into the left
// sibling, then merge the right sibling in.
func (t *Tree[K, V]) fixChild(parent *innerNode[K, V], i int) {
	switch child := parent.children[i].(type) {
	case *leafNode[K, V]:
		need := t.minLeaf()
		if child.count >= need {
			return
		}
		var left, right *leafNode[K, V]
		if i > 0 {
			left = parent.children[i-1].(*leafNode[K, V])
		}
		if i < parent.count {
			right = parent.children[i+1].(*leafNode[K, V])
		}
		switch {
		case left != nil && left.count > need:
			t.shiftLeafFromLeft(parent, i, left, child)
		case right != nil && right.count > need:
			t.shiftLeafFromRight(parent, i, child, right)
		case left != nil:
			t.mergeLeaves(parent, i-1, left, child)
		case right != nil:
			t.mergeLeaves(parent, i, child, right)
		}

	case *innerNode[K, V]:
		need := t.minInner()
		if child.count >= need {
			return
		}
		var left, right *innerNode[K, V]
		if i > 0 {
			left = parent.children[i-1].(*innerNode[K, V])
		}
		if i < parent.count {
			right = parent.children[i+1].(*innerNode[K, V])
		}
		switch {
		case left != nil && left.count > need:
			t.shiftInnerFromLeft(parent, i, left, child)
		case right != nil && right.count > need:
			t.shiftInnerFromRight(parent, i, child, right)
		case left != nil:
			t.mergeInner(parent, i-1, left, child)
		case right != nil:
			t.mergeInner(parent, i, child, right)
		}
	}
}

// ─── Leaf rebalancing ─────────────────────────────────────────────────────────

// shiftLeafFromLeft moves the last slots of left to the front of child,
// which is parent.children[i].
func (t *Tree[K, V]) shiftLeafFromLeft(parent *innerNode[K, V], i int, left, child *leafNode[K, V]) {
	n := (left.count - child.count) / 2
	copy(child.keys[n:child.count+n], child.keys[:child.count])
	copy(child.values[n:child.count+n], child.values[:child.count])
	copy(child.keys[:n], left.keys[left.count-n:left.count])
	copy(child.values[:n], left.values[left.count-n:left.count])
	child.count += n
	left.clear(left.count-n, left.count)
	left.count -= n

	parent.keys[i-1] = child.keys[0]
	t.debugf("shift %d slots from left leaf", n)
}

// shiftLeafFromRight moves the first slots of right to the end of child,
// which is parent.children[i].
func (t *Tree[K, V]) shiftLeafFromRight(parent *innerNode[K, V], i int, child, right *leafNode[K, V]) {
	n := (right.count - child.count) / 2
	copy(child.keys[child.count:], right.keys[:n])
	copy(child.values[child.count:], right.values[:n])
	child.count += n
	copy(right.keys, right.keys[n:right.count])
	copy(right.values, right.values[n:right.count])
	right.clear(right.count-n, right.count)
	right.count -= n

	parent.keys[i] = right.keys[0]
	t.debugf("shift %d slots from right leaf", n)
}

// mergeLeaves appends right (parent.children[i+1]) to left
// (parent.children[i]) and drops right together with separator i.
func (t *Tree[K, V]) mergeLeaves(parent *innerNode[K, V], i int, left, right *leafNode[K, V]) {
	if t.tail == right {
		t.tail = left
	}
	left.absorb(right)
	parent.removeAt(i)
	t.leaves--
	t.debugf("merge leaves: %d slots", left.count)
}

// ─── Inner rebalancing ────────────────────────────────────────────────────────

// shiftInnerFromLeft rotates the last children of left through separator
// i-1 to the front of child.
func (t *Tree[K, V]) shiftInnerFromLeft(parent *innerNode[K, V], i int, left, child *innerNode[K, V]) {
	n := (left.count - child.count) / 2
	for j := 0; j < n; j++ {
		key, moved := left.popBack()
		child.pushFront(parent.keys[i-1], moved)
		parent.keys[i-1] = key
	}
	t.debugf("shift %d children from left inner at level %d", n, child.lvl)
}

// shiftInnerFromRight rotates the first children of right through separator
// i to the end of child.
func (t *Tree[K, V]) shiftInnerFromRight(parent *innerNode[K, V], i int, child, right *innerNode[K, V]) {
	n := (right.count - child.count) / 2
	for j := 0; j < n; j++ {
		key, moved := right.popFront()
		child.pushBack(parent.keys[i], moved)
		parent.keys[i] = key
	}
	t.debugf("shift %d children from right inner at level %d", n, child.lvl)
}

// mergeInner pulls separator i down into left and appends right to it.
func (t *Tree[K, V]) mergeInner(parent *innerNode[K, V], i int, left, right *innerNode[K, V]) {
	left.absorb(parent.keys[i], right)
	parent.removeAt(i)
	t.inners--
	t.debugf("merge inner at level %d: %d keys", left.lvl, left.count)
}
