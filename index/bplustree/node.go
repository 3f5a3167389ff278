package bplustree

// node is either a *leafNode or an *innerNode. Leaves are level 0, inner
// nodes are one level above their children.
type node[K, V any] interface {
	level() int
	slotCount() int
}

// leafNode holds the actual key/value slots. Keys and values live in two
// index-aligned arrays so that scanning keys touches only key memory. Both
// arrays have one slot more than the leaf capacity: an insertion into a full
// leaf lands in the spare slot and the leaf is split right after.
type leafNode[K, V any] struct {
	count  int
	keys   []K
	values []V

	// prev and next chain all leaves in key order. They are lookup links
	// only; a leaf is owned by its parent (or the tree, for a root leaf).
	prev *leafNode[K, V]
	next *leafNode[K, V]
}

// innerNode holds separator keys and child references. keys[i] separates
// children[i] and children[i+1]: every key reachable through children[i] is
// <= keys[i] and every key reachable through children[i+1] is >= keys[i].
type innerNode[K, V any] struct {
	lvl      int
	count    int
	keys     []K
	children []node[K, V]
}

func newLeaf[K, V any](slots int) *leafNode[K, V] {
	return &leafNode[K, V]{
		keys:   make([]K, slots+1),
		values: make([]V, slots+1),
	}
}

func newInner[K, V any](slots, level int) *innerNode[K, V] {
	return &innerNode[K, V]{
		lvl:      level,
		keys:     make([]K, slots+1),
		children: make([]node[K, V], slots+2),
	}
}

func (n *leafNode[K, V]) level() int     { return 0 }
func (n *leafNode[K, V]) slotCount() int { return n.count }

func (n *innerNode[K, V]) level() int     { return n.lvl }
func (n *innerNode[K, V]) slotCount() int { return n.count }

// ─── Leaf slot operations ─────────────────────────────────────────────────────

// insertAt inserts key/value at slot i, shifting later slots up by one. The
// caller guarantees there is a free slot (the spare counts).
func (n *leafNode[K, V]) insertAt(i int, key K, value V) {
	if i < n.count {
		copy(n.keys[i+1:n.count+1], n.keys[i:n.count])
		copy(n.values[i+1:n.count+1], n.values[i:n.count])
	}
	n.keys[i] = key
	n.values[i] = value
	n.count++
}

// removeAt removes slot i, shifting later slots down by one.
func (n *leafNode[K, V]) removeAt(i int) {
	copy(n.keys[i:n.count-1], n.keys[i+1:n.count])
	copy(n.values[i:n.count-1], n.values[i+1:n.count])
	n.count--
	n.clear(n.count, n.count+1)
}

// clear zeroes slots [from, to) so they do not pin garbage.
func (n *leafNode[K, V]) clear(from, to int) {
	clear(n.keys[from:to])
	clear(n.values[from:to])
}

// split moves slots [at, count) into a fresh leaf which is linked into the
// chain right after n.
func (n *leafNode[K, V]) split(at, slots int) *leafNode[K, V] {
	right := newLeaf[K, V](slots)
	right.count = copy(right.keys, n.keys[at:n.count])
	copy(right.values, n.values[at:n.count])
	n.clear(at, n.count)
	n.count = at

	right.prev = n
	right.next = n.next
	if n.next != nil {
		n.next.prev = right
	}
	n.next = right
	return right
}

// absorb appends all slots of right to n and unlinks right from the chain.
// The caller drops its reference to right afterwards.
func (n *leafNode[K, V]) absorb(right *leafNode[K, V]) {
	copy(n.keys[n.count:], right.keys[:right.count])
	copy(n.values[n.count:], right.values[:right.count])
	n.count += right.count

	n.next = right.next
	if right.next != nil {
		right.next.prev = n
	}
	right.prev, right.next = nil, nil
}

// ─── Inner slot operations ────────────────────────────────────────────────────

// insertAt inserts separator key at i and child at i+1.
func (n *innerNode[K, V]) insertAt(i int, key K, child node[K, V]) {
	if i < n.count {
		copy(n.keys[i+1:n.count+1], n.keys[i:n.count])
		copy(n.children[i+2:n.count+2], n.children[i+1:n.count+1])
	}
	n.keys[i] = key
	n.children[i+1] = child
	n.count++
}

// removeAt removes separator key i together with child i+1.
func (n *innerNode[K, V]) removeAt(i int) {
	copy(n.keys[i:n.count-1], n.keys[i+1:n.count])
	copy(n.children[i+1:n.count], n.children[i+2:n.count+1])
	n.count--
	var zero K
	n.keys[n.count] = zero
	n.children[n.count+1] = nil
}

// pushFront prepends key and child: child becomes children[0] and key
// separates it from the former first child.
func (n *innerNode[K, V]) pushFront(key K, child node[K, V]) {
	copy(n.keys[1:n.count+1], n.keys[:n.count])
	copy(n.children[1:n.count+2], n.children[:n.count+1])
	n.keys[0] = key
	n.children[0] = child
	n.count++
}

// pushBack appends key and child: key separates the former last child from
// child.
func (n *innerNode[K, V]) pushBack(key K, child node[K, V]) {
	n.keys[n.count] = key
	n.children[n.count+1] = child
	n.count++
}

// popFront removes and returns the first key and first child.
func (n *innerNode[K, V]) popFront() (K, node[K, V]) {
	key, child := n.keys[0], n.children[0]
	copy(n.keys[:n.count-1], n.keys[1:n.count])
	copy(n.children[:n.count], n.children[1:n.count+1])
	n.count--
	var zero K
	n.keys[n.count] = zero
	n.children[n.count+1] = nil
	return key, child
}

// popBack removes and returns the last key and last child.
func (n *innerNode[K, V]) popBack() (K, node[K, V]) {
	key, child := n.keys[n.count-1], n.children[n.count]
	n.count--
	var zero K
	n.keys[n.count] = zero
	n.children[n.count+1] = nil
	return key, child
}

// split promotes keys[mid] and moves keys (mid, count) and children
// (mid, count] into a fresh inner node.
func (n *innerNode[K, V]) split(mid, slots int) (K, *innerNode[K, V]) {
	promoted := n.keys[mid]
	right := newInner[K, V](slots, n.lvl)
	right.count = copy(right.keys, n.keys[mid+1:n.count])
	copy(right.children, n.children[mid+1:n.count+1])

	clear(n.keys[mid:n.count])
	clear(n.children[mid+1 : n.count+1])
	n.count = mid
	return promoted, right
}

// absorb appends sep and then all keys and children of right to n.
func (n *innerNode[K, V]) absorb(sep K, right *innerNode[K, V]) {
	n.keys[n.count] = sep
	copy(n.keys[n.count+1:], right.keys[:right.count])
	copy(n.children[n.count+1:], right.children[:right.count+1])
	n.count += right.count + 1
}
