// Package bplustree implements an in-memory B+ tree.
//
// All key/value slots live in the leaves, which store keys and values in two
// separate arrays and are chained into a doubly linked list in key order.
// Inner nodes hold only separator keys and child references. Nodes split
// when they overflow and borrow from or merge with a sibling when they drop
// below half occupancy, so every leaf is at the same depth.
//
// A Tree is created with New (or NewOrdered) and an Options value that
// fixes the node capacities and how equal keys are handled. Set, Multiset,
// Map and Multimap narrow a Tree to the usual container shapes, and
// BPlusTree adapts a Tree[int64, uint64] to index.Index.
//
// # Iterators
//
// An Iterator is a (leaf, slot) position. It is invalidated by every
// mutation of its tree: an insert or erase may shift, split or merge the
// leaf it refers to, and using a stale iterator afterwards yields arbitrary
// slots or panics. Erasing is only possible by key; there is no erase at an
// iterator position.
//
// Key and Value return copies, KeyPtr and ValuePtr return references into
// the leaf arrays, and Pair returns a temporary copy of both: because keys
// and values are stored apart, no addressable pair exists in the tree.
//
// # Corruption
//
// Verify panics on the first violated structural invariant. A corrupt tree
// is a programming error, never a recoverable state. Restore, in contrast,
// validates untrusted input and reports malformed dumps as errors marked
// ErrCorruption.
//
// A Tree is not safe for concurrent use. Callers serialize all access.
package bplustree
