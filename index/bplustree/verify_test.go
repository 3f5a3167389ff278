package bplustree

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestVerifyDetectsCorruption(t *testing.T) {
	build := func(t *testing.T) *Tree[int, int] {
		tr, err := NewOrdered[int, int](&Options{LeafSlots: 4, InnerSlots: 4})
		require.NoError(t, err)
		for i := 0; i < 100; i++ {
			tr.Insert(i, i)
		}
		require.NoError(t, tr.CheckInvariants())
		return tr
	}
	firstInner := func(tr *Tree[int, int]) *innerNode[int, int] {
		return tr.root.(*innerNode[int, int])
	}

	testCases := []struct {
		name    string
		corrupt func(tr *Tree[int, int])
	}{
		{"keys out of order", func(tr *Tree[int, int]) {
			leaf := tr.head.next
			leaf.keys[0], leaf.keys[1] = leaf.keys[1], leaf.keys[0]
		}},
		{"duplicate in unique tree", func(tr *Tree[int, int]) {
			tr.head.keys[1] = tr.head.keys[0]
		}},
		{"size", func(tr *Tree[int, int]) { tr.size++ }},
		{"height", func(tr *Tree[int, int]) { tr.height++ }},
		{"leaf counter", func(tr *Tree[int, int]) { tr.leaves-- }},
		{"underfull leaf", func(tr *Tree[int, int]) {
			leaf := tr.head.next
			leaf.count = 1
		}},
		{"overfull inner", func(tr *Tree[int, int]) {
			in := firstInner(tr)
			in.count = tr.opts.InnerSlots + 1
		}},
		{"separator bound", func(tr *Tree[int, int]) {
			in := firstInner(tr)
			in.keys[0] = -5
		}},
		{"broken prev link", func(tr *Tree[int, int]) {
			tr.tail.prev = tr.head
		}},
		{"broken next link", func(tr *Tree[int, int]) {
			tr.head.next = tr.tail
		}},
		{"tail", func(tr *Tree[int, int]) { tr.tail = tr.head }},
		{"cross-leaf order", func(tr *Tree[int, int]) {
			tr.tail.keys[tr.tail.count-1] = -1
		}},
		{"stale child", func(tr *Tree[int, int]) {
			in := firstInner(tr)
			in.children[in.count+1] = tr.head
		}},
		{"empty tree with size", func(tr *Tree[int, int]) {
			tr.reset()
			tr.size = 3
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := build(t)
			tc.corrupt(tr)
			err := tr.CheckInvariants()
			require.Error(t, err)
			require.True(t, errors.IsAssertionFailure(err), "%v", err)
			require.Panics(t, tr.Verify)
		})
	}
}

func TestSelfVerifyPanicsOnMutation(t *testing.T) {
	tr, err := NewOrdered[int, int](&Options{LeafSlots: 4, InnerSlots: 4, SelfVerify: true})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		tr.Insert(i, i)
	}
	tr.size = 0
	require.Panics(t, func() { tr.Insert(100, 100) })
}
