package bplustree

import "iter"

// The facades below fix the duplicate policy of a Tree and narrow its API to
// the usual set and map shapes. Tree exposes everything else.

func withPolicy(opts *Options, p DuplicatePolicy) *Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.Duplicates = p
	return &o
}

func keys[K, V any](seq iter.Seq2[K, V]) iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range seq {
			if !yield(k) {
				return
			}
		}
	}
}

// Set is an ordered set of unique keys.
type Set[K any] struct {
	t *Tree[K, struct{}]
}

// NewSet returns an empty set ordered by cmp.
func NewSet[K any](cmp func(a, b K) int, opts *Options) (*Set[K], error) {
	t, err := New[K, struct{}](cmp, withPolicy(opts, RejectDuplicates))
	if err != nil {
		return nil, err
	}
	return &Set[K]{t: t}, nil
}

// Insert adds key and reports whether it was absent.
func (s *Set[K]) Insert(key K) bool {
	_, ok := s.t.Insert(key, struct{}{})
	return ok
}

// Has reports whether key is present.
func (s *Set[K]) Has(key K) bool { return s.t.Has(key) }

// Delete removes key and reports whether it was present.
func (s *Set[K]) Delete(key K) bool { return s.t.EraseOne(key) }

// Len returns the number of keys.
func (s *Set[K]) Len() int { return s.t.Len() }

// All yields the keys in ascending order.
func (s *Set[K]) All() iter.Seq[K] { return keys(s.t.All()) }

// Tree returns the underlying tree.
func (s *Set[K]) Tree() *Tree[K, struct{}] { return s.t }

// Multiset is an ordered collection of keys that may repeat.
type Multiset[K any] struct {
	t *Tree[K, struct{}]
}

// NewMultiset returns an empty multiset ordered by cmp.
func NewMultiset[K any](cmp func(a, b K) int, opts *Options) (*Multiset[K], error) {
	t, err := New[K, struct{}](cmp, withPolicy(opts, AllowDuplicates))
	if err != nil {
		return nil, err
	}
	return &Multiset[K]{t: t}, nil
}

// Insert adds one occurrence of key.
func (s *Multiset[K]) Insert(key K) { s.t.Insert(key, struct{}{}) }

// Count returns the number of occurrences of key.
func (s *Multiset[K]) Count(key K) int { return s.t.Count(key) }

// DeleteOne removes one occurrence of key.
func (s *Multiset[K]) DeleteOne(key K) bool { return s.t.EraseOne(key) }

// Delete removes every occurrence of key and returns how many there were.
func (s *Multiset[K]) Delete(key K) int { return s.t.Erase(key) }

// Len returns the number of occurrences of all keys.
func (s *Multiset[K]) Len() int { return s.t.Len() }

// All yields every occurrence in ascending order.
func (s *Multiset[K]) All() iter.Seq[K] { return keys(s.t.All()) }

// Tree returns the underlying tree.
func (s *Multiset[K]) Tree() *Tree[K, struct{}] { return s.t }

// Map is an ordered map with unique keys.
type Map[K, V any] struct {
	t *Tree[K, V]
}

// NewMap returns an empty map ordered by cmp.
func NewMap[K, V any](cmp func(a, b K) int, opts *Options) (*Map[K, V], error) {
	t, err := New[K, V](cmp, withPolicy(opts, OverwriteDuplicates))
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{t: t}, nil
}

// Put associates value with key, replacing any previous value. It reports
// whether key was absent.
func (m *Map[K, V]) Put(key K, value V) bool {
	_, ok := m.t.Insert(key, value)
	return ok
}

// Get returns the value for key.
func (m *Map[K, V]) Get(key K) (V, bool) { return m.t.Get(key) }

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool { return m.t.EraseOne(key) }

// Len returns the number of keys.
func (m *Map[K, V]) Len() int { return m.t.Len() }

// All yields the entries in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] { return m.t.All() }

// Tree returns the underlying tree.
func (m *Map[K, V]) Tree() *Tree[K, V] { return m.t }

// Multimap is an ordered map in which a key may carry several values. Values
// of one key are kept in insertion order.
type Multimap[K, V any] struct {
	t *Tree[K, V]
}

// NewMultimap returns an empty multimap ordered by cmp.
func NewMultimap[K, V any](cmp func(a, b K) int, opts *Options) (*Multimap[K, V], error) {
	t, err := New[K, V](cmp, withPolicy(opts, AllowDuplicates))
	if err != nil {
		return nil, err
	}
	return &Multimap[K, V]{t: t}, nil
}

// Insert adds value under key after any values already there.
func (m *Multimap[K, V]) Insert(key K, value V) { m.t.Insert(key, value) }

// Values returns the values stored under key in insertion order.
func (m *Multimap[K, V]) Values(key K) []V {
	var vs []V
	lo, hi := m.t.EqualRange(key)
	for it := lo; !it.Equal(hi); it.Next() {
		vs = append(vs, it.Value())
	}
	return vs
}

// Count returns the number of values under key.
func (m *Multimap[K, V]) Count(key K) int { return m.t.Count(key) }

// DeleteOne removes the oldest value under key.
func (m *Multimap[K, V]) DeleteOne(key K) bool { return m.t.EraseOne(key) }

// Delete removes every value under key and returns how many there were.
func (m *Multimap[K, V]) Delete(key K) int { return m.t.Erase(key) }

// Len returns the number of key/value entries.
func (m *Multimap[K, V]) Len() int { return m.t.Len() }

// All yields the entries in ascending key order.
func (m *Multimap[K, V]) All() iter.Seq2[K, V] { return m.t.All() }

// Tree returns the underlying tree.
func (m *Multimap[K, V]) Tree() *Tree[K, V] { return m.t }
