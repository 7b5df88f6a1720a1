package composable

import (
	"cmp"
	"slices"
)

// Keyed pairs a child action with the key identifying which entry of a
// KeyedState it targets. Grounded on
// original_source/composable-architecture/src/keyed.rs's Keyed<K, A>.
//
// Multiple KeyedState fields under one parent that would route the same
// (K, ChildAction) pair are ambiguous and unsupported — exactly as in the
// original, this is enforced by Go's type system rather than at runtime:
// Keyed[K, A] is one distinct type per (K, A) pair, so two fields needing
// disambiguation must use distinct key newtypes.
type Keyed[K comparable, A any] struct {
	Key    K
	Action A
}

// KeyedState is a keyed collection of child states, map-backed. Grounded on
// keyed.rs's KeyedState<K, V, HashMap<K,V>> default.
//
// Backed by map[K]*V rather than map[K]V: Go map values aren't addressable,
// and ReduceKeyedField (recursive.go) needs a stable *V to pass to a child
// Reducer the same way keyed.rs's get_mut hands the derive-macro-generated
// dispatch a &mut V. The wrapper type itself (rather than exposing the map
// directly) exists so code routing a Keyed action can reliably detect
// "this is a keyed child state field" by type.
type KeyedState[K comparable, V any] struct {
	m map[K]*V
}

// NewKeyedState wraps an existing map, adopting its values by address. A
// nil map is treated as empty.
func NewKeyedState[K comparable, V any](m map[K]V) KeyedState[K, V] {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		v := v
		out[k] = &v
	}
	return KeyedState[K, V]{m: out}
}

// Get returns a copy of the child state for key and whether it was present.
func (s KeyedState[K, V]) Get(key K) (V, bool) {
	v, ok := s.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	return *v, true
}

// GetPtr returns a pointer to the child state for key so a reducer can
// mutate it in place via Reduce(state *V, ...), or nil/false if key is
// absent — the Go analogue of keyed.rs's get_mut.
func (s *KeyedState[K, V]) GetPtr(key K) (*V, bool) {
	v, ok := s.m[key]
	return v, ok
}

// Set stores v for key, creating the backing map if necessary.
func (s *KeyedState[K, V]) Set(key K, v V) {
	if s.m == nil {
		s.m = make(map[K]*V)
	}
	s.m[key] = &v
}

// Delete removes key, if present.
func (s *KeyedState[K, V]) Delete(key K) {
	delete(s.m, key)
}

// Len returns the number of entries.
func (s KeyedState[K, V]) Len() int { return len(s.m) }

// Range calls fn for every entry in unspecified (Go map) order. Use
// OrderedKeyedState when a scenario depends on deterministic iteration
// order.
func (s KeyedState[K, V]) Range(fn func(key K, value V) bool) {
	for k, v := range s.m {
		if !fn(k, *v) {
			return
		}
	}
}

// OrderedKeyedState is a keyed collection with deterministic,
// key-ascending iteration order — the Go stand-in for keyed.rs's
// KeyedState<K, V, BTreeMap<K, V>> variant. Go's standard library has no
// ordered-map type, and no example repo in this module's lineage imports a
// third-party one (checked: no btree/ordered-map import appears anywhere in
// the example pack), so this is implemented directly on a sorted slice —
// a deliberate stdlib-only choice, not an oversight.
type OrderedKeyedState[K cmp.Ordered, V any] struct {
	keys []K
	vals map[K]V
}

// NewOrderedKeyedState creates an empty ordered keyed state.
func NewOrderedKeyedState[K cmp.Ordered, V any]() OrderedKeyedState[K, V] {
	return OrderedKeyedState[K, V]{vals: make(map[K]V)}
}

// Get returns the child state for key and whether it was present.
func (s OrderedKeyedState[K, V]) Get(key K) (V, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// Set stores v for key, inserting key into the sorted key order if it is
// new.
func (s *OrderedKeyedState[K, V]) Set(key K, v V) {
	if s.vals == nil {
		s.vals = make(map[K]V)
	}
	if _, exists := s.vals[key]; !exists {
		i, _ := slices.BinarySearch(s.keys, key)
		s.keys = slices.Insert(s.keys, i, key)
	}
	s.vals[key] = v
}

// Delete removes key, if present.
func (s *OrderedKeyedState[K, V]) Delete(key K) {
	if _, exists := s.vals[key]; !exists {
		return
	}
	delete(s.vals, key)
	if i, ok := slices.BinarySearch(s.keys, key); ok {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
}

// Len returns the number of entries.
func (s OrderedKeyedState[K, V]) Len() int { return len(s.keys) }

// Range calls fn for every entry in ascending key order.
func (s OrderedKeyedState[K, V]) Range(fn func(key K, value V) bool) {
	for _, k := range s.keys {
		if !fn(k, s.vals[k]) {
			return
		}
	}
}
