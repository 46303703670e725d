package orderedmap

import (
	wk8 "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap stores key/value pairs which iterate in insertion order.
// It is a thin façade over wk8/go-ordered-map exposing only the surface
// the builder needs, so the backing implementation can be swapped without
// touching call sites.
type OrderedMap[K comparable, V any] struct {
	inner *wk8.OrderedMap[K, V]
}

// Iterator exposes the key/value pair at the current position. Key is a
// pointer so callers can distinguish an exhausted iterator from a zero key.
type Iterator[K comparable, V any] struct {
	Key   *K
	Value V

	pair    *wk8.Pair[K, V]
	forward bool
}

func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{inner: wk8.New[K, V]()}
}

func (o *OrderedMap[K, V]) Set(key K, val V) {
	o.inner.Set(key, val)
}

func (o *OrderedMap[K, V]) Get(key K) (V, bool) {
	return o.inner.Get(key)
}

func (o *OrderedMap[K, V]) Delete(key K) {
	o.inner.Delete(key)
}

func (o *OrderedMap[K, V]) Count() int {
	return o.inner.Len()
}

// Keys returns the map keys in insertion order.
func (o *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, o.inner.Len())
	for pair := o.inner.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	return keys
}

// Front returns an iterator positioned at the oldest entry. Next advances
// towards the newest entry.
func (o *OrderedMap[K, V]) Front() *Iterator[K, V] {
	return newIterator(o.inner.Oldest(), true)
}

// Back returns an iterator positioned at the newest entry. Next advances
// towards the oldest entry.
func (o *OrderedMap[K, V]) Back() *Iterator[K, V] {
	return newIterator(o.inner.Newest(), false)
}

// Next moves one step in the iterator's direction of travel and returns nil
// once the map is exhausted. Calling Next on a nil iterator is safe.
func (n *Iterator[K, V]) Next() *Iterator[K, V] {
	if n == nil || n.pair == nil {
		return nil
	}
	if n.forward {
		return newIterator(n.pair.Next(), true)
	}

	return newIterator(n.pair.Prev(), false)
}

// Prev moves one step against the iterator's direction of travel.
func (n *Iterator[K, V]) Prev() *Iterator[K, V] {
	if n == nil || n.pair == nil {
		return nil
	}
	if n.forward {
		return newIterator(n.pair.Prev(), true)
	}

	return newIterator(n.pair.Next(), false)
}

func newIterator[K comparable, V any](pair *wk8.Pair[K, V], forward bool) *Iterator[K, V] {
	if pair == nil {
		return nil
	}

	return &Iterator[K, V]{
		Key:     &pair.Key,
		Value:   pair.Value,
		pair:    pair,
		forward: forward,
	}
}
