package queue

import (
	"github.com/ef-ds/deque"
)

// Q layers stack and queue semantics over a single ef-ds deque so callers
// can mix Push/Pop with Enqueue/Dequeue on the same structure.
// Stack operations (Push/Pop) and queue operations (Enqueue/Dequeue) are
// all O(1) amortized.
type Q[T any] struct {
	items deque.Deque
}

// New creates a new Q
func New[T any]() *Q[T] {
	return &Q[T]{}
}

// Stack Operations

// Push adds an item to the top of the stack (stack behavior)
func (q *Q[T]) Push(item T) {
	q.items.PushBack(item)
}

// Pop removes and returns the top item from the stack (stack behavior)
func (q *Q[T]) Pop() (T, bool) {
	return q.take(q.items.PopBack)
}

// Peek returns the top item from the stack without removing it
func (q *Q[T]) Peek() (T, bool) {
	return q.take(q.items.Back)
}

// Queue Operations

// Enqueue adds an item to the end of the queue (queue behavior)
func (q *Q[T]) Enqueue(item T) {
	q.items.PushBack(item)
}

// Dequeue removes and returns the first item from the queue (queue behavior)
func (q *Q[T]) Dequeue() (T, bool) {
	return q.take(q.items.PopFront)
}

// Utility Methods

// Len returns the number of items in the Q
func (q *Q[T]) Len() int {
	return q.items.Len()
}

// Clear removes all items
func (q *Q[T]) Clear() {
	q.items.Init()
}

func (q *Q[T]) take(op func() (interface{}, bool)) (T, bool) {
	v, ok := op()
	if !ok {
		var zero T
		return zero, false
	}

	return v.(T), true
}
