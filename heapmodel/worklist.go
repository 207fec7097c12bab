// ABOUTME: Explicit FIFO worklist for the discovery traversal — recursion
// ABOUTME: on the call stack is disallowed, object graphs can be very deep.
package heapmodel

import "iter"

// Worklist is a singly-linked FIFO queue. The discovery traversal pushes
// newly-discovered admission candidates and drains the list until empty,
// in FIFO order; partition classification does not depend on that order.
type Worklist[T any] struct {
	head, tail *worklistItem[T]
}

type worklistItem[T any] struct {
	next  *worklistItem[T]
	value T
}

// Empty reports whether the worklist has no pending items.
func (w *Worklist[T]) Empty() bool { return w.head == nil }

// Push enqueues value at the tail.
func (w *Worklist[T]) Push(value T) {
	item := &worklistItem[T]{value: value}
	if w.tail == nil {
		w.head, w.tail = item, item
		return
	}
	w.tail.next = item
	w.tail = item
}

// Pop dequeues the value at the head, if any.
func (w *Worklist[T]) Pop() (T, bool) {
	if w.Empty() {
		var zero T
		return zero, false
	}
	item := w.head
	w.head = item.next
	if w.head == nil {
		w.tail = nil
	}
	item.next = nil
	return item.value, true
}

// All iterates the worklist's current contents without draining it.
func (w *Worklist[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := w.head; i != nil; i = i.next {
			if !yield(i.value) {
				return
			}
		}
	}
}
