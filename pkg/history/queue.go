// Package history provides the bounded FIFO used to hold cumulative counter samples.
package history

// Queue is a count-bounded FIFO ring buffer.
//
// Callers Push a sample, read Front as the baseline, and only then call
// EvictIfOverCapacity. The queue may therefore hold Cap()+1 samples between
// those two calls, which is what lets a full queue hand out a baseline that is
// Cap() samples old.
type Queue[T any] struct {
	data  []T
	head  int
	count int
	limit int
}

// NewQueue creates a queue retaining at most capacity samples between polls.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{data: make([]T, capacity+1), limit: capacity}
}

// Push appends v at the back. If the one slot of overflow is already used the
// oldest sample is dropped first.
func (q *Queue[T]) Push(v T) {
	if q.count == len(q.data) {
		q.pop()
	}
	q.data[(q.head+q.count)%len(q.data)] = v
	q.count++
}

// Front returns the oldest sample, or the zero value if the queue is empty.
func (q *Queue[T]) Front() T {
	if q.count == 0 {
		var zero T
		return zero
	}
	return q.data[q.head]
}

// Back returns the newest sample, or the zero value if the queue is empty.
func (q *Queue[T]) Back() T {
	if q.count == 0 {
		var zero T
		return zero
	}
	return q.data[(q.head+q.count-1)%len(q.data)]
}

// EvictIfOverCapacity drops the oldest sample when the queue exceeds Cap and
// reports whether it did.
func (q *Queue[T]) EvictIfOverCapacity() bool {
	if q.count <= q.limit {
		return false
	}
	q.pop()
	return true
}

// Len returns the number of queued samples.
func (q *Queue[T]) Len() int { return q.count }

// Cap returns the steady-state capacity.
func (q *Queue[T]) Cap() int { return q.limit }

// Slice returns samples oldest first.
func (q *Queue[T]) Slice() []T {
	if q.count == 0 {
		return nil
	}
	out := make([]T, q.count)
	for i := range q.count {
		out[i] = q.data[(q.head+i)%len(q.data)]
	}
	return out
}

func (q *Queue[T]) pop() {
	var zero T
	q.data[q.head] = zero
	q.head = (q.head + 1) % len(q.data)
	q.count--
}
