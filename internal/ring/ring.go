// Package ring provides the bounded in-memory FIFOs between the ingest
// handlers and the egress batchers. Producers never block: a push that
// cannot take the lock immediately, or that finds the ring full, drops the
// record.
package ring

import "sync"

// Ring is a mutex-guarded bounded FIFO. One batcher drains it; any number
// of request handlers produce into it.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// New returns a ring holding at most capacity records. A capacity below one
// is raised to one so the ring stays usable with tiny size budgets.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Capacity returns the fixed record limit.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// TryPush appends the record if the lock is free and space remains. Returns
// false when the record was dropped.
func (r *Ring[T]) TryPush(item T) bool {
	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()
	if len(r.items) >= r.capacity {
		return false
	}
	r.items = append(r.items, item)
	return true
}

// Drain removes and returns up to max records in FIFO order. Returns nil
// when the ring is empty.
func (r *Ring[T]) Drain(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 || max < 1 {
		return nil
	}
	n := max
	if n > len(r.items) {
		n = len(r.items)
	}
	batch := make([]T, n)
	copy(batch, r.items[:n])
	r.items = append(r.items[:0], r.items[n:]...)
	return batch
}

// Len reports the number of queued records.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
