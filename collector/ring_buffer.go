package collector

import "sync"

// RingBuffer keeps the most recent entries up to a fixed capacity. It is safe for
// concurrent use.
type RingBuffer[T any] struct {
	mu      sync.RWMutex
	entries []T
	next    int
	written int
}

// NewRingBuffer creates a ring buffer. It panics if capacity is not positive.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		panic("capacity must be greater than 0")
	}
	return &RingBuffer[T]{entries: make([]T, capacity)}
}

// Add appends an entry, overwriting the oldest one when the buffer is full.
func (rb *RingBuffer[T]) Add(entry T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next = (rb.next + 1) % len(rb.entries)
	rb.written++
}

// Last returns up to n of the most recent entries, oldest first.
func (rb *RingBuffer[T]) Last(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := min(n, rb.len())
	if count <= 0 {
		return nil
	}

	result := make([]T, count)
	start := rb.next - count
	if start < 0 {
		start += len(rb.entries)
	}
	for i := range count {
		result[i] = rb.entries[(start+i)%len(rb.entries)]
	}
	return result
}

// All returns every kept entry, oldest first.
func (rb *RingBuffer[T]) All() []T {
	return rb.Last(len(rb.entries))
}

// Len returns the number of kept entries.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.len()
}

// Dropped returns how many entries were overwritten.
func (rb *RingBuffer[T]) Dropped() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.written - rb.len()
}

// Capacity returns the maximum number of kept entries.
func (rb *RingBuffer[T]) Capacity() int {
	return len(rb.entries)
}

func (rb *RingBuffer[T]) len() int {
	return min(rb.written, len(rb.entries))
}
