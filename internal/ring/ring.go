// internal/ring/ring.go
// Package ring provides a fixed-capacity FIFO history buffer that evicts
// its oldest entry on overflow.
package ring

import "errors"

// ErrZeroCapacity indicates a buffer was requested with a non-positive capacity
var ErrZeroCapacity = errors.New("ring buffer capacity must be positive")

// Buffer is a bounded FIFO sample store. Pushing past capacity silently
// discards the oldest entry. The zero value is not usable; construct with New.
// Buffer is not safe for concurrent use; callers synchronize externally.
type Buffer[T any] struct {
	data []T // circular storage, len(data) == capacity
	head int // index of the oldest entry
	size int // number of stored entries, always <= capacity
}

// New creates a buffer holding at most capacity entries.
// Returns ErrZeroCapacity if capacity is not positive.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &Buffer[T]{data: make([]T, capacity)}, nil
}

// Push appends v as the newest entry. When the buffer is already full the
// oldest entry is evicted and returned with wasFull == true; otherwise the
// zero value and false are returned.
func (b *Buffer[T]) Push(v T) (evicted T, wasFull bool) {
	tail := (b.head + b.size) % len(b.data)
	if b.size == len(b.data) {
		evicted = b.data[b.head]
		wasFull = true
		b.data[tail] = v
		b.head = (b.head + 1) % len(b.data)
		return evicted, true
	}
	b.data[tail] = v
	b.size++
	return evicted, false
}

// Len returns the number of stored entries.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Full reports whether Len() == Cap(). Once full, a buffer stays full.
func (b *Buffer[T]) Full() bool {
	return b.size == len(b.data)
}

// Do calls fn for every stored entry, oldest first, without mutating the buffer.
func (b *Buffer[T]) Do(fn func(T)) {
	for i := 0; i < b.size; i++ {
		fn(b.data[(b.head+i)%len(b.data)])
	}
}

// Values returns a fresh slice with all stored entries, oldest first.
func (b *Buffer[T]) Values() []T {
	out := make([]T, b.size)
	split := len(b.data) - b.head
	if b.size <= split {
		copy(out, b.data[b.head:b.head+b.size])
	} else {
		copy(out, b.data[b.head:])
		copy(out[split:], b.data[:b.size-split])
	}
	return out
}

// Resize changes the capacity. Growing preserves all buffered entries;
// shrinking evicts the oldest entries until the new capacity holds.
// Returns ErrZeroCapacity if newCapacity is not positive.
func (b *Buffer[T]) Resize(newCapacity int) error {
	if newCapacity <= 0 {
		return ErrZeroCapacity
	}
	values := b.Values()
	if drop := len(values) - newCapacity; drop > 0 {
		values = values[drop:]
	}
	data := make([]T, newCapacity)
	copy(data, values)
	b.data = data
	b.head = 0
	b.size = len(values)
	return nil
}

// Clone returns a deep copy sharing no storage with the original.
func (b *Buffer[T]) Clone() *Buffer[T] {
	data := make([]T, len(b.data))
	copy(data, b.data)
	return &Buffer[T]{data: data, head: b.head, size: b.size}
}
