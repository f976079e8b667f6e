// Package ring implements a lock-free, interrupt-safe single-producer
// single-consumer ring buffer.
package ring

import "sync/atomic"

// Buffer is a fixed-capacity SPSC queue of T. Capacity must be a power
// of two; NewBuffer panics otherwise. The producer (main context) calls
// Writable/Push; the consumer (ISR context) calls Readable/Peek/Pop. No
// other access pattern is safe.
//
// head and tail count pushes/pops monotonically rather than wrapping at
// capacity, so full (head-tail == capacity) and empty (head-tail == 0)
// stay distinguishable without reserving a slot — every declared slot
// is usable. Indexing into data masks separately. The counters
// themselves wrap at 2^32, not at capacity; for this to disambiguate
// full from empty exactly as spec.md §4.3's "modulo 2*S" describes,
// capacity must stay far below 2^32, which every caller in this core
// does.
type Buffer[T any] struct {
	data     []T
	mask     uint32
	capacity uint32
	head     atomic.Uint32 // total pushes so far, producer-owned
	tail     atomic.Uint32 // total pops so far, consumer-owned
}

// NewBuffer allocates a ring buffer with the given power-of-two capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	return &Buffer[T]{
		data:     make([]T, capacity),
		mask:     uint32(capacity - 1),
		capacity: uint32(capacity),
	}
}

// Len returns a snapshot of the occupied slot count. Not atomic with
// respect to concurrent head/tail updates; for diagnostics only.
func (b *Buffer[T]) Len() int {
	return int(b.head.Load() - b.tail.Load())
}

// Writable reports whether Push can currently succeed. Call only from
// the producer.
func (b *Buffer[T]) Writable() bool {
	return b.head.Load()-b.tail.Load() < b.capacity
}

// Push stores item and publishes it to the consumer. Must only be
// called when Writable() is true. The element is written before head
// is advanced, so the consumer never observes a partially written slot.
func (b *Buffer[T]) Push(item T) {
	head := b.head.Load()
	b.data[head&b.mask] = item
	b.head.Store(head + 1)
}

// Readable reports whether Peek/Pop can currently proceed. Call only
// from the consumer.
func (b *Buffer[T]) Readable() bool {
	return b.head.Load() != b.tail.Load()
}

// Peek returns the next element without removing it. Must only be
// called when Readable() is true.
func (b *Buffer[T]) Peek() T {
	tail := b.tail.Load()
	return b.data[tail&b.mask]
}

// Pop discards the element returned by the most recent Peek, making one
// more slot writable for the producer. Must only be called when
// Readable() is true.
func (b *Buffer[T]) Pop() {
	b.tail.Store(b.tail.Load() + 1)
}
