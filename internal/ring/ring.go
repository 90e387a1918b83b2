// Package ring implements a fixed-capacity FIFO buffer that silently
// overwrites its oldest entry once full.
package ring

// Buffer is a fixed-capacity, overwrite-on-full FIFO queue.
//
// The backing array is allocated once at the requested capacity and never
// grown or replaced. Elements always live at indices [0, Len()) of that
// array: Dequeue and the implicit drop performed by a full Enqueue shift the
// remaining elements down rather than moving a head pointer through a
// physically wrapping ring. This keeps the buffer representable as a single
// contiguous slice at all times and keeps AsContiguousSlice's underlying
// array address stable for the lifetime of the Buffer, which matters to
// callers that hand the slice's address across a boundary (see the tracer
// package).
type Buffer[T any] struct {
	data   []T
	length int
}

// New returns an empty Buffer with the given capacity.
func New[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{data: make([]T, capacity)}
}

// Enqueue appends item to the back of the buffer. If the buffer is already
// at capacity, the oldest element is dropped first.
func (b *Buffer[T]) Enqueue(item T) {
	capacity := len(b.data)
	if b.length > capacity {
		panic("ring: length exceeded capacity")
	}
	if b.length == capacity {
		copy(b.data[0:capacity-1], b.data[1:capacity])
		b.length--
	}
	b.data[b.length] = item
	b.length++
}

// Dequeue removes and returns the front element, or the zero value and
// false if the buffer is empty.
func (b *Buffer[T]) Dequeue() (T, bool) {
	var zero T
	if b.length == 0 {
		return zero, false
	}
	v := b.data[0]
	copy(b.data[0:b.length-1], b.data[1:b.length])
	b.length--
	b.data[b.length] = zero
	return v, true
}

// Len returns the number of elements currently buffered.
func (b *Buffer[T]) Len() int {
	return b.length
}

// Capacity returns the buffer's fixed capacity.
func (b *Buffer[T]) Capacity() int {
	return len(b.data)
}

// Iterate calls fn for every element from front to back, stopping early if
// fn returns false.
func (b *Buffer[T]) Iterate(fn func(T) bool) {
	for _, v := range b.data[:b.length] {
		if !fn(v) {
			return
		}
	}
}

// AsContiguousSlice returns a view of the buffered elements in FIFO order.
// The returned slice aliases the buffer's backing array; its address is
// stable across subsequent Enqueue/Dequeue calls, but its contents change
// as elements are added or removed.
func (b *Buffer[T]) AsContiguousSlice() []T {
	return b.data[:b.length]
}
