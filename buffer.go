package muduo

import "bytes"

// initialBufferCap is the backing-array size a freshly constructed Buffer
// starts with before any write forces a grow or compact.
const initialBufferCap = 1024

// Buffer is a growable byte queue with independent read/write cursors,
// r <= w <= cap(buf). Reads advance r, writes advance w; the region
// [0, r) is dead space reclaimed by compaction rather than by shrinking
// the backing array.
//
// Buffer is not safe for concurrent use; callers on an EventLoop already
// get single-thread access for free, and cross-thread senders must go
// through RunInLoop.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// NewBuffer returns an empty Buffer backed by a pool-allocated slice.
func NewBuffer() *Buffer {
	return &Buffer{buf: fullCap(BMalloc(initialBufferCap))}
}

// fullCap reslices bf to its full capacity. BMalloc hands back a slice
// whose len is the requested size but whose cap may be larger (the size
// class it was rounded up to); Buffer always addresses storage by cap,
// tracking live data with r/w, so every pool-allocated slice is widened
// to cap before use.
func fullCap(bf []byte) []byte {
	return bf[:cap(bf)]
}

// ReadableSize returns w - r, the number of unread bytes.
func (b *Buffer) ReadableSize() int { return b.w - b.r }

// WritableSize returns the free space at the back of the backing array,
// cap(buf) - w, ignoring any reclaimable dead space at the front.
func (b *Buffer) WritableSize() int { return cap(b.buf) - b.w }

// Peek returns the readable region without advancing r. The returned
// slice aliases the Buffer's backing array and is invalidated by the
// next Write/Consume/Clear.
func (b *Buffer) Peek() []byte { return b.buf[b.r:b.w] }

// Consume advances r by n. Consuming more than ReadableSize is a no-op
// per spec: callers are expected to size-check first.
func (b *Buffer) Consume(n int) {
	if n <= 0 || n > b.ReadableSize() {
		return
	}
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
}

// Read copies up to n readable bytes into dst and consumes them,
// returning the number of bytes copied. Requesting more than
// ReadableSize copies nothing and returns 0, matching Peek/Consume's
// no-op-on-overrun contract.
func (b *Buffer) Read(dst []byte, n int) int {
	if n <= 0 || n > b.ReadableSize() {
		return 0
	}
	copy(dst, b.buf[b.r:b.r+n])
	b.Consume(n)
	return n
}

// ReadLine returns the bytes up to and including the first '\n' in the
// readable region, or nil if there is none. When consume is true the
// returned bytes are also consumed.
func (b *Buffer) ReadLine(consume bool) []byte {
	readable := b.buf[b.r:b.w]
	idx := bytes.IndexByte(readable, '\n')
	if idx < 0 {
		return nil
	}
	line := readable[:idx+1]
	if consume {
		b.Consume(idx + 1)
	}
	return line
}

// Write appends src, growing or compacting the backing array as needed,
// and returns len(src).
func (b *Buffer) Write(src []byte) int {
	n := len(src)
	if n == 0 {
		return 0
	}
	b.ensureWritable(n)
	copy(b.buf[b.w:], src)
	b.w += n
	return n
}

// WriteString appends s; a convenience wrapper over Write.
func (b *Buffer) WriteString(s string) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	b.ensureWritable(n)
	copy(b.buf[b.w:], s)
	b.w += n
	return n
}

// WriteBuffer appends the entirety of src's readable region without
// consuming it from src.
func (b *Buffer) WriteBuffer(src *Buffer) int {
	return b.Write(src.Peek())
}

// ensureWritable guarantees at least n bytes of writable space at b.w,
// compacting (sliding the readable region to offset 0) when the combined
// front+back free space already covers n, and growing only when it does
// not. Bursty reads leave front space free on the steady path, so most
// writes pay a memmove instead of an allocation.
func (b *Buffer) ensureWritable(n int) {
	if b.WritableSize() >= n {
		return
	}
	readable := b.ReadableSize()
	if b.r+b.WritableSize() >= n {
		copy(b.buf, b.buf[b.r:b.w])
		b.r, b.w = 0, readable
		return
	}
	newCap := cap(b.buf) * 2
	if newCap < initialBufferCap {
		newCap = initialBufferCap
	}
	for newCap < readable+n {
		newCap *= 2
	}
	nb := fullCap(BMalloc(newCap))
	copy(nb, b.buf[b.r:b.w])
	if b.buf != nil {
		BFree(b.buf)
	}
	b.buf = nb
	b.r, b.w = 0, readable
}

// Clear resets both cursors to 0 without shrinking capacity.
func (b *Buffer) Clear() {
	b.r, b.w = 0, 0
}

// Release returns the backing array to the pool and leaves the Buffer
// empty with no backing storage; the next Write reallocates via BMalloc.
func (b *Buffer) Release() {
	if b.buf != nil {
		BFree(b.buf)
	}
	b.buf = nil
	b.r, b.w = 0, 0
}
