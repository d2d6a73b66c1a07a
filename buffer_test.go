package muduo

import (
	"bytes"
	"testing"
)

func TestBufferWriteRead(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	n := b.Write([]byte("hello"))
	if n != 5 {
		t.Fatalf("write returned %d, want 5", n)
	}
	if b.ReadableSize() != 5 {
		t.Fatalf("readable = %d, want 5", b.ReadableSize())
	}

	dst := make([]byte, 5)
	if got := b.Read(dst, 5); got != 5 {
		t.Fatalf("read returned %d, want 5", got)
	}
	if string(dst) != "hello" {
		t.Fatalf("read %q, want %q", dst, "hello")
	}
	if b.ReadableSize() != 0 {
		t.Fatalf("readable = %d after full read, want 0", b.ReadableSize())
	}
}

func TestBufferConsumeOverrunIsNoOp(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	b.Write([]byte("ab"))
	b.Consume(100)
	if b.ReadableSize() != 2 {
		t.Fatalf("overrun Consume must be a no-op, readable = %d, want 2", b.ReadableSize())
	}
}

func TestBufferReadOverrunReturnsZero(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	b.Write([]byte("ab"))
	dst := make([]byte, 10)
	if got := b.Read(dst, 10); got != 0 {
		t.Fatalf("overrun Read must return 0, got %d", got)
	}
	if b.ReadableSize() != 2 {
		t.Fatalf("overrun Read must not consume, readable = %d, want 2", b.ReadableSize())
	}
}

func TestBufferPeekDoesNotAdvance(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	b.Write([]byte("xyz"))
	if !bytes.Equal(b.Peek(), []byte("xyz")) {
		t.Fatalf("peek = %q, want %q", b.Peek(), "xyz")
	}
	if b.ReadableSize() != 3 {
		t.Fatalf("peek must not consume, readable = %d, want 3", b.ReadableSize())
	}
}

func TestBufferReadLine(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	b.WriteString("GET / HTTP/1.1\r\n")
	line := b.ReadLine(true)
	if string(line) != "GET / HTTP/1.1\r\n" {
		t.Fatalf("line = %q", line)
	}
	if b.ReadableSize() != 0 {
		t.Fatalf("readable = %d after consuming line, want 0", b.ReadableSize())
	}

	b.WriteString("partial")
	if line := b.ReadLine(true); line != nil {
		t.Fatalf("ReadLine on no-newline buffer = %q, want nil", line)
	}
}

func TestBufferGrowBeyondInitialCap(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	big := bytes.Repeat([]byte("z"), initialBufferCap*3)
	b.Write(big)
	if b.ReadableSize() != len(big) {
		t.Fatalf("readable = %d, want %d", b.ReadableSize(), len(big))
	}
	if !bytes.Equal(b.Peek(), big) {
		t.Fatal("grown buffer contents mismatch")
	}
}

func TestBufferCompactReclaimsFrontSpace(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	// Fill, drain most of it, then write again: should compact rather
	// than grow as long as front+back space covers the new write.
	b.Write(bytes.Repeat([]byte("a"), initialBufferCap-10))
	b.Consume(initialBufferCap - 20)
	capBefore := cap(b.buf)

	b.Write(bytes.Repeat([]byte("b"), 50))
	if cap(b.buf) != capBefore {
		t.Fatalf("cap grew from %d to %d, expected compaction to avoid growth", capBefore, cap(b.buf))
	}
}

func TestBufferClearResetsCursorsNotCapacity(t *testing.T) {
	b := NewBuffer()
	defer b.Release()

	b.Write([]byte("hello"))
	capBefore := cap(b.buf)
	b.Clear()
	if b.ReadableSize() != 0 || b.WritableSize() != capBefore {
		t.Fatalf("Clear left readable=%d writable=%d, want 0/%d", b.ReadableSize(), b.WritableSize(), capBefore)
	}
}

func TestBufferWriteBufferCopiesWithoutConsumingSource(t *testing.T) {
	src := NewBuffer()
	defer src.Release()
	dst := NewBuffer()
	defer dst.Release()

	src.WriteString("payload")
	dst.WriteBuffer(src)

	if !bytes.Equal(dst.Peek(), []byte("payload")) {
		t.Fatalf("dst = %q, want %q", dst.Peek(), "payload")
	}
	if src.ReadableSize() != len("payload") {
		t.Fatal("WriteBuffer must not consume the source")
	}
}
