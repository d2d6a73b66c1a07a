package muduo

import "testing"

func TestRingBufferPushPopOrder(t *testing.T) {
	rb := NewRingBuffer[int](4)
	for i := 0; i < 4; i++ {
		rb.PushBack(i)
	}
	if !rb.IsFull() {
		t.Fatal("expected full after filling to cap")
	}
	for i := 0; i < 4; i++ {
		v, ok := rb.PopFront()
		if !ok || v != i {
			t.Fatalf("PopFront() = %d, %v; want %d, true", v, ok, i)
		}
	}
	if !rb.IsEmpty() {
		t.Fatal("expected empty after draining every pushed item")
	}
}

func TestRingBufferGrowsPastInitialCapacity(t *testing.T) {
	rb := NewRingBuffer[int](2)
	for i := 0; i < 10; i++ {
		rb.PushBack(i)
	}
	if rb.Len() != 10 {
		t.Fatalf("len = %d, want 10", rb.Len())
	}
	for i := 0; i < 10; i++ {
		v, ok := rb.PopFront()
		if !ok || v != i {
			t.Fatalf("PopFront() = %d, %v; want %d, true", v, ok, i)
		}
	}
}

func TestRingBufferPopFrontOnEmptyReportsFalse(t *testing.T) {
	rb := NewRingBuffer[string](2)
	if _, ok := rb.PopFront(); ok {
		t.Fatal("PopFront on empty ring must report ok=false")
	}
}

func TestRingBufferPushFrontReversesOrder(t *testing.T) {
	rb := NewRingBuffer[int](4)
	rb.PushFront(1)
	rb.PushFront(2)
	rb.PushFront(3)
	// pushed 1, 2, 3 to the front in that order: front-most is 3.
	want := []int{3, 2, 1}
	for _, w := range want {
		v, ok := rb.PopFront()
		if !ok || v != w {
			t.Fatalf("PopFront() = %d, %v; want %d, true", v, ok, w)
		}
	}
}

func TestRingBufferGrowPreservesOrderAcrossWrap(t *testing.T) {
	rb := NewRingBuffer[int](4)
	rb.PushBack(1)
	rb.PushBack(2)
	rb.PopFront()
	rb.PopFront()
	// head/tail now both sit mid-array; force a wrap before growing.
	rb.PushBack(3)
	rb.PushBack(4)
	rb.PushBack(5)
	rb.PushBack(6)
	rb.PushBack(7) // triggers grow while head > 0

	want := []int{3, 4, 5, 6, 7}
	for _, w := range want {
		v, ok := rb.PopFront()
		if !ok || v != w {
			t.Fatalf("PopFront() = %d, %v; want %d, true", v, ok, w)
		}
	}
}
