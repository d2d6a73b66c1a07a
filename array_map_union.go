package muduo

import (
	"sync"
	"sync/atomic"
)

// ArrayMapUnion is a thread-safe index -> *T table. Indexes below arrSize
// hit a flat array of atomic pointers; indexes at or above it fall back
// to a sync.Map. fds from accept/connect start low and grow unbounded,
// so this keeps the hot low range allocation-free while still handling
// the rare high fd.
//
// Storing nil needs care: a Load miss against the map also returns nil,
// so "absent" and "stored nil" are indistinguishable.
type ArrayMapUnion[T any] struct {
	arrSize int
	arr     []*atomic.Pointer[T]

	sMap sync.Map
}

// NewArrayMapUnion returns a table whose fast-path array covers [0, arrSize).
func NewArrayMapUnion[T any](arrSize int) *ArrayMapUnion[T] {
	if arrSize < 1 {
		panic("NewArrayMapUnion arrSize < 1")
	}
	amu := &ArrayMapUnion[T]{
		arrSize: arrSize,
		arr:     make([]*atomic.Pointer[T], arrSize),
	}
	for i := 0; i < arrSize; i++ {
		amu.arr[i] = new(atomic.Pointer[T])
	}
	return amu
}

func (am *ArrayMapUnion[T]) Load(i int) *T {
	if i < am.arrSize {
		return am.arr[i].Load()
	}
	if v, ok := am.sMap.Load(i); ok {
		return v.(*T)
	}
	return nil
}

func (am *ArrayMapUnion[T]) Store(i int, v *T) {
	if i < am.arrSize {
		am.arr[i].Store(v)
		return
	}
	am.sMap.Store(i, v)
}

func (am *ArrayMapUnion[T]) Delete(i int) {
	if i < am.arrSize {
		am.arr[i].Store(nil)
		return
	}
	am.sMap.Delete(i)
}
