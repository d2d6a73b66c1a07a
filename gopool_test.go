package muduo

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoPoolRunsAllTasks(t *testing.T) {
	p := NewGoPool(4, 2, 8)
	var n atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Go(func() {
			defer wg.Done()
			n.Add(1)
		})
	}
	wg.Wait()

	if n.Load() != 20 {
		t.Fatalf("ran %d tasks, want 20", n.Load())
	}
}

func TestGoPoolBoundsConcurrency(t *testing.T) {
	const sizeM = 3
	p := NewGoPool(sizeM, 1, sizeM)

	var cur, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < sizeM*4; i++ {
		wg.Add(1)
		p.Go(func() {
			defer wg.Done()
			c := cur.Add(1)
			for {
				m := maxSeen.Load()
				if c <= m || maxSeen.CompareAndSwap(m, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		})
	}
	wg.Wait()

	if maxSeen.Load() > int32(sizeM) {
		t.Fatalf("observed concurrency %d exceeds pool size %d", maxSeen.Load(), sizeM)
	}
}

func TestGoPoolDeadQueuePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for preSpawn<=0 with queueN>0")
		}
	}()
	NewGoPool(4, 0, 8)
}
