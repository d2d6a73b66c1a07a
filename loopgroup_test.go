package muduo

import (
	"testing"
	"time"
)

func TestLoopGroupRoundRobin(t *testing.T) {
	opts := setOptions()
	g, err := NewLoopGroup(3, opts, newTestLogger(t), nil)
	if err != nil {
		t.Fatalf("NewLoopGroup: %v", err)
	}
	defer g.Close()

	seen := map[*EventLoop]int{}
	for i := 0; i < 9; i++ {
		seen[g.Next()]++
	}
	if len(seen) != 3 {
		t.Fatalf("round robin visited %d distinct loops, want 3", len(seen))
	}
	for l, n := range seen {
		if n != 3 {
			t.Errorf("loop %p visited %d times, want 3", l, n)
		}
	}
}

func TestLoopGroupRunAndStop(t *testing.T) {
	opts := setOptions()
	g, err := NewLoopGroup(2, opts, newTestLogger(t), nil)
	if err != nil {
		t.Fatalf("NewLoopGroup: %v", err)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- g.Run() }()

	ran := make(chan struct{}, 2)
	for _, l := range g.Loops() {
		l.RunInLoop(func() { ran <- struct{}{} })
	}
	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("a loop in the group never ran its queued task")
		}
	}

	g.Stop()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("group did not stop")
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
