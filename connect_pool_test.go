package muduo

import (
	"testing"
	"time"
)

func TestConnectPoolKeepsMinIdleAlive(t *testing.T) {
	opts := setOptions()
	logger := newTestLogger(t)

	loop, err := NewEventLoop(opts, logger, nil)
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	done := runLoopAsync(t, loop)
	defer func() {
		loop.Stop()
		<-done
		loop.Close()
	}()

	addr := "127.0.0.1:18095"
	var acceptedCount int
	acceptedCh := make(chan struct{}, 8)
	loop.RunInLoop(func() {
		_, err := NewAcceptor(loop, addr, opts, logger, func(c *Connection) {
			acceptedCount++
			acceptedCh <- struct{}{}
		})
		if err != nil {
			t.Errorf("NewAcceptor: %v", err)
		}
	})

	connector, _ := NewConnector(loop, logger)
	cp := NewConnectPool(loop, connector, addr, 2, 2, 4, 1, 20*time.Millisecond, nil)

	deadline := time.After(2 * time.Second)
	for acceptedCount < 2 {
		select {
		case <-acceptedCh:
		case <-deadline:
			t.Fatalf("pool only reached %d accepted connections, want >= 2", acceptedCount)
		}
	}

	if idle := cp.IdleNum(); idle < 1 {
		t.Fatalf("IdleNum = %d, want at least 1 once min-idle is met", idle)
	}
}

func TestConnectPoolPanicsOnInvalidParams(t *testing.T) {
	opts := setOptions()
	logger := newTestLogger(t)
	loop, err := NewEventLoop(opts, logger, nil)
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	defer loop.Close()
	connector, _ := NewConnector(loop, logger)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for minIdleNum >= maxLiveNum")
		}
	}()
	NewConnectPool(loop, connector, "127.0.0.1:1", 4, 1, 4, 1, time.Second, nil)
}
