package muduo

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return l
}

func TestPollerReportsReadableSocketpair(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := NewPoller(64, 16, newTestLogger(t))
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	ch := NewChannel(nil, fds[0])
	ch.events = EventReadMask
	if err := p.Update(ch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	active, err := p.Poll(time.Second, nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(active) != 1 || active[0] != ch {
		t.Fatalf("active = %v, want [ch]", active)
	}
	if active[0].revents&EventReadable == 0 {
		t.Fatal("revents missing EventReadable")
	}
}

func TestPollerRemoveStopsReporting(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := NewPoller(64, 16, newTestLogger(t))
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	ch := NewChannel(nil, fds[0])
	ch.events = EventReadMask
	p.Update(ch)
	p.Remove(ch)

	unix.Write(fds[1], []byte("hi"))

	active, err := p.Poll(50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active = %v, want none after Remove", active)
	}
}

func TestPollerTimeoutReturnsEmpty(t *testing.T) {
	p, err := NewPoller(64, 16, newTestLogger(t))
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	active, err := p.Poll(20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active = %v, want none on timeout", active)
	}
}
