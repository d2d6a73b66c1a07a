package muduo

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/littleblus/my-muduo/netfd"
)

// ConnState is a Connection's place in its state machine. Only the
// owning loop goroutine ever assigns it.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MessageCallback receives the connection and its input buffer; it must
// consume (Peek+Consume, or Read) the bytes it has processed — whatever
// is left in the buffer is still there on the next Message callback.
type MessageCallback func(conn *Connection, in *Buffer)

// ConnectedCallback fires once, on the loop, right after a Connection
// transitions Connecting -> Connected.
type ConnectedCallback func(conn *Connection)

// ClosedCallback fires exactly once, when a Connection reaches Disconnected.
type ClosedCallback func(conn *Connection)

// WriteCompleteCallback fires whenever a Send drains the output buffer
// to empty, a useful hook for a producer doing its own back-pressure.
type WriteCompleteCallback func(conn *Connection)

// AnyEventCallback runs before every other callback on any revent the
// Connection's Channel observes at all, including ones that don't map
// to one of Message/Connected/Closed (e.g. EPOLLPRI).
type AnyEventCallback func(conn *Connection)

// Connection wraps one accepted/connected socket's Channel plus input
// and output Buffers, and drives its Connecting/Connected/Disconnecting/
// Disconnected state machine directly: it owns both buffers and
// installs all five Channel callbacks itself, rather than splitting
// "read ready" and "write ready" handling across separate types.
//
// A Connection does not close its Channel's fd from more than one
// place: Connection.fd is the single owner, closed exactly once from
// the close path, which is also the only place that calls Channel.Remove.
type Connection struct {
	noCopy

	id   uint64
	fd   int
	loop *EventLoop
	ch   *Channel

	state ConnState

	input  *Buffer
	output *Buffer

	localAddr  string
	remoteAddr string

	ctx any

	messageCb       MessageCallback
	connectedCb     ConnectedCallback
	closedCb        ClosedCallback
	writeCompleteCb WriteCompleteCallback
	anyEventCb      AnyEventCallback

	idleTimeoutSec int64
	idleTimerID    uint64

	closeOnce atomic.Int32
}

// idleTimerTag sets the connection-idle-timer namespace apart from
// Connector's pending-connect timeout timers (see connector.go's
// timerID) and from any id an application schedules directly with
// EventLoop.AddTimer, so the three can share one loop's TimeWheel
// without ever colliding on id.
const idleTimerTag = uint64(1) << 62

// NewConnection wraps fd, already accepted or connected, as a
// Connection bound to loop. The caller must call Established once the
// user callbacks are installed; construction alone leaves the
// Connection in StateConnecting with no interest registered.
func NewConnection(id uint64, fd int, loop *EventLoop) *Connection {
	c := &Connection{
		id:         id,
		fd:         fd,
		loop:       loop,
		state:      StateConnecting,
		input:      NewBuffer(),
		output:     NewBuffer(),
		localAddr:  netfd.LocalAddr(fd),
		remoteAddr: netfd.RemoteAddr(fd),
	}
	c.ch = NewChannel(loop, fd)
	c.ch.SetReadCallback(c.handleRead)
	c.ch.SetWriteCallback(c.handleWrite)
	c.ch.SetCloseCallback(c.handleClose)
	c.ch.SetErrorCallback(c.handleSocketError)
	c.ch.SetAnyCallback(c.handleAnyEvent)
	c.idleTimerID = idleTimerTag | id
	return c
}

// SetIdleTimeout arms (or rearms) an auto-close after seconds of
// inactivity, refreshed on every read and write. Must be called before
// Established; 0 leaves idle timeout disabled (the default).
func (c *Connection) SetIdleTimeout(seconds int64) { c.idleTimeoutSec = seconds }

// ID returns the connection's identity, unique among the Connections
// created by the same Acceptor or Connector; each of them numbers its
// Connections from 1 with its own counter.
func (c *Connection) ID() uint64 { return c.id }

// Fd returns the wrapped socket fd.
func (c *Connection) Fd() int { return c.fd }

// State returns the current state. Safe to read from any goroutine;
// it is only ever mutated on the loop.
func (c *Connection) State() ConnState { return c.state }

// LocalAddr returns the local "ip:port" captured at construction.
func (c *Connection) LocalAddr() string { return c.localAddr }

// RemoteAddr returns the peer "ip:port" captured at construction.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Context returns the opaque, user-assigned per-connection slot.
func (c *Connection) Context() any { return c.ctx }

// SetContext assigns the opaque per-connection slot.
func (c *Connection) SetContext(v any) { c.ctx = v }

func (c *Connection) SetMessageCallback(cb MessageCallback)             { c.messageCb = cb }
func (c *Connection) SetConnectedCallback(cb ConnectedCallback)         { c.connectedCb = cb }
func (c *Connection) SetClosedCallback(cb ClosedCallback)               { c.closedCb = cb }
func (c *Connection) SetWriteCompleteCallback(cb WriteCompleteCallback) { c.writeCompleteCb = cb }
func (c *Connection) SetAnyEventCallback(cb AnyEventCallback)           { c.anyEventCb = cb }

func (c *Connection) handleAnyEvent() {
	if c.anyEventCb != nil {
		c.anyEventCb(c)
	}
}

// Established transitions Connecting -> Connected, enables read
// interest, and invokes the Connected callback. Must run on the loop,
// and must run only after the caller has installed whatever callbacks
// it wants via SetConnectedCallback/SetMessageCallback/etc — Acceptor
// and Connector both hand a Connection to the user's factory first and
// call Established only once that returns, so ConnectedCallback is
// guaranteed to see a fully wired Connection.
func (c *Connection) Established() {
	c.state = StateConnected
	c.ch.EnableRead()
	if c.idleTimeoutSec > 0 {
		c.loop.wheel.Add(c.idleTimerID, int(c.idleTimeoutSec), c.onIdleTimeout)
	}
	if m := c.loop.Metrics(); m != nil {
		m.ConnectionOpened()
	}
	if c.connectedCb != nil {
		c.connectedCb(c)
	}
}

// touchIdleTimer refreshes the idle-close deadline after activity; a
// no-op when idle timeout is disabled or the timer already fired.
func (c *Connection) touchIdleTimer() {
	if c.idleTimeoutSec > 0 {
		c.loop.wheel.Refresh(c.idleTimerID)
	}
}

func (c *Connection) onIdleTimeout() {
	c.closeNow()
}

// Send appends b to the output buffer and arms write interest if it was
// off. Thread-safe: a call from a non-owning goroutine is routed
// through RunInLoop, whose ErrLoopClosed return (if the loop has
// already stopped) is passed straight back to the caller.
func (c *Connection) Send(b []byte) error {
	if c.loop.inLoopGoroutine() {
		c.sendInLoop(b)
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return c.loop.RunInLoop(func() { c.sendInLoop(cp) })
}

func (c *Connection) sendInLoop(b []byte) {
	if c.state != StateConnected {
		return
	}
	c.touchIdleTimer()
	wasEmpty := c.output.ReadableSize() == 0
	if wasEmpty {
		// try a direct write first; only buffer what doesn't fit.
		n, err := netfd.Write(c.fd, b)
		if err != nil && err != unix.EAGAIN {
			c.closeWithError(err)
			return
		}
		if m := c.loop.Metrics(); m != nil && n > 0 {
			m.AddBytesWritten(uint64(n))
		}
		if n == len(b) {
			if c.writeCompleteCb != nil {
				c.writeCompleteCb(c)
			}
			return
		}
		b = b[n:]
	}
	c.output.Write(b)
	if !c.ch.IsWritable() {
		c.ch.EnableWrite()
	}
}

// Shutdown sets Disconnecting; if the output buffer is already empty
// the connection closes immediately, otherwise close happens once the
// write-callback drains it.
func (c *Connection) Shutdown() {
	c.loop.RunInLoop(func() {
		if c.state != StateConnected {
			return
		}
		c.state = StateDisconnecting
		if c.output.ReadableSize() == 0 {
			c.closeNow()
		}
	})
}

// handleRead drains the socket into the input buffer until EAGAIN,
// invoking the Message callback after any read that delivered bytes. A
// zero-length read means the peer closed its write side and moves the
// connection to Disconnecting.
func (c *Connection) handleRead() {
	scratch := BMalloc(65536)
	defer BFree(scratch)

	m := c.loop.Metrics()
	gotData := false
	for {
		n, err := netfd.Read(c.fd, scratch)
		if n > 0 {
			c.input.Write(scratch[:n])
			gotData = true
			if m != nil {
				m.AddBytesRead(uint64(n))
			}
			if n < len(scratch) {
				break // short read: drained the socket for now
			}
			continue
		}
		if n == 0 {
			c.state = StateDisconnecting
			break
		}
		if err == unix.EAGAIN {
			break
		}
		c.closeWithError(err)
		return
	}
	if gotData {
		c.touchIdleTimer()
		if c.messageCb != nil {
			c.messageCb(c, c.input)
		}
	}
	if c.state == StateDisconnecting {
		c.closeNow()
	}
}

// handleWrite flushes as much of the output buffer as the socket
// accepts; a partial write leaves the remainder queued. Once drained,
// write interest turns off and, if the connection was shutting down,
// the close path runs.
func (c *Connection) handleWrite() {
	if !c.ch.IsWritable() {
		return
	}
	n, err := netfd.Write(c.fd, c.output.Peek())
	if err != nil && err != unix.EAGAIN {
		c.closeWithError(err)
		return
	}
	if m := c.loop.Metrics(); m != nil && n > 0 {
		m.AddBytesWritten(uint64(n))
	}
	c.output.Consume(n)
	if c.output.ReadableSize() == 0 {
		c.ch.DisableWrite()
		if c.writeCompleteCb != nil {
			c.writeCompleteCb(c)
		}
		if c.state == StateDisconnecting {
			c.closeNow()
		}
	}
}

// handleClose runs on hangup; handleSocketError runs on an EPOLLERR
// revent, reading SO_ERROR to learn what happened before closing. Both
// funnel into the same close path: neither means anything different
// once the connection is going away.
func (c *Connection) handleClose() { c.closeNow() }

func (c *Connection) handleSocketError() {
	c.closeWithError(netfd.SOError(c.fd))
}

// closeWithError records err (if any) to the loop's Metrics before
// running the usual close path, so a real socket error leaves a trace
// even though the Closed callback itself carries no error value.
func (c *Connection) closeWithError(err error) {
	if err != nil {
		if m := c.loop.Metrics(); m != nil {
			m.RecordError(err.Error())
		}
	}
	c.closeNow()
}

// closeNow disables all interest, unregisters the Channel, marks the
// connection Disconnected, runs the user's Closed callback, and then
// closes the fd. Safe to call more than once; only the first call does
// anything.
func (c *Connection) closeNow() {
	if !c.closeOnce.CompareAndSwap(0, 1) {
		return
	}
	if c.idleTimeoutSec > 0 {
		c.loop.wheel.Cancel(c.idleTimerID)
	}
	c.ch.DisableAll()
	c.ch.Remove()
	c.state = StateDisconnected
	if m := c.loop.Metrics(); m != nil {
		m.ConnectionClosed()
	}
	if c.closedCb != nil {
		c.closedCb(c)
	}
	netfd.Close(c.fd)
	c.input.Release()
	c.output.Release()
}
