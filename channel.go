package muduo

import (
	"golang.org/x/sys/unix"
)

// noCopy lets `go vet` flag accidental copies of structs that embed it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Interest/revent bits. Values line up with the epoll constants so a
// Channel's mask can be handed straight to EpollCtl/EpollWait.
const (
	EventReadable  uint32 = unix.EPOLLIN
	EventWritable  uint32 = unix.EPOLLOUT
	EventPriority  uint32 = unix.EPOLLPRI
	EventPeerClose uint32 = unix.EPOLLRDHUP
	EventError     uint32 = unix.EPOLLERR
	EventHangup    uint32 = unix.EPOLLHUP

	// EventReadMask is what enableRead sets: readable, peer-closed, priority.
	EventReadMask = EventReadable | EventPeerClose | EventPriority
)

// ReadCallback handles a readable/priority/peer-closed revent.
type ReadCallback func()

// WriteCallback handles a writable revent.
type WriteCallback func()

// CloseCallback handles a hangup revent.
type CloseCallback func()

// ErrorCallback handles an error revent.
type ErrorCallback func()

// AnyCallback runs before every other callback on any revent at all.
type AnyCallback func()

// Channel binds one fd to one EventLoop for the fd's lifetime. It carries
// the interest mask the loop asks the kernel to watch, the revents mask
// observed at the last poll, and up to five callbacks dispatched by
// HandleEvent in a fixed order (see HandleEvent).
//
// A Channel does not own fd: whichever component created it (Connection,
// Acceptor, Connector, or the EventLoop for its self-wake eventfd and
// timerfd) is responsible for closing it. Closing a fd from exactly one place avoids a double-close
// racing against a second user of the same descriptor number.
type Channel struct {
	noCopy

	loop *EventLoop
	fd   int

	events  uint32 // interest mask
	revents uint32 // last observed events

	readCb  ReadCallback
	writeCb WriteCallback
	closeCb CloseCallback
	errorCb ErrorCallback
	anyCb   AnyCallback

	addedToLoop   bool
	handling      bool // true while HandleEvent is dispatching
	pendingRemove bool // Remove() was called while handling; apply it once dispatch returns
}

// NewChannel constructs a Channel for fd on loop. The Channel starts with
// an empty interest mask; call EnableRead/EnableWrite before Update.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd}
}

// Fd returns the bound file descriptor.
func (c *Channel) Fd() int { return c.fd }

// Events returns the current interest mask.
func (c *Channel) Events() uint32 { return c.events }

// SetRevents stamps the events observed by the last poll; called only by Poller.
func (c *Channel) SetRevents(revents uint32) { c.revents = revents }

// SetReadCallback installs the read-ready handler.
func (c *Channel) SetReadCallback(cb ReadCallback) { c.readCb = cb }

// SetWriteCallback installs the write-ready handler.
func (c *Channel) SetWriteCallback(cb WriteCallback) { c.writeCb = cb }

// SetCloseCallback installs the hangup handler.
func (c *Channel) SetCloseCallback(cb CloseCallback) { c.closeCb = cb }

// SetErrorCallback installs the error handler.
func (c *Channel) SetErrorCallback(cb ErrorCallback) { c.errorCb = cb }

// SetAnyCallback installs the hook that runs before every typed callback.
func (c *Channel) SetAnyCallback(cb AnyCallback) { c.anyCb = cb }

// IsReadable reports whether the read interest bits are set.
func (c *Channel) IsReadable() bool { return c.events&EventReadMask != 0 }

// IsWritable reports whether the write interest bit is set.
func (c *Channel) IsWritable() bool { return c.events&EventWritable != 0 }

// EnableRead turns on read interest and re-registers with the loop.
func (c *Channel) EnableRead() {
	c.events |= EventReadMask
	c.update()
}

// DisableRead turns off read interest and re-registers with the loop.
func (c *Channel) DisableRead() {
	c.events &^= EventReadMask
	c.update()
}

// EnableWrite turns on write interest and re-registers with the loop.
func (c *Channel) EnableWrite() {
	c.events |= EventWritable
	c.update()
}

// DisableWrite turns off write interest and re-registers with the loop.
func (c *Channel) DisableWrite() {
	c.events &^= EventWritable
	c.update()
}

// DisableAll clears every interest bit and re-registers with the loop.
func (c *Channel) DisableAll() {
	c.events = 0
	c.update()
}

func (c *Channel) update() {
	c.addedToLoop = true
	if c.loop != nil {
		c.loop.updateChannel(c)
	}
}

// Remove drops the Channel from its loop's Poller. Calling it from
// inside the Channel's own HandleEvent (the common case: a close
// callback tearing itself down mid-dispatch) is safe — the removal is
// deferred until HandleEvent returns, rather than mutating the Poller's
// fd table out from under the dispatch loop currently iterating it.
func (c *Channel) Remove() {
	if c.handling {
		c.pendingRemove = true
		return
	}
	c.removeNow()
}

func (c *Channel) removeNow() {
	if c.loop != nil {
		c.loop.removeChannel(c)
	}
	c.addedToLoop = false
}

// HandleEvent runs the callbacks matching revents in a fixed order:
// any-event hook first, then read if {readable, priority, peer-closed}
// is set, then at most one of {error, writable, hangup} in that
// priority. This guarantees a connection that observes both
// "peer closed" and "new data" reads the final bytes before closing, and
// that hangup is reported exactly once.
func (c *Channel) HandleEvent() {
	c.handling = true
	defer func() {
		c.handling = false
		if c.pendingRemove {
			c.pendingRemove = false
			c.removeNow()
		}
	}()

	if c.anyCb != nil {
		c.anyCb()
	}
	if c.revents&(EventReadable|EventPriority|EventPeerClose) != 0 && c.readCb != nil {
		c.readCb()
	}
	switch {
	case c.revents&EventError != 0 && c.errorCb != nil:
		c.errorCb()
	case c.revents&EventWritable != 0 && c.writeCb != nil:
		c.writeCb()
	case c.revents&EventHangup != 0 && c.closeCb != nil:
		c.closeCb()
	}
}
