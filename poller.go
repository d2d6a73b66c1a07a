package muduo

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller owns the kernel readiness object (epoll) for one EventLoop. It
// is the loop's sole suspension point: Poll blocks in epoll_wait and
// nothing else in the loop sleeps. Strictly one loop, one thread: the
// fd->Channel lookup is a direct ArrayMapUnion, no cross-thread
// synchronization needed on the hot path.
type Poller struct {
	epfd int

	channels *ArrayMapUnion[Channel]
	events   []unix.EpollEvent

	logger *Logger
}

// NewPoller creates the epoll instance. fdArrSize sizes the fast-path
// array of the fd->Channel table; readyNum sizes the epoll_wait batch.
func NewPoller(fdArrSize, readyNum int, logger *Logger) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errWrap("poller: epoll_create1", err)
	}
	return &Poller{
		epfd:     epfd,
		channels: NewArrayMapUnion[Channel](fdArrSize),
		events:   make([]unix.EpollEvent, readyNum),
		logger:   logger,
	}, nil
}

// Update registers ch's interest mask with the kernel, adding it if this
// is the first time this fd has been seen, or modifying the existing
// registration otherwise.
func (p *Poller) Update(ch *Channel) error {
	ev := unix.EpollEvent{Events: ch.Events(), Fd: int32(ch.Fd())}
	op := unix.EPOLL_CTL_MOD
	if p.channels.Load(ch.Fd()) == nil {
		op = unix.EPOLL_CTL_ADD
		p.channels.Store(ch.Fd(), ch)
	}
	if err := unix.EpollCtl(p.epfd, op, ch.Fd(), &ev); err != nil {
		return errWrap("poller: epoll_ctl", err)
	}
	return nil
}

// Remove drops ch's kernel registration and removes it from the fd table.
func (p *Poller) Remove(ch *Channel) error {
	p.channels.Delete(ch.Fd())
	// event argument ignored by the kernel for EPOLL_CTL_DEL since Linux 2.6.9,
	// but older man pages warn some kernels still dereference it.
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, ch.Fd(), &unix.EpollEvent{}); err != nil {
		return errWrap("poller: epoll_ctl del", err)
	}
	return nil
}

// Poll blocks up to timeout (negative means forever) and appends every
// ready Channel to active, stamped with the revents observed. A signal
// interrupting the wait is logged and returns an empty active, not an
// error: EventLoop simply loops back around.
func (p *Poller) Poll(timeout time.Duration, active []*Channel) ([]*Channel, error) {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(p.epfd, p.events, msec)
	if err != nil {
		if err == unix.EINTR {
			p.logger.Warn("poller: epoll_wait interrupted by signal")
			return active, nil
		}
		return active, errWrap("poller: epoll_wait", err)
	}
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		ch := p.channels.Load(int(ev.Fd))
		if ch == nil {
			p.logger.Fatal("poller: ready fd %d has no registered channel", ev.Fd)
			panic("muduo: poller fd/channel invariant violated")
		}
		ch.SetRevents(ev.Events)
		active = append(active, ch)
	}
	return active, nil
}

// Close releases the epoll fd. Call only once, after the loop has stopped.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

func errWrap(prefix string, err error) error {
	return &wrappedError{prefix: prefix, cause: err}
}

type wrappedError struct {
	prefix string
	cause  error
}

func (e *wrappedError) Error() string { return e.prefix + ": " + e.cause.Error() }
func (e *wrappedError) Unwrap() error { return e.cause }
