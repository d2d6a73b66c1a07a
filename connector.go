package muduo

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ConnectFailFunc reports a Connect that never reached Connected,
// either because the handshake failed or because timeoutSeconds elapsed
// first.
type ConnectFailFunc func(err error)

// Connector actively dials a remote address with a non-blocking
// connect(2) and hands the result back on loop: socket -> connect
// (expect EINPROGRESS) -> watch writable -> check SO_ERROR ->
// Established, or a failure/timeout callback.
type Connector struct {
	noCopy

	loop   *EventLoop
	logger *Logger
	nextID uint64
}

// NewConnector returns a Connector that dials on behalf of loop.
func NewConnector(loop *EventLoop, logger *Logger) (*Connector, error) {
	if loop == nil {
		return nil, ErrInvalidParam
	}
	return &Connector{loop: loop, logger: logger}, nil
}

// Connect dials addr ("host:port"). On success onConnected receives the
// new Connection while it is still StateConnecting, and Established
// runs once onConnected returns; on failure or timeout onFail receives
// the reason. timeoutSeconds must be in [1, W) per the time wheel's
// range, or 0 to disable the timeout; a negative value is rejected.
func (c *Connector) Connect(addr string, timeoutSeconds int, onConnected NewConnectionFunc, onFail ConnectFailFunc) error {
	if timeoutSeconds < 0 {
		return ErrInvalidParam
	}
	sa, err := parseSockaddr(addr)
	if err != nil {
		return err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return errWrap("connector: socket", err)
	}

	c.nextID++
	connID := c.nextID
	timerID := uint64(1)<<63 | connID // disjoint namespace from Connection ids sharing the same counter source

	p := &pendingConnect{
		fd:      fd,
		loop:    c.loop,
		logger:  c.logger,
		id:      connID,
		timerID: timerID,
		onOK:    onConnected,
		onFail:  onFail,
	}

	err = unix.Connect(fd, sa)
	if err == nil {
		// rare: loopback connect completing synchronously.
		p.finishOK()
		return nil
	}
	if err != unix.EINPROGRESS {
		unix.Close(fd)
		return errWrap("connector: connect", err)
	}

	p.ch = NewChannel(c.loop, fd)
	p.ch.SetWriteCallback(p.onWritable)
	p.ch.SetErrorCallback(p.onFailed)
	p.ch.EnableWrite()

	if timeoutSeconds > 0 {
		c.loop.AddTimer(timerID, timeoutSeconds, p.onTimeout)
	}
	return nil
}

// pendingConnect tracks one in-flight non-blocking connect until it
// resolves to either a Connection or a failure.
type pendingConnect struct {
	fd      int
	loop    *EventLoop
	logger  *Logger
	ch      *Channel
	id      uint64
	timerID uint64
	done    bool

	onOK   NewConnectionFunc
	onFail ConnectFailFunc
}

func (p *pendingConnect) onWritable() {
	if p.done {
		return
	}
	errno, err := unix.GetsockoptInt(p.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		p.fail(err)
		return
	}
	if errno != 0 {
		p.fail(errors.New("connector: " + unix.Errno(errno).Error()))
		return
	}
	p.finishOK()
}

func (p *pendingConnect) onFailed() {
	if p.done {
		return
	}
	errno, _ := unix.GetsockoptInt(p.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	p.fail(errors.New("connector: " + unix.Errno(errno).Error()))
}

func (p *pendingConnect) onTimeout() {
	if p.done {
		return
	}
	p.fail(errors.New("connector: connect timed out"))
}

func (p *pendingConnect) finishOK() {
	p.done = true
	p.loop.CancelTimer(p.timerID)
	if p.ch != nil {
		p.ch.DisableAll()
		p.ch.Remove()
	}
	conn := NewConnection(p.id, p.fd, p.loop)
	if p.onOK != nil {
		p.onOK(conn)
	}
	conn.Established()
}

func (p *pendingConnect) fail(err error) {
	p.done = true
	p.loop.CancelTimer(p.timerID)
	if p.ch != nil {
		p.ch.DisableAll()
		p.ch.Remove()
	}
	unix.Close(p.fd)
	if m := p.loop.Metrics(); m != nil {
		m.RecordError(err.Error())
	}
	if p.onFail != nil {
		p.onFail(err)
	}
}
