package muduo

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/littleblus/my-muduo/netfd"
)

// NewConnectionFunc hands a freshly accepted or dialed Connection to
// the caller while it is still StateConnecting, before read interest is
// armed and before ConnectedCallback can fire. Install whatever
// callbacks the Connection needs here (SetMessageCallback,
// SetConnectedCallback, SetClosedCallback, ...) — Established runs
// immediately after this function returns.
type NewConnectionFunc func(conn *Connection)

// Acceptor owns a listening socket's Channel and hands every accepted
// fd to loop as a new Connection: socket/SO_REUSEADDR/SO_RCVBUF/bind/
// listen, then an accept4 loop on readability that builds and
// establishes a Connection per accepted fd.
type Acceptor struct {
	noCopy

	fd     int
	loop   *EventLoop
	ch     *Channel
	logger *Logger

	acceptBatch     int
	idleConnTimeout int64
	nextID          uint64

	newConn NewConnectionFunc
}

// NewAcceptor binds and listens on addr ("host:port" or ":port") on
// loop, per opts. onNewConn is called for every accepted Connection.
func NewAcceptor(loop *EventLoop, addr string, opts *Options, logger *Logger, onNewConn NewConnectionFunc) (*Acceptor, error) {
	if loop == nil {
		return nil, ErrInvalidParam
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errWrap("acceptor: socket", err)
	}
	if opts.reuseAddr {
		if err := netfd.SetReuseAddr(fd, true); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	if opts.reusePort {
		if err := netfd.SetReusePort(fd, true); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	if opts.recvBuffSize > 0 {
		if err := netfd.SetRecvBuffSize(fd, opts.recvBuffSize); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	sa, err := parseSockaddr(addr)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errWrap("acceptor: bind", err)
	}
	if err := unix.Listen(fd, opts.listenBacklog); err != nil {
		unix.Close(fd)
		return nil, errWrap("acceptor: listen", err)
	}

	batch := opts.listenBacklog / 2
	if batch < 1 {
		batch = 1
	}

	a := &Acceptor{
		fd:              fd,
		loop:            loop,
		logger:          logger,
		acceptBatch:     batch,
		idleConnTimeout: opts.idleConnTimeout,
		newConn:         onNewConn,
	}
	a.ch = NewChannel(loop, fd)
	a.ch.SetReadCallback(a.handleRead)
	a.ch.EnableRead()
	return a, nil
}

// parseSockaddr turns "host:port" (host may be empty, meaning 0.0.0.0)
// into a unix.SockaddrInet4.
func parseSockaddr(addr string) (*unix.SockaddrInet4, error) {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return nil, ErrAddrInvalid
	}
	host := parts[0]
	if host == "" {
		host = "0.0.0.0"
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return nil, ErrAddrInvalid
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return nil, ErrAddrInvalid
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())
	return sa, nil
}

// handleRead accepts up to acceptBatch connections per readable event,
// stopping early on EAGAIN. Bounding the batch keeps one busy listener
// from starving the rest of the loop's dispatch within a single
// iteration.
func (a *Acceptor) handleRead() {
	for i := 0; i < a.acceptBatch; i++ {
		connFd, _, err := unix.Accept4(a.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EINTR {
				a.logger.Warn("acceptor: accept4: %s", err.Error())
			}
			break
		}
		a.nextID++
		conn := NewConnection(a.nextID, connFd, a.loop)
		if a.idleConnTimeout > 0 {
			conn.SetIdleTimeout(a.idleConnTimeout)
		}
		if a.newConn != nil {
			a.newConn(conn)
		}
		conn.Established()
	}
}

// Close stops accepting and releases the listening fd.
func (a *Acceptor) Close() {
	a.ch.DisableAll()
	a.ch.Remove()
	unix.Close(a.fd)
}
