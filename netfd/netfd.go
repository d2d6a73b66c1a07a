// Package netfd wraps the raw socket-option syscalls the runtime needs
// on accepted/connected fds. It owns every SO_*/TCP_* tweak so Channel
// and Connection never touch syscall directly for anything but
// read/write/close.
package netfd

import (
	"errors"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Read retries on EINTR; zero return means the peer closed its write side.
func Read(fd int, buf []byte) (n int, err error) {
	for {
		n, err = unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// Write retries on EINTR.
func Write(fd int, buf []byte) (n int, err error) {
	for {
		n, err = unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// Close releases fd. Idempotent only in the sense that the kernel
// returns EBADF on a repeat call; callers still own not double-closing.
func Close(fd int) error {
	return unix.Close(fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	ip := net.IP{}
	port := 0
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip = net.IP(sa.Addr[:])
		port = sa.Port
	case *unix.SockaddrInet6:
		ip = net.IP(sa.Addr[:])
		port = sa.Port
	default:
		return ""
	}
	return ip.String() + ":" + strconv.Itoa(port)
}

// SOError reads fd's pending SO_ERROR, the asynchronous error last
// recorded against the socket (what woke an EPOLLERR revent). Returns
// nil when there is none to report.
func SOError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno == 0 {
		return nil
	}
	return unix.Errno(errno)
}

// LocalAddr returns "ip:port", or "" on error.
func LocalAddr(fd int) string {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

// RemoteAddr returns "ip:port", or "" on error.
func RemoteAddr(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

// SetSendBuffSize sets SO_SNDBUF. Call before listen/connect; must stay
// under `sysctl net.core.wmem_max`.
func SetSendBuffSize(fd, bytes int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes); err != nil {
		return errors.New("netfd: set SO_SNDBUF: " + err.Error())
	}
	return nil
}

// SetRecvBuffSize sets SO_RCVBUF. Call before listen/connect; must stay
// under `sysctl net.core.rmem_max`.
func SetRecvBuffSize(fd, bytes int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return errors.New("netfd: set SO_RCVBUF: " + err.Error())
	}
	return nil
}

// SetReuseAddr sets SO_REUSEADDR. Call before bind.
func SetReuseAddr(fd int, v bool) error {
	n := 0
	if v {
		n = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, n); err != nil {
		return errors.New("netfd: set SO_REUSEADDR: " + err.Error())
	}
	return nil
}

// SetReusePort sets SO_REUSEPORT, letting several processes load-balance one port. Call before bind.
func SetReusePort(fd int, v bool) error {
	n := 0
	if v {
		n = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, n); err != nil {
		return errors.New("netfd: set SO_REUSEPORT: " + err.Error())
	}
	return nil
}

// SetNoDelay toggles TCP_NODELAY: v=0 Nagle-delayed, v=1 immediate send.
func SetNoDelay(fd, v int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v); err != nil {
		return errors.New("netfd: set TCP_NODELAY: " + err.Error())
	}
	return nil
}

// SetKeepAlive enables SO_KEEPALIVE and its TCP_KEEPIDLE/INTVL/CNT timing,
// all in seconds: idle before the first probe, interval between probes,
// and probe count before the connection is declared dead.
func SetKeepAlive(fd, idle, interval, times int) error {
	if interval < 1 {
		return errors.New("netfd: keepalive interval invalid")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return errors.New("netfd: set SO_KEEPALIVE: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, idle); err != nil {
		return errors.New("netfd: set TCP_KEEPIDLE: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, interval); err != nil {
		return errors.New("netfd: set TCP_KEEPINTVL: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, times); err != nil {
		return errors.New("netfd: set TCP_KEEPCNT: " + err.Error())
	}
	return nil
}

// SetQuickACK toggles TCP_QUICKACK: v=0 delayed ACKs, v=1 immediate ACKs.
func SetQuickACK(fd, v int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, v); err != nil {
		return errors.New("netfd: set TCP_QUICKACK: " + err.Error())
	}
	return nil
}
