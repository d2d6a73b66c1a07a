package muduo

import (
	"runtime"
)

// Options holds every tunable of the runtime. It is built once, at
// process start, through functional Option values passed to NewOptions,
// then handed to NewEventLoop/NewAcceptor/NewLoopGroup.
// It is a package-level singleton built lazily on first use; later
// NewOptions calls only override the fields their Option values touch.
type Options struct {
	// acceptor/connector options
	reuseAddr     bool // SO_REUSEADDR
	reusePort     bool // SO_REUSEPORT
	listenBacklog int
	recvBuffSize  int // ignore if 0

	// poller options
	pollReadyNum int // epoll_wait batch size
	fdArrSize    int // fast-path array size of the fd->Channel table

	// time wheel options
	timeWheelBuckets int   // W, the wheel's bucket count; default 60
	timeWheelTickMs  int64 // one bucket's resolution in ms; default 1000

	// connection options
	idleConnTimeout int64 // seconds, 0 disables idle-timeout scheduling

	// ambient pools
	goPoolSize     int
	goPoolQueueLen int

	// connect pool options
	connectPoolMinIdle     int
	connectPoolMaxLive     int
	connectPoolAddOnceTime int

	// bufpool options
	bufPoolMaxMBytes int
}

// Option mutates Options; apply with NewOptions(opts...).
type Option func(*Options)

var muduoOptions *Options

// NewOptions builds (or patches) the package-level Options singleton
// from the given functional options and returns it. Callers outside the
// package use this to obtain an *Options to hand to NewEventLoop,
// NewAcceptor and NewLoopGroup.
func NewOptions(optL ...Option) *Options {
	return setOptions(optL...)
}

func setOptions(optL ...Option) *Options {
	if muduoOptions == nil {
		muduoOptions = &Options{
			reuseAddr:        true,
			listenBacklog:    1024,
			pollReadyNum:     512,
			fdArrSize:        8192,
			timeWheelBuckets: 60,
			timeWheelTickMs:  1000,
			goPoolSize:       runtime.NumCPU() * 4,
			goPoolQueueLen:   1024,

			connectPoolMinIdle:     1,
			connectPoolMaxLive:     8,
			connectPoolAddOnceTime: 1,

			bufPoolMaxMBytes: 16,
		}
	}
	for _, opt := range optL {
		opt(muduoOptions)
	}
	return muduoOptions
}

// ReuseAddr controls SO_REUSEADDR on listening sockets. Default true.
func ReuseAddr(v bool) Option {
	return func(o *Options) { o.reuseAddr = v }
}

// ReusePort controls SO_REUSEPORT, letting several processes share one port. Default false.
func ReusePort(v bool) Option {
	return func(o *Options) { o.reusePort = v }
}

// ListenBacklog sets the backlog passed to listen(2); Acceptor.handleRead
// also accepts at most half this many (minimum 1) connections in a
// single readable event.
func ListenBacklog(v int) Option {
	return func(o *Options) {
		if v > 0 {
			o.listenBacklog = v
		}
	}
}

// RecvBuffSize sets SO_RCVBUF on accepted/connected sockets. 0 leaves the kernel default.
func RecvBuffSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.recvBuffSize = n
		}
	}
}

// PollReadyNum is the number of events requested per epoll_wait call.
func PollReadyNum(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.pollReadyNum = n
		}
	}
}

// FdArrSize sizes the Poller's array fast-path for low-numbered fds;
// fds beyond this fall back to a sync.Map.
func FdArrSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.fdArrSize = n
		}
	}
}

// TimeWheelBuckets sets W, the wheel's bucket count. Must stay small: it
// bounds the maximum representable timer timeout to W-1 ticks.
func TimeWheelBuckets(w int) Option {
	return func(o *Options) {
		if w > 1 {
			o.timeWheelBuckets = w
		}
	}
}

// TimeWheelTick sets the wheel's tick resolution in milliseconds.
func TimeWheelTick(ms int64) Option {
	return func(o *Options) {
		if ms > 0 {
			o.timeWheelTickMs = ms
		}
	}
}

// IdleConnTimeout, if non-zero, makes every Connection an Acceptor
// accepts auto-register a wheel task on establishment that closes it
// after this many idle seconds unless refreshed by read/write activity.
// Connections dialed by a Connector do not get it.
func IdleConnTimeout(seconds int64) Option {
	return func(o *Options) { o.idleConnTimeout = seconds }
}

// GoPoolSize records a worker pool concurrency ceiling (M in the M:N
// model). NewGoPool takes its size as an argument and does not read it.
func GoPoolSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.goPoolSize = n
		}
	}
}

// GoPoolQueueLen records a worker pool task queue length. NewGoPool
// takes its queue length as an argument and does not read it.
func GoPoolQueueLen(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.goPoolQueueLen = n
		}
	}
}

// ConnectPoolMinIdle records a floor of idle outbound connections.
// NewConnectPool takes minIdleNum as an argument and does not read it.
func ConnectPoolMinIdle(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.connectPoolMinIdle = n
		}
	}
}

// ConnectPoolMaxLive records a cap on live outbound connections.
// NewConnectPool takes maxLiveNum as an argument and does not read it.
func ConnectPoolMaxLive(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.connectPoolMaxLive = n
		}
	}
}

// BufPoolMaxMBytes records a largest pooled tier size, in MiB.
// BMalloc/BFree use the fixed bufPoolMaxMBytes constant (16) and do not
// read it.
func BufPoolMaxMBytes(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.bufPoolMaxMBytes = n
		}
	}
}
