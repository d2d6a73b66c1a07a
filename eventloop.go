package muduo

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"
	"unsafe"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// goroutineID returns the calling goroutine's id, parsed out of its own
// stack trace header ("goroutine 123 [running]: ..."). It is used only
// as the fast-path check in RunInLoop — "is the caller already the loop
// goroutine" — never for anything that must be portable across Go
// versions' exact trace format; a parse failure just disables the fast
// path for that one call and falls through to the cross-thread path.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// Task is a unit of work run on an EventLoop's own goroutine.
type Task func()

// EventLoop is owned by exactly one goroutine for its whole life,
// pinned to the id of the goroutine that calls Run. It multiplexes a
// Poller, a self-wake eventfd Channel, and a TimeWheel driven by a
// timerfd Channel, all observed through the same Poller so tick
// handling is serialized with ordinary I/O dispatch.
//
// Each EventLoop has full, exclusive ownership of every Connection it
// creates — no fd ever crosses to another loop — and LoopGroup supplies
// round-robin distribution of new work across a fixed set of loops.
type EventLoop struct {
	noCopy

	ownerGoroutine int64

	poller *Poller
	logger *Logger

	wheel      *TimeWheel
	timerfd    int
	timerCh    *Channel
	timerTick  time.Duration

	wakeFd int
	wakeCh *Channel

	mtx      sync.Mutex
	pending  *queue.Queue
	draining *queue.Queue

	active []*Channel

	metrics *Metrics

	quit bool
}

// NewEventLoop constructs an EventLoop and its Poller/TimeWheel/self-wake
// plumbing, but does not start Run. Call Run from the goroutine that
// should own the loop. metrics may be nil, disabling counter updates.
func NewEventLoop(opts *Options, logger *Logger, metrics *Metrics) (*EventLoop, error) {
	poller, err := NewPoller(opts.fdArrSize, opts.pollReadyNum, logger)
	if err != nil {
		return nil, err
	}

	loop := &EventLoop{
		poller:    poller,
		logger:    logger,
		wheel:     NewTimeWheel(opts.timeWheelBuckets),
		timerTick: time.Duration(opts.timeWheelTickMs) * time.Millisecond,
		pending:   queue.New(),
		draining:  queue.New(),
		metrics:   metrics,
	}

	if err := loop.setupTimerfd(); err != nil {
		return nil, err
	}
	if err := loop.setupWakeFd(); err != nil {
		return nil, err
	}
	return loop, nil
}

func (l *EventLoop) setupTimerfd() error {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return errWrap("eventloop: timerfd_create", err)
	}
	spec := &unix.ItimerSpec{
		Value:    unix.NsecToTimespec(l.timerTick.Nanoseconds()),
		Interval: unix.NsecToTimespec(l.timerTick.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		return errWrap("eventloop: timerfd_settime", err)
	}
	l.timerfd = fd
	l.timerCh = NewChannel(l, fd)
	l.timerCh.SetReadCallback(l.handleTimerTick)
	l.timerCh.EnableRead()
	return nil
}

func (l *EventLoop) setupWakeFd() error {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return errWrap("eventloop: eventfd", err)
	}
	l.wakeFd = fd
	l.wakeCh = NewChannel(l, fd)
	l.wakeCh.SetReadCallback(l.drainWakeFd)
	l.wakeCh.EnableRead()
	return nil
}

func (l *EventLoop) handleTimerTick() {
	var buf [8]byte
	n, err := unix.Read(l.timerfd, buf[:])
	if err != nil && err != unix.EAGAIN {
		l.logger.Error("eventloop: timerfd read: %s", err.Error())
	} else if err == nil && n != len(buf) {
		l.logger.Fatal("eventloop: timerfd short read: %d bytes", n)
		panic("muduo: timerfd short read")
	}
	fired := l.wheel.Tick()
	if fired > 0 && l.metrics != nil {
		l.metrics.AddTimersFired(uint64(fired))
	}
}

func (l *EventLoop) drainWakeFd() {
	var buf [8]byte
	n, err := unix.Read(l.wakeFd, buf[:])
	if err != nil && err != unix.EAGAIN {
		l.logger.Error("eventloop: wakefd read: %s", err.Error())
	} else if err == nil && n != len(buf) {
		l.logger.Fatal("eventloop: wakefd short read: %d bytes", n)
		panic("muduo: wakefd short read")
	}
}

func (l *EventLoop) wake() {
	v := uint64(1)
	b := (*(*[8]byte)(unsafe.Pointer(&v)))[:]
	for {
		_, err := unix.Write(l.wakeFd, b)
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// Run captures the calling goroutine as the loop's owner and blocks,
// dispatching ready Channels and drained tasks, until Stop is called.
func (l *EventLoop) Run() error {
	l.ownerGoroutine = goroutineID()
	for !l.quit {
		var err error
		l.active, err = l.poller.Poll(-1, l.active[:0])
		if err != nil {
			return err
		}
		for _, ch := range l.active {
			ch.HandleEvent()
		}
		l.runPendingTasks()
	}
	return nil
}

// Stop asks the loop to exit after its current iteration. Safe to call
// from any goroutine; it goes through RunInLoop like any other task.
func (l *EventLoop) Stop() {
	l.RunInLoop(func() { l.quit = true })
}

// inLoopGoroutine reports whether the caller is the loop's owning goroutine.
func (l *EventLoop) inLoopGoroutine() bool {
	return l.ownerGoroutine > 0 && goroutineID() == l.ownerGoroutine
}

// RunInLoop runs task on the loop's goroutine: inline if the caller is
// already that goroutine, otherwise queued and woken via the self-wake
// eventfd. A task enqueued before the wake write is guaranteed visible
// to the owning goroutine once it drains the queue, since the mutex
// that guards enqueue/drain gives the release/acquire pairing.
//
// Returns ErrLoopClosed, without enqueueing, if the loop has already
// been asked to Stop. A cross-thread caller racing the loop's very last
// iteration can still lose this check and have its task silently
// dropped on Run's exit — RunInLoop makes a best effort, not a guarantee,
// once Stop has been called.
func (l *EventLoop) RunInLoop(task Task) error {
	if task == nil {
		return nil
	}
	if l.inLoopGoroutine() {
		task()
		return nil
	}
	if l.quit {
		return ErrLoopClosed
	}
	l.mtx.Lock()
	l.pending.Add(task)
	l.mtx.Unlock()
	l.wake()
	return nil
}

// runPendingTasks swaps the pending queue into draining under the
// mutex, then runs every task unlocked — so tasks that themselves call
// RunInLoop (and land on pending, the now-empty buffer) don't deadlock
// against this goroutine's own lock.
func (l *EventLoop) runPendingTasks() {
	l.mtx.Lock()
	l.pending, l.draining = l.draining, l.pending
	l.mtx.Unlock()

	for l.draining.Length() > 0 {
		task := l.draining.Remove().(Task)
		task()
	}
}

func (l *EventLoop) updateChannel(ch *Channel) error {
	return l.poller.Update(ch)
}

func (l *EventLoop) removeChannel(ch *Channel) error {
	return l.poller.Remove(ch)
}

// Metrics returns the loop's counters, or nil if none were configured.
func (l *EventLoop) Metrics() *Metrics { return l.metrics }

// AddTimer schedules action to fire once after d seconds (1 <= d < W) on
// this loop, identified by id for later Refresh/Cancel. The returned
// error is only meaningful when called from the loop goroutine itself:
// a cross-thread call merely queues the add and reports nil (or
// ErrLoopClosed if the loop has already stopped), since RunInLoop does
// not wait for queued work to run.
func (l *EventLoop) AddTimer(id uint64, d int, action TimeWheelAction) error {
	var err error
	if rerr := l.RunInLoop(func() { err = l.wheel.Add(id, d, action) }); rerr != nil {
		return rerr
	}
	return err
}

// RefreshTimer extends id's timer by its own remembered duration,
// counted from now. See AddTimer's note on the error return's
// cross-thread limitation.
func (l *EventLoop) RefreshTimer(id uint64) error {
	var err error
	if rerr := l.RunInLoop(func() { err = l.wheel.Refresh(id) }); rerr != nil {
		return rerr
	}
	return err
}

// CancelTimer cancels id's timer, if still live.
func (l *EventLoop) CancelTimer(id uint64) {
	l.RunInLoop(func() {
		if l.wheel.Has(id) {
			l.wheel.Cancel(id)
			if l.metrics != nil {
				l.metrics.TimerCanceled()
			}
		}
	})
}

// Close releases the loop's kernel resources. Call only after Run returns.
func (l *EventLoop) Close() error {
	unix.Close(l.timerfd)
	unix.Close(l.wakeFd)
	return l.poller.Close()
}
