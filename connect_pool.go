package muduo

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/littleblus/my-muduo/netfd"
)

// ConnectPool keeps a floor of live outbound Connections to one remote
// address, replacing any that close. Built directly on Connector and
// Connection: since Connector's callbacks already run on the owning
// loop, there is no thread boundary left to cross to update the idle
// list, so onDialOK/onDialFail run inline rather than through a
// separate handoff goroutine.
type ConnectPool struct {
	noCopy

	addr           string
	minIdleNum     int
	addNumOnceTime int
	maxLiveNum     int
	connectTimeout int // seconds

	loop      *EventLoop
	connector *Connector
	onNewConn NewConnectionFunc // called once per new live connection, before it is released idle

	ticker   *time.Ticker
	conns    *list.List
	connsMtx sync.Mutex
	toNewNum atomic.Int32
	liveNum  atomic.Int32

	emptySig chan struct{}
}

// NewConnectPool keeps between minIdleNum and maxLiveNum connections to
// addr alive, adding addNumOnceTime at a time, checked every keepTick.
func NewConnectPool(loop *EventLoop, connector *Connector, addr string,
	minIdleNum, addNumOnceTime, maxLiveNum, connectTimeout int, keepTick time.Duration,
	onNewConn NewConnectionFunc) *ConnectPool {
	if minIdleNum < 1 || minIdleNum >= maxLiveNum || maxLiveNum < addNumOnceTime {
		panic("NewConnectPool: min/add/max invalid")
	}
	cp := &ConnectPool{
		addr:           addr,
		minIdleNum:     minIdleNum,
		addNumOnceTime: addNumOnceTime,
		maxLiveNum:     maxLiveNum,
		connectTimeout: connectTimeout,
		loop:           loop,
		connector:      connector,
		onNewConn:      onNewConn,
		conns:          list.New(),
		ticker:         time.NewTicker(keepTick),
		emptySig:       make(chan struct{}, 1),
	}
	go cp.keepNumTiming()
	return cp
}

// Acquire removes and returns an idle Connection, or nil if none is
// available; a miss nudges keepNum to dial more immediately instead of
// waiting for the next tick.
func (cp *ConnectPool) Acquire() *Connection {
	cp.connsMtx.Lock()
	item := cp.conns.Front()
	if item == nil {
		cp.connsMtx.Unlock()
		select {
		case cp.emptySig <- struct{}{}:
		default:
		}
		return nil
	}
	cp.conns.Remove(item)
	cp.connsMtx.Unlock()
	return item.Value.(*Connection)
}

// Release returns conn to the idle list for reuse.
func (cp *ConnectPool) Release(conn *Connection) {
	cp.connsMtx.Lock()
	cp.conns.PushBack(conn)
	cp.connsMtx.Unlock()
}

// IdleNum returns the number of idle connections.
func (cp *ConnectPool) IdleNum() int {
	cp.connsMtx.Lock()
	defer cp.connsMtx.Unlock()
	return cp.conns.Len()
}

// LiveNum returns the number of connections currently live (idle + in use).
func (cp *ConnectPool) LiveNum() int { return int(cp.liveNum.Load()) }

func (cp *ConnectPool) keepNumTiming() {
	for {
		select {
		case <-cp.emptySig:
			cp.keepNum()
		case <-cp.ticker.C:
			cp.keepNum()
		}
	}
}

func (cp *ConnectPool) keepNum() {
	idleNum := cp.IdleNum()
	toNewNum := 0
	if idleNum < cp.minIdleNum {
		toNewNum = cp.addNumOnceTime
		liveNum := cp.LiveNum()
		if liveNum == 0 {
			toNewNum = cp.minIdleNum
		} else if toNewNum+liveNum > cp.maxLiveNum {
			toNewNum = cp.maxLiveNum - liveNum
		}
	}
	if toNewNum < 1 {
		return
	}
	if !cp.toNewNum.CompareAndSwap(0, int32(toNewNum)) {
		return
	}
	for i := 0; i < toNewNum; i++ {
		cp.loop.RunInLoop(func() {
			err := cp.connector.Connect(cp.addr, cp.connectTimeout, cp.onDialOK, cp.onDialFail)
			if err != nil {
				cp.toNewNum.Add(-1)
			}
		})
	}
}

func (cp *ConnectPool) onDialOK(conn *Connection) {
	cp.toNewNum.Add(-1)
	netfd.SetKeepAlive(conn.Fd(), 60, 40, 3)

	conn.SetClosedCallback(func(c *Connection) {
		cp.liveNum.Add(-1)
		cp.connsMtx.Lock()
		for e := cp.conns.Front(); e != nil; e = e.Next() {
			if e.Value.(*Connection) == c {
				cp.conns.Remove(e)
				break
			}
		}
		cp.connsMtx.Unlock()
	})
	if cp.onNewConn != nil {
		cp.onNewConn(conn)
	}
	cp.liveNum.Add(1)
	cp.Release(conn)
}

func (cp *ConnectPool) onDialFail(err error) {
	cp.toNewNum.Add(-1)
}
