package muduo

import (
	"fmt"
	"strings"
	"sync"
)

// LoopGroup owns N independent EventLoops and round-robins new
// connections across them. Every mutation of a Connection's Channel
// must happen on its own owning loop, so each Connection here is fully
// owned, start to finish, by exactly one loop: nothing ever shares an
// fd across two loops in this group.
type LoopGroup struct {
	noCopy

	loops []*EventLoop
	next  int
}

// NewLoopGroup builds n EventLoops that all record into the one shared
// metrics, so its counters add up across the group; if metrics is nil,
// none of them record counters.
func NewLoopGroup(n int, opts *Options, logger *Logger, metrics *Metrics) (*LoopGroup, error) {
	if n < 1 {
		n = 1
	}
	g := &LoopGroup{loops: make([]*EventLoop, n)}
	for i := 0; i < n; i++ {
		loop, err := NewEventLoop(opts, logger, metrics)
		if err != nil {
			for j := 0; j < i; j++ {
				g.loops[j].Close()
			}
			return nil, err
		}
		g.loops[i] = loop
	}
	return g, nil
}

// Next returns the next loop in round-robin order, for handing a new
// Acceptor/Connector's work to whichever loop is least recently assigned.
func (g *LoopGroup) Next() *EventLoop {
	l := g.loops[g.next]
	g.next = (g.next + 1) % len(g.loops)
	return l
}

// Loops returns every loop in the group, in construction order.
func (g *LoopGroup) Loops() []*EventLoop { return g.loops }

// Run starts every loop on its own goroutine and blocks until all of
// them return, collecting any errors.
func (g *LoopGroup) Run() error {
	var wg sync.WaitGroup
	var errsMtx sync.Mutex
	var errs []string

	for i, loop := range g.loops {
		wg.Add(1)
		go func(idx int, l *EventLoop) {
			defer wg.Done()
			if err := l.Run(); err != nil {
				errsMtx.Lock()
				errs = append(errs, fmt.Sprintf("loop#%d: %s", idx, err.Error()))
				errsMtx.Unlock()
			}
		}(i, loop)
	}
	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

// Stop asks every loop in the group to exit after its current iteration.
func (g *LoopGroup) Stop() {
	for _, l := range g.loops {
		l.Stop()
	}
}

// Close releases every loop's kernel resources. Call only after Run
// returns for every loop in the group.
func (g *LoopGroup) Close() error {
	var errs []string
	for i, l := range g.loops {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("loop#%d: %s", i, err.Error()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
