// Refer to https://www.zhihu.com/question/486002075/answer/2823943072
package muduo

// GoPool is a fixed-size, reusable goroutine pool, M:N model: M
// goroutines service an N-deep task queue. Useful for offloading
// blocking user work off a loop goroutine; results re-enter via
// EventLoop.RunInLoop.
type GoPool struct {
	noCopy
	sem  chan struct{}
	work chan func()
}

// NewGoPool returns a pool with sizeM reusable goroutines and a queueN-deep
// task buffer; preSpawn goroutines start immediately instead of on first use.
func NewGoPool(sizeM, preSpawn, queueN int) *GoPool {
	if preSpawn <= 0 && queueN > 0 {
		panic("GoPool: dead queue")
	}
	if preSpawn > sizeM {
		preSpawn = sizeM
	}
	p := &GoPool{
		sem:  make(chan struct{}, sizeM),
		work: make(chan func(), queueN),
	}
	for i := 0; i < preSpawn; i++ {
		p.sem <- struct{}{}
		go p.worker(func() {})
	}
	return p
}

// Go runs task on a pool goroutine: queued if one is already free and
// the queue has room, otherwise spawned fresh up to sizeM concurrent workers.
func (p *GoPool) Go(task func()) {
	select {
	case p.work <- task:
	case p.sem <- struct{}{}:
		go p.worker(task)
	}
}

func (p *GoPool) worker(task func()) {
	defer func() { <-p.sem }()

	for {
		task()
		task = <-p.work
	}
}
