package locks

import (
	"sync"
	"sync/atomic"
)

// WaitGroup is a sync.Cond-based wait group, used where callers need to
// block on a counter reaching zero without also holding a reference to the
// goroutines doing the counting (e.g. draining a worker pool's in-flight
// jobs at shutdown).
type WaitGroup struct {
	counter  int64
	waitCond *sync.Cond
}

// NewWaitGroup creates an empty WaitGroup.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{
		waitCond: sync.NewCond(&sync.Mutex{}),
	}
}

// Add increments the counter by one.
func (wg *WaitGroup) Add() {
	atomic.AddInt64(&wg.counter, 1)
}

// Done decrements the counter by one, waking any waiter if it reaches zero.
func (wg *WaitGroup) Done() {
	counter := atomic.AddInt64(&wg.counter, -1)
	if counter < 0 {
		panic("negative values for wg.counter are not allowed. This was likely caused by calling Done() before Add()")
	}
	if atomic.LoadInt64(&wg.counter) == 0 {
		wg.waitCond.Broadcast()
	}
}

// Wait blocks until the counter reaches zero.
func (wg *WaitGroup) Wait() {
	wg.waitCond.L.Lock()
	defer wg.waitCond.L.Unlock()
	for atomic.LoadInt64(&wg.counter) != 0 {
		wg.waitCond.Wait()
	}
}
