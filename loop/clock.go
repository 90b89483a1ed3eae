package loop

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source timers are scheduled on. Production code
// uses Real; tests use Fake and advance time explicitly.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine (Real) or synchronously
	// from Advance (Fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a pending AfterFunc. Stop reports whether the call
// prevented f from running.
type Stopper interface {
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// FakeClock is a Clock that only moves when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	clock    *FakeClock
	deadline time.Time
	f        func()
	done     bool
}

// Fake returns a FakeClock stopped at start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &fakeWaiter{clock: c, deadline: c.now.Add(d), f: f}
	c.waiters = append(c.waiters, w)
	return w
}

func (w *fakeWaiter) Stop() bool {
	w.clock.mu.Lock()
	defer w.clock.mu.Unlock()
	if w.done {
		return false
	}
	w.done = true
	return true
}

// Pending returns the number of scheduled, unfired callbacks.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, running every callback that falls
// due in deadline order. Callbacks scheduled by callbacks also run if
// they fall due before the new time. Callbacks run without the clock's
// lock held.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		w := c.nextDue(target)
		if w == nil {
			break
		}
		w.done = true
		if w.deadline.After(c.now) {
			c.now = w.deadline
		}
		c.mu.Unlock()
		w.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// nextDue removes fired waiters and returns the earliest waiter due by
// target, or nil. c.mu must be held.
func (c *FakeClock) nextDue(target time.Time) *fakeWaiter {
	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.done {
			live = append(live, w)
		}
	}
	c.waiters = live
	sort.SliceStable(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
	if len(c.waiters) == 0 || c.waiters[0].deadline.After(target) {
		return nil
	}
	return c.waiters[0]
}
