// Package loop is the bar's single-threaded event loop. Every region
// mutation, timer callback and input event runs on the goroutine that
// called Run; other goroutines hand work over with Post.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrClosed is returned when handing work to a loop that has quit.
	ErrClosed = errors.New("loop closed")
	// ErrClaimed is returned by Claim on a loop that already has an owner.
	ErrClaimed = errors.New("loop already claimed")
)

// Loop is a cooperative event loop. Callbacks run one at a time in the
// order they were posted.
type Loop struct {
	clock Clock
	log   *slog.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
	running bool
	claimed bool
	timers  map[*Timer]struct{}
	subs    []func()
	idle    []func()

	wake chan struct{}
	quit chan struct{}
}

func New(clock Clock, log *slog.Logger) *Loop {
	return &Loop{
		clock:  clock,
		log:    log,
		timers: make(map[*Timer]struct{}),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock { return l.clock }

// Post queues fn to run on the loop goroutine. It is safe to call from
// any goroutine, including the loop's own.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Claim marks the loop as driven by a single owner, such as the bar
// window. Only the first claim succeeds.
func (l *Loop) Claim() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.claimed {
		return ErrClaimed
	}
	l.claimed = true
	return nil
}

// Track registers cancel to be called when the loop quits. It is how
// subscriptions to outside event sources are torn down. If the loop has
// already quit, cancel runs immediately.
func (l *Loop) Track(cancel func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		cancel()
		return ErrClosed
	}
	l.subs = append(l.subs, cancel)
	l.mu.Unlock()
	return nil
}

// OnIdle registers fn to run on the loop goroutine after every batch of
// callbacks.
func (l *Loop) OnIdle(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idle = append(l.idle, fn)
}

// Closed reports whether Quit has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Run processes callbacks until Quit is called or ctx is done. A done
// ctx quits the loop. Run may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("loop already running")
	}
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.running = true
	l.mu.Unlock()

	for {
		l.Drain()

		select {
		case <-l.wake:
		case <-l.quit:
			return nil
		case <-ctx.Done():
			l.Quit()
			return nil
		}
	}
}

// Drain runs every queued callback, including those queued while
// draining, then the idle hooks. It never blocks waiting for work and
// returns the number of callbacks run. Run calls it; tests may call it
// directly instead of running the loop.
//
// Each callback is dequeued under the same lock Quit takes, so nothing
// is started once Quit has begun. A callback already running when
// another goroutine calls Quit finishes; Quit does not wait for it.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			break
		}
		l.dispatch(fn)
		n++
	}

	if n > 0 {
		l.mu.Lock()
		idle := append([]func(){}, l.idle...)
		l.mu.Unlock()
		for _, fn := range idle {
			if l.Closed() {
				break
			}
			l.dispatch(fn)
		}
	}
	return n
}

// next pops the oldest queued callback. It reports false when the
// queue is empty or the loop has quit.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop callback panicked", "panic", r)
		}
	}()
	fn()
}

// Quit stops the loop. Before it returns, every timer is stopped and
// every tracked subscription is cancelled, so no callback registered
// through the loop runs afterwards. Quit is safe to call from any
// goroutine and more than once.
func (l *Loop) Quit() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.pending = nil
	timers := l.timers
	l.timers = nil
	subs := l.subs
	l.subs = nil
	close(l.quit)
	l.mu.Unlock()

	for t := range timers {
		t.stop()
	}
	for i := len(subs) - 1; i >= 0; i-- {
		subs[i]()
	}
}

// Timer is a recurring callback registered with Every.
type Timer struct {
	loop     *Loop
	interval time.Duration
	aligned  bool
	fn       func()

	mu      sync.Mutex
	stopped bool
	pending Stopper
}

// Every runs fn on the loop goroutine every interval. When aligned is
// set, ticks land on multiples of interval since the zero time, so a
// one second clock changes exactly when the wall clock second does.
func (l *Loop) Every(interval time.Duration, aligned bool, fn func()) (*Timer, error) {
	if interval <= 0 {
		return nil, errors.New("non-positive timer interval")
	}
	t := &Timer{
		loop:     l,
		interval: interval,
		aligned:  aligned,
		fn:       fn,
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	l.timers[t] = struct{}{}
	l.mu.Unlock()

	t.arm()
	return t, nil
}

// Stop cancels the timer. A tick already queued on the loop is
// discarded.
func (t *Timer) Stop() {
	t.loop.mu.Lock()
	delete(t.loop.timers, t)
	t.loop.mu.Unlock()
	t.stop()
}

func (t *Timer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// next returns the delay until the next tick.
func (t *Timer) next() time.Duration {
	if !t.aligned {
		return t.interval
	}
	now := t.loop.clock.Now()
	next := now.Truncate(t.interval).Add(t.interval)
	return next.Sub(now)
}

func (t *Timer) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pending = t.loop.clock.AfterFunc(t.next(), t.fire)
}

// fire runs on the clock's goroutine and hands the tick to the loop.
func (t *Timer) fire() {
	err := t.loop.Post(func() {
		if t.isStopped() {
			return
		}
		t.fn()
	})
	if err != nil {
		return
	}
	t.arm()
}
