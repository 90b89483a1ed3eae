package shell

import (
	"fmt"
	"sync"
)

// Recorder is an in-memory Shell and Surface. It keeps every presented
// frame and lets callers inject clicks and the destroy event.
type Recorder struct {
	// Unavailable makes Acquire fail as if the compositor lacked the
	// layer-shell protocol.
	Unavailable bool

	mu       sync.Mutex
	req      Request
	acquired bool
	frames   []Frame
	input    chan Click
	done     chan struct{}
	destroy  sync.Once
	closed   bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		input: make(chan Click, 16),
		done:  make(chan struct{}),
	}
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Acquire(req Request) (Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Unavailable {
		return nil, fmt.Errorf("recorder: %w", ErrUnavailable)
	}
	r.req = req
	r.acquired = true
	return r, nil
}

func (r *Recorder) Anchors() Edges {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.req.Edges
}

func (r *Recorder) ExclusiveZone() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.req.Exclusive == ExclusiveAuto {
		return 1
	}
	return int(r.req.Exclusive)
}

func (r *Recorder) Present(frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("present on closed surface")
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *Recorder) Input() <-chan Click { return r.input }
func (r *Recorder) Done() <-chan struct{} { return r.done }

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Frames returns every presented frame in order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Click injects a pointer event.
func (r *Recorder) Click(c Click) {
	r.input <- c
}

// Destroy fires the destroy event.
func (r *Recorder) Destroy() {
	r.destroy.Do(func() { close(r.done) })
}
