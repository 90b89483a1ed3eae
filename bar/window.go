// Package bar composes the bar window: a row of regions on an anchored
// shell surface, driven by a single event loop.
package bar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"taskbar/blocks"
	"taskbar/loop"
	"taskbar/shell"
)

var (
	// ErrAnchoringUnavailable means the shell surface could not be
	// anchored. It wraps shell.ErrUnavailable.
	ErrAnchoringUnavailable = fmt.Errorf("anchoring unavailable: %w", shell.ErrUnavailable)

	ErrDoubleAttach = errors.New("window already has a row attached")
	ErrNotAttached  = errors.New("window has no row attached")
	ErrTerminated   = errors.New("window terminated")
)

// Anchors are the edges the bar is anchored to: a full-width bottom bar.
const Anchors = shell.EdgeBottom | shell.EdgeLeft | shell.EdgeRight

// State is a window's lifecycle stage. Transitions only go forward.
type State int

const (
	Uninitialized State = iota
	Anchored
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Anchored:
		return "anchored"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return "uninitialized"
}

// Window owns the anchored surface, the row and the loop lifecycle.
type Window struct {
	surface shell.Surface
	loop    *loop.Loop
	log     *slog.Logger

	mu    sync.Mutex
	state State
	row   *Row

	// Owned by the loop goroutine.
	last      shell.Frame
	presented bool
}

// Create anchors a new bar surface on sh. The surface's destroy event
// quits l. Any failure to anchor is reported as ErrAnchoringUnavailable;
// there is no fallback placement.
func Create(sh shell.Shell, l *loop.Loop, log *slog.Logger) (*Window, error) {
	s, err := sh.Acquire(shell.Request{Edges: Anchors, Exclusive: shell.ExclusiveAuto})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAnchoringUnavailable, sh.Name(), err)
	}
	if got := s.Anchors(); got != Anchors {
		s.Close()
		return nil, fmt.Errorf("%w: %s anchored to %v, want %v", ErrAnchoringUnavailable, sh.Name(), got, Anchors)
	}
	// One window per loop: the loop's teardown is the window's.
	if err := l.Claim(); err != nil {
		s.Close()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{
		surface: s,
		loop:    l,
		log:     log,
		state:   Anchored,
	}

	stop := make(chan struct{})
	if err := l.Track(func() { close(stop) }); err != nil {
		s.Close()
		return nil, fmt.Errorf("create window: %w", err)
	}
	go w.forward(stop)
	l.OnIdle(w.present)

	log.Info("bar anchored", "shell", sh.Name(), "edges", s.Anchors(), "exclusive_zone", s.ExclusiveZone())
	return w, nil
}

// forward hands surface events to the loop until stop is closed.
func (w *Window) forward(stop <-chan struct{}) {
	input := w.surface.Input()
	for {
		select {
		case <-stop:
			return
		case <-w.surface.Done():
			w.log.Info("surface destroyed")
			w.Destroy()
			return
		case c, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			w.loop.Post(func() { w.route(c) })
		}
	}
}

// Attach installs row as the window's content. It may be called once,
// and a row belongs to at most one window.
func (w *Window) Attach(row *Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Terminated {
		return ErrTerminated
	}
	if w.row != nil {
		return ErrDoubleAttach
	}
	if row == nil {
		return errors.New("nil row")
	}
	if row.sealed {
		return fmt.Errorf("attach: %w", ErrSealed)
	}
	row.seal()
	w.row = row
	return nil
}

// Row returns the attached row, or nil.
func (w *Window) Row() *Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.row
}

// Surface returns the anchored surface.
func (w *Window) Surface() shell.Surface { return w.surface }

// State returns the current lifecycle stage.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ShowAndRun presents the bar and runs the loop until the window is
// destroyed or ctx is done. It returns nil on an orderly shutdown,
// including a destroy that lands before the loop starts.
func (w *Window) ShowAndRun(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.state == Terminated:
		w.mu.Unlock()
		return ErrTerminated
	case w.state == Running:
		w.mu.Unlock()
		return errors.New("window already running")
	case w.row == nil:
		w.mu.Unlock()
		return ErrNotAttached
	}
	w.state = Running
	w.mu.Unlock()

	// Show before the first event so the bar never appears empty.
	err := w.loop.Post(w.present)
	if err == nil {
		err = w.loop.Run(ctx)
	}
	w.terminate()
	if errors.Is(err, loop.ErrClosed) {
		// Destroyed before the loop got going, usually by the surface.
		return nil
	}
	return err
}

// Destroy closes the window and stops the loop. Timers and
// subscriptions are gone when it returns. It is safe from any
// goroutine.
func (w *Window) Destroy() {
	w.loop.Quit()
	w.terminate()
}

func (w *Window) terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Terminated {
		return
	}
	w.state = Terminated
	if err := w.surface.Close(); err != nil {
		w.log.Warn("close surface", "err", err)
	}
}

// present pushes the row's current frame to the surface if it changed.
// It runs on the loop goroutine after every batch of callbacks, so a
// frame always reflects whole updates.
func (w *Window) present() {
	w.mu.Lock()
	row, state := w.row, w.state
	w.mu.Unlock()
	if state != Running || row == nil {
		return
	}

	f := row.Frame()
	if w.presented && f.Equal(w.last) {
		return
	}
	if err := w.surface.Present(f); err != nil {
		w.log.Warn("present frame", "err", err)
		return
	}
	w.last, w.presented = f, true
}

// route delivers a click to the region that drew the clicked cell.
func (w *Window) route(c shell.Click) {
	row := w.Row()
	if row == nil {
		return
	}
	r, ok := row.Find(c.Name)
	if !ok {
		w.log.Debug("click on unknown region", "name", c.Name)
		return
	}
	if clicker, ok := r.(blocks.Clicker); ok {
		clicker.Click(c)
	}
}
