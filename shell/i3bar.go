package shell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"

	"taskbar/clicks"
)

// I3bar presents frames through the swaybar/i3bar status protocol. The
// hosting bar owns the layer surface: it is configured with "position
// bottom" and reserves its own exclusive zone, so the only thing this
// backend can verify is that it really is talking to a bar and not to a
// terminal.
type I3bar struct {
	Out io.Writer
	In  io.Reader
	Log *slog.Logger
}

func (b *I3bar) Name() string { return "i3bar" }

func (b *I3bar) Acquire(req Request) (Surface, error) {
	if _, ok := fullWidth(req); !ok {
		return nil, fmt.Errorf("i3bar: cannot anchor to %v: %w", req.Edges, ErrUnavailable)
	}
	if f, ok := b.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("i3bar: stdout is a terminal, not a status_command pipe: %w", ErrUnavailable)
	}

	// Header, then the opening of the endless array. Every subsequent
	// row is comma-prefixed.
	if _, err := fmt.Fprintln(b.Out, `{"version":1,"click_events":true}`); err != nil {
		return nil, fmt.Errorf("i3bar: write header: %w: %w", err, ErrUnavailable)
	}
	fmt.Fprintln(b.Out, "[")
	fmt.Fprintln(b.Out, "[]")

	s := &i3barSurface{
		out:   b.Out,
		log:   b.Log,
		edges: req.Edges,
		input: make(chan Click, 16),
		done:  make(chan struct{}),
	}
	go s.readClicks(b.In)
	return s, nil
}

// i3block is one block of the status line.
type i3block struct {
	Name                string `json:"name,omitempty"`
	Instance            string `json:"instance,omitempty"`
	FullText            string `json:"full_text"`
	Color               string `json:"color,omitempty"`
	Background          string `json:"background,omitempty"`
	Separator           bool   `json:"separator"`
	SeparatorBlockWidth int    `json:"separator_block_width"`
	Urgent              bool   `json:"urgent,omitempty"`
}

func newI3block(c Cell, gap int) i3block {
	return i3block{
		Name:                c.Name,
		Instance:            c.Instance,
		FullText:            c.Text,
		Color:               c.Color,
		Background:          c.Background,
		SeparatorBlockWidth: gap,
		Urgent:              c.Urgent,
	}
}

type i3barSurface struct {
	mu    sync.Mutex
	out   io.Writer
	buf   bytes.Buffer
	log   *slog.Logger
	edges Edges

	input     chan Click
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

func (s *i3barSurface) Anchors() Edges { return s.edges }
func (s *i3barSurface) ExclusiveZone() int { return 1 }
func (s *i3barSurface) Input() <-chan Click { return s.input }
func (s *i3barSurface) Done() <-chan struct{} { return s.done }

func (s *i3barSurface) Present(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	row := make([]i3block, 0, len(frame.Start)+len(frame.End))
	// Start cells sit flush against each other; the margin only
	// separates end siblings. An explicit zero overrides swaybar's
	// default gap.
	for _, c := range frame.Start {
		row = append(row, newI3block(c, 0))
	}
	for _, c := range frame.End {
		row = append(row, newI3block(c, frame.Spacing))
	}

	s.buf.Reset()
	s.buf.WriteByte(',')
	if err := json.NewEncoder(&s.buf).Encode(row); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if _, err := s.out.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

func (s *i3barSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// readClicks forwards click events until stdin closes. The bar closing
// our stdin means it is gone, which is the destroy event.
func (s *i3barSurface) readClicks(in io.Reader) {
	defer s.closeOnce.Do(func() { close(s.done) })

	raw := make(chan clicks.Click, 16)
	go func() {
		for c := range raw {
			select {
			case s.input <- Click(c):
			default:
			}
		}
	}()

	if err := clicks.Read(in, raw, s.log); err != nil {
		s.log.Warn("read clicks", "err", err)
	}
	close(raw)
}
