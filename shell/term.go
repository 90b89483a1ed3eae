package shell

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Term draws the bar on the first or last rows of a terminal. The
// exclusive zone is a scroll region that keeps other output off the
// bar's rows.
type Term struct {
	Out        *os.File
	Foreground string
	Background string
}

func (t *Term) Name() string { return "term" }

func (t *Term) Acquire(req Request) (Surface, error) {
	edge, ok := fullWidth(req)
	if !ok {
		return nil, fmt.Errorf("term: cannot anchor to %v: %w", req.Edges, ErrUnavailable)
	}
	fd := int(t.Out.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("term: stdout is not a terminal: %w", ErrUnavailable)
	}
	_, h, err := term.GetSize(fd)
	if err != nil {
		return nil, fmt.Errorf("term: size: %w: %w", err, ErrUnavailable)
	}

	zone := int(req.Exclusive)
	if req.Exclusive == ExclusiveAuto || zone < 1 {
		zone = 1
	}
	if zone >= h {
		return nil, fmt.Errorf("term: %d rows cannot hold a %d row bar: %w", h, zone, ErrUnavailable)
	}

	s := &termSurface{
		out:   t.Out,
		fd:    fd,
		edges: req.Edges,
		edge:  edge,
		zone:  zone,
		base:  lipgloss.NewStyle(),
		done:  make(chan struct{}),
	}
	if t.Foreground != "" {
		s.base = s.base.Foreground(lipgloss.Color(t.Foreground))
	}
	if t.Background != "" {
		s.base = s.base.Background(lipgloss.Color(t.Background))
	}
	s.reserve(h)
	return s, nil
}

type termSurface struct {
	mu     sync.Mutex
	out    *os.File
	fd     int
	edges  Edges
	edge   Edges
	zone   int
	height int
	base   lipgloss.Style
	done   chan struct{}
	closed bool
}

func (s *termSurface) Anchors() Edges { return s.edges }
func (s *termSurface) ExclusiveZone() int { return s.zone }
func (s *termSurface) Input() <-chan Click { return nil }
func (s *termSurface) Done() <-chan struct{} { return s.done }

// reserve sets the scroll region so the rest of the terminal scrolls
// without touching the bar.
func (s *termSurface) reserve(h int) {
	s.height = h
	if s.edge == EdgeBottom {
		fmt.Fprintf(s.out, "\x1b[1;%dr", h-s.zone)
		return
	}
	fmt.Fprintf(s.out, "\x1b[%d;%dr", s.zone+1, h)
}

func (s *termSurface) firstRow() int {
	if s.edge == EdgeBottom {
		return s.height - s.zone + 1
	}
	return 1
}

func (s *termSurface) Present(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	w, h, err := term.GetSize(s.fd)
	if err != nil {
		return fmt.Errorf("term size: %w", err)
	}
	if h != s.height {
		s.reserve(h)
	}

	var sb strings.Builder
	sb.WriteString("\x1b7")
	for i := 0; i < s.zone; i++ {
		line := ""
		if i == 0 {
			line = s.line(frame, w)
		}
		fmt.Fprintf(&sb, "\x1b[%d;1H\x1b[2K%s", s.firstRow()+i, s.base.Width(w).Render(line))
	}
	sb.WriteString("\x1b8")

	_, err = s.out.WriteString(sb.String())
	return err
}

// line lays out one row of text w columns wide. Cells that would
// overlap an already drawn cell are dropped.
func (s *termSurface) line(frame Frame, w int) string {
	var sb strings.Builder
	col := 0
	for _, b := range Arrange(frame, w, lipgloss.Width) {
		if b.X < col || b.X+b.Width > w {
			continue
		}
		sb.WriteString(strings.Repeat(" ", b.X-col))
		sb.WriteString(s.cellStyle(b.Cell).Render(b.Cell.Text))
		col = b.X + b.Width
	}
	return sb.String()
}

func (s *termSurface) cellStyle(c Cell) lipgloss.Style {
	style := s.base
	if c.Color != "" {
		style = style.Foreground(lipgloss.Color(c.Color))
	}
	if c.Background != "" {
		style = style.Background(lipgloss.Color(c.Background))
	}
	if c.Urgent {
		style = style.Bold(true)
	}
	return style
}

func (s *termSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var sb strings.Builder
	sb.WriteString("\x1b7\x1b[r")
	for i := 0; i < s.zone; i++ {
		fmt.Fprintf(&sb, "\x1b[%d;1H\x1b[2K", s.firstRow()+i)
	}
	sb.WriteString("\x1b8")
	_, err := s.out.WriteString(sb.String())
	return err
}
