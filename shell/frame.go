package shell

import "slices"

// Cell is one drawable unit of a frame. A region renders to one or more
// cells; Name identifies the owning region so input can be routed back.
type Cell struct {
	Name       string `yaml:"name"`
	Instance   string `yaml:"instance,omitempty"`
	Text       string `yaml:"text"`
	Color      string `yaml:"color,omitempty"`
	Background string `yaml:"background,omitempty"`
	Urgent     bool   `yaml:"urgent,omitempty"`
}

// Frame is a complete, composed bar. Start cells are drawn flush to the
// left edge and End cells flush to the right edge, both already in
// visual left-to-right order.
type Frame struct {
	Start   []Cell `yaml:"start"`
	End     []Cell `yaml:"end"`
	Spacing int    `yaml:"spacing"`
}

// Equal reports whether two frames would draw identically.
func (f Frame) Equal(o Frame) bool {
	return f.Spacing == o.Spacing &&
		slices.Equal(f.Start, o.Start) &&
		slices.Equal(f.End, o.End)
}

// Cells returns all cells in visual left-to-right order.
func (f Frame) Cells() []Cell {
	out := make([]Cell, 0, len(f.Start)+len(f.End))
	out = append(out, f.Start...)
	return append(out, f.End...)
}

// Box is a cell placed on a surface of a given width.
type Box struct {
	Cell  Cell
	X     int
	Width int
}

// Arrange lays frame out on a surface width units wide. measure returns
// the width of a text in the same unit. Start cells are packed from the
// left edge. End cells are packed from the right edge, each preceded by
// spacing. Space between the groups stays empty; cells that do not fit
// are still placed and left for the backend to clip.
func Arrange(frame Frame, width int, measure func(string) int) []Box {
	boxes := make([]Box, 0, len(frame.Start)+len(frame.End))

	x := 0
	for _, c := range frame.Start {
		w := measure(c.Text)
		boxes = append(boxes, Box{Cell: c, X: x, Width: w})
		x += w
	}

	end := make([]Box, len(frame.End))
	x = width
	for i := len(frame.End) - 1; i >= 0; i-- {
		c := frame.End[i]
		w := measure(c.Text)
		x -= w
		end[i] = Box{Cell: c, X: x, Width: w}
		x -= frame.Spacing
	}

	return append(boxes, end...)
}
