package bar

import (
	"errors"
	"fmt"

	"taskbar/blocks"
	"taskbar/shell"
)

// ErrSealed is returned when adding to a row that is already attached
// to a window; the composition is fixed from then on.
var ErrSealed = errors.New("row is attached; composition is fixed")

// Placement selects the group a region is packed into.
type Placement int

const (
	// Start packs regions left to right from the left edge.
	Start Placement = iota
	// End packs regions right to left from the right edge: the last
	// region added is the leftmost of the group.
	End
)

func (p Placement) String() string {
	if p == End {
		return "end"
	}
	return "start"
}

// Entry is a region together with its placement.
type Entry struct {
	Region    blocks.Region
	Placement Placement
}

// Row is the bar's single horizontal container.
type Row struct {
	entries []Entry
	spacing int
	sealed  bool
}

// NewRow returns an empty row with spacing units between END regions.
func NewRow(spacing int) *Row {
	return &Row{spacing: max(spacing, 0)}
}

// Add appends region to the given group.
func (r *Row) Add(region blocks.Region, p Placement) error {
	if r.sealed {
		return ErrSealed
	}
	if region == nil {
		return errors.New("nil region")
	}
	if p != Start && p != End {
		return fmt.Errorf("invalid placement %d", int(p))
	}
	r.entries = append(r.entries, Entry{Region: region, Placement: p})
	return nil
}

// Entries returns the regions in insertion order.
func (r *Row) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Find returns the region with the given name.
func (r *Row) Find(name string) (blocks.Region, bool) {
	for _, e := range r.entries {
		if e.Region.Name() == name {
			return e.Region, true
		}
	}
	return nil, false
}

// Frame renders every region into a frame in visual order.
func (r *Row) Frame() shell.Frame {
	f := shell.Frame{Spacing: r.spacing}
	for _, e := range r.entries {
		if e.Placement == Start {
			f.Start = append(f.Start, e.Region.Render()...)
		}
	}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if e := r.entries[i]; e.Placement == End {
			f.End = append(f.End, e.Region.Render()...)
		}
	}
	return f
}

func (r *Row) seal() { r.sealed = true }
