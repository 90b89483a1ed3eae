// Package shell is the thin contract over the compositor's layer-shell
// capability: which edges a surface is anchored to, how much exclusive
// space it reserves, and how composed frames reach the screen.
package shell

import (
	"errors"
	"strings"
)

// ErrUnavailable is returned (wrapped) by Shell.Acquire when the
// capability cannot be obtained in the current environment.
var ErrUnavailable = errors.New("layer-shell capability unavailable")

// Edges is a set of screen edges.
type Edges uint8

const (
	EdgeTop Edges = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight

	EdgeNone Edges = 0
)

// Has reports whether every edge in o is set in e.
func (e Edges) Has(o Edges) bool {
	return e&o == o
}

func (e Edges) String() string {
	if e == EdgeNone {
		return "none"
	}
	var parts []string
	for _, edge := range []struct {
		bit  Edges
		name string
	}{
		{EdgeTop, "top"},
		{EdgeBottom, "bottom"},
		{EdgeLeft, "left"},
		{EdgeRight, "right"},
	} {
		if e&edge.bit != 0 {
			parts = append(parts, edge.name)
		}
	}
	return strings.Join(parts, "|")
}

// ExclusiveZone is the amount of screen space reserved for a surface.
// Positive values are in the backend's native unit (pixels or rows).
type ExclusiveZone int

// ExclusiveAuto asks the backend to reserve exactly the surface's own
// rendered height.
const ExclusiveAuto ExclusiveZone = -1

// Request describes how a surface wants to be placed.
type Request struct {
	Edges     Edges
	Exclusive ExclusiveZone
}

// Shell hands out anchored surfaces.
type Shell interface {
	// Name identifies the backend for logging.
	Name() string

	// Acquire anchors a new surface. Failures wrap ErrUnavailable.
	Acquire(req Request) (Surface, error)
}

// Surface is an anchored, always-visible surface.
type Surface interface {
	// Anchors returns the edges the surface is anchored to.
	Anchors() Edges

	// ExclusiveZone returns the resolved amount of reserved space.
	ExclusiveZone() int

	// Present replaces everything on the surface with frame.
	Present(frame Frame) error

	// Input delivers pointer events. It may be nil if the backend has
	// no input.
	Input() <-chan Click

	// Done is closed when the surface is destroyed from outside, for
	// example when the hosting bar process goes away.
	Done() <-chan struct{}

	// Close releases the surface. It is safe to call more than once.
	Close() error
}

// Click is a pointer event on a cell.
type Click struct {
	Name      string
	Instance  string
	Button    int
	X, Y      int
	Modifiers []string
}

// fullWidth reports whether req describes a bar spanning one horizontal
// edge of the screen, returning that edge.
func fullWidth(req Request) (Edges, bool) {
	if !req.Edges.Has(EdgeLeft | EdgeRight) {
		return EdgeNone, false
	}
	switch {
	case req.Edges.Has(EdgeTop) && !req.Edges.Has(EdgeBottom):
		return EdgeTop, true
	case req.Edges.Has(EdgeBottom) && !req.Edges.Has(EdgeTop):
		return EdgeBottom, true
	}
	return EdgeNone, false
}
