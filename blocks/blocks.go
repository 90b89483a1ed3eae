// Package blocks holds the regions of the bar: the workspace switcher,
// the clock and generic status blocks. Regions are only ever touched on
// the event loop goroutine.
package blocks

import (
	"fmt"

	"taskbar/shell"
	"taskbar/theme"
)

// Kind tags the closed set of region variants.
type Kind int

const (
	KindWorkspaces Kind = iota
	KindClock
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindWorkspaces:
		return "workspaces"
	case KindClock:
		return "clock"
	case KindStatus:
		return "status"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Region is an independently updating unit of the bar. The set of
// implementations is closed: *WorkspaceSwitcher, *Clock and
// *StatusBlock.
type Region interface {
	// Name identifies the region in logs and in click events.
	Name() string

	Kind() Kind

	// Render returns the cells currently displayed, left to right.
	Render() []shell.Cell

	region()
}

// Clicker is implemented by regions that react to clicks.
type Clicker interface {
	Click(shell.Click)
}

// placeholder is shown by a region that failed before it ever had
// something to display.
func placeholder(name, text string, palette theme.Palette) shell.Cell {
	c := shell.Cell{Name: name, Text: text}
	if color, ok := palette.ColorFor(theme.SeverityDanger); ok {
		c.Color = color
	}
	return c
}
