package blocks

import (
	"log/slog"
	"slices"
	"strconv"

	"taskbar/shell"
	"taskbar/theme"
)

// Workspace describes one workspace as reported by the window manager.
type Workspace struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
	Urgent  bool   `json:"urgent"`
	Output  string `json:"output"`
}

// WorkspaceSwitcher shows one cell per workspace and highlights the
// focused one.
type WorkspaceSwitcher struct {
	name     string
	palette  theme.Palette
	log      *slog.Logger
	list     []Workspace
	received bool
	failed   bool
	onSelect func(Workspace)
}

func NewWorkspaceSwitcher(name string, palette theme.Palette, log *slog.Logger) *WorkspaceSwitcher {
	return &WorkspaceSwitcher{
		name:    name,
		palette: palette,
		log:     log.With("region", name),
	}
}

func (w *WorkspaceSwitcher) Name() string { return w.name }
func (w *WorkspaceSwitcher) Kind() Kind { return KindWorkspaces }
func (*WorkspaceSwitcher) region() {}

// Update replaces the displayed workspaces. The slice is copied, so the
// caller may reuse it.
func (w *WorkspaceSwitcher) Update(list []Workspace) {
	w.list = slices.Clone(list)
	w.received = true
	w.failed = false
}

// Fail records that the workspace source could not produce a list. The
// last list stays on screen.
func (w *WorkspaceSwitcher) Fail(err error) {
	w.log.Warn("workspace update failed", "err", err)
	w.failed = true
}

// Workspaces returns a copy of the displayed list.
func (w *WorkspaceSwitcher) Workspaces() []Workspace {
	return slices.Clone(w.list)
}

// Focused returns the focused workspace, if any.
func (w *WorkspaceSwitcher) Focused() (Workspace, bool) {
	i := slices.IndexFunc(w.list, func(ws Workspace) bool { return ws.Focused })
	if i < 0 {
		return Workspace{}, false
	}
	return w.list[i], true
}

// OnSelect sets the function called when a workspace cell is clicked.
func (w *WorkspaceSwitcher) OnSelect(fn func(Workspace)) {
	w.onSelect = fn
}

func (w *WorkspaceSwitcher) Click(c shell.Click) {
	if w.onSelect == nil || c.Button != 1 {
		return
	}
	for _, ws := range w.list {
		if strconv.FormatInt(ws.ID, 10) == c.Instance {
			w.onSelect(ws)
			return
		}
	}
}

func (w *WorkspaceSwitcher) Render() []shell.Cell {
	if !w.received && w.failed {
		return []shell.Cell{placeholder(w.name, "?", w.palette)}
	}
	cells := make([]shell.Cell, 0, len(w.list))
	for _, ws := range w.list {
		c := shell.Cell{
			Name:     w.name,
			Instance: strconv.FormatInt(ws.ID, 10),
			Text:     ws.Name,
			Urgent:   ws.Urgent,
		}
		if ws.Focused {
			c.Background = w.palette.Focused
		}
		if ws.Urgent {
			c.Color, _ = w.palette.ColorFor(theme.SeverityDanger)
		}
		cells = append(cells, c)
	}
	return cells
}
