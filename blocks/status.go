package blocks

import (
	"log/slog"

	"taskbar/shell"
	"taskbar/theme"
)

// StatusBlock is a label, optionally driven by a Poller or a watched
// file. Its text only ever changes through SetText and Apply.
type StatusBlock struct {
	name     string
	text     string
	severity theme.Severity
	palette  theme.Palette
	log      *slog.Logger
	failed   bool
}

func NewStatusBlock(name, text string, palette theme.Palette, log *slog.Logger) *StatusBlock {
	return &StatusBlock{
		name:    name,
		text:    text,
		palette: palette,
		log:     log.With("region", name),
	}
}

func (b *StatusBlock) Name() string { return b.name }
func (b *StatusBlock) Kind() Kind { return KindStatus }
func (*StatusBlock) region() {}

// Text returns the displayed text.
func (b *StatusBlock) Text() string { return b.text }

// SetText replaces the displayed text and clears any severity.
func (b *StatusBlock) SetText(text string) {
	b.text = text
	b.severity = theme.SeverityNormal
	b.failed = false
}

// Apply shows the result of a poll. On error the last good reading
// stays on screen; a block that never had one shows an error
// placeholder.
func (b *StatusBlock) Apply(r Reading, err error) {
	if err != nil {
		b.log.Warn("status update failed", "err", err)
		b.failed = true
		return
	}
	b.text = r.Text
	b.severity = r.Severity
	b.failed = false
}

func (b *StatusBlock) Render() []shell.Cell {
	if b.text == "" && b.failed {
		return []shell.Cell{placeholder(b.name, b.name+" err", b.palette)}
	}
	c := shell.Cell{Name: b.name, Text: b.text}
	if color, ok := b.palette.ColorFor(b.severity); ok {
		c.Color = color
	}
	return []shell.Cell{c}
}
