package blocks

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"taskbar/shell"
	"taskbar/theme"
)

// Formatter turns a time into the clock's text.
type Formatter func(time.Time) (string, error)

// Layout returns a Formatter for a Go reference layout, or for a
// strftime pattern when layout contains '%'.
func Layout(layout string) Formatter {
	strf := strings.Contains(layout, "%")
	return func(t time.Time) (string, error) {
		var s string
		if strf {
			s = strftime.Format(layout, t)
		} else {
			s = t.Format(layout)
		}
		if s == "" {
			return "", errors.New("empty time format")
		}
		return s, nil
	}
}

// Clock shows the current time. Tick is driven by a loop timer.
type Clock struct {
	name    string
	format  Formatter
	now     func() time.Time
	palette theme.Palette
	log     *slog.Logger
	text    string
}

// NewClock returns a clock that has already ticked once.
func NewClock(name string, format Formatter, now func() time.Time, palette theme.Palette, log *slog.Logger) *Clock {
	c := &Clock{
		name:    name,
		format:  format,
		now:     now,
		palette: palette,
		log:     log.With("region", name),
	}
	c.Tick()
	return c
}

func (c *Clock) Name() string { return c.name }
func (c *Clock) Kind() Kind { return KindClock }
func (*Clock) region() {}

// Text returns the displayed time, empty if no tick ever succeeded.
func (c *Clock) Text() string { return c.text }

// Tick recomputes the displayed time. A failing formatter leaves the
// previous text in place.
func (c *Clock) Tick() {
	txt, err := c.formatNow()
	if err != nil {
		c.log.Warn("format time", "err", err)
		return
	}
	c.text = txt
}

func (c *Clock) formatNow() (txt string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panicked: %v", r)
		}
	}()
	return c.format(c.now())
}

func (c *Clock) Render() []shell.Cell {
	if c.text == "" {
		return []shell.Cell{placeholder(c.name, "--:--", c.palette)}
	}
	return []shell.Cell{{Name: c.name, Text: c.text}}
}
