package blocks

import (
	"fmt"
	"strconv"
	"time"

	"taskbar/loop"
	"taskbar/theme"
)

// Reading is one sample from a Poller.
type Reading struct {
	Text     string
	Severity theme.Severity
}

// Poller produces status readings on demand.
type Poller interface {
	Sample() (Reading, error)
}

// PollerFunc adapts a function to Poller.
type PollerFunc func() (Reading, error)

func (f PollerFunc) Sample() (Reading, error) { return f() }

// Poll samples p into b now and then every interval on l.
func Poll(l *loop.Loop, b *StatusBlock, p Poller, interval time.Duration) error {
	b.Apply(p.Sample())
	_, err := l.Every(interval, false, func() {
		b.Apply(p.Sample())
	})
	if err != nil {
		return fmt.Errorf("poll %s: %w", b.Name(), err)
	}
	return nil
}

func formatPercent(p float64, precision int) string {
	if precision == 0 {
		return strconv.FormatInt(int64(p+0.5), 10) + "%"
	}
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}
