// Package theme holds the bar's colours. Only abnormal states and the
// focused workspace are coloured; everything else is left to the
// surface's own foreground so the host bar's theme applies.
package theme

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

type Palette struct {
	Foreground string
	Background string
	Focused    string // focused workspace background
	Warn       string
	Danger     string
}

var Default = Palette{
	Foreground: "#d8dee9",
	Background: "#2e3440",
	Focused:    "#5e81ac",
	Warn:       "#d08770", // orange
	Danger:     "#bf616a", // red
}

type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarn
	SeverityDanger
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityDanger:
		return "danger"
	default:
		return "normal"
	}
}

// ColorFor returns the hex colour and true if sev maps to a colour.
func (p Palette) ColorFor(sev Severity) (string, bool) {
	switch sev {
	case SeverityWarn:
		return p.Warn, true
	case SeverityDanger:
		return p.Danger, true
	default:
		return "", false
	}
}

// Threshold classifies v against warn and danger limits.
func Threshold(v, warn, danger float64) Severity {
	switch {
	case v >= danger:
		return SeverityDanger
	case v >= warn:
		return SeverityWarn
	default:
		return SeverityNormal
	}
}

// Parse converts "#rrggbb" or "#rrggbbaa" to a colour.
func Parse(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("colour %q: want #rrggbb or #rrggbbaa", hex)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", hex, err)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
