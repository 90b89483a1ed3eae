package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Backend  string   `toml:"backend"` // i3bar | term | snapshot
	Spacing  int      `toml:"spacing"` // margin between END-group regions
	Snapshot Snapshot `toml:"snapshot"`
	Modules  Modules  `toml:"modules"`

	moduleOrder []string // order of module tables as they appeared in TOML
}

type Snapshot struct {
	Path  string `toml:"path"`
	Width int    `toml:"width"` // pixels
}

type Modules struct {
	Workspaces WorkspacesModule `toml:"workspaces"`
	Clock      ClockModule      `toml:"clock"`
	CPU        CPUModule        `toml:"cpu"`
	Mem        MemoryModule     `toml:"mem"`
	Labels     []LabelModule    `toml:"label"`
	Files      []FileModule     `toml:"file"`
}

type WorkspacesModule struct {
	Enabled bool   `toml:"enabled"`
	Swaymsg string `toml:"swaymsg"` // swaymsg binary
}

type ClockModule struct {
	Enabled    bool   `toml:"enabled"`
	Format     string `toml:"format"`      // Go layout, or strftime when it contains '%'
	IntervalMs int    `toml:"interval_ms"` // tick interval (default 1000)
}

type CPUModule struct {
	Enabled       bool   `toml:"enabled"`
	IntervalSec   int    `toml:"interval_sec"`   // sampling interval seconds (default 2)
	WarnPercent   int    `toml:"warn_percent"`   // warn threshold (default 70)
	DangerPercent int    `toml:"danger_percent"` // danger threshold (default 90)
	Precision     int    `toml:"precision"`      // decimals (0 or 1)
	Prefix        string `toml:"prefix"`
}

type MemoryModule struct {
	Enabled       bool   `toml:"enabled"`
	IntervalSec   int    `toml:"interval_sec"` // sampling interval seconds (default 5)
	WarnPercent   int    `toml:"warn_percent"`
	DangerPercent int    `toml:"danger_percent"`
	Precision     int    `toml:"precision"`
	Prefix        string `toml:"prefix"`
	Format        string `toml:"format"` // one of: percent, available, used
}

// LabelModule is a status block with fixed text.
type LabelModule struct {
	Name string `toml:"name"`
	Text string `toml:"text"`
}

// FileModule is a status block showing the first line of a file,
// refreshed whenever the file changes.
type FileModule struct {
	Name   string `toml:"name"`
	Path   string `toml:"path"`
	Prefix string `toml:"prefix"`
}

func Defaults() *Config {
	return &Config{
		Backend:  "i3bar",
		Spacing:  10,
		Snapshot: Snapshot{Path: "taskbar.png", Width: 1280},
		Modules: Modules{
			Workspaces: WorkspacesModule{Enabled: true, Swaymsg: "swaymsg"},
			Clock:      ClockModule{Enabled: true, Format: "2006-01-02 15:04:05", IntervalMs: 1000},
			CPU:        CPUModule{Enabled: false, IntervalSec: 2, WarnPercent: 70, DangerPercent: 90, Precision: 0, Prefix: "CPU"},
			Mem:        MemoryModule{Enabled: false, IntervalSec: 5, WarnPercent: 70, DangerPercent: 90, Precision: 0, Prefix: "MEM", Format: "percent"},
			Labels: []LabelModule{
				{Name: "brightness", Text: "✲ 50"},
				{Name: "volume", Text: "𝅘𝅥𝅯 30"},
			},
		},
	}
}

// Load loads configuration from explicit path or discovered search path.
// Precedence: provided path (if exists) else first existing search path else defaults.
// Missing file yields defaults and an error; parse errors also return defaults + error.
func Load(path string) (*Config, error) {
	var chosen string
	if path != "" {
		chosen = path
	} else {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err == nil {
				chosen = p
				break
			}
		}
	}
	if chosen == "" {
		return Defaults(), errors.New("no config file found; using defaults")
	}
	data, err := os.ReadFile(chosen)
	if err != nil {
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a TOML document onto the defaults.
func Parse(doc string) (*Config, error) {
	cfg := Defaults()
	// Array tables replace the default labels rather than appending.
	cfg.Modules.Labels = nil
	md, err := toml.Decode(doc, cfg)
	if err != nil {
		return Defaults(), fmt.Errorf("parse config: %w", err)
	}
	if !md.IsDefined("modules", "label") {
		cfg.Modules.Labels = Defaults().Modules.Labels
	}
	// Capture module order from metadata keys: modules.<name>
	seen := map[string]struct{}{}
	for _, k := range md.Keys() {
		if len(k) == 2 && k[0] == "modules" {
			name := k[1]
			if _, ok := seen[name]; !ok {
				cfg.moduleOrder = append(cfg.moduleOrder, name)
				seen[name] = struct{}{}
			}
		}
	}
	cfg.normalize()

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return cfg, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

func searchPaths() []string {
	var out []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "taskbar", "config.toml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, filepath.Join(home, ".config", "taskbar", "config.toml"))
	}
	return out
}

// normalize clamps and validates config values after decoding.
func (c *Config) normalize() {
	c.normalizeBar()
	c.normalizeClock()
	c.normalizeCPU()
	c.normalizeMem()
	c.normalizeBlocks()
}

// ModuleOrder returns a copy of the module order slice (may be empty).
func (c *Config) ModuleOrder() []string {
	if len(c.moduleOrder) == 0 {
		return nil
	}
	out := make([]string, len(c.moduleOrder))
	copy(out, c.moduleOrder)
	return out
}

func (c *Config) normalizeBar() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if !ValidBackend(c.Backend) {
		c.Backend = "i3bar"
	}
	if c.Spacing < 0 {
		c.Spacing = 0
	}
	if c.Spacing > 64 {
		c.Spacing = 64
	}
	c.Snapshot.Width = clampInt(c.Snapshot.Width, 64, 16384, 1280)
	if c.Modules.Workspaces.Swaymsg == "" {
		c.Modules.Workspaces.Swaymsg = "swaymsg"
	}
}

func (c *Config) normalizeClock() {
	c.Modules.Clock.IntervalMs = clampInt(c.Modules.Clock.IntervalMs, 100, 60000, 1000)
	if c.Modules.Clock.Format == "" {
		c.Modules.Clock.Format = "2006-01-02 15:04:05"
	}
}

func (c *Config) normalizeCPU() {
	if c.Modules.CPU.IntervalSec <= 0 {
		c.Modules.CPU.IntervalSec = 2
	}
	c.Modules.CPU.Precision = clampInt(c.Modules.CPU.Precision, 0, 1, 0)
}

func (c *Config) normalizeMem() {
	if c.Modules.Mem.IntervalSec <= 0 {
		c.Modules.Mem.IntervalSec = 5
	}
	c.Modules.Mem.Precision = clampInt(c.Modules.Mem.Precision, 0, 1, 0)
	c.Modules.Mem.Format = strings.ToLower(c.Modules.Mem.Format)
	if !validMemFormat(c.Modules.Mem.Format) {
		c.Modules.Mem.Format = "percent"
	}
}

// normalizeBlocks gives unnamed label and file blocks stable names so
// clicks and logs can refer to them.
func (c *Config) normalizeBlocks() {
	for i := range c.Modules.Labels {
		if c.Modules.Labels[i].Name == "" {
			c.Modules.Labels[i].Name = fmt.Sprintf("label%d", i)
		}
	}
	files := c.Modules.Files[:0]
	for i, f := range c.Modules.Files {
		if f.Path == "" {
			continue
		}
		if f.Name == "" {
			f.Name = fmt.Sprintf("file%d", i)
		}
		files = append(files, f)
	}
	c.Modules.Files = files
}

// ValidBackend reports whether name is a known shell backend.
func ValidBackend(name string) bool {
	switch name {
	case "i3bar", "term", "snapshot":
		return true
	}
	return false
}

func clampInt(val, min, max, fallback int) int {
	if val == 0 && fallback != 0 { // allow zero to trigger fallback when min>0
		val = fallback
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func validMemFormat(f string) bool {
	switch f {
	case "percent", "available", "used":
		return true
	}
	return false
}
