package blocks

import (
	"fmt"
	"log/slog"
	"time"

	"taskbar/config"
	"taskbar/loop"
	"taskbar/theme"
)

// Env is what builders need to create and wire regions.
type Env struct {
	Loop    *loop.Loop
	Palette theme.Palette
	Log     *slog.Logger
}

// Spec describes how to enable and build the regions of one module.
// A module may produce several regions (one per label, for example).
type Spec struct {
	Name   string
	Enable func(*config.Config) bool
	Build  func(*config.Config, Env) ([]Region, error)
}

var (
	reg      = map[string]Spec{}
	regOrder []string
)

// Register adds a spec if not already present. Subsequent registrations
// with the same name overwrite the spec but preserve original ordering.
func Register(spec Spec) {
	if _, exists := reg[spec.Name]; !exists {
		regOrder = append(regOrder, spec.Name)
	}
	reg[spec.Name] = spec
}

// BuildEnd returns the status regions of the END group in insertion
// order:
// 1. Order of module tables as specified in config file.
// 2. Without a file, registration order.
//
// A module that fails to build is logged and left out; the bar still
// starts with the rest.
func BuildEnd(cfg *config.Config, env Env) []Region {
	order := cfg.ModuleOrder()
	if len(order) == 0 {
		order = regOrder
	}

	var regions []Region
	for _, name := range order {
		spec, ok := reg[name]
		if !ok {
			continue // unknown name in config, or a START module
		}
		if spec.Enable != nil && !spec.Enable(cfg) {
			continue
		}
		built, err := spec.Build(cfg, env)
		if err != nil {
			env.Log.Error("build module", "module", name, "err", err)
			continue
		}
		regions = append(regions, built...)
	}
	return regions
}

func init() {
	Register(Spec{
		Name:   "clock",
		Enable: func(c *config.Config) bool { return c.Modules.Clock.Enabled },
		Build:  buildClock,
	})
	Register(Spec{
		Name:  "label",
		Build: buildLabels,
	})
	Register(Spec{
		Name:   "cpu",
		Enable: func(c *config.Config) bool { return c.Modules.CPU.Enabled },
		Build: func(c *config.Config, env Env) ([]Region, error) {
			b := NewStatusBlock("cpu", "", env.Palette, env.Log)
			iv := time.Duration(min(c.Modules.CPU.IntervalSec, 30)) * time.Second
			return []Region{b}, Poll(env.Loop, b, NewCPU(c.Modules.CPU), iv)
		},
	})
	Register(Spec{
		Name:   "mem",
		Enable: func(c *config.Config) bool { return c.Modules.Mem.Enabled },
		Build: func(c *config.Config, env Env) ([]Region, error) {
			b := NewStatusBlock("mem", "", env.Palette, env.Log)
			iv := time.Duration(min(c.Modules.Mem.IntervalSec, 60)) * time.Second
			return []Region{b}, Poll(env.Loop, b, NewMemory(c.Modules.Mem), iv)
		},
	})
	Register(Spec{
		Name:  "file",
		Build: buildFiles,
	})
}

func buildClock(c *config.Config, env Env) ([]Region, error) {
	clk := NewClock("clock", Layout(c.Modules.Clock.Format), env.Loop.Clock().Now, env.Palette, env.Log)
	iv := time.Duration(c.Modules.Clock.IntervalMs) * time.Millisecond
	if _, err := env.Loop.Every(iv, true, clk.Tick); err != nil {
		return nil, fmt.Errorf("clock timer: %w", err)
	}
	return []Region{clk}, nil
}

func buildLabels(c *config.Config, env Env) ([]Region, error) {
	regions := make([]Region, 0, len(c.Modules.Labels))
	for _, l := range c.Modules.Labels {
		regions = append(regions, NewStatusBlock(l.Name, l.Text, env.Palette, env.Log))
	}
	return regions, nil
}

func buildFiles(c *config.Config, env Env) ([]Region, error) {
	regions := make([]Region, 0, len(c.Modules.Files))
	for _, f := range c.Modules.Files {
		b := NewStatusBlock(f.Name, "", env.Palette, env.Log)
		if err := WatchFile(env.Loop, b, f.Path, f.Prefix, env.Log); err != nil {
			// Keep the block; it shows its error placeholder.
			b.Apply(Reading{}, err)
		}
		regions = append(regions, b)
	}
	return regions, nil
}
