package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags are command line overrides for a loaded Config.
type Flags struct {
	Path     string
	Backend  string
	Snapshot string
	LogLevel string
}

// Bind registers the override flags on fs.
func (f *Flags) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Path, "config", "c", "", "path to config.toml (default: XDG search path)")
	fs.StringVarP(&f.Backend, "backend", "b", "", "shell backend: i3bar, term or snapshot")
	fs.StringVar(&f.Snapshot, "snapshot", "", "PNG path for the snapshot backend")
	fs.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// Apply overlays the flags that were set onto cfg.
func (f *Flags) Apply(cfg *Config) error {
	if f.Backend != "" {
		if !ValidBackend(f.Backend) {
			return fmt.Errorf("unknown backend %q", f.Backend)
		}
		cfg.Backend = f.Backend
	}
	if f.Snapshot != "" {
		cfg.Snapshot.Path = f.Snapshot
	}
	return nil
}
