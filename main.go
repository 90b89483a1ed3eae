package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskbar/bar"
	"taskbar/blocks"
	"taskbar/config"
	"taskbar/loop"
	"taskbar/shell"
	"taskbar/sway"
	"taskbar/theme"
)

func main() {
	if err := newApp().command().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares: flags, the loaded config and
// the logger.
type app struct {
	flags   config.Flags
	cfg     *config.Config
	log     *slog.Logger
	palette theme.Palette

	// termOut is where the term backend draws.
	termOut *os.File
}

func newApp() *app {
	return &app{palette: theme.Default, termOut: os.Stdout}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskbar",
		Short: "Bottom status bar with workspaces, clock and status blocks",
		Long: `taskbar draws a full-width bar anchored to the bottom of the screen.
Workspaces are packed on the left; the clock and status blocks on the right.

Run it as swaybar's status_command (the default i3bar backend), on a
terminal with --backend term, or render PNG previews with --backend snapshot.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.run,
	}
	a.flags.Bind(root.PersistentFlags())
	root.AddCommand(a.layoutCommand())
	return root
}

// setup builds the logger and loads the config. A missing or broken
// config file is not fatal: the bar starts on defaults.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.flags.LogLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.flags.Path)
	if err != nil {
		a.log.Warn("config", "err", err)
	}
	if err := a.flags.Apply(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) backend(cmd *cobra.Command) shell.Shell {
	switch a.cfg.Backend {
	case "term":
		return &shell.Term{
			Out:        a.termOut,
			Foreground: a.palette.Foreground,
			Background: a.palette.Background,
		}
	case "snapshot":
		return &shell.Snapshot{
			Path:    a.cfg.Snapshot.Path,
			Width:   a.cfg.Snapshot.Width,
			Palette: a.palette,
		}
	}
	return &shell.I3bar{Out: cmd.OutOrStdout(), In: cmd.InOrStdin(), Log: a.log}
}

// compose builds the row: workspaces at the start, every enabled status
// module at the end in config order.
func (a *app) compose(l *loop.Loop) (*bar.Row, *blocks.WorkspaceSwitcher, error) {
	row := bar.NewRow(a.cfg.Spacing)

	var sw *blocks.WorkspaceSwitcher
	if a.cfg.Modules.Workspaces.Enabled {
		sw = blocks.NewWorkspaceSwitcher("workspaces", a.palette, a.log)
		if err := row.Add(sw, bar.Start); err != nil {
			return nil, nil, err
		}
	}

	env := blocks.Env{Loop: l, Palette: a.palette, Log: a.log}
	for _, r := range blocks.BuildEnd(a.cfg, env) {
		if err := row.Add(r, bar.End); err != nil {
			return nil, nil, err
		}
	}
	return row, sw, nil
}

func (a *app) run(cmd *cobra.Command, _ []string) error {
	l := loop.New(loop.Real(), a.log)
	win, err := bar.Create(a.backend(cmd), l, a.log)
	if err != nil {
		a.log.Error("cannot show bar", "err", err)
		return err
	}

	row, sw, err := a.compose(l)
	if err != nil {
		win.Destroy()
		return err
	}
	if sw != nil {
		client := sway.New(a.cfg.Modules.Workspaces.Swaymsg, a.log)
		if err := sway.Bind(l, sw, client); err != nil {
			a.log.Warn("workspaces unavailable", "err", err)
		}
	}
	if err := win.Attach(row); err != nil {
		win.Destroy()
		if errors.Is(err, bar.ErrTerminated) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Info("running", "backend", a.cfg.Backend, "regions", len(row.Entries()))
	err = win.ShowAndRun(ctx)
	if errors.Is(err, bar.ErrTerminated) {
		// The surface went away before the first frame.
		err = nil
	}
	if err != nil {
		a.log.Error("bar stopped", "err", err)
		return err
	}
	a.log.Info("bar closed")
	return nil
}

// fetchWorkspaces fills sw once, for commands that do not run the loop.
func (a *app) fetchWorkspaces(sw *blocks.WorkspaceSwitcher) {
	client := sway.New(a.cfg.Modules.Workspaces.Swaymsg, a.log)
	if err := client.Available(); err != nil {
		a.log.Debug("workspaces unavailable", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	list, err := client.Workspaces(ctx)
	if err != nil {
		sw.Fail(err)
		return
	}
	sw.Update(list)
}
