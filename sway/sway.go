// Package sway is the workspace-state source. It talks to sway through
// swaymsg: one long-running subscription for workspace events and a
// get_workspaces query after each event.
package sway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"taskbar/blocks"
	"taskbar/loop"
)

// ErrNoSway is returned when no sway session can be reached.
var ErrNoSway = errors.New("sway: SWAYSOCK not set")

type Client struct {
	Bin string
	Log *slog.Logger

	// Backoff bounds the delay before resubscribing after swaymsg exits.
	MinBackoff, MaxBackoff time.Duration
}

func New(bin string, log *slog.Logger) *Client {
	return &Client{
		Bin:        bin,
		Log:        log.With("source", "sway"),
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Available reports whether a sway session and swaymsg can be found.
func (c *Client) Available() error {
	if os.Getenv("SWAYSOCK") == "" {
		return ErrNoSway
	}
	if _, err := exec.LookPath(c.Bin); err != nil {
		return fmt.Errorf("sway: %w", err)
	}
	return nil
}

// swayWorkspace is an element of the get_workspaces reply.
type swayWorkspace struct {
	ID      int64  `json:"id"`
	Num     int    `json:"num"`
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
	Urgent  bool   `json:"urgent"`
	Output  string `json:"output"`
}

// Workspaces returns the current workspaces in sway's order.
func (c *Client) Workspaces(ctx context.Context) ([]blocks.Workspace, error) {
	out, err := exec.CommandContext(ctx, c.Bin, "-t", "get_workspaces", "-r").Output()
	if err != nil {
		return nil, fmt.Errorf("get_workspaces: %w", err)
	}
	var raw []swayWorkspace
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode workspaces: %w", err)
	}
	list := make([]blocks.Workspace, 0, len(raw))
	for _, ws := range raw {
		list = append(list, blocks.Workspace{
			ID:      ws.ID,
			Name:    ws.Name,
			Focused: ws.Focused,
			Urgent:  ws.Urgent,
			Output:  ws.Output,
		})
	}
	return list, nil
}

// Focus switches to the named workspace.
func (c *Client) Focus(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, c.Bin, "workspace", "--no-auto-back-and-forth", name)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("focus workspace %q: %w: %s", name, err, out)
	}
	return nil
}

type workspaceEvent struct {
	Change string `json:"change"`
}

// Subscribe delivers the workspace list once immediately and again
// after every workspace event until ctx is done. It calls onChange and
// onError from its own goroutine. When swaymsg exits it resubscribes
// with exponential backoff.
func (c *Client) Subscribe(ctx context.Context, onChange func([]blocks.Workspace), onError func(error)) {
	backoff := c.MinBackoff
	for {
		start := time.Now()
		err := c.subscribeOnce(ctx, onChange, onError)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onError(err)
		}
		if time.Since(start) > c.MaxBackoff {
			backoff = c.MinBackoff
		}

		c.Log.Debug("resubscribing", "in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.MaxBackoff)
	}
}

func (c *Client) subscribeOnce(ctx context.Context, onChange func([]blocks.Workspace), onError func(error)) error {
	cmd := exec.CommandContext(ctx, c.Bin, "-t", "subscribe", "-m", `["workspace"]`)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cmd.Wait()

	refresh := func() {
		list, err := c.Workspaces(ctx)
		if err != nil {
			if ctx.Err() == nil {
				onError(err)
			}
			return
		}
		onChange(list)
	}
	refresh()

	err = readEvents(stdout, func(ev workspaceEvent) {
		c.Log.Debug("workspace event", "change", ev.Change)
		refresh()
	})
	if err != nil {
		return fmt.Errorf("subscription: %w", err)
	}
	return errors.New("subscription ended")
}

// readEvents decodes the stream of JSON events swaymsg -m prints.
func readEvents(r io.Reader, fn func(workspaceEvent)) error {
	dec := json.NewDecoder(r)
	for {
		var ev workspaceEvent
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(ev)
	}
}

// Bind feeds sw from c for the lifetime of l. Updates are handed to the
// loop goroutine; clicking a workspace focuses it. The subscription is
// cancelled, and its goroutine waited for, when l quits.
func Bind(l *loop.Loop, sw *blocks.WorkspaceSwitcher, c *Client) error {
	if err := c.Available(); err != nil {
		sw.Fail(err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Subscribe(ctx,
			func(list []blocks.Workspace) {
				l.Post(func() { sw.Update(list) })
			},
			func(err error) {
				l.Post(func() { sw.Fail(err) })
			},
		)
	}()

	sw.OnSelect(func(ws blocks.Workspace) {
		go func() {
			if err := c.Focus(ctx, ws.Name); err != nil && ctx.Err() == nil {
				c.Log.Warn("focus workspace", "workspace", ws.Name, "err", err)
			}
		}()
	})

	return l.Track(func() {
		cancel()
		<-done
	})
}
