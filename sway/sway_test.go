package sway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskbar/blocks"
	"taskbar/loop"
	"taskbar/theme"
)

const workspacesJSON = `[
 {"id": 4, "num": 1, "name": "1", "focused": false, "urgent": false, "output": "eDP-1"},
 {"id": 9, "num": 2, "name": "2:web", "focused": true, "urgent": false, "output": "eDP-1"},
 {"id": 12, "num": -1, "name": "mail", "focused": false, "urgent": true, "output": "HDMI-A-1"}
]`

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSwaymsg writes a shell script standing in for swaymsg.
func fakeSwaymsg(t *testing.T) (bin, dir string) {
	t.Helper()
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "workspaces.json"), []byte(workspacesJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	script := `#!/bin/sh
dir=$(dirname "$0")
case "$1 $2" in
"-t get_workspaces") cat "$dir/workspaces.json" ;;
"-t subscribe")
	echo '{"change":"focus","current":{"name":"2:web"}}'
	echo '{"change":"init"}'
	exec sleep 30
	;;
workspace*) echo "$@" >> "$dir/commands" ;;
*) exit 2 ;;
esac
`
	bin = filepath.Join(dir, "swaymsg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, dir
}

func TestWorkspaces(t *testing.T) {
	bin, _ := fakeSwaymsg(t)
	c := New(bin, discard())
	list, err := c.Workspaces(context.Background())
	if err != nil {
		t.Fatalf("Workspaces: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d workspaces, want 3", len(list))
	}
	want := blocks.Workspace{ID: 9, Name: "2:web", Focused: true, Output: "eDP-1"}
	if list[1] != want {
		t.Errorf("list[1] = %+v, want %+v", list[1], want)
	}
	if !list[2].Urgent {
		t.Error("mail should be urgent")
	}
}

func TestFocus(t *testing.T) {
	bin, dir := fakeSwaymsg(t)
	c := New(bin, discard())
	if err := c.Focus(context.Background(), "2:web"); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "commands"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != "workspace --no-auto-back-and-forth 2:web" {
		t.Fatalf("command = %q", got)
	}
}

func TestReadEvents(t *testing.T) {
	stream := `{"change":"focus"}
{"change":"empty"}{"change":"urgent"}`
	var changes []string
	if err := readEvents(strings.NewReader(stream), func(ev workspaceEvent) {
		changes = append(changes, ev.Change)
	}); err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if strings.Join(changes, ",") != "focus,empty,urgent" {
		t.Fatalf("changes = %v", changes)
	}

	if err := readEvents(strings.NewReader(`{"change":`), func(workspaceEvent) {}); err == nil {
		t.Fatal("expected error for truncated event")
	}
}

func TestSubscribe(t *testing.T) {
	bin, _ := fakeSwaymsg(t)
	c := New(bin, discard())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan []blocks.Workspace, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Subscribe(ctx, func(l []blocks.Workspace) { updates <- l }, func(err error) { t.Errorf("onError: %v", err) })
	}()

	// Initial list plus one per event.
	for i := 0; i < 3; i++ {
		select {
		case l := <-updates:
			if len(l) != 3 {
				t.Fatalf("update %d has %d workspaces", i, len(l))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("update %d not delivered", i)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestBindWithoutSway(t *testing.T) {
	t.Setenv("SWAYSOCK", "")
	l := loop.New(loop.Fake(time.Now()), discard())
	sw := blocks.NewWorkspaceSwitcher("workspaces", theme.Default, discard())
	if err := Bind(l, sw, New("swaymsg", discard())); !errors.Is(err, ErrNoSway) {
		t.Fatalf("Bind error = %v, want ErrNoSway", err)
	}
	if got := sw.Render(); len(got) != 1 || got[0].Text != "?" {
		t.Fatalf("switcher should show placeholder, got %+v", got)
	}
}

func TestBind(t *testing.T) {
	bin, _ := fakeSwaymsg(t)
	t.Setenv("SWAYSOCK", "/run/user/1000/sway-ipc.sock")

	l := loop.New(loop.Fake(time.Now()), discard())
	sw := blocks.NewWorkspaceSwitcher("workspaces", theme.Default, discard())
	if err := Bind(l, sw, New(bin, discard())); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(sw.Workspaces()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("workspaces never delivered to the loop")
		}
		time.Sleep(10 * time.Millisecond)
		l.Drain()
	}
	if ws, ok := sw.Focused(); !ok || ws.Name != "2:web" {
		t.Fatalf("focused = %+v, %v", ws, ok)
	}

	quit := make(chan struct{})
	go func() {
		l.Quit()
		close(quit)
	}()
	select {
	case <-quit:
	case <-time.After(5 * time.Second):
		t.Fatal("Quit did not tear down the subscription")
	}
}
