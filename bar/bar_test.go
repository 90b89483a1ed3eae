package bar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"taskbar/blocks"
	"taskbar/loop"
	"taskbar/shell"
	"taskbar/theme"
)

var epoch = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func texts(cells []shell.Cell) string {
	var parts []string
	for _, c := range cells {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " | ")
}

type fixture struct {
	rec   *shell.Recorder
	clock *loop.FakeClock
	loop  *loop.Loop
	win   *Window
	ws    *blocks.WorkspaceSwitcher
	clk   *blocks.Clock
}

// newFixture builds the default bar: workspaces at the start and the
// clock, "✲ 50" and "𝅘𝅥𝅯 30" packed at the end in that order.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{rec: shell.NewRecorder(), clock: loop.Fake(epoch)}
	f.loop = loop.New(f.clock, discard())

	win, err := Create(f.rec, f.loop, discard())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.win = win

	f.ws = blocks.NewWorkspaceSwitcher("workspaces", theme.Default, discard())
	f.ws.Update([]blocks.Workspace{{ID: 1, Name: "1", Focused: true}, {ID: 2, Name: "2"}})
	f.clk = blocks.NewClock("clock", blocks.Layout("15:04:05"), f.clock.Now, theme.Default, discard())
	if _, err := f.loop.Every(time.Second, true, f.clk.Tick); err != nil {
		t.Fatalf("Every: %v", err)
	}

	row := NewRow(10)
	for _, add := range []struct {
		r blocks.Region
		p Placement
	}{
		{f.ws, Start},
		{f.clk, End},
		{blocks.NewStatusBlock("brightness", "✲ 50", theme.Default, discard()), End},
		{blocks.NewStatusBlock("volume", "𝅘𝅥𝅯 30", theme.Default, discard()), End},
	} {
		if err := row.Add(add.r, add.p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := win.Attach(row); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return f
}

// run starts ShowAndRun and returns a channel with its result.
func (f *fixture) run() <-chan error {
	done := make(chan error, 1)
	go func() { done <- f.win.ShowAndRun(context.Background()) }()
	return done
}

func (f *fixture) waitFrame(t *testing.T, pred func(shell.Frame) bool) shell.Frame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if last, ok := f.rec.Last(); ok && pred(last) {
			return last
		}
		if time.Now().After(deadline) {
			last, _ := f.rec.Last()
			t.Fatalf("frame never matched; last = %+v", last)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("ShowAndRun did not return")
		return nil
	}
}

func TestCreateAnchorsBottomFullWidth(t *testing.T) {
	rec := shell.NewRecorder()
	win, err := Create(rec, loop.New(loop.Fake(epoch), discard()), discard())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := win.Surface().Anchors(); got != shell.EdgeBottom|shell.EdgeLeft|shell.EdgeRight {
		t.Fatalf("anchors = %v", got)
	}
	if win.Surface().Anchors().Has(shell.EdgeTop) {
		t.Fatal("top edge must never be anchored")
	}
	if win.State() != Anchored {
		t.Fatalf("state = %v, want anchored", win.State())
	}
}

func TestCreateUnavailable(t *testing.T) {
	rec := shell.NewRecorder()
	rec.Unavailable = true
	win, err := Create(rec, loop.New(loop.Fake(epoch), discard()), discard())
	if win != nil {
		t.Fatal("window returned alongside error")
	}
	if !errors.Is(err, ErrAnchoringUnavailable) || !errors.Is(err, shell.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrAnchoringUnavailable", err)
	}
}

// wrongEdges is a shell that anchors somewhere other than requested.
type wrongEdges struct{ *shell.Recorder }

func (w wrongEdges) Acquire(req shell.Request) (shell.Surface, error) {
	req.Edges = shell.EdgeTop | shell.EdgeLeft | shell.EdgeRight
	return w.Recorder.Acquire(req)
}

func TestCreateRejectsWrongAnchors(t *testing.T) {
	rec := shell.NewRecorder()
	_, err := Create(wrongEdges{rec}, loop.New(loop.Fake(epoch), discard()), discard())
	if !errors.Is(err, ErrAnchoringUnavailable) {
		t.Fatalf("err = %v, want ErrAnchoringUnavailable", err)
	}
	if !rec.Closed() {
		t.Error("misanchored surface not closed")
	}
}

func TestEndOrdering(t *testing.T) {
	row := NewRow(0)
	a := blocks.NewStatusBlock("a", "A", theme.Default, discard())
	b := blocks.NewStatusBlock("b", "B", theme.Default, discard())
	row.Add(a, End)
	row.Add(b, End)

	f := row.Frame()
	if got := texts(f.End); got != "B | A" {
		t.Fatalf("END order = %q, want B left of A", got)
	}
}

func TestStartOrdering(t *testing.T) {
	row := NewRow(0)
	row.Add(blocks.NewStatusBlock("a", "A", theme.Default, discard()), Start)
	row.Add(blocks.NewStatusBlock("b", "B", theme.Default, discard()), Start)
	if got := texts(row.Frame().Start); got != "A | B" {
		t.Fatalf("START order = %q", got)
	}
}

func TestScenarioLayout(t *testing.T) {
	f := newFixture(t)
	frame := f.win.Row().Frame()
	if got := texts(frame.Start); got != "1 | 2" {
		t.Errorf("start = %q", got)
	}
	if got := texts(frame.End); got != "𝅘𝅥𝅯 30 | ✲ 50 | 09:30:00" {
		t.Errorf("end = %q", got)
	}
	if frame.Spacing != 10 {
		t.Errorf("spacing = %d", frame.Spacing)
	}
}

func TestDoubleAttach(t *testing.T) {
	f := newFixture(t)
	first := f.win.Row()
	if err := f.win.Attach(NewRow(0)); !errors.Is(err, ErrDoubleAttach) {
		t.Fatalf("second Attach = %v, want ErrDoubleAttach", err)
	}
	if f.win.Row() != first {
		t.Fatal("first attachment replaced")
	}
	if err := first.Add(blocks.NewStatusBlock("late", "x", theme.Default, discard()), End); !errors.Is(err, ErrSealed) {
		t.Fatalf("Add after attach = %v, want ErrSealed", err)
	}
}

func TestAttachRowToSecondWindow(t *testing.T) {
	f := newFixture(t)
	row := f.win.Row()

	other, err := Create(shell.NewRecorder(), loop.New(loop.Fake(epoch), discard()), discard())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := other.Attach(row); !errors.Is(err, ErrSealed) {
		t.Fatalf("Attach of an owned row = %v, want ErrSealed", err)
	}
	if other.Row() != nil {
		t.Fatal("second window took the row")
	}
	if f.win.Row() != row {
		t.Fatal("first window lost its row")
	}
}

func TestOneWindowPerLoop(t *testing.T) {
	f := newFixture(t)
	rec := shell.NewRecorder()
	win, err := Create(rec, f.loop, discard())
	if win != nil || !errors.Is(err, loop.ErrClaimed) {
		t.Fatalf("second Create on one loop = %v, %v; want ErrClaimed", win, err)
	}
	if !rec.Closed() {
		t.Error("surface of the rejected window not released")
	}
}

func TestShowAndRunAfterLoopQuit(t *testing.T) {
	f := newFixture(t)
	// The surface destroy path quits the loop before ShowAndRun gets to it.
	f.loop.Quit()
	if err := f.win.ShowAndRun(context.Background()); err != nil {
		t.Fatalf("ShowAndRun = %v, want orderly nil", err)
	}
	if f.win.State() != Terminated {
		t.Fatalf("state = %v, want terminated", f.win.State())
	}
	if !f.rec.Closed() {
		t.Error("surface not closed")
	}
}

func TestShowAndRunWithoutRow(t *testing.T) {
	win, err := Create(shell.NewRecorder(), loop.New(loop.Fake(epoch), discard()), discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := win.ShowAndRun(context.Background()); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("ShowAndRun = %v, want ErrNotAttached", err)
	}
}

func TestRunPresentsAndTicks(t *testing.T) {
	f := newFixture(t)
	done := f.run()

	f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.End) == 3 })
	if f.win.State() != Running {
		t.Fatalf("state = %v, want running", f.win.State())
	}

	f.clock.Advance(2 * time.Second)
	f.waitFrame(t, func(fr shell.Frame) bool { return fr.End[2].Text == "09:30:02" })

	f.rec.Destroy()
	if err := wait(t, done); err != nil {
		t.Fatalf("ShowAndRun: %v", err)
	}
	if f.win.State() != Terminated {
		t.Fatalf("state = %v, want terminated", f.win.State())
	}
	if !f.rec.Closed() {
		t.Error("surface not closed on destroy")
	}
}

func TestNoTickAfterDestroy(t *testing.T) {
	f := newFixture(t)
	done := f.run()
	f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.End) == 3 })

	f.rec.Destroy()
	if err := wait(t, done); err != nil {
		t.Fatalf("ShowAndRun: %v", err)
	}
	frames := len(f.rec.Frames())

	f.clock.Advance(time.Minute)
	if n := f.clock.Pending(); n != 0 {
		t.Fatalf("%d timers still pending after destroy", n)
	}
	if f.clk.Text() != "09:30:00" {
		t.Fatalf("clock ticked after destroy: %q", f.clk.Text())
	}
	if len(f.rec.Frames()) != frames {
		t.Fatal("frame presented after destroy")
	}
}

func TestNoRestartAfterTerminate(t *testing.T) {
	f := newFixture(t)
	f.win.Destroy()
	if err := f.win.ShowAndRun(context.Background()); !errors.Is(err, ErrTerminated) {
		t.Fatalf("ShowAndRun after destroy = %v, want ErrTerminated", err)
	}
	if err := f.win.Attach(NewRow(0)); !errors.Is(err, ErrTerminated) {
		t.Fatalf("Attach after destroy = %v", err)
	}
}

func TestContextCancelShutsDown(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.win.ShowAndRun(ctx) }()
	f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.End) == 3 })
	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("ShowAndRun: %v", err)
	}
	if f.win.State() != Terminated {
		t.Fatalf("state = %v", f.win.State())
	}
}

func TestWorkspaceUpdatesAndClicks(t *testing.T) {
	f := newFixture(t)
	selected := make(chan string, 1)
	f.ws.OnSelect(func(ws blocks.Workspace) { selected <- ws.Name })
	done := f.run()
	f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.Start) == 2 })

	list := []blocks.Workspace{{ID: 1, Name: "1"}, {ID: 2, Name: "2", Focused: true}, {ID: 3, Name: "3"}}
	// Delivered twice from another goroutine, as a subscription would.
	f.loop.Post(func() { f.ws.Update(list) })
	f.loop.Post(func() { f.ws.Update(list) })
	fr := f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.Start) == 3 })
	if fr.Start[1].Background == "" || fr.Start[0].Background != "" {
		t.Errorf("focus not moved: %+v", fr.Start)
	}

	f.rec.Click(shell.Click{Name: "workspaces", Instance: "3", Button: 1})
	select {
	case name := <-selected:
		if name != "3" {
			t.Errorf("selected %q, want 3", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("click not routed to the switcher")
	}

	f.win.Destroy()
	wait(t, done)
}

func TestUnchangedFramesNotPresented(t *testing.T) {
	f := newFixture(t)
	done := f.run()
	f.waitFrame(t, func(fr shell.Frame) bool { return len(fr.End) == 3 })
	before := len(f.rec.Frames())

	sync := make(chan struct{})
	for i := 0; i < 5; i++ {
		f.loop.Post(func() {})
	}
	f.loop.Post(func() { close(sync) })
	<-sync
	// One more round trip so the idle hook after the batch has run.
	flushed := make(chan struct{})
	f.loop.Post(func() { close(flushed) })
	<-flushed

	if after := len(f.rec.Frames()); after != before {
		t.Fatalf("presented %d identical frames", after-before)
	}
	f.win.Destroy()
	wait(t, done)
}
