package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Garsondee/Fireworks/internal/config"
)

func newTestShow(t *testing.T) (*termShow, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 40)
	return newTermShow(screen, config.Default(), 1), screen
}

func TestEscapeAndCtrlCQuit(t *testing.T) {
	ts, _ := newTestShow(t)
	if ts.handleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Fatal("escape should stop the loop")
	}
	if ts.handleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)) {
		t.Fatal("ctrl-c should stop the loop")
	}
	if !ts.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Fatal("other keys should keep running")
	}
}

func TestMouseClickLaunches(t *testing.T) {
	ts, _ := newTestShow(t)
	ts.handleEvent(tcell.NewEventMouse(50, 20, tcell.Button1, tcell.ModNone))
	fw := ts.show.Fireworks()
	if len(fw) != 1 {
		t.Fatalf("expected one launch, got %d", len(fw))
	}
	x, _ := fw[0].Launch()
	if x < 500 || x > 510 {
		t.Fatalf("click column 50 of 100 should launch near x=505, got %g", x)
	}

	ts.handleEvent(tcell.NewEventMouse(50, 20, tcell.ButtonNone, tcell.ModNone))
	if len(ts.show.Fireworks()) != 1 {
		t.Fatal("mouse motion without a button launched a firework")
	}
}

func TestMousePressDragReleaseLaunchesOnce(t *testing.T) {
	ts, _ := newTestShow(t)
	for col := 50; col <= 53; col++ {
		ts.handleEvent(tcell.NewEventMouse(col, 20, tcell.Button1, tcell.ModNone))
	}
	if n := len(ts.show.Fireworks()); n != 1 {
		t.Fatalf("one press and drag launched %d fireworks, expected 1", n)
	}
	ts.handleEvent(tcell.NewEventMouse(53, 20, tcell.ButtonNone, tcell.ModNone))
	if n := len(ts.show.Fireworks()); n != 1 {
		t.Fatalf("release launched a firework, got %d", n)
	}

	// A second press after the release is a new click.
	ts.handleEvent(tcell.NewEventMouse(60, 20, tcell.Button1, tcell.ModNone))
	if n := len(ts.show.Fireworks()); n != 2 {
		t.Fatalf("expected a second launch after re-press, got %d", n)
	}
	// Right button held alongside does not re-arm the left one.
	ts.handleEvent(tcell.NewEventMouse(61, 20, tcell.Button1|tcell.Button2, tcell.ModNone))
	if n := len(ts.show.Fireworks()); n != 2 {
		t.Fatalf("chorded drag launched again, got %d", n)
	}
}

func TestPollEventsStopsWhenDone(t *testing.T) {
	_, screen := newTestShow(t)
	out := make(chan tcell.Event)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		pollEvents(screen, out, done)
		close(exited)
	}()

	if err := screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-out:
		if k, ok := ev.(*tcell.EventKey); !ok || k.Rune() != 'a' {
			t.Fatalf("unexpected event %T", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	// Nobody reads out any more; the poller must not block on it.
	close(done)
	if err := screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'b', tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("poller blocked after done was closed")
	}
}

func TestRunReturnsOnEscape(t *testing.T) {
	ts, screen := newTestShow(t)
	returned := make(chan struct{})
	go func() {
		ts.run(60)
		close(returned)
	}()
	if err := screen.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return on escape")
	}
}

func TestPauseAndFrame(t *testing.T) {
	ts, screen := newTestShow(t)
	ts.frame()
	if ts.show.Tick() != 1 {
		t.Fatalf("expected one tick, got %d", ts.show.Tick())
	}

	ts.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone))
	ts.frame()
	if ts.show.Tick() != 1 {
		t.Fatal("paused show advanced")
	}

	cells, _, _ := screen.GetContents()
	if len(cells[1].Runes) == 0 || cells[1].Runes[0] != 't' {
		t.Fatalf("expected the status line on row 0, got %q", cells[1].Runes)
	}
}

func TestResizeRescalesCanvas(t *testing.T) {
	ts, screen := newTestShow(t)
	screen.SetSize(50, 20)
	ts.handleEvent(tcell.NewEventResize(50, 20))
	x, y := ts.canvas.Cell(49, 19)
	if x < 980 || y < 780 {
		t.Fatalf("expected the last cell near the world corner, got (%g,%g)", x, y)
	}
}
