package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Garsondee/Fireworks/internal/config"
	"github.com/Garsondee/Fireworks/internal/render"
	"github.com/Garsondee/Fireworks/internal/sim"
)

type termShow struct {
	screen tcell.Screen
	canvas *render.Terminal
	show   *sim.Show
	paused bool

	prevButtons tcell.ButtonMask
}

func newTermShow(screen tcell.Screen, cfg *config.Config, seed int64) *termShow {
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- visual simulation
	return &termShow{
		screen: screen,
		canvas: render.NewTerminal(screen, cfg.Window.Width, cfg.Window.Height, cfg.Window.BackgroundColor()),
		show:   sim.NewShow(cfg, rng),
	}
}

// handleEvent reacts to one terminal event and reports whether to keep running.
func (ts *termShow) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'p' {
			ts.paused = !ts.paused
		}
	case *tcell.EventMouse:
		// Drags repeat the held button; only the press launches.
		buttons := ev.Buttons()
		if buttons&tcell.Button1 != 0 && ts.prevButtons&tcell.Button1 == 0 {
			x, y := ts.canvas.Cell(ev.Position())
			ts.show.SpawnAt(x, y)
		}
		ts.prevButtons = buttons
	case *tcell.EventResize:
		ts.canvas.Resize()
		ts.screen.Sync()
	}
	return true
}

func (ts *termShow) frame() {
	if !ts.paused {
		ts.show.Update()
	}
	c := ts.show.Counts()
	ts.canvas.SetStatus(fmt.Sprintf(" tick %d  fireworks %d  sparks %d  click=launch p=pause esc=quit ",
		ts.show.Tick(), c.Fireworks, c.Particles))
	ts.show.Draw(ts.canvas)
	ts.canvas.Present()
}

// pollEvents forwards screen events to out until the screen is finalized
// or done is closed.
func pollEvents(screen tcell.Screen, out chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}

func (ts *termShow) run(fps int) {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go pollEvents(ts.screen, eventChan, done)

	for {
		select {
		case ev := <-eventChan:
			if !ts.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			ts.frame()
		}
	}
}

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatal(err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("[term] failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("[term] failed to initialize screen: %v", err)
	}
	screen.EnableMouse()
	defer screen.Fini()

	newTermShow(screen, cfg, time.Now().UnixNano()).run(cfg.Window.FPS)
}
