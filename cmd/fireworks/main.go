package main

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Fireworks/internal/config"
	"github.com/Garsondee/Fireworks/internal/game"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatal(err)
	}

	seed := time.Now().UnixNano()
	log.Printf("[fireworks] %dx%d at %d fps, seed=%d", cfg.Window.Width, cfg.Window.Height, cfg.Window.FPS, seed)

	ebiten.SetWindowTitle(cfg.Window.Caption)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetTPS(cfg.Window.FPS)
	if err := ebiten.RunGame(game.New(cfg, seed)); err != nil {
		log.Fatal(err)
	}
}
