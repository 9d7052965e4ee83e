package ui

import (
	"fmt"
	"time"

	"github.com/arjunnair/gbcview/internal/emu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// App wires an emu.Machine to an ebiten window: it pumps keyboard state into
// the machine's joypad each tick, paces emulated frames against wall-clock
// time, and blits the resulting framebuffer.
type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
	fast   bool

	lastTime time.Time
	frameAcc float64 // accumulated fractional Game Boy frames

	audioCtx    *audio.Context
	audioPlayer *audio.Player

	showStats bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	a := &App{cfg: cfg, m: m}
	a.lastTime = time.Now()
	a.audioCtx = audio.NewContext(48000)
	return a
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.audioPlayer == nil {
		if p, err := a.audioCtx.NewPlayer(silentStream{}); err == nil {
			a.audioPlayer = p
			a.audioPlayer.SetBufferSize(20 * time.Millisecond)
			a.audioPlayer.Play()
		}
	}

	var btn emu.Buttons
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := a.m.Reset(); err != nil {
			return err
		}
	}
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		a.showStats = !a.showStats
	}

	if a.paused {
		a.lastTime = time.Now()
		return nil
	}

	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	if dt < 0 {
		dt = 0
	}
	a.lastTime = now
	gbFps := 4194304.0 / 70224.0 // ~59.7275
	speed := 1.0
	if a.fast {
		speed = 4.0
	}
	a.frameAcc += dt * gbFps * speed

	steps := 0
	for a.frameAcc >= 1.0 && steps < 10 { // cap to avoid spiral of death
		a.m.StepFrame()
		a.frameAcc -= 1.0
		steps++
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if a.showStats {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("paused=%v fast=%v", a.paused, a.fast), 4, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return 160, 144 }
