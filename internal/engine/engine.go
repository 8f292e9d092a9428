// Package engine is the sign's scheduler: one cooperative task that checks
// WiFi, starts score polling, celebrates goals and steps the selected
// routine, plus the button actions that change what it shows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/diagnostics"
	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/palette"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/routine"
	"github.com/lumarink/lumarink/internal/score"
	"github.com/lumarink/lumarink/internal/sequence"
)

// WiFi is what the scheduler and the reset button need from the network.
type WiFi interface {
	IsConnected() bool
	ResetCredentials(ctx context.Context) error
}

// Poller starts background score polling. Start is latched by the poller.
type Poller interface {
	Start(ctx context.Context) bool
}

// Settings persists button changes.
type Settings interface {
	Update(fn func(*config.Config)) (*config.Config, error)
}

// Resetter restarts the device.
type Resetter interface {
	Reset(reason string)
}

// Horn sounds during a goal celebration. Goal must not block.
type Horn interface {
	Goal()
}

// Hooks are optional observers.
type Hooks struct {
	// Heartbeat runs after every scheduler iteration.
	Heartbeat func()
	// Tick reports each routine step and how long it took.
	Tick func(kind routine.Kind, d time.Duration)
	// Frame runs after every frame written to the driver.
	Frame func()
}

type Options struct {
	Runtime  *coop.Runtime
	Config   *config.Config
	Palettes *palette.Set
	Glyphs   glyph.Table
	Driver   render.Driver
	WiFi     WiFi
	Poller   Poller
	Score    *score.State
	Settings Settings
	Resetter Resetter
	Horn     Horn
	Bus      *events.Bus
	Log      zerolog.Logger
	Hooks    Hooks
}

// Engine owns the pixel buffer and all animation state. Every method must
// be called holding the runtime's baton.
type Engine struct {
	rt       *coop.Runtime
	cfg      *config.Config
	palettes *palette.Set
	glyphs   glyph.Table
	drv      render.Driver
	wifi     WiFi
	poller   Poller
	score    *score.State
	settings Settings
	resetter Resetter
	horn     Horn
	bus      *events.Bus
	log      zerolog.Logger
	hooks    Hooks

	buf    render.Buffer
	layout layout.Layout
	runner *routine.Runner
	player *sequence.Player

	restart        bool
	connectedShown bool
	iterations     uint64
	faults         uint64
}

func New(o Options) (*Engine, error) {
	if o.Runtime == nil || o.Config == nil || o.Driver == nil {
		return nil, errors.New("engine: runtime, config and driver are required")
	}
	if err := o.Config.Validate(); err != nil {
		return nil, err
	}
	if o.Palettes == nil {
		s, err := palette.NewSet(o.Config.Colors)
		if err != nil {
			return nil, err
		}
		o.Palettes = s
	}
	if o.Glyphs == nil {
		o.Glyphs = glyph.Default
	}
	if o.Score == nil {
		o.Score = &score.State{}
	}
	e := &Engine{
		rt:       o.Runtime,
		cfg:      o.Config.Clone(),
		palettes: o.Palettes,
		glyphs:   o.Glyphs,
		drv:      o.Driver,
		wifi:     o.WiFi,
		poller:   o.Poller,
		score:    o.Score,
		settings: o.Settings,
		resetter: o.Resetter,
		horn:     o.Horn,
		bus:      o.Bus,
		log:      o.Log,
		hooks:    o.Hooks,
		buf:      render.NewBuffer(o.Config.NumPixels),
		layout:   layout.Layout{Pixels: o.Config.NumPixels, Skate: o.Config.SkatePixels},
	}
	pal, err := e.palettes.Palette(e.cfg.Colour)
	if err != nil {
		return nil, err
	}
	env := &routine.Env{
		Buf:        e.buf,
		Palette:    pal,
		Layout:     e.layout,
		Letters:    e.glyphs.Word(e.cfg.Word),
		Brightness: e.cfg.Brightness,
		Surface:    surface{e},
	}
	e.runner, err = routine.NewRunner(routine.DefaultRegistry(), env)
	if err != nil {
		return nil, err
	}
	e.player = sequence.NewPlayer(sequence.Hooks{
		Paint:   e.paint,
		Present: e.present,
		Hold:    e.rt.Sleep,
		Started: e.programStarted,
	})
	e.checkWord()
	return e, nil
}

// checkWord logs once when the configured word does not fit the strip.
func (e *Engine) checkWord() {
	for _, d := range diagnostics.Layout(e.layout, e.cfg.Word, e.glyphs) {
		e.log.Warn().Str("code", d.Code).Fields(d.Evidence).Msg(d.Summary)
	}
}

// surface presents routine frames through the engine.
type surface struct{ e *Engine }

func (s surface) Show(ctx context.Context, _ render.Buffer) error { return s.e.present(ctx) }

func (s surface) Hold(ctx context.Context, d time.Duration) error { return s.e.rt.Sleep(ctx, d) }

func (e *Engine) present(context.Context) error {
	if err := e.drv.Write(e.buf); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	if e.hooks.Frame != nil {
		e.hooks.Frame()
	}
	return nil
}

// Buffer is the live pixel buffer.
func (e *Engine) Buffer() render.Buffer { return e.buf }

// Config returns a copy of the settings the engine runs with.
func (e *Engine) Config() *config.Config { return e.cfg.Clone() }

func (e *Engine) Kind() routine.Kind { return routine.Kind(e.cfg.ColourRoutine) }

func (e *Engine) State() routine.State { return e.runner.State }

// RestartPending reports whether the next tick starts from a clean state.
func (e *Engine) RestartPending() bool { return e.restart }

func (e *Engine) Stats() (iterations, faults uint64) { return e.iterations, e.faults }

func (e *Engine) programPalette(name string) palette.Palette {
	// goal and boot indicators always use the team colours
	if name == sequence.Connected.Name {
		return e.runner.Env.Palette
	}
	p, err := e.palettes.Palette(0)
	if err != nil {
		return e.runner.Env.Palette
	}
	return p
}

func (e *Engine) programStarted(name string) {
	e.log.Debug().Str("program", name).Msg("program started")
	if name == sequence.Goal.Name && e.horn != nil {
		e.horn.Goal()
	}
}

func (e *Engine) paint(target sequence.Target, slot int, on bool) {
	pal := e.programPalette(e.player.Last)
	c := pal.OffColor()
	if on {
		c = render.Scale(pal.Color(slot), e.cfg.Brightness)
	}
	switch target {
	case sequence.All:
		e.buf.Fill(c)
	case sequence.SkateAll:
		for i := 0; i < min(e.layout.Skate, len(e.buf)); i++ {
			e.buf[i] = c
		}
	case sequence.SkateInner:
		for _, i := range e.layout.SkateInner() {
			e.buf.Set(i, c)
		}
	}
}

// Connecting shows the boot indicator while WiFi comes up.
func (e *Engine) Connecting(ctx context.Context) error {
	return e.player.Play(ctx, sequence.Connecting)
}

// Iterate runs one scheduler iteration. Panics are turned into errors.
func (e *Engine) Iterate(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	e.iterations++

	connected := e.wifi != nil && e.wifi.IsConnected()
	if connected && !e.connectedShown {
		e.connectedShown = true
		e.log.Info().Msg("wifi connected")
		if err := e.player.Play(ctx, sequence.Connected); err != nil {
			return err
		}
	}
	if connected && e.poller != nil {
		e.poller.Start(ctx)
	}

	if e.score.GoalScored() {
		if err := e.celebrate(ctx); err != nil {
			return err
		}
	}
	e.score.Previous = e.score.Current

	reset := e.restart
	e.restart = false
	kind := e.Kind()
	start := time.Now()
	err = e.runner.Tick(ctx, kind, reset)
	if e.hooks.Tick != nil {
		e.hooks.Tick(kind, time.Since(start))
	}
	return err
}

var ErrPanic = errors.New("scheduler panic")

func (e *Engine) celebrate(ctx context.Context) error {
	prev, cur := e.score.Previous, e.score.Current
	e.log.Info().Int("previous", prev).Int("current", cur).Msg("goal")
	if err := e.player.Play(ctx, sequence.Goal); err != nil {
		return err
	}
	e.bus.Publish(events.GoalCelebrated{Previous: prev, Current: cur, At: e.rt.Clock().Now()})
	return nil
}

// Run loops until ctx ends. Failed iterations are logged and the loop goes
// on; the next tick recomputes from state.
func (e *Engine) Run(ctx context.Context) error {
	for {
		err := e.Iterate(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			e.faults++
			e.log.Error().Err(err).Msg("scheduler iteration failed")
			e.bus.Publish(events.LoopFault{Err: err.Error(), Panic: errors.Is(err, ErrPanic), At: e.rt.Clock().Now()})
		}
		if e.hooks.Heartbeat != nil {
			e.hooks.Heartbeat()
		}
		if err := e.rt.Yield(ctx); err != nil {
			return err
		}
	}
}
