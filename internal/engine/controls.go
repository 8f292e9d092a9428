package engine

import (
	"context"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/routine"
	"github.com/lumarink/lumarink/internal/selftest"
)

const (
	// DimFloor is the lowest brightness the cycle reaches before wrapping.
	DimFloor = 0.02745
	// BrightTop is where the cycle wraps to.
	BrightTop = 0.60
)

// NextBrightness halves b, wrapping to BrightTop once b is at the floor.
func NextBrightness(b float64) float64 {
	if b <= DimFloor {
		return BrightTop
	}
	return b / 2
}

// CycleBrightness halves the brightness and shows it on the current frame
// straight away.
func (e *Engine) CycleBrightness(ctx context.Context) error {
	e.cfg.Brightness = NextBrightness(e.cfg.Brightness)
	e.runner.Env.Brightness = e.cfg.Brightness
	render.Renormalize(e.buf, e.cfg.Brightness)
	if err := e.present(ctx); err != nil {
		return err
	}
	e.persist("button", func(c *config.Config) { c.Brightness = e.cfg.Brightness })
	return nil
}

// CycleColour selects the next palette mode.
func (e *Engine) CycleColour(ctx context.Context) error {
	next := (e.cfg.Colour + 1) % max(e.cfg.MaxColour, 1)
	if err := e.setColour(next); err != nil {
		return err
	}
	if !e.Kind().ReadsPaletteEachTick() {
		e.restart = true
	}
	e.persist("button", func(c *config.Config) { c.Colour = next })
	return nil
}

// CycleRoutine selects the next routine.
func (e *Engine) CycleRoutine(ctx context.Context) error {
	from := e.Kind()
	to := from.Next()
	e.cfg.ColourRoutine = int(to)
	if !routine.SharesCursors(from, to) {
		e.restart = true
	}
	e.log.Info().Stringer("from", from).Stringer("to", to).Bool("restart", e.restart).Msg("routine changed")
	e.persist("button", func(c *config.Config) { c.ColourRoutine = int(to) })
	return nil
}

// ResetWiFi forgets the stored networks and resets the device.
func (e *Engine) ResetWiFi(ctx context.Context) error {
	e.log.Warn().Msg("resetting wifi credentials")
	if e.wifi != nil {
		if err := e.wifi.ResetCredentials(ctx); err != nil {
			e.log.Error().Err(err).Msg("wifi reset failed")
		}
	}
	if e.resetter != nil {
		e.resetter.Reset("wifi credentials reset")
	}
	return nil
}

func (e *Engine) setColour(i int) error {
	pal, err := e.palettes.Palette(i)
	if err != nil {
		return err
	}
	e.cfg.Colour = i
	e.runner.Env.Palette = pal
	return nil
}

// persist writes a change to the settings store and announces it. Store
// failures are logged; the running value stays.
func (e *Engine) persist(source string, fn func(*config.Config)) {
	if e.settings != nil {
		if _, err := e.settings.Update(fn); err != nil {
			e.log.Error().Err(err).Msg("saving settings failed")
		}
	}
	e.announce(source)
}

func (e *Engine) announce(source string) {
	e.bus.Publish(events.SettingsChanged{
		Source:     source,
		Brightness: e.cfg.Brightness,
		Colour:     e.cfg.Colour,
		Routine:    e.Kind().String(),
		Restart:    e.restart,
		At:         e.rt.Clock().Now(),
	})
}

// ApplyConfig takes the animation keys from a reloaded settings file. Layout
// changes need a restart and are only logged.
func (e *Engine) ApplyConfig(c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.NumPixels != e.cfg.NumPixels || c.SkatePixels != e.cfg.SkatePixels {
		e.log.Warn().Int("num_pixels", c.NumPixels).Int("skate_pixels", c.SkatePixels).
			Msg("pixel layout changed; restart to apply")
	}
	restart := false
	if c.Colour != e.cfg.Colour {
		if err := e.setColour(c.Colour); err != nil {
			return err
		}
		restart = restart || !e.Kind().ReadsPaletteEachTick()
	}
	e.cfg.MaxColour = c.MaxColour
	if c.ColourRoutine != e.cfg.ColourRoutine {
		from, to := e.Kind(), routine.Kind(c.ColourRoutine)
		e.cfg.ColourRoutine = c.ColourRoutine
		restart = restart || !routine.SharesCursors(from, to)
	}
	if c.Brightness != e.cfg.Brightness {
		e.cfg.Brightness = c.Brightness
		e.runner.Env.Brightness = c.Brightness
		render.Renormalize(e.buf, c.Brightness)
	}
	if c.Word != e.cfg.Word {
		e.cfg.Word = c.Word
		e.runner.Env.Letters = e.glyphs.Word(c.Word)
		e.checkWord()
		restart = true
	}
	e.cfg.Team, e.cfg.URL = c.Team, c.URL
	e.cfg.DebounceMS, e.cfg.DoublePressMS = c.DebounceMS, c.DoublePressMS
	if restart {
		e.restart = true
	}
	e.announce("file")
	return nil
}

// SelfTest plays a wiring pattern, then restarts the current routine.
func (e *Engine) SelfTest(ctx context.Context, k selftest.Kind) error {
	e.log.Info().Str("pattern", string(k)).Msg("self-test")
	err := selftest.Run(ctx, k, e.layout, e.buf, e.present, e.rt.Sleep)
	e.restart = true
	return err
}
