package routine

import (
	"context"
	"time"

	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/palette"
	"github.com/lumarink/lumarink/internal/render"
)

const (
	FlashHold = 750 * time.Millisecond
	TickHold  = 100 * time.Millisecond

	// FadeStep divides or multiplies the fade level each tick.
	FadeStep = 1.2
	// FadeFloor is where a descending fade turns around.
	FadeFloor = 0.007
)

// State is everything a routine carries between ticks. It is reset as a
// whole, never field by field.
type State struct {
	Colour     int
	Skate      int
	SkateBack  bool
	Letter     int
	LetterBack bool
	Fade       float64
	FadeRising bool
}

// NewState is the state after boot or a restart.
func NewState(brightness float64) State {
	return State{
		Colour: palette.Off,
		Skate:  -1,
		Letter: -1,
		Fade:   brightness,
	}
}

// Surface presents frames and waits between them.
type Surface interface {
	Show(ctx context.Context, buf render.Buffer) error
	Hold(ctx context.Context, d time.Duration) error
}

// Env is what a routine draws with.
type Env struct {
	Buf        render.Buffer
	Palette    palette.Palette
	Layout     layout.Layout
	Letters    []glyph.Letter
	Brightness float64
	Surface    Surface
}

func (e *Env) word(c int) render.Color {
	return render.Scale(e.Palette.Color(c), e.Brightness)
}

func (e *Env) accent() render.Color {
	return render.Scale(e.Palette.AccentColor(), e.Brightness)
}

func (e *Env) off() render.Color { return e.Palette.OffColor() }

// skateLen is the skate segment length clipped to the strip.
func (e *Env) skateLen() int { return min(e.Layout.Skate, len(e.Buf)) }

// drawLetters writes every glyph cell: lit cells in on, the rest off.
func (e *Env) drawLetters(on render.Color) {
	off := e.off()
	for _, p := range e.Layout.Matrix(e.Letters) {
		if p.Lit {
			e.Buf.Set(p.Index, on)
		} else {
			e.Buf.Set(p.Index, off)
		}
	}
}

func (e *Env) present(ctx context.Context, hold time.Duration) error {
	if err := e.Surface.Show(ctx, e.Buf); err != nil {
		return err
	}
	return e.Surface.Hold(ctx, hold)
}
