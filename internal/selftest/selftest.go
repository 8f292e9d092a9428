// Package selftest drives wiring check patterns across the strip.
package selftest

import (
	"context"
	"fmt"
	"time"

	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/render"
)

type Kind string

const (
	None        Kind = ""
	IndexSweep  Kind = "index_sweep"
	RGBTest     Kind = "rgb_channels"
	LetterSweep Kind = "letter_sweep"
)

var Kinds = []Kind{IndexSweep, RGBTest, LetterSweep}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown self-test %q", s)
}

type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }

func (r *Runner) Kind() Kind { return r.kind }

// Step draws the next pattern frame into buf; it returns false when the
// pattern is complete.
func (r *Runner) Step(l layout.Layout, buf render.Buffer) bool {
	buf.Clear()
	white := render.Color{R: 255, G: 255, B: 255}

	switch r.kind {
	case IndexSweep:
		if r.step >= len(buf) {
			return false
		}
		buf[r.step] = white
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		c := [3]render.Color{{R: 255}, {G: 255}, {B: 255}}[r.step]
		buf.Fill(c)
	case LetterSweep:
		// every glyph cell of each panel in turn, in matrix order
		panels := l.Letters()
		if r.step >= panels*glyph.Cells {
			return false
		}
		slot, cell := r.step/glyph.Cells, r.step%glyph.Cells
		buf.Set(l.LetterBase(slot)+layout.Index(cell/glyph.Size, cell%glyph.Size), render.Color{G: 255, B: 255})
	default:
		return false
	}
	r.step++
	return true
}

// Hold is the time each pattern frame stays lit.
func Hold(k Kind) time.Duration {
	if k == RGBTest {
		return time.Second
	}
	return 50 * time.Millisecond
}

// Run plays pattern k to the end, presenting and holding every frame.
func Run(ctx context.Context, k Kind, l layout.Layout, buf render.Buffer,
	present func(context.Context) error, hold func(context.Context, time.Duration) error) error {
	r := NewRunner(k)
	for r.Step(l, buf) {
		if err := present(ctx); err != nil {
			return err
		}
		if err := hold(ctx, Hold(k)); err != nil {
			return err
		}
	}
	buf.Clear()
	return present(ctx)
}
