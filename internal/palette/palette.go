// Package palette holds the per-mode colour lists the routines cycle through.
//
// Slot 0 is the off colour, slot 1 the accent used by the skate segment and
// slots from 2 on are word colours. Sentinel slots pad a mode to a common
// length and are never selected.
package palette

import (
	"errors"
	"fmt"

	"github.com/lumarink/lumarink/internal/render"
)

const (
	Off       = 0
	Accent    = 1
	FirstWord = 2
)

// Slot is one palette entry.
type Slot struct {
	Color    render.Color
	Sentinel bool
}

// Palette is the ordered slot list for one display mode.
type Palette []Slot

var ErrNoWordColour = errors.New("palette has no usable word colour")

// New builds a palette from off, accent and word colours, padded with
// sentinel slots up to size.
func New(off, accent render.Color, words []render.Color, size int) Palette {
	p := make(Palette, 0, max(size, len(words)+2))
	p = append(p, Slot{Color: off}, Slot{Color: accent})
	for _, c := range words {
		p = append(p, Slot{Color: c})
	}
	for len(p) < size {
		p = append(p, Slot{Sentinel: true})
	}
	return p
}

// Validate checks the reserved slots exist and slot 2 is usable, which is
// what makes wrapping to FirstWord always land on a real colour.
func (p Palette) Validate() error {
	if len(p) <= FirstWord {
		return fmt.Errorf("palette has %d slots: %w", len(p), ErrNoWordColour)
	}
	if p[Off].Sentinel || p[Accent].Sentinel {
		return errors.New("palette reserved slots must not be sentinels")
	}
	if p[FirstWord].Sentinel {
		return ErrNoWordColour
	}
	return nil
}

// Valid reports whether i selects a word colour.
func (p Palette) Valid(i int) bool {
	return i >= FirstWord && i < len(p) && !p[i].Sentinel
}

// Normalize returns i when it already selects a word colour, FirstWord
// otherwise.
func (p Palette) Normalize(i int) int {
	if p.Valid(i) {
		return i
	}
	return FirstWord
}

// Next advances to the next word colour after i, skipping sentinels and
// wrapping to FirstWord when the list is exhausted.
func (p Palette) Next(i int) int {
	if i < Accent {
		i = Accent
	}
	for j := i + 1; j < len(p); j++ {
		if !p[j].Sentinel {
			return j
		}
	}
	return FirstWord
}

// Color returns the colour at slot i, or the off colour for anything that is
// not a real slot.
func (p Palette) Color(i int) render.Color {
	if i < 0 || i >= len(p) || p[i].Sentinel {
		if len(p) > 0 {
			return p[Off].Color
		}
		return render.Off
	}
	return p[i].Color
}

func (p Palette) OffColor() render.Color    { return p.Color(Off) }
func (p Palette) AccentColor() render.Color { return p.Color(Accent) }

// Usable lists the word colours in slot order, without the reserved slots and
// sentinels.
func (p Palette) Usable() []render.Color {
	var out []render.Color
	for i := FirstWord; i < len(p); i++ {
		if !p[i].Sentinel {
			out = append(out, p[i].Color)
		}
	}
	return out
}
