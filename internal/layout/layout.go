// Package layout maps glyph cells onto the physical LED strip.
//
// The strip starts with the skate segment, followed by one 5x5 serpentine
// panel per letter. Physical row 0 is the bottom of a panel.
package layout

import (
	"errors"
	"fmt"

	"github.com/lumarink/lumarink/internal/glyph"
)

// Cell addresses one glyph cell; Row 0 is the top of the letter.
type Cell struct{ Row, Col int }

type Layout struct {
	Pixels int
	Skate  int
}

var ErrBadLayout = errors.New("invalid layout")

func (l Layout) Validate() error {
	if l.Pixels <= 0 {
		return fmt.Errorf("%w: pixel count %d", ErrBadLayout, l.Pixels)
	}
	if l.Skate < 0 || l.Skate > l.Pixels {
		return fmt.Errorf("%w: skate pixels %d of %d", ErrBadLayout, l.Skate, l.Pixels)
	}
	return nil
}

// mirrored reports whether glyph row r is wired right-to-left.
func mirrored(r int) bool { return r >= 1 && r <= 3 }

// Index maps a glyph cell to its offset inside a letter panel. Both the
// full-matrix and the sequential transform use this map; they differ only in
// visiting order.
func Index(row, col int) int {
	phys := glyph.Size - 1 - row
	if mirrored(row) {
		col = glyph.Size - 1 - col
	}
	return phys*glyph.Size + col
}

// Sequence is the sequential visiting order: bottom row first, each row
// left to right across the letter. On odd physical rows and the middle row
// that walks the strip backwards.
var Sequence = func() []Cell {
	out := make([]Cell, 0, glyph.Cells)
	for row := glyph.Size - 1; row >= 0; row-- {
		for col := 0; col < glyph.Size; col++ {
			out = append(out, Cell{Row: row, Col: col})
		}
	}
	return out
}()

// LetterBase is the first strip index of the letter panel at slot.
func (l Layout) LetterBase(slot int) int {
	return l.Skate + slot*glyph.Cells
}

// Letters is how many whole letter panels fit after the skate segment.
func (l Layout) Letters() int {
	if l.Pixels <= l.Skate {
		return 0
	}
	return (l.Pixels - l.Skate) / glyph.Cells
}

func (l Layout) inBounds(i int) bool { return i >= 0 && i < l.Pixels }

// Pixel is a strip index with the lit state of its glyph cell.
type Pixel struct {
	Index int
	Lit   bool
}

// Matrix returns every cell of every letter through the full-matrix
// transform, lit or not. Cells past the end of the strip are dropped.
func (l Layout) Matrix(letters []glyph.Letter) []Pixel {
	out := make([]Pixel, 0, len(letters)*glyph.Cells)
	for _, lt := range letters {
		base := l.LetterBase(lt.Slot)
		for row := 0; row < glyph.Size; row++ {
			for col := 0; col < glyph.Size; col++ {
				i := base + Index(row, col)
				if l.inBounds(i) {
					out = append(out, Pixel{Index: i, Lit: lt.Glyph[row][col]})
				}
			}
		}
	}
	return out
}

// Rows groups the lit strip indices by glyph row (top row first).
func (l Layout) Rows(letters []glyph.Letter) [glyph.Size][]int {
	var rows [glyph.Size][]int
	for _, lt := range letters {
		base := l.LetterBase(lt.Slot)
		for row := 0; row < glyph.Size; row++ {
			for col := 0; col < glyph.Size; col++ {
				if !lt.Glyph[row][col] {
					continue
				}
				if i := base + Index(row, col); l.inBounds(i) {
					rows[row] = append(rows[row], i)
				}
			}
		}
	}
	return rows
}

// Sequential returns the lit strip indices of the word in sequential order,
// letter by letter.
func (l Layout) Sequential(letters []glyph.Letter) []int {
	var out []int
	for _, lt := range letters {
		base := l.LetterBase(lt.Slot)
		for _, c := range Sequence {
			if !lt.Glyph[c.Row][c.Col] {
				continue
			}
			if i := base + Index(c.Row, c.Col); l.inBounds(i) {
				out = append(out, i)
			}
		}
	}
	return out
}

// SkateEnds returns the two end pixels of the skate segment.
func (l Layout) SkateEnds() []int {
	n := min(l.Skate, l.Pixels)
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []int{0}
	}
	return []int{0, n - 1}
}

// SkateInner returns the skate pixels between the ends.
func (l Layout) SkateInner() []int {
	n := min(l.Skate, l.Pixels)
	var out []int
	for i := 1; i < n-1; i++ {
		out = append(out, i)
	}
	return out
}

// Dropped counts the lit glyph cells that fall past the end of the strip.
func (l Layout) Dropped(letters []glyph.Letter) int {
	n := 0
	for _, lt := range letters {
		base := l.LetterBase(lt.Slot)
		for row := 0; row < glyph.Size; row++ {
			for col := 0; col < glyph.Size; col++ {
				if lt.Glyph[row][col] && !l.inBounds(base+Index(row, col)) {
					n++
				}
			}
		}
	}
	return n
}
