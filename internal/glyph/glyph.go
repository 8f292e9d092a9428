// Package glyph holds the 5x5 letter bitmaps shown on the sign.
package glyph

import (
	"strings"
	"unicode"
)

const (
	Size = 5
	// Cells is the pixel count of one letter.
	Cells = Size * Size
	// MaxLetters is the longest word the sign shows.
	MaxLetters = 5
)

// Glyph is a 5x5 bitmap. Row 0 is the top of the letter.
type Glyph [Size][Size]bool

// Count returns the number of lit cells.
func (g Glyph) Count() int {
	n := 0
	for _, row := range g {
		for _, on := range row {
			if on {
				n++
			}
		}
	}
	return n
}

// Letter is one placed glyph of a word. Slot is the position in the word,
// which stays fixed even when earlier characters were skipped.
type Letter struct {
	Slot  int
	Rune  rune
	Glyph Glyph
}

// Table maps runes to glyphs.
type Table map[rune]Glyph

// Lookup returns the glyph for r, case-insensitively.
func (t Table) Lookup(r rune) (Glyph, bool) {
	g, ok := t[unicode.ToUpper(r)]
	return g, ok
}

// Word upper-cases and truncates s to MaxLetters and returns the glyphs it
// knows. Unknown characters are skipped but keep their slot.
func (t Table) Word(s string) []Letter {
	var out []Letter
	slot := 0
	for _, r := range strings.ToUpper(s) {
		if slot >= MaxLetters {
			break
		}
		if g, ok := t[r]; ok {
			out = append(out, Letter{Slot: slot, Rune: r, Glyph: g})
		}
		slot++
	}
	return out
}

// Unknown lists the characters of s (after truncation) with no glyph.
func (t Table) Unknown(s string) []rune {
	var out []rune
	slot := 0
	for _, r := range strings.ToUpper(s) {
		if slot >= MaxLetters {
			break
		}
		if _, ok := t[r]; !ok {
			out = append(out, r)
		}
		slot++
	}
	return out
}

// Parse builds a glyph from five rows of art where '#' is lit.
func Parse(rows [Size]string) Glyph {
	var g Glyph
	for r, line := range rows {
		for c, ch := range line {
			if c >= Size {
				break
			}
			g[r][c] = ch == '#'
		}
	}
	return g
}
