package routine

import (
	"context"

	"github.com/lumarink/lumarink/internal/glyph"
)

// fillRows is five glyph rows plus the two skate rows.
const fillRows = glyph.Size + 2

type fill struct{}

func (fill) Kind() Kind { return Fill }

func (fill) Step(ctx context.Context, st State, env *Env) (State, error) {
	st.Colour = env.Palette.Normalize(st.Colour)

	var rows [fillRows][]int
	glyphRows := env.Layout.Rows(env.Letters)
	copy(rows[:], glyphRows[:])
	rows[glyph.Size] = env.Layout.SkateEnds()
	rows[glyph.Size+1] = env.Layout.SkateInner()

	if !st.LetterBack {
		c := st.Letter + 1
		if c >= fillRows {
			c = fillRows - 1
		} else {
			on := env.word(st.Colour)
			if c >= glyph.Size {
				on = env.accent()
			}
			for _, i := range rows[c] {
				env.Buf.Set(i, on)
			}
		}
		st.Letter = c
		if c == fillRows-1 {
			st.LetterBack = true
		}
	} else {
		if st.Letter >= fillRows {
			st.Letter = fillRows - 1
		}
		if st.Letter >= 0 {
			off := env.off()
			for _, i := range rows[st.Letter] {
				env.Buf.Set(i, off)
			}
			st.Letter--
		}
		if st.Letter < 0 {
			st.Letter = -1
			st.LetterBack = false
			st.Colour = env.Palette.Next(st.Colour)
		}
	}
	return st, env.present(ctx, TickHold)
}
