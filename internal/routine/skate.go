package routine

import (
	"context"

	"github.com/lumarink/lumarink/internal/render"
)

// skate runs two bouncing cursors: one over the skate segment and one over
// the lit letter cells in sequential order. rng picks each cell's colour
// from the usable list instead of the current word colour.
type skate struct {
	rng bool
}

func (s skate) Kind() Kind {
	if s.rng {
		return SkateRNG
	}
	return Skate
}

func (s skate) Step(ctx context.Context, st State, env *Env) (State, error) {
	st.Colour = env.Palette.Normalize(st.Colour)
	st = stepSkateCursor(st, env)

	cells := env.Layout.Sequential(env.Letters)
	if n := len(cells); n > 0 {
		if !st.LetterBack {
			if st.Letter+1 < n {
				st.Letter++
				env.Buf.Set(cells[st.Letter], s.cellColour(st, env))
			}
			if st.Letter >= n-1 {
				st.Letter = n - 1
				st.LetterBack = true
			}
		} else {
			if st.Letter >= n {
				st.Letter = n - 1
			}
			if st.Letter >= 0 {
				env.Buf.Set(cells[st.Letter], env.off())
				st.Letter--
			}
			if st.Letter < 0 {
				st.Letter = -1
				st.LetterBack = false
				st.Colour = env.Palette.Next(st.Colour)
			}
		}
	}
	return st, env.present(ctx, TickHold)
}

func (s skate) cellColour(st State, env *Env) render.Color {
	if !s.rng {
		return env.word(st.Colour)
	}
	usable := env.Palette.Usable()
	if len(usable) == 0 {
		return render.Scale(render.Color{R: 255, G: 255, B: 255}, env.Brightness)
	}
	i := (st.Colour - 2 + st.Letter) % len(usable)
	if i < 0 {
		i += len(usable)
	}
	return render.Scale(usable[i], env.Brightness)
}

func stepSkateCursor(st State, env *Env) State {
	n := env.skateLen()
	if n <= 0 {
		return st
	}
	if !st.SkateBack {
		if st.Skate+1 < n {
			st.Skate++
			env.Buf[st.Skate] = env.accent()
		}
		if st.Skate >= n-1 {
			st.Skate = n - 1
			st.SkateBack = true
		}
		return st
	}
	if st.Skate >= n {
		st.Skate = n - 1
	}
	if st.Skate >= 0 {
		env.Buf[st.Skate] = env.off()
		st.Skate--
	}
	if st.Skate < 0 {
		st.Skate = -1
		st.SkateBack = false
	}
	return st
}
