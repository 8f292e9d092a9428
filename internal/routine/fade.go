package routine

import (
	"context"

	"github.com/lumarink/lumarink/internal/render"
)

type fade struct{}

func (fade) Kind() Kind { return Fade }

func (fade) Step(ctx context.Context, st State, env *Env) (State, error) {
	st.Colour = env.Palette.Normalize(st.Colour)
	if st.Fade <= 0 {
		st.Fade = env.Brightness
	}

	if !st.FadeRising {
		st.Fade /= FadeStep
		if st.Fade < FadeFloor {
			st.Colour = env.Palette.Next(st.Colour)
			st.FadeRising = true
		}
	} else {
		st.Fade *= FadeStep
		if st.Fade >= env.Brightness {
			st.Fade = env.Brightness
			st.FadeRising = false
		}
	}

	accent := render.Scale(env.Palette.AccentColor(), st.Fade)
	for i := 0; i < env.skateLen(); i++ {
		env.Buf[i] = accent
	}
	env.drawLetters(render.Scale(env.Palette.Color(st.Colour), st.Fade))
	return st, env.present(ctx, TickHold)
}
