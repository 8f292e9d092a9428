package routine

import "context"

type flashing struct{}

func (flashing) Kind() Kind { return Flashing }

// Step advances the word colour, shows skate and letters, then blanks.
func (flashing) Step(ctx context.Context, st State, env *Env) (State, error) {
	st.Colour = env.Palette.Next(st.Colour)

	accent := env.accent()
	for i := 0; i < env.skateLen(); i++ {
		env.Buf[i] = accent
	}
	env.drawLetters(env.word(st.Colour))
	if err := env.present(ctx, FlashHold); err != nil {
		return st, err
	}

	env.Buf.Fill(env.off())
	return st, env.present(ctx, FlashHold)
}
