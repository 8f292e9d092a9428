package routine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/palette"
	"github.com/lumarink/lumarink/internal/render"
)

func newEnv(t *testing.T, word string, pixels, skate int) (*Env, *RecordingSurface) {
	t.Helper()
	s := &RecordingSurface{}
	return &Env{
		Buf:        render.NewBuffer(pixels),
		Palette:    palette.MustPalette(0),
		Layout:     layout.Layout{Pixels: pixels, Skate: skate},
		Letters:    glyph.Default.Word(word),
		Brightness: 1.0,
		Surface:    s,
	}, s
}

func newRunner(t *testing.T, env *Env) *Runner {
	t.Helper()
	r, err := NewRunner(DefaultRegistry(), env)
	require.NoError(t, err)
	return r
}

func TestRegistryHasAllKinds(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []Kind{Flashing, Fill, Skate, SkateRNG, Fade}, reg.List())
	for _, k := range reg.List() {
		rt, ok := reg.Get(k)
		require.True(t, ok)
		assert.Equal(t, k, rt.Kind())
	}
}

func TestTickUnknownKind(t *testing.T) {
	env, _ := newEnv(t, "A", 37, 12)
	r := newRunner(t, env)
	assert.ErrorIs(t, r.Tick(context.Background(), Kind(9), false), ErrNoRoutine)
}

func TestFlashingSensLayout(t *testing.T) {
	env, s := newEnv(t, "SENS", 114, 12)
	r := newRunner(t, env)
	require.NoError(t, r.Tick(context.Background(), Flashing, false))

	require.Len(t, s.Frames, 2)
	assert.Equal(t, []time.Duration{FlashHold, FlashHold}, s.Holds)
	lit := s.Frames[0]
	white := render.Color{R: 255, G: 255, B: 255}
	red := render.Color{R: 255}
	for i := 0; i < 12; i++ {
		assert.Equal(t, white, lit[i], "skate pixel %d", i)
	}
	// S, bottom row is lit left to right at base 12
	assert.Equal(t, red, lit[12])
	assert.Equal(t, render.Off, lit[112])
	assert.Equal(t, render.Off, lit[113])
	assert.Equal(t, 2, r.State.Colour)
	for i := 0; i < len(s.Frames[1]); i++ {
		assert.False(t, s.Frames[1][i].Lit())
	}
}

func TestFlashingOffPhaseIsIdempotent(t *testing.T) {
	env, s := newEnv(t, "GO", 62, 12)
	r := newRunner(t, env)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Tick(context.Background(), Flashing, false))
	}
	off := s.Frames[1]
	for i := 3; i < len(s.Frames); i += 2 {
		assert.Equal(t, off, s.Frames[i])
	}
	// colours cycle red, blue, white and wrap
	assert.Equal(t, 3, r.State.Colour)
}

func TestFillSevenAndSeven(t *testing.T) {
	env, s := newEnv(t, "HI", 62, 12)
	r := newRunner(t, env)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.False(t, r.State.LetterBack, "flipped early at tick %d", i)
		require.NoError(t, r.Tick(ctx, Fill, false))
	}
	assert.Equal(t, 6, r.State.Letter)
	assert.True(t, r.State.LetterBack)
	assert.Equal(t, 2, r.State.Colour)

	full := s.Last()
	for i := 0; i < 12; i++ {
		assert.True(t, full[i].Lit(), "skate pixel %d", i)
	}

	for i := 0; i < 7; i++ {
		require.True(t, r.State.LetterBack, "flipped early at tick %d", i)
		require.NoError(t, r.Tick(ctx, Fill, false))
	}
	assert.Equal(t, -1, r.State.Letter)
	assert.False(t, r.State.LetterBack)
	assert.Equal(t, 3, r.State.Colour)
	for i, c := range s.Last() {
		assert.False(t, c.Lit(), "pixel %d still lit", i)
	}
}

func TestFadeTurnsAround(t *testing.T) {
	env, _ := newEnv(t, "A", 37, 12)
	env.Brightness = 0.5
	r := newRunner(t, env)
	ctx := context.Background()

	ticks := 0
	for !r.State.FadeRising {
		require.NoError(t, r.Tick(ctx, Fade, false))
		ticks++
		require.Less(t, ticks, 100)
	}
	assert.Less(t, r.State.Fade, FadeFloor)
	assert.Equal(t, 3, r.State.Colour)

	for r.State.FadeRising {
		require.NoError(t, r.Tick(ctx, Fade, false))
		ticks++
		require.Less(t, ticks, 200)
	}
	assert.Equal(t, 0.5, r.State.Fade)
}

func TestFadeRecoversFromZeroLevel(t *testing.T) {
	env, _ := newEnv(t, "A", 37, 12)
	r := newRunner(t, env)
	r.State.Fade = 0
	require.NoError(t, r.Tick(context.Background(), Fade, false))
	assert.InDelta(t, 1.0/FadeStep, r.State.Fade, 1e-9)
}

func TestSkateBounces(t *testing.T) {
	env, s := newEnv(t, "I", 37, 4)
	r := newRunner(t, env)
	ctx := context.Background()
	cells := env.Layout.Sequential(env.Letters)
	require.Len(t, cells, 13)

	for i := 0; i < 13; i++ {
		require.NoError(t, r.Tick(ctx, Skate, false))
	}
	assert.True(t, r.State.LetterBack)
	for _, i := range cells {
		assert.Equal(t, render.Color{R: 255}, s.Last()[i])
	}
	for i := 0; i < 13; i++ {
		require.NoError(t, r.Tick(ctx, Skate, false))
	}
	assert.False(t, r.State.LetterBack)
	assert.Equal(t, -1, r.State.Letter)
	assert.Equal(t, 3, r.State.Colour)
}

func TestSkateEmptyWordOnlyMovesSkate(t *testing.T) {
	env, s := newEnv(t, "", 20, 4)
	r := newRunner(t, env)
	require.NoError(t, r.Tick(context.Background(), Skate, false))
	assert.Equal(t, 0, r.State.Skate)
	assert.Equal(t, -1, r.State.Letter)
	assert.True(t, s.Last()[0].Lit())
}

func TestSkateCursorBounce(t *testing.T) {
	env, _ := newEnv(t, "", 20, 3)
	r := newRunner(t, env)
	ctx := context.Background()
	var path []int
	for i := 0; i < 7; i++ {
		require.NoError(t, r.Tick(ctx, Skate, false))
		path = append(path, r.State.Skate)
	}
	assert.Equal(t, []int{0, 1, 2, 1, 0, -1, 0}, path)
}

func TestSkateRNGColours(t *testing.T) {
	env, s := newEnv(t, "I", 37, 4)
	env.Palette = palette.MustPalette(1)
	r := newRunner(t, env)
	ctx := context.Background()
	usable := env.Palette.Usable()
	cells := env.Layout.Sequential(env.Letters)

	for i := 0; i < len(cells); i++ {
		require.NoError(t, r.Tick(ctx, SkateRNG, false))
	}
	last := s.Last()
	for pos, idx := range cells {
		assert.Equal(t, usable[pos%len(usable)], last[idx], "cell %d", pos)
	}
}

func TestResetClearsStateAndBuffer(t *testing.T) {
	env, _ := newEnv(t, "HI", 62, 12)
	r := newRunner(t, env)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Tick(ctx, Fill, false))
	}
	require.Equal(t, 2, r.State.Letter)

	require.NoError(t, r.Tick(ctx, Fill, true))
	assert.Equal(t, 0, r.State.Letter)
	assert.False(t, r.State.LetterBack)
	assert.Equal(t, -1, r.State.Skate)
	// only glyph row 0 is lit after one fresh tick
	for i := 0; i < 12; i++ {
		assert.False(t, env.Buf[i].Lit())
	}
}

func TestNormalizationBeforeFirstTick(t *testing.T) {
	for _, k := range []Kind{Fill, Skate, SkateRNG, Fade} {
		for _, p := range []palette.Palette{palette.MustPalette(0), palette.MustPalette(1), palette.MustPalette(2)} {
			env, _ := newEnv(t, "AB", 62, 12)
			env.Palette = p
			r := newRunner(t, env)
			for start := -2; start < 2; start++ {
				r.State = NewState(1.0)
				r.State.Colour = start
				require.NoError(t, r.Tick(context.Background(), k, false))
				assert.True(t, p.Valid(r.State.Colour), "%s from %d gave %d", k, start, r.State.Colour)
			}
		}
	}
}

func TestKindHelpers(t *testing.T) {
	assert.Equal(t, Flashing, Fade.Next())
	k, err := ParseKind("skate_rng")
	require.NoError(t, err)
	assert.Equal(t, SkateRNG, k)
	k, err = ParseKind("4")
	require.NoError(t, err)
	assert.Equal(t, Fade, k)
	_, err = ParseKind("disco")
	assert.Error(t, err)
	assert.True(t, SharesCursors(Skate, SkateRNG))
	assert.False(t, SharesCursors(SkateRNG, Skate))
}
