package selftest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/render"
)

func lit(buf render.Buffer) []int {
	var out []int
	for i, c := range buf {
		if c.Lit() {
			out = append(out, i)
		}
	}
	return out
}

func TestIndexSweepLightsEachPixelOnce(t *testing.T) {
	l := layout.Layout{Pixels: 10, Skate: 2}
	buf := render.NewBuffer(10)
	r := NewRunner(IndexSweep)
	for i := 0; i < 10; i++ {
		require.True(t, r.Step(l, buf))
		assert.Equal(t, []int{i}, lit(buf))
	}
	assert.False(t, r.Step(l, buf))
}

func TestLetterSweepCoversEveryPanelCell(t *testing.T) {
	l := layout.Layout{Pixels: 114, Skate: 12}
	buf := render.NewBuffer(114)
	r := NewRunner(LetterSweep)
	seen := map[int]bool{}
	for r.Step(l, buf) {
		px := lit(buf)
		require.Len(t, px, 1)
		seen[px[0]] = true
	}
	assert.Len(t, seen, 4*glyph.Cells)
	for i := range seen {
		assert.True(t, i >= 12 && i < 112)
	}
}

func TestRunPresentsEveryFrame(t *testing.T) {
	l := layout.Layout{Pixels: 5}
	buf := render.NewBuffer(5)
	frames := 0
	var holds []time.Duration
	err := Run(context.Background(), RGBTest, l, buf,
		func(context.Context) error { frames++; return nil },
		func(_ context.Context, d time.Duration) error { holds = append(holds, d); return nil })
	require.NoError(t, err)
	assert.Equal(t, 4, frames, "three channels then blank")
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, holds)
	assert.Empty(t, lit(buf))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("letter_sweep")
	require.NoError(t, err)
	assert.Equal(t, LetterSweep, k)
	_, err = ParseKind("plane_z")
	assert.Error(t, err)
}
