package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/render"
)

var red = render.Color{R: 255}

func TestNormalizeAlwaysLandsOnWordColour(t *testing.T) {
	palettes := []Palette{
		MustPalette(0),
		MustPalette(1),
		MustPalette(2),
		New(render.Off, red, []render.Color{red}, 3),
		New(render.Off, red, []render.Color{red}, 12),
	}
	for pi, p := range palettes {
		for start := -3; start < 2; start++ {
			for _, i := range []int{p.Normalize(start), p.Next(start)} {
				assert.True(t, i >= FirstWord && i < len(p), "palette %d start %d: %d out of range", pi, start, i)
				assert.False(t, p[i].Sentinel, "palette %d start %d: landed on sentinel %d", pi, start, i)
			}
		}
	}
}

func TestNextWrapsAndSkipsSentinels(t *testing.T) {
	p := MustPalette(0) // off, white, red, blue, white, 4x sentinel
	require.Len(t, p, Size)
	assert.Equal(t, 3, p.Next(2))
	assert.Equal(t, 4, p.Next(3))
	assert.Equal(t, 2, p.Next(4))
	assert.Equal(t, 2, p.Next(8))

	// sentinel in the middle is skipped, not treated as the end
	mid := Palette{{Color: render.Off}, {Color: red}, {Color: red}, {Sentinel: true}, {Color: red}}
	assert.Equal(t, 4, mid.Next(2))
	assert.Equal(t, 2, mid.Next(4))
}

func TestUsable(t *testing.T) {
	assert.Len(t, MustPalette(1).Usable(), 6)
	assert.Len(t, MustPalette(2).Usable(), 3)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Palette{{}, {}}.Validate(), ErrNoWordColour)
	assert.ErrorIs(t, Palette{{}, {}, {Sentinel: true}}.Validate(), ErrNoWordColour)
	assert.NoError(t, MustPalette(0).Validate())
}

func TestSetOverrides(t *testing.T) {
	s, err := NewSet(map[string]string{"red": "#800000"})
	require.NoError(t, err)
	p, err := s.Palette(0)
	require.NoError(t, err)
	assert.Equal(t, render.Color{R: 128}, p.Color(FirstWord))

	_, err = NewSet(map[string]string{"red": "nope"})
	assert.Error(t, err)
}

func TestColorOfSentinelIsOff(t *testing.T) {
	p := MustPalette(0)
	assert.Equal(t, p.OffColor(), p.Color(8))
	assert.Equal(t, p.OffColor(), p.Color(99))
}
