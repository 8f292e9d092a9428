package render

// Scale multiplies each channel by factor, clamps to [0,255] and truncates
// toward zero.
func Scale(c Color, factor float64) Color {
	return Color{
		R: scaleChannel(c.R, factor),
		G: scaleChannel(c.G, factor),
		B: scaleChannel(c.B, factor),
	}
}

func scaleChannel(v uint8, factor float64) uint8 {
	x := float64(v) * factor
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

// Renormalize re-applies a new brightness to a frame that was rendered with an
// older one. Each lit pixel is stretched so its brightest channel is 255 and
// then scaled by factor; unlit pixels stay off.
func Renormalize(buf Buffer, factor float64) {
	for i, c := range buf {
		m := c.Max()
		if m == 0 {
			continue
		}
		stretch := 255.0 / float64(m)
		buf[i] = Color{
			R: scaleChannel(c.R, stretch*factor),
			G: scaleChannel(c.G, stretch*factor),
			B: scaleChannel(c.B, stretch*factor),
		}
	}
}
