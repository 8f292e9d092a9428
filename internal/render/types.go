package render

// Color is one LED pixel as 8-bit RGB.
type Color struct{ R, G, B uint8 }

// Off is the unlit pixel.
var Off = Color{}

// Lit reports whether any channel is non-zero.
func (c Color) Lit() bool { return c.R|c.G|c.B != 0 }

// Max returns the brightest channel.
func (c Color) Max() uint8 {
	m := c.R
	if c.G > m {
		m = c.G
	}
	if c.B > m {
		m = c.B
	}
	return m
}

// Buffer is the shared pixel buffer. Its length is fixed at startup.
type Buffer []Color

func NewBuffer(n int) Buffer { return make(Buffer, n) }

// Set writes c at i. Out-of-range indices are dropped.
func (b Buffer) Set(i int, c Color) bool {
	if i < 0 || i >= len(b) {
		return false
	}
	b[i] = c
	return true
}

// Fill sets every pixel to c.
func (b Buffer) Fill(c Color) {
	for i := range b {
		b[i] = c
	}
}

func (b Buffer) Clear() { b.Fill(Off) }

// Clone returns a copy safe to hand to another goroutine.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}

// Bytes packs the buffer as R,G,B triplets.
func (b Buffer) Bytes() []byte {
	out := make([]byte, len(b)*3)
	for i, c := range b {
		out[i*3+0] = c.R
		out[i*3+1] = c.G
		out[i*3+2] = c.B
	}
	return out
}

// Driver abstracts the LED transport (SPI, terminal, websocket...).
type Driver interface {
	Write(Buffer) error
}

// Tee fans a frame out to several drivers. The first error wins but every
// driver still sees the frame.
type Tee []Driver

func (t Tee) Write(buf Buffer) error {
	var first error
	for _, d := range t {
		if d == nil {
			continue
		}
		if err := d.Write(buf); err != nil && first == nil {
			first = err
		}
	}
	return first
}
