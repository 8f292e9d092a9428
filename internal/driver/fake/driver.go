// Package fake is a headless driver that counts frames and logs a compact
// summary of them.
package fake

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/render"
)

// Driver logs the average colour and lit count of every Every-th frame.
type Driver struct {
	Log   zerolog.Logger
	Every int

	mu    sync.Mutex
	count int
	last  render.Buffer
}

func (d *Driver) Write(buf render.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count++
	d.last = buf.Clone()
	if d.Every <= 0 || d.count%d.Every != 0 {
		return nil
	}
	var r, g, b float64
	lit := 0
	for _, c := range buf {
		r += float64(c.R)
		g += float64(c.G)
		b += float64(c.B)
		if c.Lit() {
			lit++
		}
	}
	n := float64(max(len(buf), 1))
	d.Log.Debug().Int("frame", d.count).Int("lit", lit).
		Floats64("avg", []float64{r / n, g / n, b / n}).
		Msg("frame")
	return nil
}

// Count is the number of frames written.
func (d *Driver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Last returns a copy of the latest frame.
func (d *Driver) Last() render.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Clone()
}
