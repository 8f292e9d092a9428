// Package term draws the sign in a terminal with tcell: the skate segment
// on top and one 5x5 block per letter panel below it.
package term

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
	"github.com/lumarink/lumarink/internal/render"
)

const (
	cellW    = 2
	panelGap = 2
	lettersY = 2
)

type Driver struct {
	mu     sync.Mutex
	screen tcell.Screen
	layout layout.Layout
	status string
	once   sync.Once
}

// Open takes over the terminal.
func Open(l layout.Layout) (*Driver, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return New(s, l), nil
}

// New draws on an initialised screen.
func New(s tcell.Screen, l layout.Layout) *Driver {
	s.SetStyle(tcell.StyleDefault)
	s.HideCursor()
	return &Driver{screen: s, layout: l}
}

// SetStatus sets the line printed under the letters.
func (d *Driver) SetStatus(s string) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func style(c render.Color) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

func (d *Driver) put(x, y int, r rune, c render.Color) {
	st := style(c)
	if !c.Lit() {
		st = tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	for i := 0; i < cellW; i++ {
		d.screen.SetContent(x+i, y, r, nil, st)
	}
}

func cellRune(c render.Color) rune {
	if c.Lit() {
		return '█'
	}
	return '·'
}

// Write draws buf and shows it.
func (d *Driver) Write(buf render.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screen.Clear()
	at := func(i int) render.Color {
		if i < 0 || i >= len(buf) {
			return render.Off
		}
		return buf[i]
	}
	for i := 0; i < d.layout.Skate; i++ {
		d.put(i*cellW, 0, cellRune(at(i)), at(i))
	}
	panels := d.layout.Letters()
	for slot := 0; slot < panels; slot++ {
		x0 := slot * (glyph.Size*cellW + panelGap)
		base := d.layout.LetterBase(slot)
		for row := 0; row < glyph.Size; row++ {
			for col := 0; col < glyph.Size; col++ {
				c := at(base + layout.Index(row, col))
				d.put(x0+col*cellW, lettersY+row, cellRune(c), c)
			}
		}
	}
	y := lettersY + glyph.Size + 1
	for i, r := range []rune(d.status) {
		d.screen.SetContent(i, y, r, nil, tcell.StyleDefault)
	}
	d.screen.Show()
	return nil
}

// Keys calls fn for every rune typed until ctx ends or the user quits with
// Esc or Ctrl-C, in which case quit runs.
func (d *Driver) Keys(ctx context.Context, fn func(rune), quit func()) {
	go func() {
		<-ctx.Done()
		d.Close()
	}()
	for {
		ev := d.screen.PollEvent()
		if ev == nil {
			return
		}
		k, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch k.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			if quit != nil {
				quit()
			}
			return
		case tcell.KeyRune:
			fn(k.Rune())
		}
	}
}

// Close gives the terminal back.
func (d *Driver) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.screen.Fini()
	})
	return nil
}
