// Package led drives the physical strip: NRZ LEDs (WS2812 and friends) fed
// from an SPI port through periph, or an ANSI console drawer when the host
// has no SPI port.
package led

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/lumarink/lumarink/internal/render"
)

type Options struct {
	Pixels int
	// Port is the spireg name; empty picks the first registered port.
	Port string
	// FreqHz is the NRZ bit rate, usually 800 kHz.
	FreqHz int
}

// Strip is a render.Driver backed by a periph display.Drawer.
type Strip struct {
	drawer display.Drawer
	port   spi.PortCloser
	img    *image.NRGBA
	spi    bool
}

// Open initialises the host and opens the SPI strip. Without an SPI port it
// falls back to printing frames on the console.
func Open(o Options, log zerolog.Logger) (*Strip, error) {
	if o.Pixels <= 0 {
		return nil, errors.New("led: pixel count must be positive")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: host init: %w", err)
	}
	p, err := spireg.Open(o.Port)
	if err != nil {
		log.Warn().Err(err).Msg("no SPI port, printing frames at the console")
		return &Strip{drawer: screen.New(o.Pixels), img: newImage(o.Pixels)}, nil
	}
	s, err := NewSPI(p, o)
	if err != nil {
		p.Close()
		return nil, err
	}
	s.port = p
	log.Info().Str("port", p.String()).Int("pixels", o.Pixels).Msg("nrzled strip ready")
	return s, nil
}

// DefaultNRZFreqHz is the WS2812 bit rate.
const DefaultNRZFreqHz = 800_000

// SPIFreq is the SPI clock for an NRZ bit rate: three SPI bits encode one
// NRZ bit, plus the 100 kHz nrzled expects on top (2.5 MHz for 800 kHz).
func SPIFreq(nrzHz int) physic.Frequency {
	if nrzHz <= 0 {
		nrzHz = DefaultNRZFreqHz
	}
	return physic.Frequency(nrzHz*3)*physic.Hertz + 100*physic.KiloHertz
}

// NewSPI drives o.Pixels NRZ LEDs on an already opened port.
func NewSPI(p spi.Port, o Options) (*Strip, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: o.Pixels,
		Channels:  3,
		Freq:      SPIFreq(o.FreqHz),
	})
	if err != nil {
		return nil, fmt.Errorf("led: nrzled: %w", err)
	}
	if err := d.Halt(); err != nil {
		return nil, fmt.Errorf("led: clear strip: %w", err)
	}
	return &Strip{drawer: d, img: newImage(o.Pixels), spi: true}, nil
}

func newImage(n int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, n, 1))
}

// SPI reports whether frames reach real LEDs.
func (s *Strip) SPI() bool { return s.spi }

func (s *Strip) String() string {
	if st, ok := s.drawer.(fmt.Stringer); ok {
		return st.String()
	}
	return "led"
}

// Write draws buf on the strip. Pixels beyond the strip are ignored.
func (s *Strip) Write(buf render.Buffer) error {
	n := s.img.Rect.Dx()
	for i := 0; i < n; i++ {
		c := render.Off
		if i < len(buf) {
			c = buf[i]
		}
		s.img.SetNRGBA(i, 0, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	return s.drawer.Draw(s.drawer.Bounds(), s.img, image.Point{})
}

// Close blanks the strip and releases the port.
func (s *Strip) Close() error {
	err := s.drawer.Halt()
	if s.port != nil {
		if cerr := s.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
