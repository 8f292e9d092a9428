package led

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/render"
)

func TestSPIStripWritesFrames(t *testing.T) {
	var raw bytes.Buffer
	s, err := NewSPI(spitest.NewRecordRaw(&raw), Options{Pixels: 4})
	require.NoError(t, err)
	assert.True(t, s.SPI())
	assert.Equal(t, "nrzled{recordraw}", s.String())

	raw.Reset()
	buf := render.Buffer{{R: 255}, {G: 255}, {B: 255}, {}}
	require.NoError(t, s.Write(buf))
	assert.NotZero(t, raw.Len())

	// a short buffer leaves the tail dark instead of failing
	first := append([]byte(nil), raw.Bytes()...)
	raw.Reset()
	require.NoError(t, s.Write(buf[:3]))
	assert.Equal(t, first, raw.Bytes())

	require.NoError(t, s.Close())
}

func TestSPIFreq(t *testing.T) {
	assert.Equal(t, 2500*physic.KiloHertz, SPIFreq(800_000))
	assert.Equal(t, 2500*physic.KiloHertz, SPIFreq(0))
}

func TestSPIStripOpensWithDefaultConfig(t *testing.T) {
	cfg := config.Defaults()
	var raw bytes.Buffer
	s, err := NewSPI(spitest.NewRecordRaw(&raw), Options{
		Pixels: cfg.NumPixels,
		Port:   cfg.Hardware.SPIPort,
		FreqHz: cfg.Hardware.NRZFreqHz,
	})
	require.NoError(t, err)
	assert.True(t, s.SPI())
	require.NoError(t, s.Write(render.NewBuffer(cfg.NumPixels)))
	require.NoError(t, s.Close())
}
