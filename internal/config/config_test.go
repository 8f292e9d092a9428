package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadInvalidFileGivesDefaultsAndError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(p, []byte("brightness: 7\n"), 0o644))
	c, err := Load(p)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 1.0, c.Brightness)

	require.NoError(t, os.WriteFile(p, []byte("brightness: [1, 2"), 0o644))
	_, err = Load(p)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	c, err := Parse([]byte("word: leafs\ncolour_routine: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, "leafs", c.Word)
	assert.Equal(t, 3, c.ColourRoutine)
	assert.Equal(t, 114, c.NumPixels)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero brightness": func(c *Config) { c.Brightness = 0 },
		"skate too long":  func(c *Config) { c.SkatePixels = c.NumPixels + 1 },
		"colour too high": func(c *Config) { c.Colour = c.MaxColour },
		"bad routine":     func(c *Config) { c.ColourRoutine = 5 },
		"no pixels":       func(c *Config) { c.NumPixels = 0 },
		"negative budget": func(c *Config) { c.Hardware.BudgetAmps = -1 },
		"nrz 400kHz":      func(c *Config) { c.Hardware.NRZFreqHz = 400_000 },
	}
	for name, mut := range cases {
		c := Defaults()
		mut(c)
		assert.ErrorIs(t, c.Validate(), ErrInvalid, name)
	}
}

func TestStoreRoundTripAndUpdate(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	c := Defaults()
	c.Brightness = 0.3
	require.NoError(t, s.Save(c))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Brightness)

	got, err = s.Update(func(c *Config) { c.URL = "http://example.test/" })
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Brightness)

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/", again.URL)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestCloneIsDeep(t *testing.T) {
	c := Defaults()
	c.Colors = map[string]string{"RED": "#ff0000"}
	d := c.Clone()
	d.Hardware.Buttons[0] = "GPIO1"
	d.Colors["RED"] = "#000000"
	assert.Equal(t, "GPIO7", c.Hardware.Buttons[0])
	assert.Equal(t, "#ff0000", c.Colors["RED"])
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, s.Save(Defaults()))

	w := NewWatcher(s.Path(), 50*time.Millisecond, zerolog.Nop())
	got := make(chan *Config, 4)
	w.OnReload(func(c *Config) { got <- c })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	_, err := s.Update(func(c *Config) { c.Word = "LEAFS" })
	require.NoError(t, err)

	select {
	case c := <-got:
		assert.Equal(t, "LEAFS", c.Word)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestReloadRunsEveryHandler(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, s.Save(Defaults()))

	w := NewWatcher(s.Path(), 0, zerolog.Nop())
	var words []string
	w.OnReload(func(c *Config) { words = append(words, c.Word) })
	w.OnReload(func(c *Config) { words = append(words, "second "+c.Word) })
	w.reload()
	assert.Equal(t, []string{"SENS", "second SENS"}, words)
}
