package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/glyph"
	"github.com/lumarink/lumarink/internal/layout"
)

func TestFromEvent(t *testing.T) {
	d, ok := FromEvent(events.LoopFault{Err: "boom", Panic: true})
	require.True(t, ok)
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, "SCHED.PANIC", d.Code)

	_, ok = FromEvent(events.ScoreUpdated{State: "LIVE", Score: 1})
	assert.False(t, ok, "successful fetches are not diagnostics")

	d, ok = FromEvent(events.ScoreUpdated{Err: "timeout"})
	require.True(t, ok)
	assert.Equal(t, Warn, d.Severity)

	d, ok = FromEvent(events.WiFiChanged{Connected: false})
	require.True(t, ok)
	assert.Equal(t, "WIFI.DOWN", d.Code)
}

func TestLayout(t *testing.T) {
	assert.Empty(t, Layout(layout.Layout{Pixels: 114, Skate: 12}, "SENS", glyph.Default))

	ds := Layout(layout.Layout{Pixels: 80, Skate: 12}, "SENS", glyph.Default)
	require.Len(t, ds, 1)
	assert.Equal(t, "LAYOUT.OVERFLOW", ds[0].Code)

	ds = Layout(layout.Layout{}, "SENS", glyph.Default)
	require.Len(t, ds, 1)
	assert.Equal(t, Err, ds[0].Severity)
}
