package horn

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/sequence"
)

func drain(s beep.Streamer) (n int, peak float64) {
	buf := make([][2]float64, 512)
	for {
		k, ok := s.Stream(buf)
		for i := 0; i < k; i++ {
			if buf[i][0] > peak {
				peak = buf[i][0]
			}
		}
		n += k
		if !ok {
			return n, peak
		}
	}
}

func TestStreamFollowsGoalScript(t *testing.T) {
	rate := beep.SampleRate(8000)
	n, peak := drain(Stream(sequence.Goal, 440, rate))
	assert.Equal(t, rate.N(sequence.Goal.Duration()), n)
	assert.InDelta(t, 0.5, peak, 0.02)
}

func TestSilentStepsAreSilent(t *testing.T) {
	rate := beep.SampleRate(8000)
	prog := sequence.Program{Name: "quiet", Target: sequence.All, Repeat: 1, Steps: []sequence.Step{{HoldS: 0.25}}}
	n, peak := drain(Stream(prog, 440, rate))
	assert.Equal(t, 2000, n)
	assert.Zero(t, peak)
}

func TestToneRampsIn(t *testing.T) {
	tn := newTone(1000, 100*time.Millisecond, beep.SampleRate(8000))
	buf := make([][2]float64, 4)
	k, ok := tn.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 4, k)
	assert.Zero(t, buf[0][0])
}

func TestNewRejectsBadTone(t *testing.T) {
	_, err := New(0, 44100, zerolog.Nop())
	assert.Error(t, err)
}
