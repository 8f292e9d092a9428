// Package horn plays a goal horn through the sound card while the goal
// script runs. Tones follow the lit steps of the script.
package horn

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/lumarink/lumarink/internal/sequence"
)

// tone is a sine wave with a short linear attack and release so steps do
// not click.
type tone struct {
	freq  float64
	rate  beep.SampleRate
	phase float64
	pos   int
	total int
	ramp  int
}

func newTone(freq float64, d time.Duration, rate beep.SampleRate) *tone {
	total := rate.N(d)
	return &tone{freq: freq, rate: rate, total: total, ramp: min(rate.N(10*time.Millisecond), total/2)}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.pos >= t.total {
			return i, i > 0
		}
		vol := 1.0
		if t.ramp > 0 {
			switch {
			case t.pos < t.ramp:
				vol = float64(t.pos) / float64(t.ramp)
			case t.pos >= t.total-t.ramp:
				vol = float64(t.total-t.pos) / float64(t.ramp)
			}
		}
		v := 0.5 * vol * math.Sin(2*math.Pi*t.phase)
		samples[i][0], samples[i][1] = v, v
		t.phase += t.freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// Stream renders prog as tone on lit steps and silence on dark ones.
func Stream(prog sequence.Program, freq float64, rate beep.SampleRate) beep.Streamer {
	var parts []beep.Streamer
	for r := 0; r < max(prog.Repeat, 1); r++ {
		for _, s := range prog.Steps {
			d := time.Duration(s.HoldS * float64(time.Second))
			if d <= 0 {
				continue
			}
			if s.On {
				parts = append(parts, newTone(freq, d, rate))
			} else {
				parts = append(parts, beep.Silence(rate.N(d)))
			}
		}
	}
	return beep.Seq(parts...)
}

// Horn plays the goal script on the speaker.
type Horn struct {
	freq float64
	rate beep.SampleRate
	log  zerolog.Logger
}

// New opens the speaker. It fails on hosts without a sound device.
func New(freqHz float64, sampleRate int, log zerolog.Logger) (*Horn, error) {
	if freqHz <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("horn: bad tone %vHz at %d samples/s", freqHz, sampleRate)
	}
	rate := beep.SampleRate(sampleRate)
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("horn: speaker: %w", err)
	}
	return &Horn{freq: freqHz, rate: rate, log: log}, nil
}

// Goal starts the horn and returns at once; the speaker plays it in the
// background.
func (h *Horn) Goal() {
	h.log.Debug().Float64("freq_hz", h.freq).Msg("horn")
	speaker.Clear()
	speaker.Play(Stream(sequence.Goal, h.freq, h.rate))
}

func (h *Horn) Close() {
	speaker.Clear()
	speaker.Close()
}
