package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/palette"
	"github.com/lumarink/lumarink/internal/render"
	"github.com/lumarink/lumarink/internal/routine"
	"github.com/lumarink/lumarink/internal/score"
	"github.com/lumarink/lumarink/internal/selftest"
	"github.com/lumarink/lumarink/internal/sequence"
)

type recordingDriver struct {
	frames []render.Buffer
	err    error
}

func (d *recordingDriver) Write(b render.Buffer) error {
	d.frames = append(d.frames, b.Clone())
	return d.err
}

type fakeWiFi struct {
	connected bool
	resets    int
}

func (w *fakeWiFi) IsConnected() bool { return w.connected }

func (w *fakeWiFi) ResetCredentials(context.Context) error { w.resets++; return nil }

type countingPoller struct{ starts int }

func (p *countingPoller) Start(context.Context) bool { p.starts++; return p.starts == 1 }

type memSettings struct{ cfg *config.Config }

func (s *memSettings) Update(fn func(*config.Config)) (*config.Config, error) {
	fn(s.cfg)
	return s.cfg.Clone(), nil
}

type resetRecorder struct{ reasons []string }

func (r *resetRecorder) Reset(reason string) { r.reasons = append(r.reasons, reason) }

type hornCounter struct{ n int }

func (h *hornCounter) Goal() { h.n++ }

type fixture struct {
	e        *Engine
	rt       *coop.Runtime
	clock    *coop.VirtualClock
	drv      *recordingDriver
	wifi     *fakeWiFi
	poller   *countingPoller
	settings *memSettings
	resets   *resetRecorder
	horn     *hornCounter
	score    *score.State
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(cfg)
	}
	f := &fixture{
		clock:    coop.NewVirtualClock(time.Unix(0, 0)),
		drv:      &recordingDriver{},
		wifi:     &fakeWiFi{},
		poller:   &countingPoller{},
		settings: &memSettings{cfg: cfg.Clone()},
		resets:   &resetRecorder{},
		horn:     &hornCounter{},
		score:    &score.State{},
	}
	f.rt = coop.New(coop.WithClock(f.clock))
	e, err := New(Options{
		Runtime:  f.rt,
		Config:   cfg,
		Driver:   f.drv,
		WiFi:     f.wifi,
		Poller:   f.poller,
		Score:    f.score,
		Settings: f.settings,
		Resetter: f.resets,
		Horn:     f.horn,
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)
	f.e = e
	return f
}

// do runs fn holding the baton, the way every engine caller must.
func (f *fixture) do(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	require.NoError(t, f.rt.Do(context.Background(), func() { fn(context.Background()) }))
}

func (f *fixture) iterate(t *testing.T, n int) {
	t.Helper()
	f.do(t, func(ctx context.Context) {
		for i := 0; i < n; i++ {
			require.NoError(t, f.e.Iterate(ctx))
		}
	})
}

func sum(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Brightness = 0
	_, err := New(Options{Runtime: coop.New(), Config: cfg, Driver: &recordingDriver{}})
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = New(Options{Config: config.Defaults()})
	assert.Error(t, err)
}

func TestIterationTicksSelectedRoutine(t *testing.T) {
	f := newFixture(t, nil)
	f.iterate(t, 1)
	// flashing: on frame, off frame
	require.Len(t, f.drv.frames, 2)
	assert.Equal(t, []time.Duration{routine.FlashHold, routine.FlashHold}, f.clock.Waits())
	assert.Equal(t, palette.FirstWord, f.e.State().Colour)
	assert.Zero(t, f.poller.starts)
}

func TestConnectedIndicatorRunsOnce(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.ColourRoutine = int(routine.Fill) })
	f.wifi.connected = true
	f.iterate(t, 3)

	// 6 indicator frames then one fill frame per iteration
	assert.Len(t, f.drv.frames, 6+3)
	first := f.drv.frames[0]
	accent := render.Scale(palette.MustPalette(0).AccentColor(), 1)
	for i := 0; i < 12; i++ {
		assert.Equal(t, accent, first[i])
	}
	assert.Equal(t, render.Off, first[12])
	assert.Equal(t, 3, f.poller.starts)
}

func TestGoalCelebrationBlocksForItsScript(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.ColourRoutine = int(routine.Fill) })
	f.score.Previous, f.score.Current, f.score.Warmup = 1, 2, 2
	f.iterate(t, 1)

	waits := f.clock.Waits()
	require.NotEmpty(t, waits)
	// celebration holds, then the fill tick
	assert.Equal(t, sequence.Goal.Duration(), sum(waits[:len(waits)-1]))
	assert.Equal(t, routine.TickHold, waits[len(waits)-1])
	assert.Equal(t, 1, f.horn.n)
	assert.Equal(t, 2, f.score.Previous)

	lit := f.drv.frames[0]
	red := palette.MustPalette(0).Color(palette.FirstWord)
	for _, c := range lit {
		assert.Equal(t, red, c)
	}

	f.iterate(t, 1)
	assert.Equal(t, 1, f.horn.n, "celebrated twice")
}

func TestNoCelebrationDuringWarmup(t *testing.T) {
	f := newFixture(t, nil)
	f.score.Previous, f.score.Current, f.score.Warmup = 1, 2, 1
	f.iterate(t, 1)
	assert.Zero(t, f.horn.n)
	assert.Len(t, f.drv.frames, 2)
	assert.Equal(t, 2, f.score.Previous)
}

func TestCycleBrightness(t *testing.T) {
	assert.Equal(t, 0.5, NextBrightness(1))
	assert.Equal(t, BrightTop, NextBrightness(DimFloor))
	assert.Equal(t, BrightTop, NextBrightness(0.01))

	f := newFixture(t, nil)
	f.iterate(t, 1)
	f.drv.frames = nil
	f.do(t, func(ctx context.Context) {
		f.e.buf[20] = render.Color{R: 255}
		require.NoError(t, f.e.CycleBrightness(ctx))
	})
	assert.Equal(t, 0.5, f.e.Config().Brightness)
	assert.Equal(t, 0.5, f.settings.cfg.Brightness)
	require.Len(t, f.drv.frames, 1)
	assert.Equal(t, render.Color{R: 127}, f.drv.frames[0][20])
}

func TestCycleColourRestartRules(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleColour(ctx)) })
	assert.Equal(t, 1, f.e.Config().Colour)
	assert.Equal(t, 1, f.settings.cfg.Colour)
	assert.True(t, f.e.RestartPending())

	f = newFixture(t, func(c *config.Config) {
		c.ColourRoutine = int(routine.Skate)
		c.Colour = 2
	})
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleColour(ctx)) })
	assert.Equal(t, 0, f.e.Config().Colour, "wraps at max_colour")
	assert.False(t, f.e.RestartPending())
}

func TestCycleRoutineRestartRules(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.ColourRoutine = int(routine.Skate) })
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleRoutine(ctx)) })
	assert.Equal(t, routine.SkateRNG, f.e.Kind())
	assert.False(t, f.e.RestartPending())

	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleRoutine(ctx)) })
	assert.Equal(t, routine.Fade, f.e.Kind())
	assert.True(t, f.e.RestartPending())
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleRoutine(ctx)) })
	assert.Equal(t, routine.Flashing, f.e.Kind())
	assert.Equal(t, int(routine.Flashing), f.settings.cfg.ColourRoutine)
}

func TestRestartIsConsumedByTheNextTick(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.ColourRoutine = int(routine.Fill) })
	f.iterate(t, 3)
	assert.Equal(t, 2, f.e.State().Letter)

	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.CycleColour(ctx)) })
	f.iterate(t, 1)
	assert.False(t, f.e.RestartPending())
	assert.Equal(t, 0, f.e.State().Letter)
}

func TestResetWiFi(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.ResetWiFi(ctx)) })
	assert.Equal(t, 1, f.wifi.resets)
	assert.Len(t, f.resets.reasons, 1)
}

func TestIteratePropagatesDriverErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.drv.err = errors.New("spi gone")
	f.do(t, func(ctx context.Context) {
		err := f.e.Iterate(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "spi gone")
	})
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t, nil)
	next := config.Defaults()
	next.Word = "OTT"
	next.Brightness = 0.25
	next.ColourRoutine = int(routine.Fade)
	f.do(t, func(context.Context) { require.NoError(t, f.e.ApplyConfig(next)) })

	assert.Equal(t, routine.Fade, f.e.Kind())
	assert.Equal(t, 0.25, f.e.runner.Env.Brightness)
	assert.Len(t, f.e.runner.Env.Letters, 3)
	assert.True(t, f.e.RestartPending())

	bad := config.Defaults()
	bad.Brightness = 2
	f.do(t, func(context.Context) { assert.ErrorIs(t, f.e.ApplyConfig(bad), config.ErrInvalid) })
}

func TestRunSurvivesFaultsAndStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.drv.err = errors.New("flaky")
	ctx, cancel := context.WithCancel(context.Background())
	beats := 0
	f.e.hooks.Heartbeat = func() {
		beats++
		if beats == 3 {
			cancel()
		}
	}
	f.rt.Go(ctx, "scheduler", f.e.Run)
	f.rt.Wait()
	assert.Equal(t, 3, beats)
	_, faults := f.e.Stats()
	assert.Equal(t, uint64(3), faults)
}

func TestSelfTestRestartsRoutine(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, func(ctx context.Context) { require.NoError(t, f.e.SelfTest(ctx, selftest.RGBTest)) })
	assert.Len(t, f.drv.frames, 4)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, f.clock.Waits())
	assert.True(t, f.e.RestartPending())
}
