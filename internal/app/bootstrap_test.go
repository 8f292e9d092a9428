package app

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarink/lumarink/internal/config"
	"github.com/lumarink/lumarink/internal/coop"
	"github.com/lumarink/lumarink/internal/driver/fake"
	"github.com/lumarink/lumarink/internal/routine"
	"github.com/lumarink/lumarink/internal/score"
	"github.com/lumarink/lumarink/internal/wifi"
)

// risingFeed scores a goal on every third fetch.
type risingFeed struct{ calls atomic.Int32 }

func (f *risingFeed) Fetch(context.Context, string, string, int) (score.Result, error) {
	n := int(f.calls.Add(1))
	return score.Result{Team: "Senators", State: score.Live, Score: n / 3, LatestVersion: 1}, nil
}

type hornCount struct{ n int }

func (h *hornCount) Goal() { h.n++ }

func newCore(t *testing.T, mutate func(*Options)) *Core {
	t.Helper()
	cfg := config.Defaults()
	cfg.WiFi.CredentialsFile = filepath.Join(t.TempDir(), "wifi.dat")
	o := Options{
		Config:     cfg,
		Driver:     &fake.Driver{Log: zerolog.Nop()},
		DriverName: "fake",
		Clock:      coop.NewVirtualClock(time.Unix(0, 0)),
		Station:    wifi.NewSimStation("home:secret"),
		Fetcher:    &risingFeed{},
		Log:        zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&o)
	}
	c, err := InitCore(o)
	require.NoError(t, err)
	return c
}

func TestPressRunsButtonActions(t *testing.T) {
	c := newCore(t, nil)
	ctx := context.Background()
	require.NoError(t, c.Press(ctx, ColourButton))
	require.NoError(t, c.Press(ctx, RoutineButton))
	require.NoError(t, c.Press(ctx, BrightnessButton))
	assert.Error(t, c.Press(ctx, "power"))

	cfg := c.Engine.Config()
	assert.Equal(t, 1, cfg.Colour)
	assert.Equal(t, int(routine.Fill), cfg.ColourRoutine)
	assert.Equal(t, 0.5, cfg.Brightness)
}

func TestSelfTestByName(t *testing.T) {
	c := newCore(t, nil)
	assert.NoError(t, c.SelfTest(context.Background(), "rgb_channels"))
	assert.Error(t, c.SelfTest(context.Background(), "plane_z"))
}

func TestButtonsFollowRoles(t *testing.T) {
	c := newCore(t, nil)
	require.Len(t, c.Buttons, 3)
	assert.Equal(t, BrightnessButton, c.Buttons[0].Name)
	assert.Equal(t, 5*time.Second, c.Buttons[0].Detect.LongPress)
	assert.NotNil(t, c.Buttons[0].OnLong)
	assert.Zero(t, c.Buttons[1].Detect.LongPress)
	assert.Nil(t, c.Buttons[2].OnLong)
}

func TestRunConnectsPollsAndCelebrates(t *testing.T) {
	horn := &hornCount{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var c *Core
	beats := 0
	c = newCore(t, func(o *Options) {
		o.Horn = horn
		o.Heartbeat = func() {
			beats++
			if horn.n > 0 {
				cancel()
			}
		}
	})
	require.NoError(t, wifi.NewCredentials(c.cfg.WiFi.CredentialsFile).Write("home", "secret"))

	require.NoError(t, c.Run(ctx))
	assert.NotZero(t, horn.n, "no goal after %d iterations", beats)
	assert.True(t, c.WiFi.IsConnected())
	assert.True(t, c.Poller.Started())
}
