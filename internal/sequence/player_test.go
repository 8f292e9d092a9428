package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	log   []string
	holds []time.Duration
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Paint: func(target Target, slot int, on bool) {
			if on {
				r.log = append(r.log, "on:"+string(target))
			} else {
				r.log = append(r.log, "off:"+string(target))
			}
		},
		Present: func(context.Context) error { return nil },
		Hold: func(_ context.Context, d time.Duration) error {
			r.holds = append(r.holds, d)
			return nil
		},
		Started: func(name string) { r.log = append(r.log, "start:"+name) },
	}
}

func TestGoalScript(t *testing.T) {
	rec := &recorder{}
	p := NewPlayer(rec.hooks())
	require.NoError(t, p.Play(context.Background(), Goal))

	assert.Equal(t, "start:goal", rec.log[0])
	assert.Len(t, rec.log, 1+20)
	assert.Len(t, rec.holds, 20)
	assert.Equal(t, 2500*time.Millisecond, rec.holds[0])
	assert.Equal(t, 500*time.Millisecond, rec.holds[1])
	assert.Equal(t, 2500*time.Millisecond, rec.holds[10])

	var total time.Duration
	for _, d := range rec.holds {
		total += d
	}
	assert.Equal(t, 22*time.Second, total)
	assert.Equal(t, total, Goal.Duration())
	assert.Equal(t, Idle, p.State)
	assert.Equal(t, "goal", p.Last)
}

func TestConnectedBlinksThreeTimes(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewPlayer(rec.hooks()).Play(context.Background(), Connected))
	assert.Equal(t, []string{
		"start:connected",
		"on:skate", "off:skate",
		"on:skate", "off:skate",
		"on:skate", "off:skate",
	}, rec.log)
	for _, d := range rec.holds {
		assert.Equal(t, 200*time.Millisecond, d)
	}
}

func TestConnectingDoesNotHold(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewPlayer(rec.hooks()).Play(context.Background(), Connecting))
	assert.Empty(t, rec.holds)
	assert.Equal(t, []string{"start:connecting", "on:skate_inner"}, rec.log)
}

func TestPlayStopsOnHoldError(t *testing.T) {
	rec := &recorder{}
	h := rec.hooks()
	h.Hold = func(context.Context, time.Duration) error { return context.Canceled }
	err := NewPlayer(h).Play(context.Background(), Goal)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, rec.log, 2)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Program{Target: All}.Validate())
	assert.Error(t, Program{Target: "moon", Steps: []Step{{}}}.Validate())
	assert.Error(t, Program{Target: All, Steps: []Step{{HoldS: -1}}}.Validate())
	assert.NoError(t, Goal.Validate())
}
