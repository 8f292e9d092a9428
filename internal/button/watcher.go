package button

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/lumarink/lumarink/internal/coop"
)

const (
	PollInterval = 10 * time.Millisecond
	Settle       = 100 * time.Millisecond
)

// Input is the part of a gpio pin the watcher reads.
type Input interface {
	Read() gpio.Level
}

type Button struct {
	Name    string
	Pin     Input
	Detect  Detector
	OnShort func(ctx context.Context)
	OnLong  func(ctx context.Context)
}

// Watch polls b until ctx ends. It must run as a coop task: actions run
// holding the baton.
func Watch(ctx context.Context, rt *coop.Runtime, b *Button, log zerolog.Logger) error {
	clock := rt.Clock()
	for {
		ev := b.Detect.Sample(b.Pin.Read(), clock.Now())
		wait := PollInterval
		switch ev {
		case Short:
			log.Debug().Str("button", b.Name).Msg("short press")
			if b.OnShort != nil {
				b.OnShort(ctx)
			}
			wait = Settle
		case Long:
			log.Info().Str("button", b.Name).Msg("long press")
			if b.OnLong != nil {
				b.OnLong(ctx)
			}
		case LongRelease:
			wait = Settle
		}
		if err := rt.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// OpenPins looks up each named gpio and sets it as an input with pull-up.
// host.Init must have run.
func OpenPins(names []string) ([]gpio.PinIO, error) {
	pins := make([]gpio.PinIO, 0, len(names))
	for _, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("gpio %q not found", n)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("gpio %q: %w", n, err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

// Released is an Input that is never pressed, for signs without buttons.
type Released struct{}

func (Released) Read() gpio.Level { return gpio.High }
