package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/lumarink/lumarink/internal/palette"
)

// Goal is the celebration shown when the score goes up.
var Goal = Program{
	Name:   "goal",
	Target: All,
	Slot:   palette.FirstWord,
	Repeat: 2,
	Steps: []Step{
		{On: true, HoldS: 2.5}, {HoldS: 0.5},
		{On: true, HoldS: 2.5}, {HoldS: 0.5},
		{On: true, HoldS: 0.5}, {HoldS: 0.5},
		{On: true, HoldS: 0.5}, {HoldS: 0.5},
		{On: true, HoldS: 2.5}, {HoldS: 0.5},
	},
}

// Connected blinks the skate segment after the first WiFi association.
var Connected = Program{
	Name:   "connected",
	Target: SkateAll,
	Slot:   palette.Accent,
	Repeat: 3,
	Steps:  []Step{{On: true, HoldS: 0.2}, {HoldS: 0.2}},
}

// Connecting lights the inner skate pixels while WiFi is coming up.
var Connecting = Program{
	Name:   "connecting",
	Target: SkateInner,
	Slot:   palette.Accent,
	Repeat: 1,
	Steps:  []Step{{On: true}},
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Validate checks a program can be played.
func (p Program) Validate() error {
	if len(p.Steps) == 0 {
		return errors.New("program has no steps")
	}
	switch p.Target {
	case All, SkateAll, SkateInner:
	default:
		return errors.New("program has unknown target " + string(p.Target))
	}
	for _, s := range p.Steps {
		if s.HoldS < 0 {
			return errors.New("program has negative hold")
		}
	}
	return nil
}

// Play runs prog to completion. Only ctx cancellation stops it early.
func (pl *Player) Play(ctx context.Context, prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	pl.State = Running
	pl.Last = prog.Name
	defer func() { pl.State = Idle }()
	if pl.hooks.Started != nil {
		pl.hooks.Started(prog.Name)
	}

	for r := 0; r < max(prog.Repeat, 1); r++ {
		for _, s := range prog.Steps {
			if pl.hooks.Paint != nil {
				pl.hooks.Paint(prog.Target, prog.Slot, s.On)
			}
			if pl.hooks.Present != nil {
				if err := pl.hooks.Present(ctx); err != nil {
					return err
				}
			}
			if s.HoldS <= 0 || pl.hooks.Hold == nil {
				continue
			}
			if err := pl.hooks.Hold(ctx, time.Duration(s.HoldS*float64(time.Second))); err != nil {
				return err
			}
		}
	}
	return nil
}
