package sequence

import (
	"context"
	"time"
)

// Target is the part of the strip a program paints.
type Target string

const (
	All        Target = "all"
	SkateAll   Target = "skate"
	SkateInner Target = "skate_inner"
)

// Step holds the target either lit or off for HoldS seconds.
type Step struct {
	On    bool    `yaml:"on"`
	HoldS float64 `yaml:"hold_s"`
}

// Program is a fixed pulse script. It runs Repeat times and cannot be
// interrupted once started.
type Program struct {
	Name   string `yaml:"name"`
	Target Target `yaml:"target"`
	// Slot is the palette slot used for lit steps.
	Slot   int    `yaml:"slot"`
	Repeat int    `yaml:"repeat"`
	Steps  []Step `yaml:"steps"`
}

// Duration is the total hold time of one full run.
func (p Program) Duration() time.Duration {
	var total float64
	for _, s := range p.Steps {
		total += s.HoldS
	}
	return time.Duration(total*float64(time.Second)) * time.Duration(max(p.Repeat, 1))
}

// PlayerState enumerates player states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
)

// Hooks are the callbacks into the LED side.
type Hooks struct {
	// Paint sets target to palette slot at brightness, or off.
	Paint func(target Target, slot int, on bool)
	// Present flushes the buffer to the strip.
	Present func(ctx context.Context) error
	// Hold waits cooperatively.
	Hold func(ctx context.Context, d time.Duration) error
	// Started is told the name of every program as it begins.
	Started func(name string)
}

// Player runs programs against Hooks.
type Player struct {
	State PlayerState
	Last  string

	hooks Hooks
}
