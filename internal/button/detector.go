// Package button turns active-low button lines into short and long press
// events.
package button

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

type Event int

const (
	None Event = iota
	// Short fires on release of a press shorter than the long-press time.
	Short
	// Long fires once while the button is still held.
	Long
	// LongRelease is the release that ends a long press.
	LongRelease
)

func (e Event) String() string {
	switch e {
	case Short:
		return "short"
	case Long:
		return "long"
	case LongRelease:
		return "long-release"
	}
	return "none"
}

// Detector is the per-button press state machine. Feed it one sample per
// poll.
type Detector struct {
	// LongPress is zero for buttons without a long action.
	LongPress time.Duration
	// Debounce ignores release edges this soon after the press edge. A quick
	// press still fires, on the first released sample after the window.
	Debounce time.Duration

	pressed bool
	since   time.Time
	long    bool
}

// Pressed reports whether the button is currently held.
func (d *Detector) Pressed() bool { return d.pressed }

func (d *Detector) Sample(level gpio.Level, now time.Time) Event {
	down := level == gpio.Low
	switch {
	case !d.pressed && down:
		d.pressed, d.since, d.long = true, now, false
	case d.pressed && down:
		if d.LongPress > 0 && !d.long && now.Sub(d.since) >= d.LongPress {
			d.long = true
			return Long
		}
	case d.pressed && !down:
		if !d.long && now.Sub(d.since) < d.Debounce {
			// contact bounce: the release counts once the window has passed
			return None
		}
		d.pressed = false
		if d.long {
			return LongRelease
		}
		return Short
	}
	return None
}
