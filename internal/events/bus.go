// Package events carries engine notifications to the preview hub and the
// metrics collector.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Handlers run on the dispatcher's
// goroutines, never on the publisher's.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes ev to all subscribers of its type. A nil bus drops it.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case ScoreUpdated:
		event.Publish(b.dispatcher, e)
	case GoalCelebrated:
		event.Publish(b.dispatcher, e)
	case LoopFault:
		event.Publish(b.dispatcher, e)
	case SettingsChanged:
		event.Publish(b.dispatcher, e)
	case WiFiChanged:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives. It returns the unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ScoreUpdated):
		return event.Subscribe(b.dispatcher, h)
	case func(GoalCelebrated):
		return event.Subscribe(b.dispatcher, h)
	case func(LoopFault):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsChanged):
		return event.Subscribe(b.dispatcher, h)
	case func(WiFiChanged):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch, dropping them when
// ch is full.
func SubscribeToChannel[T Event](b *Bus, ch chan<- any) func() {
	return event.Subscribe(b.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
