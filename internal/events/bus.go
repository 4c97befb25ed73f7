// Package events carries pipeline lifecycle notifications between the
// background tasks and the main control flow.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers.
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so unwrap it here.
	switch e := ev.(type) {
	case PipelineStartedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineLiveEvent:
		event.Publish(b.dispatcher, e)
	case PipelineExitedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it
// receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PipelineStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineLiveEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
