// Package events broadcasts analysis outcomes to in-process subscribers.
// Delivery is asynchronous; each subscriber sees events in publish order.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its type. Unknown event
// types are ignored.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case AnalysisCompleted:
		event.Publish(b.dispatcher, e)
	case AnalysisFailed:
		event.Publish(b.dispatcher, e)
	}
}

// OnCompleted subscribes to AnalysisCompleted and returns an unsubscribe
// function.
func (b *Bus) OnCompleted(handler func(AnalysisCompleted)) func() {
	return event.Subscribe(b.dispatcher, handler)
}

// OnFailed subscribes to AnalysisFailed and returns an unsubscribe function.
func (b *Bus) OnFailed(handler func(AnalysisFailed)) func() {
	return event.Subscribe(b.dispatcher, handler)
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
