// Package telemetry carries session lifecycle events to sinks. Publishers
// may fail; the session swallows those failures at the call site.
package telemetry

import (
	"errors"
	"time"
)

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	ID        string
	SessionID string
	Name      string
	ModelID   string
	Time      time.Time
	Fields    map[string]any
}

// Publisher receives events. Implementations should be lightweight; a slow
// publisher slows the operation emitting the event.
type Publisher interface {
	Publish(Event) error
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
