// Package hotplug defines the event shape the core's control loop
// accepts from an external device enumerator. Device attachment and
// removal detection are explicitly out of scope for the command core
// (see spec Non-goals); this package only carries the event across
// that boundary, in the vocabulary github.com/jochenvg/go-udev's
// udev.Monitor already uses, so a real enumerator can feed events in
// without the core depending on udev itself.
//
// Styled on dns_sd.go's goroutine-plus-context event announcer: Watch
// drains a Source's event channel and invokes a callback for each event
// until its context is cancelled or the channel closes.
package hotplug

import "context"

// Action is the udev-flavored action verb carried on an Event.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionChange Action = "change"
)

// Event is the minimal udev-shaped record the core needs: enough to
// identify which device went away so its processor can be torn down.
// Properties mirrors udev.Device.Properties() for callers that need
// vendor/product matching beyond DevPath.
type Event struct {
	Action     Action
	DevPath    string
	Properties map[string]string
}

// Source is implemented by whatever external component performs real
// enumeration (go-udev, a polling scanner, a test fixture). The core
// only ever consumes a Source; it never constructs one itself.
type Source interface {
	// Events returns a channel of hotplug events. The channel is
	// closed when ctx is cancelled or the source is exhausted.
	Events(ctx context.Context) (<-chan Event, error)
}

// Watch runs until ctx is cancelled, invoking onEvent for every event
// src produces. onEvent is called synchronously from Watch's
// goroutine-free caller; a caller wanting concurrency should launch
// Watch itself in a goroutine, as dns_sd_announce does for its
// responder loop.
func Watch(ctx context.Context, src Source, onEvent func(Event)) error {
	events, err := src.Events(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			onEvent(ev)
		}
	}
}
