package hotplug

import (
	"context"
	"fmt"

	"github.com/jochenvg/go-udev"
)

// UdevSource adapts github.com/jochenvg/go-udev's netlink monitor into
// a Source, filtered to the "usb" subsystem so the daemon only hears
// about the keyboards/mice it cares about.
type UdevSource struct {
	Subsystem string
}

// NewUdevSource returns a Source filtered to subsystem ("usb" if empty).
func NewUdevSource(subsystem string) *UdevSource {
	if subsystem == "" {
		subsystem = "usb"
	}
	return &UdevSource{Subsystem: subsystem}
}

func (s *UdevSource) Events(ctx context.Context) (<-chan Event, error) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")

	if err := mon.FilterAddMatchSubsystem(s.Subsystem); err != nil {
		return nil, fmt.Errorf("hotplug: filter subsystem %s: %w", s.Subsystem, err)
	}

	raw, err := mon.DeviceChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hotplug: start monitor: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for d := range raw {
			ev := Event{
				Action:     Action(d.Action()),
				DevPath:    d.Devpath(),
				Properties: d.Properties(),
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
