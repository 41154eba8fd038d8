package hotplug

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events chan Event
	err    error
}

func (f *fakeSource) Events(ctx context.Context) (<-chan Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func TestWatchDeliversEventsInOrder(t *testing.T) {
	src := &fakeSource{events: make(chan Event, 2)}
	src.events <- Event{Action: ActionAdd, DevPath: "/devices/usb1"}
	src.events <- Event{Action: ActionRemove, DevPath: "/devices/usb1"}
	close(src.events)

	var got []Event
	err := Watch(context.Background(), src, func(ev Event) {
		got = append(got, ev)
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionAdd, got[0].Action)
	assert.Equal(t, ActionRemove, got[1].Action)
}

func TestWatchReturnsSourceError(t *testing.T) {
	want := errors.New("netlink socket unavailable")
	src := &fakeSource{err: want}

	err := Watch(context.Background(), src, func(Event) {})
	assert.ErrorIs(t, err, want)
}

func TestWatchStopsWhenContextCancelled(t *testing.T) {
	src := &fakeSource{events: make(chan Event)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, src, func(Event) {}) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after context cancellation")
	}
}
