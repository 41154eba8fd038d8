package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/notify"
	"github.com/rgbkbdd/corectl/internal/vocabulary"
	"github.com/rgbkbdd/corectl/internal/vtable"
)

// fakeSink is a notify.Sink that records writes and closes instead of
// touching a real file or tty.
type fakeSink struct {
	closed  bool
	written [][]byte
}

func (f *fakeSink) Write(p []byte) (int, error) {
	f.written = append(f.written, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func newActiveDevice(features device.Feature, fake *vtable.Fake) *device.Device {
	d := device.NewDevice(features|device.FeatANSI, device.KindOther, fake)
	d.Active = true
	return d
}

func TestProcessLineRGBHexBroadcastsToEveryKey(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	result, err := p.ProcessLine("rgb ff00aa")
	require.NoError(t, err)
	assert.False(t, result.Aborted)
	assert.Equal(t, vocabulary.RGB, result.LastVerb)
	assert.Equal(t, device.NKeysExtended, fake.CountOf("Rgb"))
}

func TestProcessLineRGBColonSplitUsesKeySelectors(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("rgb #0,#1:ff0000")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.CountOf("DoCmd"))
}

func TestProcessLineActivation(t *testing.T) {
	fake := vtable.NewFake()
	d := device.NewDevice(device.FeatANSI, device.KindOther, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("active")
	require.NoError(t, err)
	// The core leaves d.Active to the vtable, and the fake never sets it.
	assert.False(t, d.Active)
	assert.Equal(t, 1, fake.CountOf("Active"))
}

func TestProcessLineGateBlocksInactiveDevice(t *testing.T) {
	fake := vtable.NewFake()
	d := device.NewDevice(device.FeatANSI, device.KindOther, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("idle")
	require.NoError(t, err)
	assert.Equal(t, 0, fake.CountOf("Idle"), "idle is active-only and must be dropped while inactive")
}

func TestProcessLineCapabilityGated(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake) // no FeatAdjRate
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("pollrate 2")
	require.NoError(t, err)
	assert.Equal(t, 0, fake.CountOf("PollRate"))
}

func TestProcessLineNotifyOnCreatesChannel(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("notifyon 3")
	require.NoError(t, err)
	assert.True(t, p.Notify.IsOpen(3))
}

func TestProcessLineRetryThenAbortOnResetFailure(t *testing.T) {
	fake := vtable.NewFake()
	fake.FailUntil["Idle"] = 100 // never stops failing
	fake.ResetErr = errors.New("reset failed")
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	result, err := p.ProcessLine("idle")
	require.NoError(t, err)
	assert.True(t, result.Aborted)
}

func TestProcessLineRetrySucceedsAfterTransientFailure(t *testing.T) {
	fake := vtable.NewFake()
	fake.FailUntil["Idle"] = 2 // fails twice, then succeeds
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	result, err := p.ProcessLine("idle")
	require.NoError(t, err)
	assert.False(t, result.Aborted)
	assert.Equal(t, 3, fake.CountOf("Idle"))
	assert.Equal(t, 2, fake.CountOf("Reset"))
}

func TestProcessLineSwitchNoOpWhenPendingEqualsCurrent(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("mode 1 switch")
	require.NoError(t, err)
	assert.Equal(t, 0, fake.CountOf("SetModeIndex"), "mode 1 is already current; switch is a no-op")
}

func TestProcessLineSwitchChangesMode(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("mode 2 switch")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.CountOf("SetModeIndex"))
	assert.Same(t, d.Profile.Modes[1], d.Profile.CurrentMode)
}

func TestProcessLineEraseProfileRebindsPointer(t *testing.T) {
	fake := vtable.NewFake()
	replacement := device.NewProfile()
	fake.EraseProfileFunc = func(d *device.Device) { d.Profile = replacement }

	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("eraseprofile")
	require.NoError(t, err)
	assert.Same(t, replacement, d.Profile)
}

func TestProcessLineFwUpdateFailureAbortsImmediately(t *testing.T) {
	fake := vtable.NewFake()
	fake.FailUntil["FwUpdate"] = 100
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	result, err := p.ProcessLine("fwupdate /tmp/blob")
	require.NoError(t, err)
	assert.True(t, result.Aborted)
	assert.Equal(t, 1, fake.CountOf("FwUpdate"), "fwupdate is never retried")
}

func TestRGBHexMatchBoundary(t *testing.T) {
	assert.True(t, rgbHex.MatchString("abcdef"))
	assert.False(t, rgbHex.MatchString("abcdefg"))
	assert.False(t, rgbHex.MatchString("abcde"))
}

func TestProcessLineChannelSelectorAppliesToGet(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("@3 get battery")
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, 3, fake.Calls[0].Channel)
}

func TestProcessLineNotifyOutOfRangeIsNoop(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	_, err := p.ProcessLine("notifyon 999")
	require.NoError(t, err)
	assert.False(t, p.Notify.IsOpen(999))

	_, err = p.ProcessLine("notifyoff 0")
	require.NoError(t, err)
	assert.True(t, p.Notify.IsOpen(0), "channel 0 is permanent")
}

func TestProcessLineNotifyOnBindsRouterSink(t *testing.T) {
	fake := vtable.NewFake()
	d := newActiveDevice(0, fake)
	p := New(d, true, true, nil)

	sink := &fakeSink{}
	p.Router = notify.NewRouter()
	p.NotifyOpen = func(n int) (notify.Sink, error) { return sink, nil }

	_, err := p.ProcessLine("notifyon 2")
	require.NoError(t, err)
	require.NoError(t, p.Router.Send(2, []byte("hi")))
	assert.Len(t, sink.written, 1)

	_, err = p.ProcessLine("notifyoff 2")
	require.NoError(t, err)
	assert.True(t, sink.closed)
}
