// Package flush implements the post-line flush and RGB rate limiter
// (spec §4.7): after the last word of a line, it paces RGB updates to
// at most ~60.5 Hz and then issues one RGB and one DPI update.
package flush

import (
	"time"

	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/gpioreset"
	"github.com/rgbkbdd/corectl/internal/retry"
	"github.com/rgbkbdd/corectl/internal/vocabulary"
)

// HertzLim is the minimum spacing between RGB flushes: 16,528,925 ns,
// approximately 60.5 Hz (spec §4.7, §6 — bit-exact constant).
const HertzLim = 16_528_925 * time.Nanosecond

// Limiter paces RGB flushes for one device using a Clock, defaulting
// to SystemClock in production and a fake in tests.
type Limiter struct {
	Clock Clock

	// GPIO, when set, is pulsed alongside every Vtable.Reset call this
	// stage issues, the same hardware reset line the dispatcher drives
	// (spec §4.6).
	GPIO *gpioreset.Line
}

// NewLimiter returns a limiter backed by SystemClock.
func NewLimiter() *Limiter {
	return &Limiter{Clock: SystemClock{}}
}

// throttle sleeps, if needed, to keep at least HertzLim between the
// device's last RGB flush and now, then records the post-sleep instant
// as the new last-RGB timestamp.
//
// time.Time.Sub saturates rather than overflows when the difference
// would exceed what a Duration can represent, which gives the
// anti-overflow contract from spec §4.7 for free: an enormous diff
// saturates and is simply treated as out-of-window, and a negative diff
// fails the diff > 0 check, so neither sleeps.
func (l *Limiter) throttle(d *device.Device) {
	now := l.Clock.Now()
	diff := now.Sub(d.LastRGB)

	if diff > 0 && diff < HertzLim {
		l.Clock.Sleep(HertzLim - diff)
	}

	d.LastRGB = l.Clock.Now()
}

// resetFunc is the reset half of a retry.WithReset call: the device's
// own vtable reset, followed by a pulse of the configured hardware
// reset line, if any.
func (l *Limiter) resetFunc(d *device.Device, literal string) func() error {
	return func() error {
		if err := d.Vtable.Reset(d, literal); err != nil {
			return err
		}
		if l.GPIO != nil {
			return l.GPIO.Pulse()
		}
		return nil
	}
}

// Run executes the post-line flush. lastVerb is the last verb observed
// on the line (vocabulary.None if no verb was seen). debug enables the
// EncounteredLEDs scratch-clear step.
//
// If d.NeedsFwUpdate, the flush is skipped entirely (spec §4.7: "after
// the last word, if !needs_fw_update").
func (l *Limiter) Run(d *device.Device, lastVerb vocabulary.Verb, debug bool) error {
	if d.NeedsFwUpdate {
		return nil
	}

	if lastVerb == vocabulary.RGB {
		l.throttle(d)
	}

	if err := retry.WithReset(
		func() error { return d.Vtable.UpdateRGB(d, false) },
		l.resetFunc(d, "flush"),
	); err != nil {
		return err
	}

	if err := retry.WithReset(
		func() error { return d.Vtable.UpdateDPI(d, false) },
		l.resetFunc(d, "flush"),
	); err != nil {
		return err
	}

	if debug && lastVerb == vocabulary.RGB {
		for i := range d.EncounteredLEDs {
			d.EncounteredLEDs[i] = false
		}
	}

	return nil
}
