// Package dispatch implements the command dispatcher (spec §4.5): it
// resolves each (verb, argument) pair produced by the tokenizer/gate
// pipeline and routes it to the appropriate device.Vtable call,
// wrapping the ACTIVE, IDLE, POLLRATE and HWLOAD/HWSAVE calls in the
// retry-with-reset harness.
package dispatch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rgbkbdd/corectl/internal/channel"
	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/gate"
	"github.com/rgbkbdd/corectl/internal/gpioreset"
	"github.com/rgbkbdd/corectl/internal/notify"
	"github.com/rgbkbdd/corectl/internal/retry"
	"github.com/rgbkbdd/corectl/internal/tokenizer"
	"github.com/rgbkbdd/corectl/internal/vocabulary"
)

// alwaysAvailable is dispatched before the activation-gate check (spec
// §4.5 "Always-available family").
var alwaysAvailable = map[vocabulary.Verb]bool{
	vocabulary.NotifyOn:    true,
	vocabulary.NotifyOff:   true,
	vocabulary.Get:         true,
	vocabulary.Layout:      true,
	vocabulary.Accel:       true,
	vocabulary.ScrollSpeed: true,
	vocabulary.Mode:        true,
	vocabulary.FPS:         true,
	vocabulary.Dither:      true,
	vocabulary.Delay:       true,
	vocabulary.Reset:       true,
}

var rgbHex = regexp.MustCompile(`^[0-9a-f]{6}$`)

// Processor drives dispatch for a single device across a sequence of
// lines. It owns the longer-lived notification-channel table; the
// notification-channel *selector* is line-local and lives only for the
// duration of one ProcessLine call.
type Processor struct {
	Device *device.Device
	Notify *channel.Table

	// Router, when set, owns the real output sink for each open
	// notification channel; NotifyOpen resolves a channel number to
	// the node path an external collaborator is expected to have
	// already created there (spec Non-goals: the core attaches, it
	// never creates). Both nil is a valid, fully supported
	// configuration: NOTIFYON/NOTIFYOFF still update Notify's table,
	// they just have nowhere to attach a sink.
	Router     *notify.Router
	NotifyOpen func(n int) (notify.Sink, error)

	// GPIO, when set, is pulsed alongside every Vtable.Reset call — a
	// board that wires a dedicated hardware reset pin in addition to
	// its USB control-transfer reset (spec §4.6).
	GPIO *gpioreset.Line

	// ReferenceHost and LegacyHost select platform-gated vocabulary
	// (spec §4.1).
	ReferenceHost bool
	LegacyHost    bool

	// Debug enables the EncounteredLEDs scratch side-channel (spec §4.7,
	// §9 "Debug-only scratch").
	Debug bool

	// pendingMode is set by MODE and committed by SWITCH (spec §4.5).
	// It is reset to nil at the start of every ProcessLine call: the
	// pairing is scoped to a single line, not carried across lines.
	pendingMode *device.Mode

	logger *log.Logger
}

// New returns a processor for d, using l for structured logging (pass
// nil to use the default package logger).
func New(d *device.Device, referenceHost, legacyHost bool, l *log.Logger) *Processor {
	if l == nil {
		l = log.Default()
	}
	return &Processor{
		Device:        d,
		Notify:        channel.NewTable(),
		ReferenceHost: referenceHost,
		LegacyHost:    legacyHost,
		logger:        l,
	}
}

// Result is the outcome of processing one line: which verb, if any, was
// last recognized (for the flush stage's RGB-throttle decision, spec
// §4.7), and whether the line aborted (device lost / reset failed /
// fwupdate failed, spec §6).
type Result struct {
	LastVerb vocabulary.Verb
	Aborted  bool
}

// ProcessLine runs one line through the selector/gate/dispatch
// pipeline. An error is returned only for a genuine plumbing failure
// from a vtable call that isn't covered by retry-with-reset (the
// handlers themselves translate abort conditions into Result.Aborted).
func (p *Processor) ProcessLine(line string) (Result, error) {
	sel := channel.NewSelector()
	words := tokenizer.Words(line)

	// pendingMode is scoped to this single command-buffer pass: a MODE
	// on one line must not let a bare SWITCH on a later line commit it
	// (spec §4.5 treats MODE+SWITCH as a same-line pairing).
	p.pendingMode = nil

	var pendingEntry vocabulary.Entry
	havePending := false
	lastVerb := vocabulary.None

	// asVerb resolves word as a fresh command verb: recognizes it,
	// records it as the last-observed verb, checks the gate, and either
	// dispatches it immediately (action-kind) or parks it as the
	// pending verb awaiting an argument. ok is false when word isn't a
	// recognized verb at all, in which case the caller should fall back
	// to treating it as a plain argument.
	asVerb := func(word string) (result Result, dispatched bool, ok bool, err error) {
		entry, found := vocabulary.Lookup(word, p.ReferenceHost, p.LegacyHost)
		if !found {
			return Result{}, false, false, nil
		}
		lastVerb = entry.Verb
		// A fresh verb always drops any verb still waiting for its argument.
		havePending = false

		if !gate.Admit(entry, p.Device) {
			return Result{LastVerb: lastVerb}, true, true, nil
		}

		if entry.Arity == vocabulary.ArityAction {
			aborted, dispatchErr := p.dispatch(entry, "", sel.Current())
			return Result{LastVerb: lastVerb, Aborted: aborted}, true, true, dispatchErr
		}

		pendingEntry = entry
		havePending = true
		return Result{LastVerb: lastVerb}, true, true, nil
	}

	for _, word := range words {
		if sel.TryConsume(word) {
			continue
		}

		if havePending {
			// Re-enter the verb check before treating this word as an
			// argument (spec §9: "each new word re-enters the verb
			// check before argument handling"). A word that is itself
			// a recognized verb drops the pending one.
			if res, dispatched, ok, err := asVerb(word); ok {
				if err != nil {
					return res, err
				}
				if res.Aborted {
					return res, nil
				}
				_ = dispatched
				continue
			}

			arg := word
			havePending = false
			if gate.Admit(pendingEntry, p.Device) {
				aborted, err := p.dispatch(pendingEntry, arg, sel.Current())
				if err != nil {
					return Result{LastVerb: lastVerb, Aborted: true}, err
				}
				if aborted {
					return Result{LastVerb: lastVerb, Aborted: true}, nil
				}
			}
			continue
		}

		if res, _, ok, err := asVerb(word); ok {
			if err != nil {
				return res, err
			}
			if res.Aborted {
				return res, nil
			}
		}
	}

	return Result{LastVerb: lastVerb}, nil
}

// resetFunc returns the reset half of a retry.WithReset call: the
// device's own vtable reset, followed by a pulse of the configured
// hardware reset line, if any. literal identifies the operation that
// triggered the reset, for the vtable's own logging/diagnostics.
func (p *Processor) resetFunc(literal string) func() error {
	return func() error {
		if err := p.Device.Vtable.Reset(p.Device, literal); err != nil {
			return err
		}
		if p.GPIO != nil {
			return p.GPIO.Pulse()
		}
		return nil
	}
}

// dispatch resolves one admitted (verb, argument) pair against ch, the
// notification channel currently selected for this line.
func (p *Processor) dispatch(e vocabulary.Entry, arg string, ch int) (aborted bool, err error) {
	d := p.Device

	if alwaysAvailable[e.Verb] {
		return false, p.dispatchAlways(e.Verb, arg, ch)
	}

	if e.Verb == vocabulary.Active {
		if !d.Active {
			err := retry.WithReset(
				func() error { return d.Vtable.Active(d, d.Profile.CurrentMode, ch) },
				p.resetFunc("active"),
			)
			return abortOf(err), unwrapAbort(err)
		}
		return false, nil
	}

	if !d.Active {
		// Activation gate: everything else silently dropped.
		return false, nil
	}

	return p.dispatchActiveOnly(e, arg, ch)
}

func (p *Processor) dispatchAlways(verb vocabulary.Verb, arg string, ch int) error {
	d := p.Device
	switch verb {
	case vocabulary.NotifyOn:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		p.Notify.Create(n)
		if p.Notify.IsOpen(n) && p.Router != nil && p.NotifyOpen != nil {
			sink, err := p.NotifyOpen(n)
			if err != nil {
				p.logger.Warn("notify channel open failed", "channel", n, "err", err)
			} else {
				p.Router.Bind(n, sink)
			}
		}
		return nil

	case vocabulary.NotifyOff:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		p.Notify.Destroy(n)
		if p.Router != nil {
			if err := p.Router.Unbind(n); err != nil {
				p.logger.Warn("notify channel close failed", "channel", n, "err", err)
			}
		}
		return nil

	case vocabulary.Get:
		return d.Vtable.Get(d, d.Profile.CurrentMode, ch, arg)

	case vocabulary.Layout:
		switch arg {
		case "ansi":
			d.Features = d.Features&^device.LayoutMask | device.FeatANSI
		case "iso":
			d.Features = d.Features&^device.LayoutMask | device.FeatISO
		}
		return nil

	case vocabulary.Accel:
		switch arg {
		case "on":
			d.Features |= device.FeatMouseAccel
		case "off":
			d.Features &^= device.FeatMouseAccel
		}
		return nil

	case vocabulary.ScrollSpeed:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		if n < device.ScrollMin {
			n = device.ScrollAccelerated
		} else if n > device.ScrollMax {
			n = device.ScrollMax
		}
		d.ScrollRate = n
		return nil

	case vocabulary.Mode:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		if n >= 1 && n <= device.ModeCount {
			p.pendingMode = d.Profile.Modes[n-1]
		}
		return nil

	case vocabulary.FPS:
		f, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		d.UsbDelay = fpsToUsbDelay(f, d.Kind)
		return nil

	case vocabulary.Dither:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		d.Dither = n
		d.Profile.CurrentMode.Light.ForceUpdate = true
		if p.pendingMode != nil {
			p.pendingMode.Light.ForceUpdate = true
		}
		return nil

	case vocabulary.Delay:
		return nil // accepted, no effect (spec §4.5)

	case vocabulary.Reset:
		return d.Vtable.Reset(d, arg)
	}
	return nil
}

// fpsToUsbDelay computes usb_delay = clamp(1000/F/per_frame, 2, 10)
// (spec §4.5). F<=0 is treated as an unreachable frame rate, clamping
// to the slowest allowed delay rather than dividing by zero.
func fpsToUsbDelay(f int, kind device.DeviceKind) int {
	if f <= 0 {
		return device.UsbDelayMax
	}
	perFrame := kind.PerFrameTransactions()
	ms := 1000 / f / perFrame
	return device.ClampUsbDelay(ms)
}

func (p *Processor) dispatchActiveOnly(e vocabulary.Entry, arg string, ch int) (bool, error) {
	d := p.Device
	mode := d.Profile.CurrentMode

	switch e.Verb {
	case vocabulary.Idle:
		err := retry.WithReset(
			func() error { return d.Vtable.Idle(d, mode, ch) },
			p.resetFunc("idle"),
		)
		return abortOf(err), unwrapAbort(err)

	case vocabulary.Switch:
		return false, p.commitSwitch()

	case vocabulary.HWLoad, vocabulary.HWSave:
		return p.hwIO(e.Verb, ch)

	case vocabulary.FwUpdate:
		// Not wrapped in retry (spec §4.6): a single failing call
		// aborts the whole line immediately.
		if err := d.Vtable.FwUpdate(d, arg); err != nil {
			return true, nil
		}
		return false, nil

	case vocabulary.PollRate:
		rate, ok := device.ParsePollRate(arg)
		if !ok {
			return false, nil
		}
		if rate > d.MaxPollRate {
			p.logger.Warn("pollrate above device ceiling", "requested", arg, "max", d.MaxPollRate)
			return false, nil
		}
		err := retry.WithReset(
			func() error { return d.Vtable.PollRate(d, rate) },
			p.resetFunc("pollrate"),
		)
		return abortOf(err), unwrapAbort(err)

	case vocabulary.EraseProfile:
		// The handler may replace d.Profile wholesale; callers must
		// always re-read through d rather than the stale `mode` local
		// captured above (spec §9 "Pointer re-binding after
		// ERASEPROFILE").
		err := d.Vtable.EraseProfile(d, mode, ch)
		return false, err

	case vocabulary.RGB:
		if rgbHex.MatchString(arg) {
			for i := 0; i < device.NKeysExtended; i++ {
				// channel -1 suppresses duplicate-LED debug warnings
				// (spec §4.5).
				if err := d.Vtable.Rgb(d, d.Profile.CurrentMode, -1, i, arg); err != nil {
					return false, err
				}
			}
			return false, nil
		}
		return p.colonSplit(e.Verb, arg, ch)

	case vocabulary.Macro:
		if arg == "clear" {
			return false, d.Vtable.Macro(d, d.Profile.CurrentMode, ch, 0, "")
		}
		return p.colonSplit(e.Verb, arg, ch)

	default:
		if vocabulary.WholeWordDirectVerbs[e.Verb] {
			return false, d.Vtable.DoCmd(e.Literal, d, d.Profile.CurrentMode, ch, 0, arg)
		}
		if vocabulary.ColonSplitVerbs[e.Verb] {
			return p.colonSplit(e.Verb, arg, ch)
		}
		return false, nil
	}
}

func (p *Processor) commitSwitch() error {
	d := p.Device
	target := p.pendingMode
	if target == nil {
		target = d.Profile.CurrentMode
	}
	if target == d.Profile.CurrentMode {
		return nil // spec §9: pending == current makes SWITCH a no-op
	}

	d.IMutex.Lock()
	for i := range d.Profile.CurrentMode.Binding.Macros {
		d.Profile.CurrentMode.Binding.Macros[i].Triggered = false
	}
	d.Profile.CurrentMode = target
	d.IMutex.Unlock()

	index := 0
	for i, m := range d.Profile.Modes {
		if m == target {
			index = i
			break
		}
	}
	return d.Vtable.SetModeIndex(d, index)
}

func (p *Processor) hwIO(verb vocabulary.Verb, ch int) (bool, error) {
	d := p.Device
	saved := d.UsbDelay
	if d.UsbDelay < device.UsbDelayMax {
		d.UsbDelay = device.UsbDelayMax
	}
	defer func() { d.UsbDelay = saved }()

	literal := vocabulary.Literal(verb)

	err := retry.WithReset(
		func() error { return d.Vtable.DoIO(literal, d, d.Profile.CurrentMode, ch) },
		p.resetFunc(literal),
	)
	if abortOf(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	err = retry.WithReset(
		func() error { return d.Vtable.UpdateRGB(d, true) },
		p.resetFunc(literal),
	)
	return abortOf(err), unwrapAbort(err)
}

// colonSplit implements spec §4.5's colon-split fallthrough family.
func (p *Processor) colonSplit(verb vocabulary.Verb, arg string, ch int) (bool, error) {
	d := p.Device
	left, right, _ := strings.Cut(arg, ":")
	if left == "" {
		return false, nil
	}

	if verb == vocabulary.Macro || verb == vocabulary.DPI {
		err := d.Vtable.DoMacro(vocabulary.Literal(verb), d, d.Profile.CurrentMode, ch, left, right)
		return false, err
	}

	keys := resolveKeySelectors(left, d)
	literal := vocabulary.Literal(verb)
	for _, k := range keys {
		if err := d.Vtable.DoCmd(literal, d, d.Profile.CurrentMode, ch, k, right); err != nil {
			return false, err
		}
	}
	return false, nil
}

// resolveKeySelectors expands a comma-separated selector list (spec
// §4.5): "all", "#<dec>"/"#x<hex>" scancodes, or keymap names (capped
// at 10 characters). Unresolvable selectors are silently skipped.
func resolveKeySelectors(left string, d *device.Device) []int {
	var keys []int
	for _, sel := range strings.Split(left, ",") {
		switch {
		case sel == "all":
			for i := 0; i < device.NKeysExtended; i++ {
				keys = append(keys, i)
			}
		case strings.HasPrefix(sel, "#x"):
			n, err := strconv.ParseInt(sel[2:], 16, 32)
			if err == nil && int(n) < device.NKeysExtended {
				keys = append(keys, int(n))
			}
		case strings.HasPrefix(sel, "#"):
			n, err := strconv.Atoi(sel[1:])
			if err == nil && n >= 0 && n < device.NKeysExtended {
				keys = append(keys, n)
			}
		default:
			if len(sel) > 10 {
				continue
			}
			for i := range d.Keymap {
				if d.Keymap[i].Name == sel {
					keys = append(keys, i)
					break
				}
			}
		}
	}
	return keys
}

func abortOf(err error) bool {
	return err == retry.ErrAbortLine
}

func unwrapAbort(err error) error {
	if err == retry.ErrAbortLine {
		return nil
	}
	return err
}
