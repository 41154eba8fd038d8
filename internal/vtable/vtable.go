// Package vtable re-exports the device vtable contract (spec §4.8) and
// provides a recording fake implementation for tests. The interface
// itself lives in package device (it must reference device.Device and
// device.Mode, which would otherwise create an import cycle).
package vtable

import "github.com/rgbkbdd/corectl/internal/device"

// Vtable is the device operations interface the core invokes. See
// device.Vtable for the full method set.
type Vtable = device.Vtable

// Call records one invocation against a Fake, for assertions in tests.
type Call struct {
	Method  string
	Verb    string
	Channel int
	Key     int
	Left    string
	Right   string
	Word    string
	Force   bool
	Rate    device.PollRate
	Index   int
}

// Fake is an in-memory device.Vtable that records every call and lets
// tests script failures per method name (and, via FailUntil, per attempt
// count before succeeding — used to exercise the retry harness).
type Fake struct {
	Calls []Call

	// FailUntil, if set for a method name, makes that method fail
	// until it has been called more than the given number of times,
	// after which it succeeds. A missing entry never fails.
	FailUntil map[string]int
	calls     map[string]int

	// ResetErr, when non-nil, is returned by Reset instead of nil.
	ResetErr error

	// EraseProfileFunc, when set, is invoked instead of the default
	// no-op, letting tests simulate the handler replacing d.Profile.
	EraseProfileFunc func(d *device.Device)
}

// NewFake returns an empty recording fake.
func NewFake() *Fake {
	return &Fake{FailUntil: map[string]int{}, calls: map[string]int{}}
}

func (f *Fake) record(c Call) error {
	f.Calls = append(f.Calls, c)
	f.calls[c.Method]++
	if limit, ok := f.FailUntil[c.Method]; ok && f.calls[c.Method] <= limit {
		return errTransient
	}
	return nil
}

var errTransient = fakeErr("vtable: simulated transient failure")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

func (f *Fake) Active(d *device.Device, m *device.Mode, channel int) error {
	return f.record(Call{Method: "Active", Channel: channel})
}

func (f *Fake) Idle(d *device.Device, m *device.Mode, channel int) error {
	return f.record(Call{Method: "Idle", Channel: channel})
}

func (f *Fake) Reset(d *device.Device, word string) error {
	err := f.record(Call{Method: "Reset", Word: word})
	if f.ResetErr != nil {
		return f.ResetErr
	}
	return err
}

func (f *Fake) Get(d *device.Device, m *device.Mode, channel int, word string) error {
	return f.record(Call{Method: "Get", Channel: channel, Word: word})
}

func (f *Fake) FwUpdate(d *device.Device, word string) error {
	return f.record(Call{Method: "FwUpdate", Word: word})
}

func (f *Fake) EraseProfile(d *device.Device, m *device.Mode, channel int) error {
	err := f.record(Call{Method: "EraseProfile", Channel: channel})
	if f.EraseProfileFunc != nil {
		f.EraseProfileFunc(d)
	}
	return err
}

func (f *Fake) Macro(d *device.Device, m *device.Mode, channel int, key int, word string) error {
	return f.record(Call{Method: "Macro", Channel: channel, Key: key, Word: word})
}

func (f *Fake) Rgb(d *device.Device, m *device.Mode, channel int, key int, word string) error {
	return f.record(Call{Method: "Rgb", Channel: channel, Key: key, Word: word})
}

func (f *Fake) DoCmd(verb string, d *device.Device, m *device.Mode, channel int, key int, word string) error {
	return f.record(Call{Method: "DoCmd", Verb: verb, Channel: channel, Key: key, Word: word})
}

func (f *Fake) DoIO(verb string, d *device.Device, m *device.Mode, channel int) error {
	return f.record(Call{Method: "DoIO", Verb: verb, Channel: channel})
}

func (f *Fake) DoMacro(verb string, d *device.Device, m *device.Mode, channel int, left, right string) error {
	return f.record(Call{Method: "DoMacro", Verb: verb, Channel: channel, Left: left, Right: right})
}

func (f *Fake) PollRate(d *device.Device, rate device.PollRate) error {
	return f.record(Call{Method: "PollRate", Rate: rate})
}

func (f *Fake) UpdateRGB(d *device.Device, force bool) error {
	return f.record(Call{Method: "UpdateRGB", Force: force})
}

func (f *Fake) UpdateDPI(d *device.Device, force bool) error {
	return f.record(Call{Method: "UpdateDPI", Force: force})
}

func (f *Fake) SetModeIndex(d *device.Device, index int) error {
	return f.record(Call{Method: "SetModeIndex", Index: index})
}

// CountOf returns how many times method was invoked.
func (f *Fake) CountOf(method string) int {
	return f.calls[method]
}
