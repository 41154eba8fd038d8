// Package gate implements the admissibility check of spec §4.4: a
// matched verb is admitted only if it isn't None, its capability
// requirements are satisfied, and either the device doesn't need a
// firmware update or the verb is in the fwupdate-only set.
package gate

import (
	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/vocabulary"
)

// Admit reports whether e may be dispatched against d.
func Admit(e vocabulary.Entry, d *device.Device) bool {
	if e.Verb == vocabulary.None {
		return false
	}
	if e.Capability != 0 && !d.Features.Has(e.Capability) {
		return false
	}
	if d.NeedsFwUpdate && e.Gate != vocabulary.GateFwUpdateOnly {
		return false
	}
	return true
}
