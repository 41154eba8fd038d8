// Package vocabulary defines the fixed set of protocol verbs (spec §4.1,
// §6): their arities, gate classes, and capability requirements.
package vocabulary

import "github.com/rgbkbdd/corectl/internal/device"

// Verb is a stable numeric identifier for one vocabulary entry.
type Verb int

const (
	None Verb = iota

	Delay
	Mode
	Switch
	Layout
	Accel
	ScrollSpeed
	NotifyOn
	NotifyOff
	FPS
	Dither
	HWLoad
	HWSave
	FwUpdate
	PollRate
	Active
	Idle
	Erase
	EraseProfile
	Name
	ProfileName
	ID
	ProfileID
	RGB
	HWAnim
	IOff
	IOn
	IAuto
	Bind
	Unbind
	Rebind
	Macro
	DPI
	DPISel
	Lift
	Snap
	Notify
	INotify
	Get
	Reset
)

// Arity describes how a verb consumes the words that follow it.
type Arity int

const (
	// ArityAction verbs need no argument; recognizing the verb itself
	// triggers dispatch.
	ArityAction Arity = iota
	// ArityArg verbs consume the next word as their argument.
	ArityArg
	// ArityWholeWord verbs consume one word verbatim as an opaque
	// parameter (no colon-split).
	ArityWholeWord
	// ArityColonSplit verbs split their argument word at the first ':'.
	ArityColonSplit
)

// GateClass describes when a verb may be admitted by the gate (spec §4.4).
type GateClass int

const (
	// GateAlways verbs are admitted regardless of the device's
	// active/idle lifecycle, but are still blocked while the device
	// needs a firmware update unless also GateFwUpdateOnly.
	GateAlways GateClass = iota
	GateActiveOnly
	// GateFwUpdateOnly marks the brick-survivor set (spec §3 invariant,
	// glossary "Brick"): FWUPDATE, NOTIFYON, NOTIFYOFF, RESET remain
	// admitted even while the device needs a firmware update.
	GateFwUpdateOnly
)

// Entry is one vocabulary table row.
type Entry struct {
	Verb       Verb
	Literal    string
	Arity      Arity
	Gate       GateClass
	Capability device.Feature // 0 if no capability requirement
}

// table is the fixed, ordered vocabulary (spec §6). Order only matters
// for presentation; lookups are by literal via Lookup.
var table = []Entry{
	{Delay, "delay", ArityArg, GateAlways, 0},
	{Mode, "mode", ArityArg, GateAlways, 0},
	{Switch, "switch", ArityAction, GateActiveOnly, 0},
	{Layout, "layout", ArityArg, GateAlways, 0},
	{Accel, "accel", ArityArg, GateAlways, 0},
	{ScrollSpeed, "scrollspeed", ArityArg, GateAlways, 0},
	{NotifyOn, "notifyon", ArityArg, GateFwUpdateOnly, 0},
	{NotifyOff, "notifyoff", ArityArg, GateFwUpdateOnly, 0},
	{FPS, "fps", ArityArg, GateAlways, 0},
	{Dither, "dither", ArityArg, GateAlways, 0},
	{HWLoad, "hwload", ArityAction, GateActiveOnly, 0},
	{HWSave, "hwsave", ArityAction, GateActiveOnly, 0},
	{FwUpdate, "fwupdate", ArityArg, GateFwUpdateOnly, 0},
	{PollRate, "pollrate", ArityArg, GateActiveOnly, device.FeatAdjRate},
	{Active, "active", ArityAction, GateAlways, 0},
	{Idle, "idle", ArityAction, GateActiveOnly, 0},
	{Erase, "erase", ArityAction, GateActiveOnly, 0},
	{EraseProfile, "eraseprofile", ArityAction, GateActiveOnly, 0},
	{Name, "name", ArityWholeWord, GateActiveOnly, 0},
	{ProfileName, "profilename", ArityWholeWord, GateActiveOnly, 0},
	{ID, "id", ArityWholeWord, GateActiveOnly, 0},
	{ProfileID, "profileid", ArityWholeWord, GateActiveOnly, 0},
	{RGB, "rgb", ArityColonSplit, GateActiveOnly, 0},
	{HWAnim, "hwanim", ArityWholeWord, GateActiveOnly, 0},
	{IOff, "ioff", ArityWholeWord, GateActiveOnly, 0},
	{IOn, "ion", ArityWholeWord, GateActiveOnly, 0},
	{IAuto, "iauto", ArityWholeWord, GateActiveOnly, 0},
	{Bind, "bind", ArityColonSplit, GateActiveOnly, device.FeatBind},
	{Unbind, "unbind", ArityColonSplit, GateActiveOnly, device.FeatBind},
	{Rebind, "rebind", ArityColonSplit, GateActiveOnly, device.FeatBind},
	{Macro, "macro", ArityColonSplit, GateActiveOnly, device.FeatBind},
	{DPI, "dpi", ArityColonSplit, GateActiveOnly, 0},
	{DPISel, "dpisel", ArityWholeWord, GateActiveOnly, 0},
	{Lift, "lift", ArityWholeWord, GateActiveOnly, 0},
	{Snap, "snap", ArityWholeWord, GateActiveOnly, 0},
	{Notify, "notify", ArityWholeWord, GateActiveOnly, device.FeatNotify},
	{INotify, "inotify", ArityWholeWord, GateActiveOnly, 0},
	{Get, "get", ArityWholeWord, GateAlways, 0},
	{Reset, "reset", ArityWholeWord, GateFwUpdateOnly, 0},
}

var byLiteral map[string]Entry
var literalOfVerb map[Verb]string

func init() {
	byLiteral = make(map[string]Entry, len(table))
	literalOfVerb = make(map[Verb]string, len(table))
	for _, e := range table {
		byLiteral[e.Literal] = e
		literalOfVerb[e.Verb] = e.Literal
	}
}

// Literal returns the protocol literal for v, or "" if v isn't a table
// entry (e.g. None).
func Literal(v Verb) string {
	return literalOfVerb[v]
}

// NonReferenceHostVerbs are silently demoted to None when the daemon is
// not running on the reference GUI-host OS (spec §4.1).
var NonReferenceHostVerbs = map[Verb]bool{
	Layout:      true,
	Accel:       true,
	ScrollSpeed: true,
}

// LegacyOnlyVerbs exist only on the legacy host platform (spec §4.1).
var LegacyOnlyVerbs = map[Verb]bool{
	Accel:       true,
	ScrollSpeed: true,
}

// Lookup resolves a word to a vocabulary entry. ok is false for any word
// that isn't a recognized verb literal.
func Lookup(word string, referenceHost, legacyHost bool) (Entry, bool) {
	e, ok := byLiteral[word]
	if !ok {
		return Entry{}, false
	}
	if !referenceHost && NonReferenceHostVerbs[e.Verb] {
		return Entry{}, false
	}
	if !legacyHost && LegacyOnlyVerbs[e.Verb] && e.Verb != Layout {
		return Entry{}, false
	}
	return e, true
}

// ActionVerbs is the fixed set of verbs that trigger dispatch on
// recognition alone (spec §4.1).
var ActionVerbs = map[Verb]bool{
	Switch:       true,
	HWLoad:       true,
	HWSave:       true,
	Active:       true,
	Idle:         true,
	Erase:        true,
	EraseProfile: true,
}

// WholeWordDirectVerbs invoke vtable.DoCmd verbatim with no colon-split
// (spec §4.5 "Whole-word direct family").
var WholeWordDirectVerbs = map[Verb]bool{
	Erase:       true,
	Name:        true,
	IOff:        true,
	IOn:         true,
	IAuto:       true,
	INotify:     true,
	ProfileName: true,
	ID:          true,
	ProfileID:   true,
	DPISel:      true,
	Lift:        true,
	Snap:        true,
}

// ColonSplitVerbs fall through to the colon-split key-list family (spec
// §4.5). RGB and Macro additionally have their own always-available
// fast paths tried first.
var ColonSplitVerbs = map[Verb]bool{
	RGB:    true,
	Macro:  true,
	Bind:   true,
	Unbind: true,
	Rebind: true,
	DPI:    true,
}
