// Package channel implements the notification-channel selector (spec
// §4.3) and the notify table the NOTIFYON/NOTIFYOFF handlers mutate
// (spec §4.5). Channel 0 is permanent and can never be removed.
package channel

import (
	"strconv"
	"strings"

	"github.com/rgbkbdd/corectl/internal/device"
)

// Selector tracks the current notification channel for one line. It
// resets to 0 at the start of every line (line-local, spec §4.3).
type Selector struct {
	current int
}

// NewSelector returns a selector reset to channel 0.
func NewSelector() *Selector {
	return &Selector{current: 0}
}

// Current returns the notification channel in effect for the next
// output-producing command.
func (s *Selector) Current() int {
	return s.current
}

// Reset sets the selector back to channel 0; call this once per line.
func (s *Selector) Reset() {
	s.current = 0
}

// TryConsume checks whether word is an "@N" channel switch and, if so,
// updates the current channel (when N is in range) and reports true.
// An out-of-range @N is ignored but the word is still consumed (spec
// §4.3: "An out-of-range @N is ignored").
func (s *Selector) TryConsume(word string) bool {
	if !strings.HasPrefix(word, "@") {
		return false
	}
	n, err := strconv.Atoi(word[1:])
	if err != nil {
		return false
	}
	if n >= 0 && n < device.OutfifoMax {
		s.current = n
	}
	return true
}

// Table tracks which notification channels are currently open.
// Channel 0 always exists and cannot be destroyed.
type Table struct {
	open map[int]bool
}

// NewTable returns a table with only channel 0 open.
func NewTable() *Table {
	return &Table{open: map[int]bool{0: true}}
}

// Create opens channel n. An out-of-range n is silently ignored (spec
// §7: out-of-range parameters have no effect), not reported as an
// error.
func (t *Table) Create(n int) {
	if n < 0 || n >= device.OutfifoMax {
		return
	}
	t.open[n] = true
}

// Destroy closes channel n. Channel 0 is permanent (spec §3) and n<=0
// is otherwise out of NOTIFYOFF's argument range (spec §4.5); both are
// silently ignored rather than reported as an error (spec §7).
func (t *Table) Destroy(n int) {
	if n <= 0 {
		return
	}
	delete(t.open, n)
}

// IsOpen reports whether channel n is currently open.
func (t *Table) IsOpen(n int) bool {
	return t.open[n]
}
