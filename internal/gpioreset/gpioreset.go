// Package gpioreset drives an optional hardware reset line some
// reference boards expose alongside their USB connection, via
// github.com/warthog618/go-gpiocdev. It is config-gated and off by
// default; when present, the retry harness pulses this line in
// addition to the vtable's own Reset call. Grounded on the
// export/pulse/release GPIO sequencing in ptt.go's gpio key-up path,
// ported from the kernel sysfs interface to the modern gpiocdev chardev
// ABI.
package gpioreset

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Line holds one requested GPIO reset output.
type Line struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	// PulseWidth is how long the line is held active before release.
	PulseWidth time.Duration
}

// Open requests offset on chipName as an active-low output, mirroring
// the export_gpio convention of treating the line as idle-high.
func Open(chipName string, offset int) (*Line, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("gpioreset: open chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsActiveLow, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("gpioreset: request line %d on %s: %w", offset, chipName, err)
	}

	return &Line{chip: chip, line: line, PulseWidth: 50 * time.Millisecond}, nil
}

// Pulse drives the line active for PulseWidth and releases it, the
// GPIO-side companion to a vtable Reset call (spec §4.6's reset, extended
// to boards that wire a dedicated reset pin instead of relying solely
// on a USB control transfer).
func (l *Line) Pulse() error {
	if err := l.line.SetValue(1); err != nil {
		return fmt.Errorf("gpioreset: assert: %w", err)
	}
	time.Sleep(l.PulseWidth)
	if err := l.line.SetValue(0); err != nil {
		return fmt.Errorf("gpioreset: release: %w", err)
	}
	return nil
}

// Close releases the line and chip handle.
func (l *Line) Close() error {
	lineErr := l.line.Close()
	chipErr := l.chip.Close()
	if lineErr != nil {
		return lineErr
	}
	return chipErr
}
