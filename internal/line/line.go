// Package line ties the full per-device pipeline together (spec §2):
// each input line runs through the dispatcher (which internally
// applies the tokenizer, channel selector, and admissibility gate) and
// is then followed by the post-line flush and RGB rate limiter.
package line

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/dispatch"
	"github.com/rgbkbdd/corectl/internal/flush"
	"github.com/rgbkbdd/corectl/internal/gpioreset"
	"github.com/rgbkbdd/corectl/internal/logging"
	"github.com/rgbkbdd/corectl/internal/notify"
)

// Processor runs the full pipeline for one attached device.
type Processor struct {
	Device   *device.Device
	Dispatch *dispatch.Processor
	Flush    *flush.Limiter
	Debug    bool
	// Timestamp, if set, renders a strftime-formatted instant (config
	// key log_timestamp_format) into the "at" field of the dispatch-error,
	// line-aborted and flush-error log lines. The logger's own timestamp
	// column is still reported.
	Timestamp *logging.TimestampFormatter
	logger    *log.Logger
}

// New builds a line processor for d. referenceHost/legacyHost select
// platform-gated vocabulary (spec §4.1); l is used for warnings and
// abort notices (pass nil for the package default).
func New(d *device.Device, referenceHost, legacyHost bool, l *log.Logger) *Processor {
	if l == nil {
		l = log.Default()
	}
	return &Processor{
		Device:   d,
		Dispatch: dispatch.New(d, referenceHost, legacyHost, l),
		Flush:    flush.NewLimiter(),
		logger:   l,
	}
}

// SetNotifyRouter attaches the sink router NOTIFYON/NOTIFYOFF drive:
// open resolves a channel number to the node an external collaborator
// is expected to have already created (spec Non-goals: the core never
// creates the node itself).
func (p *Processor) SetNotifyRouter(router *notify.Router, open func(n int) (notify.Sink, error)) {
	p.Dispatch.Router = router
	p.Dispatch.NotifyOpen = open
}

// SetGPIO attaches a hardware reset line to both the dispatcher's and
// the flush stage's retry harnesses, so every Vtable.Reset call this
// device triggers also pulses the board's dedicated reset pin.
func (p *Processor) SetGPIO(l *gpioreset.Line) {
	p.Dispatch.GPIO = l
	p.Flush.GPIO = l
}

// ErrAborted is returned when a line aborted mid-dispatch (a reset
// failure or firmware-update failure, spec §4.6/§6), meaning the device
// is lost. Run skips the flush for such a line and does not tear the
// device down itself.
var ErrAborted = fmt.Errorf("line: aborted")

// Run processes one line end to end: dispatch, then flush (unless the
// line aborted, in which case flush is skipped — an aborted device has
// nothing sane left to flush).
func (p *Processor) Run(rawLine string) error {
	result, err := p.Dispatch.ProcessLine(rawLine)
	if err != nil {
		p.logger.Error("dispatch error", "err", err, "at", p.stamp())
		return err
	}
	if result.Aborted {
		p.logger.Warn("line aborted", "last_verb", result.LastVerb, "at", p.stamp())
		return ErrAborted
	}

	if err := p.Flush.Run(p.Device, result.LastVerb, p.Debug); err != nil {
		p.logger.Error("flush error", "err", err, "at", p.stamp())
		return err
	}
	return nil
}

// stamp renders the current instant through Timestamp when configured,
// and is a no-op otherwise so callers can always pass its result to a
// logger without a nil check.
func (p *Processor) stamp() string {
	if p.Timestamp == nil {
		return ""
	}
	return p.Timestamp.Format(time.Now())
}
