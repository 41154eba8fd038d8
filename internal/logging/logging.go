// Package logging sets up the structured logger used across the
// daemon and CLI. It replaces the color-coded dw_printf/text_color_set
// severity idiom with charmbracelet/log's level-based styling, keeping
// the same "one severity per call site" shape.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Options controls how New configures the logger.
type Options struct {
	// Debug enables debug-level output and source location reporting.
	Debug bool
	// JSON switches to line-delimited JSON output, for daemon mode
	// under a supervisor that captures stdout.
	JSON bool
	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// New builds a logger per opts and installs it as the package default,
// mirroring text_color_set's role as a single global severity sink.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	format := log.TextFormatter
	if opts.JSON {
		format = log.JSONFormatter
	}

	l := log.NewWithOptions(out, log.Options{
		Formatter:       format,
		ReportTimestamp: true,
		ReportCaller:    opts.Debug,
	})

	if opts.Debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}

	log.SetDefault(l)
	return l
}

// ForDevice returns a child logger tagged with the device's identity,
// the way every dw_printf call site used to prefix its own subsystem
// name by convention.
func ForDevice(l *log.Logger, name string) *log.Logger {
	return l.With("device", name)
}

// TimestampFormatter renders instants using a strftime-style template
// (config key log_timestamp_format), mirroring kissutil.go's -T flag
// for prefixing received frames with a formatted timestamp.
type TimestampFormatter struct {
	f *strftime.Strftime
}

// NewTimestampFormatter compiles layout. An empty layout is rejected;
// callers should skip constructing one rather than pass "".
func NewTimestampFormatter(layout string) (*TimestampFormatter, error) {
	if layout == "" {
		return nil, fmt.Errorf("logging: empty timestamp format")
	}
	f, err := strftime.New(layout)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid timestamp format %q: %w", layout, err)
	}
	return &TimestampFormatter{f: f}, nil
}

// Format renders at per the compiled layout.
func (t *TimestampFormatter) Format(at time.Time) string {
	return t.f.FormatString(at)
}
