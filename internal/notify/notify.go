// Package notify implements the core's side of the notification
// channel (spec §3 NotificationChannel, §6 NOTIFYON/NOTIFYOFF): the
// channel table already lives in internal/channel, wired here to an
// actual output sink. Creating the backing FIFO/device node is an
// external collaborator's job (spec Non-goals); this package only
// opens and writes to whatever node already exists at the configured
// path, the way serial_port_open hides the OS-specific handle behind
// term.Term.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/term"
)

// Sink is one open notification channel's output.
type Sink interface {
	io.WriteCloser
}

// OpenNode opens path as a raw-mode terminal device, mirroring
// serial_port_open's use of github.com/pkg/term for a non-blocking
// character device handle. Use this for channels backed by a real tty
// or pty node.
func OpenNode(path string) (Sink, error) {
	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("notify: open %s: %w", path, err)
	}
	return t, nil
}

// OpenFile opens path as a plain file sink, for channels backed by a
// named pipe rather than a tty (the common case for a notification
// FIFO created by an external collaborator).
func OpenFile(path string) (Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("notify: open %s: %w", path, err)
	}
	return f, nil
}

// Router owns the open Sink for each notification channel number and
// fans a formatted notification out to whichever channel is currently
// selected.
type Router struct {
	sinks map[int]Sink
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{sinks: map[int]Sink{}}
}

// Bind associates channel n with sink, replacing any previous binding.
func (r *Router) Bind(n int, sink Sink) {
	r.sinks[n] = sink
}

// Unbind closes and removes channel n's sink, if any.
func (r *Router) Unbind(n int) error {
	sink, ok := r.sinks[n]
	if !ok {
		return nil
	}
	delete(r.sinks, n)
	return sink.Close()
}

// Send writes msg to channel n's sink. It is a no-op, not an error, if
// no sink is bound for n: a channel the Table considers open but that
// has no external reader yet simply drops notifications.
func (r *Router) Send(n int, msg []byte) error {
	sink, ok := r.sinks[n]
	if !ok {
		return nil
	}
	_, err := sink.Write(msg)
	return err
}
