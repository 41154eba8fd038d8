package flush

import (
	"time"

	"golang.org/x/sys/unix"
)

// Clock abstracts monotonic time and sleeping so the rate limiter can
// be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock sleeps via a monotonic nanosleep (golang.org/x/sys/unix)
// rather than time.Sleep, mirroring the reference transport's direct
// use of a monotonic clock for USB frame pacing.
type SystemClock struct{}

// Now returns the current monotonic-backed time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for at least d using clock_nanosleep against
// CLOCK_MONOTONIC, falling back to time.Sleep if the syscall fails
// (e.g. unsupported platform).
func (SystemClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		rem := unix.Timespec{}
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, 0, &ts, &rem)
		if err == nil {
			return
		}
		if err == unix.EINTR {
			ts = rem
			continue
		}
		time.Sleep(d)
		return
	}
}
