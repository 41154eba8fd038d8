// Package retry implements the retry-with-reset combinator (spec §4.6):
// a failing mutator triggers a device reset and is re-attempted; a
// reset failure aborts the current line.
package retry

import "errors"

// ErrAbortLine is returned when a reset itself fails; callers should
// treat this as "abort the current line / tear the device down"
// (spec §6 return-value contract).
var ErrAbortLine = errors.New("retry: device reset failed, aborting line")

// WithReset invokes op; while op returns a non-nil error, it invokes
// reset to recover the device and retries op. If reset itself fails,
// WithReset returns ErrAbortLine immediately without retrying further.
func WithReset(op func() error, reset func() error) error {
	for {
		err := op()
		if err == nil {
			return nil
		}
		if resetErr := reset(); resetErr != nil {
			return ErrAbortLine
		}
	}
}
