package retry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithResetSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithReset(
		func() error { calls++; return nil },
		func() error { t.Fatal("reset should not be called"); return nil },
	)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithResetRetriesAfterTransientFailure(t *testing.T) {
	attempts := 0
	resets := 0
	err := WithReset(
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func() error { resets++; return nil },
	)
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, resets)
}

func TestWithResetAbortsWhenResetFails(t *testing.T) {
	err := WithReset(
		func() error { return errors.New("transient") },
		func() error { return errors.New("reset also failed") },
	)
	assert.ErrorIs(t, err, ErrAbortLine)
}
